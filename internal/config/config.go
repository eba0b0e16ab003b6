package config

import (
	"fmt"

	env "github.com/caarlos0/env/v11"
)

type Config struct {
	// BookingBackend selects where bookings live: "postgres" for the
	// local relational store, "remote" for the bookings HTTP API.
	BookingBackend string `env:"BOOKING_BACKEND" envDefault:"postgres"`

	DatabaseURL   string `env:"DATABASE_URL"`
	BookingAPIURL string `env:"BOOKING_API_URL"`

	ProviderAPIURL string `env:"PROVIDER_API_URL" envDefault:"https://api-sandbox.asaas.com/v3"`
	ProviderAPIKey string `env:"PROVIDER_API_KEY"`
	WebhookToken   string `env:"WEBHOOK_TOKEN,required"`

	SMTPHost     string `env:"SMTP_HOST,required"`
	SMTPPort     string `env:"SMTP_PORT" envDefault:"587"`
	SMTPUsername string `env:"SMTP_USERNAME"`
	SMTPPassword string `env:"SMTP_PASSWORD"`
	MailFrom     string `env:"MAIL_FROM,required"`
	MailFromName string `env:"MAIL_FROM_NAME" envDefault:"Somando Sabores"`

	Port     int    `env:"PORT" envDefault:"8080"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	AppEnv   string `env:"APP_ENV" envDefault:"production"`

	LookupTimeoutS     int `env:"LOOKUP_TIMEOUT_S" envDefault:"5"`
	TransitionTimeoutS int `env:"TRANSITION_TIMEOUT_S" envDefault:"5"`
	NotifyTimeoutS     int `env:"NOTIFY_TIMEOUT_S" envDefault:"15"`

	DBMaxOpenConns     int `env:"DB_MAX_OPEN_CONNS" envDefault:"25"`
	DBMaxIdleConns     int `env:"DB_MAX_IDLE_CONNS" envDefault:"10"`
	DBConnMaxLifetimeS int `env:"DB_CONN_MAX_LIFETIME_S" envDefault:"300"`
	DBConnMaxIdleTimeS int `env:"DB_CONN_MAX_IDLE_TIME_S" envDefault:"60"`
}

func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	switch cfg.BookingBackend {
	case "postgres":
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("config.Load: DATABASE_URL is required for the postgres backend")
		}
	case "remote":
		if cfg.BookingAPIURL == "" {
			return nil, fmt.Errorf("config.Load: BOOKING_API_URL is required for the remote backend")
		}
	default:
		return nil, fmt.Errorf("config.Load: unknown BOOKING_BACKEND %q", cfg.BookingBackend)
	}

	return &cfg, nil
}
