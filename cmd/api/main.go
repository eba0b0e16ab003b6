package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/somandosabores/paynotify/internal/config"
	"github.com/somandosabores/paynotify/internal/handler"
	"github.com/somandosabores/paynotify/internal/logging"
	"github.com/somandosabores/paynotify/internal/middleware"
	"github.com/somandosabores/paynotify/internal/notify"
	"github.com/somandosabores/paynotify/internal/repository"
	"github.com/somandosabores/paynotify/internal/service"
)

func main() {
	_ = godotenv.Load(".env")

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logging.Init("paynotify-api", cfg.LogLevel, cfg.AppEnv)

	mailer, err := notify.NewMailer(notify.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.MailFrom,
		FromName: cfg.MailFromName,
	})
	if err != nil {
		slog.Error("failed to configure mailer", "error", err)
		os.Exit(1)
	}

	store, db, err := buildStore(cfg)
	if err != nil {
		slog.Error("failed to set up booking store", "error", err)
		os.Exit(1)
	}
	if db != nil {
		defer db.Close()
	}

	logger := slog.Default()
	timeouts := service.Timeouts{
		Lookup:     time.Duration(cfg.LookupTimeoutS) * time.Second,
		Transition: time.Duration(cfg.TransitionTimeoutS) * time.Second,
		Notify:     time.Duration(cfg.NotifyTimeoutS) * time.Second,
	}
	reconciler := service.NewReconciler(store, mailer, logger, timeouts)
	refunds := service.NewRefundService(store, mailer, logger, timeouts.Notify)

	webhooks := handler.NewWebhookHandler(reconciler, refunds, cfg.WebhookToken)
	health := handler.NewHealthHandler(db)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /webhooks/payment-received", webhooks.PaymentReceived)
	mux.HandleFunc("POST /webhooks/payment-overdue", webhooks.PaymentOverdue)
	mux.HandleFunc("POST /webhooks/payment-refunded", webhooks.PaymentRefunded)
	mux.HandleFunc("GET /health/live", health.Liveness)
	mux.HandleFunc("GET /health/ready", health.Readiness)

	chain := middleware.RequestID(middleware.Logging(middleware.Recovery(mux)))

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           chain,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		slog.Info("server started", "addr", addr, "booking_backend", cfg.BookingBackend)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}

// buildStore wires the configured booking backend. The returned *sql.DB
// is nil for the remote backend; the readiness probe treats that as
// nothing to check.
func buildStore(cfg *config.Config) (service.BookingStore, *sql.DB, error) {
	switch cfg.BookingBackend {
	case "remote":
		store := repository.NewRemoteBookingStore(
			cfg.BookingAPIURL,
			cfg.ProviderAPIURL,
			cfg.ProviderAPIKey,
			time.Duration(cfg.LookupTimeoutS)*time.Second,
		)
		return store, nil, nil
	default:
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		db, err := repository.NewPostgresDB(ctx, cfg.DatabaseURL, repository.PoolConfig{
			MaxOpenConns:     cfg.DBMaxOpenConns,
			MaxIdleConns:     cfg.DBMaxIdleConns,
			ConnMaxLifetimeS: cfg.DBConnMaxLifetimeS,
			ConnMaxIdleTimeS: cfg.DBConnMaxIdleTimeS,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("buildStore: %w", err)
		}
		return repository.NewBookingStore(db), db, nil
	}
}
