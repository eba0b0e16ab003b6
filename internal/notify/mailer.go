package notify

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strings"
	"time"

	"github.com/somandosabores/paynotify/internal/domain"
)

type SMTPConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
	FromName string
}

// Mailer delivers customer notifications over SMTP. The constructor
// validates credentials up front so a misconfigured deployment fails at
// startup instead of at the first payment.
type Mailer struct {
	cfg  SMTPConfig
	addr string
	auth smtp.Auth
}

func NewMailer(cfg SMTPConfig) (*Mailer, error) {
	if cfg.Host == "" || cfg.Port == "" {
		return nil, fmt.Errorf("NewMailer: SMTP host and port are required")
	}
	if cfg.From == "" {
		return nil, fmt.Errorf("NewMailer: sender address is required")
	}

	m := &Mailer{cfg: cfg, addr: net.JoinHostPort(cfg.Host, cfg.Port)}
	if cfg.Username != "" && cfg.Password != "" {
		m.auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}
	return m, nil
}

func (m *Mailer) PaymentConfirmed(ctx context.Context, c *domain.Customer, b *domain.Booking, evt *domain.PaymentEvent) error {
	html, err := renderConfirmation(c, b, evt)
	if err != nil {
		return fmt.Errorf("PaymentConfirmed: %w", err)
	}
	return m.send(ctx, c.Email, "Pagamento Confirmado", html)
}

func (m *Mailer) PaymentRefunded(ctx context.Context, c *domain.Customer, evt *domain.PaymentEvent) error {
	html, err := renderRefund(c, evt)
	if err != nil {
		return fmt.Errorf("PaymentRefunded: %w", err)
	}
	return m.send(ctx, c.Email, "Seu Reembolso foi Processado", html)
}

func (m *Mailer) send(ctx context.Context, to, subject, html string) error {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", m.addr)
	if err != nil {
		return fmt.Errorf("send: dial: %w", err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	} else {
		conn.SetDeadline(time.Now().Add(15 * time.Second))
	}

	client, err := smtp.NewClient(conn, m.cfg.Host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("send: handshake: %w", err)
	}
	defer client.Close()

	if ok, _ := client.Extension("STARTTLS"); ok {
		if err := client.StartTLS(&tls.Config{ServerName: m.cfg.Host}); err != nil {
			return fmt.Errorf("send: starttls: %w", err)
		}
	}
	if m.auth != nil {
		if err := client.Auth(m.auth); err != nil {
			return fmt.Errorf("send: auth: %w", err)
		}
	}

	if err := client.Mail(m.cfg.From); err != nil {
		return fmt.Errorf("send: mail from: %w", err)
	}
	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("send: rcpt: %w", err)
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("send: data: %w", err)
	}
	if _, err := w.Write(m.message(to, subject, html)); err != nil {
		return fmt.Errorf("send: write: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("send: close data: %w", err)
	}

	return client.Quit()
}

func (m *Mailer) message(to, subject, html string) []byte {
	from := m.cfg.From
	if m.cfg.FromName != "" {
		from = fmt.Sprintf("%q <%s>", m.cfg.FromName, m.cfg.From)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\nTo: %s\r\nSubject: %s\r\n", from, to, subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=UTF-8\r\n\r\n")
	b.WriteString(html)
	return []byte(b.String())
}
