package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/somandosabores/paynotify/internal/domain"
)

type customerDirectory interface {
	CustomerByProviderRef(ctx context.Context, ref string) (*domain.Customer, error)
}

type refundNotifier interface {
	PaymentRefunded(ctx context.Context, c *domain.Customer, evt *domain.PaymentEvent) error
}

// RefundService handles refunded payments as a one-shot notification.
// There is no stored state change and no reverse transition: the refund
// e-mail either goes out or the whole request fails so the provider
// redelivers.
type RefundService struct {
	customers customerDirectory
	notifier  refundNotifier
	logger    *slog.Logger
	timeout   time.Duration
}

func NewRefundService(customers customerDirectory, notifier refundNotifier, logger *slog.Logger, timeout time.Duration) *RefundService {
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &RefundService{customers: customers, notifier: notifier, logger: logger, timeout: timeout}
}

func (s *RefundService) Process(ctx context.Context, evt *domain.PaymentEvent) error {
	if evt.Kind != domain.EventKindRefunded {
		return fmt.Errorf("Process: %w: event kind %q is not a refund", domain.ErrMalformedEvent, evt.Kind)
	}
	if evt.ProviderCustomerID == "" {
		return fmt.Errorf("Process: %w: refund event without customer id", domain.ErrMalformedEvent)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	customer, err := s.customers.CustomerByProviderRef(ctx, evt.ProviderCustomerID)
	if err != nil {
		return fmt.Errorf("Process: customer lookup: %w", err)
	}

	if err := s.notifier.PaymentRefunded(ctx, customer, evt); err != nil {
		return fmt.Errorf("Process: refund e-mail: %w", err)
	}

	s.logger.Info("refund e-mail sent",
		"payment_id", evt.PaymentID,
		"customer_email", customer.Email,
	)
	return nil
}
