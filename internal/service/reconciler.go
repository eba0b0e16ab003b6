package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/somandosabores/paynotify/internal/domain"
)

type bookingStore interface {
	Resolve(ctx context.Context, ref string) (*domain.Booking, error)
	HasPayment(ctx context.Context, paymentID string) (bool, error)
	TransitionToConfirmed(ctx context.Context, b *domain.Booking, rec *domain.PaymentRecord) error
	Customer(ctx context.Context, id uuid.UUID) (*domain.Customer, error)
}

// BookingStore is the full backend surface: what the reconciler needs
// plus the provider-ref customer lookup refunds use. Both the postgres
// and the remote HTTP implementations satisfy it.
type BookingStore interface {
	bookingStore
	customerDirectory
}

type confirmationNotifier interface {
	PaymentConfirmed(ctx context.Context, c *domain.Customer, b *domain.Booking, evt *domain.PaymentEvent) error
}

// Result is what the webhook controller gets back. Any outcome carried
// in a Result is an acknowledgment; only a non-nil error from Process
// should make the caller ask the provider to retry.
type Result struct {
	Processed bool   `json:"processed"`
	Duplicate bool   `json:"duplicate"`
	Notified  bool   `json:"notified"`
	Reason    string `json:"reason,omitempty"`
}

type Timeouts struct {
	Lookup     time.Duration
	Transition time.Duration
	Notify     time.Duration
}

func (t Timeouts) withDefaults() Timeouts {
	if t.Lookup == 0 {
		t.Lookup = 5 * time.Second
	}
	if t.Transition == 0 {
		t.Transition = 5 * time.Second
	}
	if t.Notify == 0 {
		t.Notify = 15 * time.Second
	}
	return t
}

// Reconciler applies a confirmed payment to the booking it pays for:
// idempotency guard, booking resolution, the pending -> confirmed
// transition, then a single best-effort customer notification.
type Reconciler struct {
	store    bookingStore
	notifier confirmationNotifier
	logger   *slog.Logger
	timeouts Timeouts
}

func NewReconciler(store bookingStore, notifier confirmationNotifier, logger *slog.Logger, timeouts Timeouts) *Reconciler {
	return &Reconciler{
		store:    store,
		notifier: notifier,
		logger:   logger,
		timeouts: timeouts.withDefaults(),
	}
}

func (r *Reconciler) Process(ctx context.Context, evt *domain.PaymentEvent) (Result, error) {
	log := r.logger.With("payment_id", evt.PaymentID)

	if !evt.Confirms() {
		log.Info("event kind not handled by reconciliation", "kind", evt.Kind)
		return Result{Reason: "event kind not handled"}, nil
	}

	// Idempotency guard. The provider delivers at least once and the
	// service runs as multiple stateless instances, so the check goes
	// against durable storage, never memory.
	guardCtx, cancel := context.WithTimeout(ctx, r.timeouts.Lookup)
	seen, err := r.store.HasPayment(guardCtx, evt.PaymentID)
	cancel()
	if err != nil {
		return Result{}, fmt.Errorf("Process: idempotency guard: %w", err)
	}
	if seen {
		log.Info("payment already applied, skipping")
		return Result{Processed: true, Duplicate: true}, nil
	}

	if evt.CorrelationRef == nil {
		log.Warn("event has no correlation reference, needs manual reconciliation")
		return Result{Reason: "missing correlation reference"}, nil
	}

	resolveCtx, cancel := context.WithTimeout(ctx, r.timeouts.Lookup)
	booking, err := r.store.Resolve(resolveCtx, *evt.CorrelationRef)
	cancel()
	if err != nil {
		if errors.Is(err, domain.ErrBookingNotFound) {
			log.Warn("no booking for correlation reference, needs manual reconciliation",
				"correlation_ref", *evt.CorrelationRef,
			)
			return Result{Reason: "booking not found"}, nil
		}
		return Result{}, fmt.Errorf("Process: resolve booking: %w", err)
	}

	log = log.With("booking_id", booking.ID, "entity_kind", booking.Kind)

	// The guard keys on payment id, this check on booking state. Both
	// are needed: a duplicate charge arrives with a fresh payment id but
	// the same correlation ref.
	if booking.PricingStatus == domain.PricingStatusConfirmed {
		log.Info("booking already confirmed, skipping")
		return Result{Processed: true, Duplicate: true}, nil
	}

	rec := &domain.PaymentRecord{
		ID:          uuid.New(),
		PaymentID:   evt.PaymentID,
		EntityKind:  booking.Kind,
		BookingID:   booking.ID,
		CustomerID:  booking.CustomerID,
		Amount:      evt.Amount,
		Method:      evt.BillingMethod,
		Description: evt.Description,
		AppliedAt:   evt.ConfirmedAt,
	}

	txCtx, cancel := context.WithTimeout(ctx, r.timeouts.Transition)
	err = r.store.TransitionToConfirmed(txCtx, booking, rec)
	cancel()
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrAlreadyConfirmed), errors.Is(err, domain.ErrDuplicatePayment):
			log.Info("transition lost race to a concurrent delivery, treating as duplicate")
			return Result{Processed: true, Duplicate: true}, nil
		case errors.Is(err, domain.ErrBookingNotFound):
			log.Warn("booking disappeared between resolve and transition")
			return Result{Reason: "booking not found"}, nil
		default:
			return Result{}, fmt.Errorf("Process: transition: %w", err)
		}
	}

	log.Info("booking confirmed", "amount", evt.Amount, "method", evt.BillingMethod)

	// The transition is committed; an aborted inbound request must not
	// cancel the notification attempt. One attempt, no retry queue: a
	// crash here loses the e-mail, surfaced via notified=false in logs.
	notifyCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeouts.Notify)
	defer cancel()

	customer, err := r.store.Customer(notifyCtx, booking.CustomerID)
	if err != nil {
		log.Error("customer lookup failed, confirmation e-mail not sent", "error", err)
		return Result{Processed: true, Reason: "customer lookup failed"}, nil
	}

	if err := r.notifier.PaymentConfirmed(notifyCtx, customer, booking, evt); err != nil {
		log.Error("confirmation e-mail failed", "error", err, "customer_email", customer.Email)
		return Result{Processed: true, Reason: "notification failed"}, nil
	}

	log.Info("confirmation e-mail sent", "customer_email", customer.Email)
	return Result{Processed: true, Notified: true}, nil
}
