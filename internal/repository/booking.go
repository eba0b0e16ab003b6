package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/somandosabores/paynotify/internal/domain"
)

// BookingStore is the relational-backed implementation of the booking
// repository. Bookings and packages live in separate tables sharing one
// id space; payments carry a unique index on payment_id, which is what
// resolves concurrent redeliveries of the same event.
type BookingStore struct {
	db *sql.DB
}

func NewBookingStore(db *sql.DB) *BookingStore {
	return &BookingStore{db: db}
}

// Resolve maps a correlation ref to a payable entity. Bookings are
// checked before packages; the first match wins. A ref that is not a
// valid UUID cannot match anything and reports not-found rather than an
// error, since the provider echoes whatever the merchant supplied.
func (s *BookingStore) Resolve(ctx context.Context, ref string) (*domain.Booking, error) {
	id, err := uuid.Parse(ref)
	if err != nil {
		return nil, fmt.Errorf("Resolve: %w", domain.ErrBookingNotFound)
	}

	b, err := s.getEntity(ctx, domain.EntityKindBooking, id)
	if err == nil {
		return b, nil
	}
	if !errors.Is(err, domain.ErrBookingNotFound) {
		return nil, err
	}

	return s.getEntity(ctx, domain.EntityKindPackage, id)
}

func (s *BookingStore) getEntity(ctx context.Context, kind domain.EntityKind, id uuid.UUID) (*domain.Booking, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, customer_id, pricing_id, pricing_status, created_at, updated_at
		FROM `+tableFor(kind)+` WHERE id = $1`, id,
	)

	b := domain.Booking{Kind: kind}
	err := row.Scan(&b.ID, &b.CustomerID, &b.PricingID, &b.PricingStatus, &b.CreatedAt, &b.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("getEntity: %w", domain.ErrBookingNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getEntity: %w", err)
	}
	return &b, nil
}

// HasPayment is the idempotency guard: true iff a payment record for the
// provider's payment id already exists.
func (s *BookingStore) HasPayment(ctx context.Context, paymentID string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM payments WHERE payment_id = $1)`, paymentID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("HasPayment: %w", err)
	}
	return exists, nil
}

// TransitionToConfirmed flips the entity's pricing status from pending
// to confirmed and inserts the payment record, both inside one
// transaction. Either both land or neither does.
//
// Returns domain.ErrAlreadyConfirmed when the entity is already
// confirmed (no-op, nothing written) and domain.ErrDuplicatePayment when
// the unique payment_id index rejects the insert, which is how a race
// between two concurrent deliveries of the same payment resolves.
func (s *BookingStore) TransitionToConfirmed(ctx context.Context, b *domain.Booking, rec *domain.PaymentRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("TransitionToConfirmed: begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE `+tableFor(b.Kind)+` SET pricing_status = $1, updated_at = now()
		WHERE id = $2 AND pricing_status = $3`,
		domain.PricingStatusConfirmed, b.ID, domain.PricingStatusPending,
	)
	if err != nil {
		return fmt.Errorf("TransitionToConfirmed: update status: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("TransitionToConfirmed: rows affected: %w", err)
	}
	if rows == 0 {
		var status domain.PricingStatus
		err := tx.QueryRowContext(ctx,
			`SELECT pricing_status FROM `+tableFor(b.Kind)+` WHERE id = $1`, b.ID,
		).Scan(&status)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("TransitionToConfirmed: %w", domain.ErrBookingNotFound)
		}
		if err != nil {
			return fmt.Errorf("TransitionToConfirmed: recheck status: %w", err)
		}
		if status == domain.PricingStatusConfirmed {
			return fmt.Errorf("TransitionToConfirmed: %w", domain.ErrAlreadyConfirmed)
		}
		return fmt.Errorf("TransitionToConfirmed: entity %s in unexpected status %q", b.ID, status)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO payments (id, payment_id, entity_kind, booking_id, customer_id, amount, method, description, applied_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		rec.ID, rec.PaymentID, rec.EntityKind, rec.BookingID, rec.CustomerID,
		rec.Amount, rec.Method, rec.Description, rec.AppliedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("TransitionToConfirmed: %w", domain.ErrDuplicatePayment)
		}
		return fmt.Errorf("TransitionToConfirmed: insert payment: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("TransitionToConfirmed: commit: %w", err)
	}
	return nil
}

// Customer returns the local customer a booking belongs to.
func (s *BookingStore) Customer(ctx context.Context, id uuid.UUID) (*domain.Customer, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, provider_ref, name, email FROM customers WHERE id = $1`, id,
	)
	return scanCustomer(row)
}

// CustomerByProviderRef looks a customer up by the billing provider's id
// for them, which is all a refund event carries.
func (s *BookingStore) CustomerByProviderRef(ctx context.Context, ref string) (*domain.Customer, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, provider_ref, name, email FROM customers WHERE provider_ref = $1`, ref,
	)
	return scanCustomer(row)
}

func scanCustomer(s scanner) (*domain.Customer, error) {
	var c domain.Customer
	err := s.Scan(&c.ID, &c.ProviderRef, &c.Name, &c.Email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("scanCustomer: %w", domain.ErrCustomerNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("scanCustomer: %w", err)
	}
	return &c, nil
}

func tableFor(kind domain.EntityKind) string {
	if kind == domain.EntityKindPackage {
		return "packages"
	}
	return "bookings"
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
