package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentRecord is the durable evidence that a PaymentEvent was applied.
// Its existence for a given PaymentID is the sole idempotency signal;
// it is inserted in the same transaction as the pricing-status flip and
// never updated or deleted afterwards.
type PaymentRecord struct {
	ID         uuid.UUID
	PaymentID  string
	EntityKind EntityKind
	BookingID  uuid.UUID
	CustomerID uuid.UUID
	Amount      decimal.Decimal
	Method      string
	Description string
	AppliedAt   time.Time
}
