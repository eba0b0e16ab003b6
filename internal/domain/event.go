package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type EventKind string

const (
	EventKindReceived  EventKind = "received"
	EventKindConfirmed EventKind = "confirmed"
	EventKindOverdue   EventKind = "overdue"
	EventKindRefunded  EventKind = "refunded"
	EventKindOther     EventKind = "other"
)

// PaymentEvent is the normalized form of an inbound provider webhook,
// independent of which historical wire shape it arrived in.
type PaymentEvent struct {
	// PaymentID is assigned by the provider and is globally unique per
	// payment. It is the idempotency key for the whole flow.
	PaymentID string

	// CorrelationRef is the merchant-supplied identifier attached to the
	// charge at creation time. Nil when the provider omitted it.
	CorrelationRef *string

	// ProviderCustomerID is the provider-side customer id carried on the
	// payment, used by the refund flow to address the notification.
	ProviderCustomerID string

	Amount        decimal.Decimal
	Description   string
	BillingMethod string
	ConfirmedAt   time.Time
	Kind          EventKind
}

// Confirms reports whether the event represents a settled payment that
// should drive the pending -> confirmed transition.
func (e *PaymentEvent) Confirms() bool {
	return e.Kind == EventKindReceived || e.Kind == EventKindConfirmed
}
