package domain

import (
	"time"

	"github.com/google/uuid"
)

type PricingStatus string

const (
	PricingStatusPending   PricingStatus = "pending"
	PricingStatusConfirmed PricingStatus = "confirmed"
)

// EntityKind distinguishes the payable entity a correlation ref resolved
// to. The booking backend tracks reservations and packages in the same
// id space; bookings win when both exist.
type EntityKind string

const (
	EntityKindBooking EntityKind = "booking"
	EntityKindPackage EntityKind = "package"
)

type Booking struct {
	ID            uuid.UUID
	Kind          EntityKind
	CustomerID    uuid.UUID
	PricingID     uuid.UUID
	PricingStatus PricingStatus
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Customer is read-only from this service's perspective. ProviderRef is
// the billing provider's id for the same person.
type Customer struct {
	ID          uuid.UUID
	ProviderRef string
	Name        string
	Email       string
}
