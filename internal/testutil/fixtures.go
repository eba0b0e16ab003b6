package testutil

import (
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/somandosabores/paynotify/internal/domain"
)

func SeedCustomer(t *testing.T, db *sql.DB, name, email string) *domain.Customer {
	t.Helper()

	c := &domain.Customer{
		ID:          uuid.New(),
		ProviderRef: "cus_" + uuid.NewString()[:8],
		Name:        name,
		Email:       email,
	}

	_, err := db.Exec(
		`INSERT INTO customers (id, provider_ref, name, email) VALUES ($1, $2, $3, $4)`,
		c.ID, c.ProviderRef, c.Name, c.Email,
	)
	if err != nil {
		t.Fatalf("seed customer %s: %v", email, err)
	}
	return c
}

func SeedBooking(t *testing.T, db *sql.DB, customerID uuid.UUID, status domain.PricingStatus) *domain.Booking {
	t.Helper()
	return seedEntity(t, db, "bookings", domain.EntityKindBooking, customerID, status)
}

func SeedPackage(t *testing.T, db *sql.DB, customerID uuid.UUID, status domain.PricingStatus) *domain.Booking {
	t.Helper()
	return seedEntity(t, db, "packages", domain.EntityKindPackage, customerID, status)
}

func seedEntity(t *testing.T, db *sql.DB, table string, kind domain.EntityKind, customerID uuid.UUID, status domain.PricingStatus) *domain.Booking {
	t.Helper()

	b := &domain.Booking{
		ID:            uuid.New(),
		Kind:          kind,
		CustomerID:    customerID,
		PricingID:     uuid.New(),
		PricingStatus: status,
		CreatedAt:     time.Now().UTC(),
		UpdatedAt:     time.Now().UTC(),
	}

	_, err := db.Exec(
		fmt.Sprintf(`INSERT INTO %s (id, customer_id, pricing_id, pricing_status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`, table),
		b.ID, b.CustomerID, b.PricingID, b.PricingStatus, b.CreatedAt, b.UpdatedAt,
	)
	if err != nil {
		t.Fatalf("seed %s: %v", table, err)
	}
	return b
}

func GetPricingStatus(t *testing.T, db *sql.DB, kind domain.EntityKind, id uuid.UUID) domain.PricingStatus {
	t.Helper()

	table := "bookings"
	if kind == domain.EntityKindPackage {
		table = "packages"
	}

	var status domain.PricingStatus
	err := db.QueryRow(fmt.Sprintf(`SELECT pricing_status FROM %s WHERE id = $1`, table), id).Scan(&status)
	if err != nil {
		t.Fatalf("get pricing status %s: %v", id, err)
	}
	return status
}

func CountPayments(t *testing.T, db *sql.DB, paymentID string) int {
	t.Helper()

	var count int
	err := db.QueryRow(`SELECT COUNT(*) FROM payments WHERE payment_id = $1`, paymentID).Scan(&count)
	if err != nil {
		t.Fatalf("count payments for %s: %v", paymentID, err)
	}
	return count
}
