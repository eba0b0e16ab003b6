package service_test

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/somandosabores/paynotify/internal/domain"
	"github.com/somandosabores/paynotify/internal/event"
	"github.com/somandosabores/paynotify/internal/repository"
	"github.com/somandosabores/paynotify/internal/service"
	"github.com/somandosabores/paynotify/internal/testutil"
)

type recordingNotifier struct {
	mu   sync.Mutex
	sent []string
	err  error
}

func (n *recordingNotifier) PaymentConfirmed(_ context.Context, c *domain.Customer, _ *domain.Booking, _ *domain.PaymentEvent) error {
	if n.err != nil {
		return n.err
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, c.Email)
	return nil
}

func confirmedWire(paymentID, ref string) []byte {
	return []byte(fmt.Sprintf(
		`{"event":"PAYMENT_CONFIRMED","payment":{"id":%q,"externalReference":%q,"value":150.00,"billingType":"PIX","description":"Reserva 12/03","confirmedDate":"2026-03-12"}}`,
		paymentID, ref,
	))
}

func TestReconciliation_EndToEnd(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()

	store := repository.NewBookingStore(db)
	notifier := &recordingNotifier{}
	r := service.NewReconciler(store, notifier, slog.Default(), service.Timeouts{})

	customer := testutil.SeedCustomer(t, db, "Maria", "maria@example.com")
	booking := testutil.SeedBooking(t, db, customer.ID, domain.PricingStatusPending)

	evt, err := event.Parse(confirmedWire("pay_1", booking.ID.String()))
	require.NoError(t, err)

	res, err := r.Process(ctx, evt)
	require.NoError(t, err)
	assert.Equal(t, service.Result{Processed: true, Notified: true}, res)

	assert.Equal(t, domain.PricingStatusConfirmed, testutil.GetPricingStatus(t, db, booking.Kind, booking.ID))
	assert.Equal(t, 1, testutil.CountPayments(t, db, "pay_1"))
	assert.Equal(t, []string{"maria@example.com"}, notifier.sent)

	var amount decimal.Decimal
	require.NoError(t, db.QueryRow(`SELECT amount FROM payments WHERE payment_id = 'pay_1'`).Scan(&amount))
	assert.True(t, amount.Equal(decimal.NewFromFloat(150.00)))

	// Replaying the identical delivery must change nothing.
	replay, err := r.Process(ctx, evt)
	require.NoError(t, err)
	assert.Equal(t, service.Result{Processed: true, Duplicate: true}, replay)
	assert.Equal(t, 1, testutil.CountPayments(t, db, "pay_1"))
	assert.Len(t, notifier.sent, 1)
}

func TestReconciliation_DuplicateChargeSameBooking(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()

	store := repository.NewBookingStore(db)
	notifier := &recordingNotifier{}
	r := service.NewReconciler(store, notifier, slog.Default(), service.Timeouts{})

	customer := testutil.SeedCustomer(t, db, "Maria", "maria@example.com")
	booking := testutil.SeedBooking(t, db, customer.ID, domain.PricingStatusPending)

	first, err := event.Parse(confirmedWire("pay_1", booking.ID.String()))
	require.NoError(t, err)
	_, err = r.Process(ctx, first)
	require.NoError(t, err)

	// A second charge with a fresh payment id but the same booking must
	// not transition again or double-notify.
	second, err := event.Parse(confirmedWire("pay_2", booking.ID.String()))
	require.NoError(t, err)

	res, err := r.Process(ctx, second)
	require.NoError(t, err)
	assert.Equal(t, service.Result{Processed: true, Duplicate: true}, res)
	assert.Equal(t, 0, testutil.CountPayments(t, db, "pay_2"))
	assert.Len(t, notifier.sent, 1)
}

func TestReconciliation_ConcurrentDeliveries(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()

	store := repository.NewBookingStore(db)
	notifier := &recordingNotifier{}
	r := service.NewReconciler(store, notifier, slog.Default(), service.Timeouts{})

	customer := testutil.SeedCustomer(t, db, "Maria", "maria@example.com")
	booking := testutil.SeedBooking(t, db, customer.ID, domain.PricingStatusPending)

	evt, err := event.Parse(confirmedWire("pay_1", booking.ID.String()))
	require.NoError(t, err)

	const deliveries = 8
	results := make([]service.Result, deliveries)
	errs := make([]error, deliveries)

	var wg sync.WaitGroup
	for i := range deliveries {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = r.Process(ctx, evt)
		}()
	}
	wg.Wait()

	applied := 0
	for i := range deliveries {
		require.NoError(t, errs[i])
		assert.True(t, results[i].Processed)
		if !results[i].Duplicate {
			applied++
		}
	}

	// The unique payment_id index guarantees exactly one winner no
	// matter how the deliveries interleave.
	assert.Equal(t, 1, applied)
	assert.Equal(t, 1, testutil.CountPayments(t, db, "pay_1"))
	assert.Equal(t, domain.PricingStatusConfirmed, testutil.GetPricingStatus(t, db, booking.Kind, booking.ID))
}

func TestReconciliation_NotifierFailureLeavesPaymentApplied(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()

	store := repository.NewBookingStore(db)
	notifier := &recordingNotifier{err: fmt.Errorf("smtp unavailable")}
	r := service.NewReconciler(store, notifier, slog.Default(), service.Timeouts{})

	customer := testutil.SeedCustomer(t, db, "Maria", "maria@example.com")
	booking := testutil.SeedBooking(t, db, customer.ID, domain.PricingStatusPending)

	evt, err := event.Parse(confirmedWire("pay_1", booking.ID.String()))
	require.NoError(t, err)

	res, err := r.Process(ctx, evt)
	require.NoError(t, err)
	assert.True(t, res.Processed)
	assert.False(t, res.Notified)

	assert.Equal(t, domain.PricingStatusConfirmed, testutil.GetPricingStatus(t, db, booking.Kind, booking.ID))
	assert.Equal(t, 1, testutil.CountPayments(t, db, "pay_1"))

	// Redelivery after the failed e-mail is a duplicate, not a retry of
	// the whole flow.
	replay, err := r.Process(ctx, evt)
	require.NoError(t, err)
	assert.Equal(t, service.Result{Processed: true, Duplicate: true}, replay)
}
