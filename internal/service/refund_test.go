package service

import (
	"context"
	"fmt"
	"log/slog"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/somandosabores/paynotify/internal/domain"
)

type mockDirectory struct {
	customer *domain.Customer
	err      error
	lookups  []string
}

func (m *mockDirectory) CustomerByProviderRef(_ context.Context, ref string) (*domain.Customer, error) {
	m.lookups = append(m.lookups, ref)
	return m.customer, m.err
}

type mockRefundNotifier struct {
	err  error
	sent int
}

func (m *mockRefundNotifier) PaymentRefunded(_ context.Context, _ *domain.Customer, _ *domain.PaymentEvent) error {
	if m.err != nil {
		return m.err
	}
	m.sent++
	return nil
}

func refundEvent() *domain.PaymentEvent {
	return &domain.PaymentEvent{
		PaymentID:          "pay_9",
		ProviderCustomerID: "cus_1",
		Amount:             decimal.NewFromFloat(89.90),
		Description:        "Pacote degustação",
		Kind:               domain.EventKindRefunded,
	}
}

func TestRefundProcess_SendsOneMail(t *testing.T) {
	dir := &mockDirectory{customer: &domain.Customer{Name: "João", Email: "joao@example.com"}}
	notifier := &mockRefundNotifier{}
	s := NewRefundService(dir, notifier, slog.Default(), 0)

	require.NoError(t, s.Process(context.Background(), refundEvent()))
	assert.Equal(t, 1, notifier.sent)
	assert.Equal(t, []string{"cus_1"}, dir.lookups)
}

func TestRefundProcess_RejectsNonRefundKinds(t *testing.T) {
	s := NewRefundService(&mockDirectory{}, &mockRefundNotifier{}, slog.Default(), 0)

	evt := refundEvent()
	evt.Kind = domain.EventKindConfirmed

	err := s.Process(context.Background(), evt)
	require.ErrorIs(t, err, domain.ErrMalformedEvent)
}

func TestRefundProcess_RequiresCustomerID(t *testing.T) {
	s := NewRefundService(&mockDirectory{}, &mockRefundNotifier{}, slog.Default(), 0)

	evt := refundEvent()
	evt.ProviderCustomerID = ""

	err := s.Process(context.Background(), evt)
	require.ErrorIs(t, err, domain.ErrMalformedEvent)
}

func TestRefundProcess_PropagatesFailures(t *testing.T) {
	t.Run("customer lookup", func(t *testing.T) {
		dir := &mockDirectory{err: fmt.Errorf("lookup: %w", domain.ErrCustomerNotFound)}
		s := NewRefundService(dir, &mockRefundNotifier{}, slog.Default(), 0)

		err := s.Process(context.Background(), refundEvent())
		require.ErrorIs(t, err, domain.ErrCustomerNotFound)
	})

	t.Run("mail delivery", func(t *testing.T) {
		dir := &mockDirectory{customer: &domain.Customer{Email: "joao@example.com"}}
		notifier := &mockRefundNotifier{err: fmt.Errorf("smtp unavailable")}
		s := NewRefundService(dir, notifier, slog.Default(), 0)

		require.Error(t, s.Process(context.Background(), refundEvent()))
	})
}
