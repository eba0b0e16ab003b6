package event

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/somandosabores/paynotify/internal/domain"
)

func TestParse_FlatShape(t *testing.T) {
	body := `{
		"event": "PAYMENT_CONFIRMED",
		"payment": {
			"id": "pay_1",
			"externalReference": "book_42",
			"customer": "cus_9",
			"value": 150.00,
			"description": "Reserva 12/03",
			"billingType": "PIX",
			"confirmedDate": "2026-03-12"
		}
	}`

	evt, err := Parse([]byte(body))
	require.NoError(t, err)

	assert.Equal(t, "pay_1", evt.PaymentID)
	require.NotNil(t, evt.CorrelationRef)
	assert.Equal(t, "book_42", *evt.CorrelationRef)
	assert.Equal(t, "cus_9", evt.ProviderCustomerID)
	assert.True(t, evt.Amount.Equal(decimal.NewFromFloat(150.00)))
	assert.Equal(t, "PIX", evt.BillingMethod)
	assert.Equal(t, domain.EventKindConfirmed, evt.Kind)
	assert.True(t, evt.Confirms())
	assert.Equal(t, time.Date(2026, 3, 12, 0, 0, 0, 0, time.UTC), evt.ConfirmedAt)
}

func TestParse_NestedShape(t *testing.T) {
	body := `{
		"accessToken": "tok",
		"data": {
			"event": "PAYMENT_RECEIVED",
			"payment": {"id": "pay_2", "externalReference": "book_7", "value": 80}
		}
	}`

	evt, err := Parse([]byte(body))
	require.NoError(t, err)
	assert.Equal(t, "pay_2", evt.PaymentID)
	assert.Equal(t, domain.EventKindReceived, evt.Kind)
	assert.True(t, evt.Amount.Equal(decimal.NewFromInt(80)))
}

func TestParse_DataAsString(t *testing.T) {
	body := `{"data": "{\"event\":\"PAYMENT_REFUNDED\",\"payment\":{\"id\":\"pay_3\",\"customer\":\"cus_1\"}}"}`

	evt, err := Parse([]byte(body))
	require.NoError(t, err)
	assert.Equal(t, "pay_3", evt.PaymentID)
	assert.Equal(t, domain.EventKindRefunded, evt.Kind)
	assert.False(t, evt.Confirms())
	assert.Nil(t, evt.CorrelationRef)
}

func TestParse_Malformed(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", `not-json`},
		{"missing payment", `{"event": "PAYMENT_CONFIRMED"}`},
		{"missing payment id", `{"event": "PAYMENT_CONFIRMED", "payment": {"value": 10}}`},
		{"data string not json", `{"data": "{broken"}`},
		{"invalid value", `{"event": "PAYMENT_CONFIRMED", "payment": {"id": "p", "value": "abc"}}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.body))
			require.ErrorIs(t, err, domain.ErrMalformedEvent)
		})
	}
}

func TestParse_UnknownEventKind(t *testing.T) {
	evt, err := Parse([]byte(`{"event": "PAYMENT_CHARGEBACK", "payment": {"id": "pay_4"}}`))
	require.NoError(t, err)
	assert.Equal(t, domain.EventKindOther, evt.Kind)
}

func TestParse_EmptyExternalReference(t *testing.T) {
	evt, err := Parse([]byte(`{"event": "PAYMENT_CONFIRMED", "payment": {"id": "pay_5", "externalReference": ""}}`))
	require.NoError(t, err)
	assert.Nil(t, evt.CorrelationRef)
}

func TestToken(t *testing.T) {
	assert.Equal(t, "secret", Token([]byte(`{"accessToken": "secret"}`)))
	assert.Equal(t, "", Token([]byte(`{}`)))
	assert.Equal(t, "", Token([]byte(`broken`)))
}
