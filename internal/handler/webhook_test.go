package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/somandosabores/paynotify/internal/domain"
	"github.com/somandosabores/paynotify/internal/service"
)

const testToken = "test-webhook-token"

type mockReconciler struct {
	result service.Result
	err    error
	events []*domain.PaymentEvent
}

func (m *mockReconciler) Process(_ context.Context, evt *domain.PaymentEvent) (service.Result, error) {
	m.events = append(m.events, evt)
	return m.result, m.err
}

type mockRefunds struct {
	err    error
	events []*domain.PaymentEvent
}

func (m *mockRefunds) Process(_ context.Context, evt *domain.PaymentEvent) error {
	m.events = append(m.events, evt)
	return m.err
}

func confirmedBody(paymentID string) string {
	ref := uuid.NewString()
	b, _ := json.Marshal(map[string]any{
		"event": "PAYMENT_CONFIRMED",
		"payment": map[string]any{
			"id":                paymentID,
			"externalReference": ref,
			"value":             150.00,
			"billingType":       "PIX",
		},
	})
	return string(b)
}

func postWebhook(h http.HandlerFunc, body, headerToken string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/webhooks/payment-received", strings.NewReader(body))
	if headerToken != "" {
		req.Header.Set(tokenHeader, headerToken)
	}
	rr := httptest.NewRecorder()
	h(rr, req)
	return rr
}

func TestPaymentReceived(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		headerToken string
		result      service.Result
		processErr  error
		wantStatus  int
		wantCode    string
	}{
		{
			name:        "processed event",
			body:        confirmedBody("pay_1"),
			headerToken: testToken,
			result:      service.Result{Processed: true, Notified: true},
			wantStatus:  http.StatusOK,
		},
		{
			name:        "duplicate acknowledged with 200",
			body:        confirmedBody("pay_1"),
			headerToken: testToken,
			result:      service.Result{Processed: true, Duplicate: true},
			wantStatus:  http.StatusOK,
		},
		{
			name:        "booking not found still acknowledged",
			body:        confirmedBody("pay_1"),
			headerToken: testToken,
			result:      service.Result{Reason: "booking not found"},
			wantStatus:  http.StatusOK,
		},
		{
			name:       "missing token",
			body:       confirmedBody("pay_1"),
			wantStatus: http.StatusUnauthorized,
			wantCode:   "INVALID_TOKEN",
		},
		{
			name:        "wrong token",
			body:        confirmedBody("pay_1"),
			headerToken: "wrong",
			wantStatus:  http.StatusUnauthorized,
			wantCode:    "INVALID_TOKEN",
		},
		{
			name:        "malformed payload rejected permanently",
			body:        `{"event": "PAYMENT_CONFIRMED", "payment": {"value": 10}}`,
			headerToken: testToken,
			wantStatus:  http.StatusBadRequest,
			wantCode:    "MALFORMED_EVENT",
		},
		{
			name:        "storage error asks provider to retry",
			body:        confirmedBody("pay_1"),
			headerToken: testToken,
			processErr:  fmt.Errorf("connection refused"),
			wantStatus:  http.StatusInternalServerError,
			wantCode:    "INTERNAL_ERROR",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := &mockReconciler{result: tc.result, err: tc.processErr}
			h := NewWebhookHandler(rec, &mockRefunds{}, testToken)

			rr := postWebhook(h.PaymentReceived, tc.body, tc.headerToken)
			assert.Equal(t, tc.wantStatus, rr.Code)

			var resp APIResponse
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))

			if tc.wantCode == "" {
				assert.True(t, resp.Success)
			} else {
				assert.False(t, resp.Success)
				require.NotNil(t, resp.Error)
				assert.Equal(t, tc.wantCode, resp.Error.Code)
			}
		})
	}
}

func TestPaymentReceived_TokenInBody(t *testing.T) {
	ref := uuid.NewString()
	body, _ := json.Marshal(map[string]any{
		"accessToken": testToken,
		"data": map[string]any{
			"event":   "PAYMENT_RECEIVED",
			"payment": map[string]any{"id": "pay_2", "externalReference": ref, "value": 80},
		},
	})

	rec := &mockReconciler{result: service.Result{Processed: true, Notified: true}}
	h := NewWebhookHandler(rec, &mockRefunds{}, testToken)

	rr := postWebhook(h.PaymentReceived, string(body), "")
	assert.Equal(t, http.StatusOK, rr.Code)

	require.Len(t, rec.events, 1)
	assert.Equal(t, "pay_2", rec.events[0].PaymentID)
	assert.Equal(t, domain.EventKindReceived, rec.events[0].Kind)
}

func TestPaymentReceived_ResultIsSurfaced(t *testing.T) {
	rec := &mockReconciler{result: service.Result{Processed: true, Reason: "notification failed"}}
	h := NewWebhookHandler(rec, &mockRefunds{}, testToken)

	rr := postWebhook(h.PaymentReceived, confirmedBody("pay_1"), testToken)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp struct {
		Data service.Result `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.True(t, resp.Data.Processed)
	assert.False(t, resp.Data.Notified)
	assert.Equal(t, "notification failed", resp.Data.Reason)
}

func TestPaymentOverdue(t *testing.T) {
	h := NewWebhookHandler(&mockReconciler{}, &mockRefunds{}, testToken)

	body := `{"event": "PAYMENT_OVERDUE", "payment": {"id": "pay_3", "value": 50}}`
	rr := postWebhook(h.PaymentOverdue, body, testToken)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestPaymentRefunded(t *testing.T) {
	refundBody := `{"event": "PAYMENT_REFUNDED", "payment": {"id": "pay_4", "customer": "cus_1", "value": 89.90}}`

	t.Run("refund notification sent", func(t *testing.T) {
		refunds := &mockRefunds{}
		h := NewWebhookHandler(&mockReconciler{}, refunds, testToken)

		rr := postWebhook(h.PaymentRefunded, refundBody, testToken)
		assert.Equal(t, http.StatusOK, rr.Code)
		require.Len(t, refunds.events, 1)
		assert.Equal(t, "pay_4", refunds.events[0].PaymentID)
	})

	t.Run("non-refund event ignored", func(t *testing.T) {
		refunds := &mockRefunds{}
		h := NewWebhookHandler(&mockReconciler{}, refunds, testToken)

		rr := postWebhook(h.PaymentRefunded, confirmedBody("pay_5"), testToken)
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Empty(t, refunds.events)
	})

	t.Run("failure returns 400 for redelivery", func(t *testing.T) {
		refunds := &mockRefunds{err: fmt.Errorf("lookup: %w", domain.ErrCustomerNotFound)}
		h := NewWebhookHandler(&mockReconciler{}, refunds, testToken)

		rr := postWebhook(h.PaymentRefunded, refundBody, testToken)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}
