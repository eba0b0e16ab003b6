package handler

import (
	"context"
	"crypto/subtle"
	"errors"
	"io"
	"net/http"

	"github.com/somandosabores/paynotify/internal/domain"
	"github.com/somandosabores/paynotify/internal/event"
	"github.com/somandosabores/paynotify/internal/logging"
	"github.com/somandosabores/paynotify/internal/service"
)

type reconciler interface {
	Process(ctx context.Context, evt *domain.PaymentEvent) (service.Result, error)
}

type refundProcessor interface {
	Process(ctx context.Context, evt *domain.PaymentEvent) error
}

// WebhookHandler is the provider-facing ingress. The provider treats any
// 2xx as "delivered, do not retry", so every outcome the reconciler can
// acknowledge maps to 200 and only a storage failure surfaces as 500.
type WebhookHandler struct {
	reconciler reconciler
	refunds    refundProcessor
	token      string
}

func NewWebhookHandler(reconciler reconciler, refunds refundProcessor, token string) *WebhookHandler {
	return &WebhookHandler{reconciler: reconciler, refunds: refunds, token: token}
}

const tokenHeader = "Asaas-Webhook-Token"

// PaymentReceived handles PAYMENT_RECEIVED / PAYMENT_CONFIRMED
// deliveries and drives the reconciliation flow.
func (h *WebhookHandler) PaymentReceived(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	body, ok := h.authenticate(w, r)
	if !ok {
		return
	}

	evt, err := event.Parse(body)
	if err != nil {
		log.Warn("rejecting malformed payment event", "error", err)
		RespondDomainError(w, err)
		return
	}

	res, err := h.reconciler.Process(r.Context(), evt)
	if err != nil {
		// Fatal storage error: fail the request so the provider
		// redelivers rather than lose the financial record.
		log.Error("reconciliation failed", "payment_id", evt.PaymentID, "error", err)
		RespondAppError(w, ErrInternalError, nil)
		return
	}

	RespondSuccess(w, http.StatusOK, res)
}

// PaymentOverdue acknowledges overdue notices. There is no stored state
// for them; the log line is the whole treatment.
func (h *WebhookHandler) PaymentOverdue(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	body, ok := h.authenticate(w, r)
	if !ok {
		return
	}

	evt, err := event.Parse(body)
	if err != nil {
		log.Warn("rejecting malformed overdue event", "error", err)
		RespondDomainError(w, err)
		return
	}

	log.Info("payment overdue", "payment_id", evt.PaymentID, "amount", evt.Amount)
	RespondSuccess(w, http.StatusOK, map[string]bool{"received": true})
}

// PaymentRefunded triggers the one-shot refund notification. A failure
// here returns 400 so the provider redelivers; there is no local state
// to get out of sync.
func (h *WebhookHandler) PaymentRefunded(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	body, ok := h.authenticate(w, r)
	if !ok {
		return
	}

	evt, err := event.Parse(body)
	if err != nil {
		log.Warn("rejecting malformed refund event", "error", err)
		RespondDomainError(w, err)
		return
	}

	if evt.Kind != domain.EventKindRefunded {
		log.Info("ignoring non-refund event on refund endpoint", "kind", evt.Kind, "payment_id", evt.PaymentID)
		RespondSuccess(w, http.StatusOK, map[string]bool{"received": true})
		return
	}

	if err := h.refunds.Process(r.Context(), evt); err != nil {
		log.Error("refund notification failed", "payment_id", evt.PaymentID, "error", err)
		if errors.Is(err, domain.ErrMalformedEvent) {
			RespondDomainError(w, err)
			return
		}
		RespondAppError(w, ErrRefundFailed, nil)
		return
	}

	RespondSuccess(w, http.StatusOK, map[string]bool{"received": true})
}

// authenticate reads the body and checks the shared-secret token, which
// historically arrives either as a header or inside the body itself.
func (h *WebhookHandler) authenticate(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	log := logging.FromContext(r.Context())

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		log.Error("failed to read webhook body", "error", err)
		RespondAppError(w, ErrInvalidRequest, nil)
		return nil, false
	}

	token := r.Header.Get(tokenHeader)
	if token == "" {
		token = event.Token(body)
	}
	if !tokenMatches(token, h.token) {
		log.Warn("webhook token invalid or missing")
		RespondAppError(w, ErrInvalidToken, nil)
		return nil, false
	}

	return body, true
}

func tokenMatches(got, want string) bool {
	if got == "" || want == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}
