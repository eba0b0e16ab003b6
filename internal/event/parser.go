package event

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/somandosabores/paynotify/internal/domain"
)

// The provider has delivered three envelope shapes over time: a flat
// {event, payment} body, the same object nested under "data", and
// "data" carrying the object as a JSON-encoded string. Parse accepts
// all three and produces one normalized PaymentEvent.

type envelope struct {
	AccessToken string          `json:"accessToken"`
	Event       string          `json:"event"`
	Payment     json.RawMessage `json:"payment"`
	Data        json.RawMessage `json:"data"`
}

type wirePayload struct {
	Event   string       `json:"event"`
	Payment *wirePayment `json:"payment"`
}

type wirePayment struct {
	ID                string      `json:"id"`
	ExternalReference *string     `json:"externalReference"`
	Customer          string      `json:"customer"`
	Value             json.Number `json:"value"`
	Description       string      `json:"description"`
	BillingType       string      `json:"billingType"`
	ConfirmedDate     string      `json:"confirmedDate"`
	PaymentDate       string      `json:"paymentDate"`
}

// Token extracts the shared-secret token some deliveries carry in the
// body instead of a header. Empty when absent or unreadable; the caller
// decides what an empty token means.
func Token(body []byte) string {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return ""
	}
	return env.AccessToken
}

// Parse normalizes a raw webhook body into a PaymentEvent. All failures
// wrap domain.ErrMalformedEvent and must be treated as permanent
// rejections, never retried.
func Parse(body []byte) (*domain.PaymentEvent, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("Parse: %w: %v", domain.ErrMalformedEvent, err)
	}

	payload, err := unwrap(env)
	if err != nil {
		return nil, err
	}

	if payload.Payment == nil || payload.Payment.ID == "" {
		return nil, fmt.Errorf("Parse: %w: missing payment.id", domain.ErrMalformedEvent)
	}

	p := payload.Payment

	amount := decimal.Zero
	if p.Value != "" {
		amount, err = decimal.NewFromString(p.Value.String())
		if err != nil {
			return nil, fmt.Errorf("Parse: %w: invalid payment.value %q", domain.ErrMalformedEvent, p.Value)
		}
	}

	var ref *string
	if p.ExternalReference != nil && *p.ExternalReference != "" {
		ref = p.ExternalReference
	}

	return &domain.PaymentEvent{
		PaymentID:          p.ID,
		CorrelationRef:     ref,
		ProviderCustomerID: p.Customer,
		Amount:             amount,
		Description:        p.Description,
		BillingMethod:      p.BillingType,
		ConfirmedAt:        parseConfirmedAt(p),
		Kind:               kindOf(payload.Event),
	}, nil
}

func unwrap(env envelope) (*wirePayload, error) {
	if len(env.Data) == 0 {
		// Flat shape: event and payment at the top level.
		return &wirePayload{Event: env.Event, Payment: decodePayment(env.Payment)}, nil
	}

	raw := env.Data
	if raw[0] == '"' {
		// data delivered as a JSON-encoded string.
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("unwrap: %w: data is not a string", domain.ErrMalformedEvent)
		}
		raw = []byte(s)
	}

	var payload wirePayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("unwrap: %w: %v", domain.ErrMalformedEvent, err)
	}
	return &payload, nil
}

func decodePayment(raw json.RawMessage) *wirePayment {
	if len(raw) == 0 {
		return nil
	}
	var p wirePayment
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil
	}
	return &p
}

// The provider timestamps settled payments with either a full RFC 3339
// instant or a bare date; absent both, the delivery time stands in.
func parseConfirmedAt(p *wirePayment) time.Time {
	for _, s := range []string{p.ConfirmedDate, p.PaymentDate} {
		if s == "" {
			continue
		}
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			return t
		}
		if t, err := time.Parse("2006-01-02", s); err == nil {
			return t
		}
	}
	return time.Now().UTC()
}

func kindOf(event string) domain.EventKind {
	switch event {
	case "PAYMENT_RECEIVED":
		return domain.EventKindReceived
	case "PAYMENT_CONFIRMED":
		return domain.EventKindConfirmed
	case "PAYMENT_OVERDUE":
		return domain.EventKindOverdue
	case "PAYMENT_REFUNDED":
		return domain.EventKindRefunded
	default:
		return domain.EventKindOther
	}
}
