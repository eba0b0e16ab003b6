package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/somandosabores/paynotify/internal/domain"
)

// RemoteBookingStore talks to the bookings service over HTTP instead of
// a local database. The orchestrator never knows the difference; the
// remote service owns atomicity of the confirm call and signals no-op
// and duplicate outcomes through status codes.
type RemoteBookingStore struct {
	baseURL       string
	providerURL   string
	providerToken string
	httpClient    *http.Client
}

func NewRemoteBookingStore(baseURL, providerURL, providerToken string, timeout time.Duration) *RemoteBookingStore {
	return &RemoteBookingStore{
		baseURL:       baseURL,
		providerURL:   providerURL,
		providerToken: providerToken,
		httpClient:    &http.Client{Timeout: timeout},
	}
}

// The bookings API wraps every response in the same envelope.
type apiEnvelope struct {
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Success bool            `json:"success"`
}

type apiBooking struct {
	ID            uuid.UUID `json:"id"`
	CustomerID    uuid.UUID `json:"customerId"`
	PricingID     uuid.UUID `json:"pricingId"`
	PricingStatus int       `json:"status"` // 0 = pending, 1 = paid
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

func (s *RemoteBookingStore) Resolve(ctx context.Context, ref string) (*domain.Booking, error) {
	id, err := uuid.Parse(ref)
	if err != nil {
		return nil, fmt.Errorf("Resolve: %w", domain.ErrBookingNotFound)
	}

	b, err := s.fetchEntity(ctx, domain.EntityKindBooking, "/api/Reserva/"+id.String())
	if err == nil {
		return b, nil
	}
	if !errors.Is(err, domain.ErrBookingNotFound) {
		return nil, err
	}

	return s.fetchEntity(ctx, domain.EntityKindPackage, "/api/Pacote/"+id.String())
}

func (s *RemoteBookingStore) fetchEntity(ctx context.Context, kind domain.EntityKind, path string) (*domain.Booking, error) {
	env, status, err := s.get(ctx, s.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("fetchEntity: %w", err)
	}
	if status == http.StatusNotFound {
		return nil, fmt.Errorf("fetchEntity: %w", domain.ErrBookingNotFound)
	}
	if status != http.StatusOK || !env.Success {
		return nil, fmt.Errorf("fetchEntity: unexpected status %d: %s", status, env.Message)
	}

	var ab apiBooking
	if err := json.Unmarshal(env.Data, &ab); err != nil {
		return nil, fmt.Errorf("fetchEntity: decode: %w", err)
	}

	pricingStatus := domain.PricingStatusPending
	if ab.PricingStatus == 1 {
		pricingStatus = domain.PricingStatusConfirmed
	}

	return &domain.Booking{
		ID:            ab.ID,
		Kind:          kind,
		CustomerID:    ab.CustomerID,
		PricingID:     ab.PricingID,
		PricingStatus: pricingStatus,
		CreatedAt:     ab.CreatedAt,
		UpdatedAt:     ab.UpdatedAt,
	}, nil
}

func (s *RemoteBookingStore) HasPayment(ctx context.Context, paymentID string) (bool, error) {
	_, status, err := s.get(ctx, s.baseURL+"/api/Pagamento/"+paymentID, nil)
	if err != nil {
		return false, fmt.Errorf("HasPayment: %w", err)
	}
	switch status {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, fmt.Errorf("HasPayment: unexpected status %d", status)
	}
}

type confirmRequest struct {
	PaymentID string          `json:"paymentId"`
	Amount    decimal.Decimal `json:"amount"`
	Method    string          `json:"method"`
	AppliedAt time.Time       `json:"appliedAt"`
}

// TransitionToConfirmed delegates the atomic flip-and-record to the
// bookings service: 200 applied, 404 gone, 409 already confirmed or
// payment already recorded.
func (s *RemoteBookingStore) TransitionToConfirmed(ctx context.Context, b *domain.Booking, rec *domain.PaymentRecord) error {
	path := "/api/Reserva/" + b.ID.String() + "/confirmar"
	if b.Kind == domain.EntityKindPackage {
		path = "/api/Pacote/" + b.ID.String() + "/confirmar"
	}

	body, err := json.Marshal(confirmRequest{
		PaymentID: rec.PaymentID,
		Amount:    rec.Amount,
		Method:    rec.Method,
		AppliedAt: rec.AppliedAt,
	})
	if err != nil {
		return fmt.Errorf("TransitionToConfirmed: marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("TransitionToConfirmed: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("TransitionToConfirmed: send: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	switch resp.StatusCode {
	case http.StatusOK, http.StatusNoContent:
		return nil
	case http.StatusNotFound:
		return fmt.Errorf("TransitionToConfirmed: %w", domain.ErrBookingNotFound)
	case http.StatusConflict:
		return fmt.Errorf("TransitionToConfirmed: %w", domain.ErrAlreadyConfirmed)
	default:
		return fmt.Errorf("TransitionToConfirmed: unexpected status %d", resp.StatusCode)
	}
}

type apiCustomer struct {
	ID          uuid.UUID `json:"id"`
	ProviderRef string    `json:"providerRef"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
}

func (s *RemoteBookingStore) Customer(ctx context.Context, id uuid.UUID) (*domain.Customer, error) {
	env, status, err := s.get(ctx, s.baseURL+"/api/Cliente/"+id.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("Customer: %w", err)
	}
	if status == http.StatusNotFound {
		return nil, fmt.Errorf("Customer: %w", domain.ErrCustomerNotFound)
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("Customer: unexpected status %d", status)
	}

	var ac apiCustomer
	if err := json.Unmarshal(env.Data, &ac); err != nil {
		return nil, fmt.Errorf("Customer: decode: %w", err)
	}
	return &domain.Customer{ID: ac.ID, ProviderRef: ac.ProviderRef, Name: ac.Name, Email: ac.Email}, nil
}

// CustomerByProviderRef resolves a customer through the billing
// provider's own customers endpoint, authenticated with the provider
// access token. Used by the refund flow, whose events only carry the
// provider-side customer id.
func (s *RemoteBookingStore) CustomerByProviderRef(ctx context.Context, ref string) (*domain.Customer, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.providerURL+"/customers/"+ref, nil)
	if err != nil {
		return nil, fmt.Errorf("CustomerByProviderRef: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("access_token", s.providerToken)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("CustomerByProviderRef: send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("CustomerByProviderRef: %w", domain.ErrCustomerNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("CustomerByProviderRef: unexpected status %d", resp.StatusCode)
	}

	var pc struct {
		Name  string `json:"name"`
		Email string `json:"email"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&pc); err != nil {
		return nil, fmt.Errorf("CustomerByProviderRef: decode: %w", err)
	}
	return &domain.Customer{ProviderRef: ref, Name: pc.Name, Email: pc.Email}, nil
}

func (s *RemoteBookingStore) get(ctx context.Context, url string, headers map[string]string) (*apiEnvelope, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("get: build request: %w", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("get: send: %w", err)
	}
	defer resp.Body.Close()

	var env apiEnvelope
	if resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&env); err != nil {
			return nil, resp.StatusCode, fmt.Errorf("get: decode: %w", err)
		}
	} else {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	}
	return &env, resp.StatusCode, nil
}
