package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"time"

	"karaoke-subscription/internal/domain"
	"karaoke-subscription/internal/domain/model"
	"karaoke-subscription/internal/domain/ports/adapter"
	"karaoke-subscription/internal/infra/metrics"
)

var _ adapter.PaymentGateway = (*MercadoPagoGateway)(nil)

// MercadoPagoGateway looks payments up by id on the MercadoPago REST API.
// It is read-only: preference creation lives in the checkout frontend.
type MercadoPagoGateway struct {
	accessToken string
	baseURL     string
	client      *http.Client
}

func NewMercadoPagoGateway(accessToken, baseURL string, timeout time.Duration) *MercadoPagoGateway {
	if baseURL == "" {
		baseURL = "https://api.mercadopago.com"
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &MercadoPagoGateway{
		accessToken: accessToken,
		baseURL:     baseURL,
		client:      &http.Client{Timeout: timeout},
	}
}

func (g *MercadoPagoGateway) Name() string { return "mercadopago" }

// mercadoPagoPayment mirrors the fields we consume from GET /v1/payments/{id}.
type mercadoPagoPayment struct {
	ID                json.Number `json:"id"`
	Status            string      `json:"status"`
	ExternalReference string      `json:"external_reference"`
	TransactionAmount float64     `json:"transaction_amount"`
	Payer             struct {
		Email string `json:"email"`
	} `json:"payer"`
}

func (g *MercadoPagoGateway) FetchPayment(ctx context.Context, paymentID string) (*model.GatewayPayment, error) {
	start := time.Now()
	p, err := g.fetch(ctx, paymentID)
	metrics.ObserveGatewayLookup(time.Since(start), err == nil)
	return p, err
}

func (g *MercadoPagoGateway) fetch(ctx context.Context, paymentID string) (*model.GatewayPayment, error) {
	u := fmt.Sprintf("%s/v1/payments/%s", g.baseURL, url.PathEscape(paymentID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+g.accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", domain.ErrGatewayUnavailable, err)
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, domain.ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: status %d", domain.ErrGatewayUnavailable, resp.StatusCode)
	}

	var mp mercadoPagoPayment
	if err := json.Unmarshal(body, &mp); err != nil {
		return nil, fmt.Errorf("%w: unmarshal: %v", domain.ErrGatewayUnavailable, err)
	}

	return &model.GatewayPayment{
		ID:                   mp.ID.String(),
		Status:               mapStatus(mp.Status),
		ExternalReferenceRaw: mp.ExternalReference,
		PayerEmail:           mp.Payer.Email,
		AmountBRL:            int64(math.Round(mp.TransactionAmount * 100)),
	}, nil
}

// mapStatus folds MercadoPago's status vocabulary into the four states the
// reconciler distinguishes. Only "approved" triggers activation.
func mapStatus(s string) model.GatewayStatus {
	switch s {
	case "approved":
		return model.GatewayStatusApproved
	case "pending", "in_process", "in_mediation", "authorized":
		return model.GatewayStatusPending
	case "rejected", "cancelled", "refunded", "charged_back":
		return model.GatewayStatusRejected
	default:
		return model.GatewayStatusOther
	}
}
