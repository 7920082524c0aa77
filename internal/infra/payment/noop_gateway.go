package payment

import (
	"context"

	"karaoke-subscription/internal/domain"
	"karaoke-subscription/internal/domain/model"
	"karaoke-subscription/internal/domain/ports/adapter"
)

var _ adapter.PaymentGateway = (*NoopGateway)(nil)

// NoopGateway is a dev-mode gateway: every known payment id is approved
// with a canned reference. Useful for local end-to-end runs without a
// MercadoPago sandbox account.
type NoopGateway struct {
	// Payments maps payment id -> canned response.
	Payments map[string]*model.GatewayPayment
}

func NewNoopGateway() *NoopGateway {
	return &NoopGateway{Payments: map[string]*model.GatewayPayment{}}
}

func (g *NoopGateway) Name() string { return "noop" }

func (g *NoopGateway) FetchPayment(ctx context.Context, paymentID string) (*model.GatewayPayment, error) {
	if p, ok := g.Payments[paymentID]; ok {
		return p, nil
	}
	return nil, domain.ErrNotFound
}
