package adapter

import (
	"context"

	"karaoke-subscription/internal/domain/model"
)

// PaymentGateway is the hex port for the external payment provider.
//
// The provider pushes unauthenticated notifications; the only thing the
// pipeline learns from them is which id to look up. FetchPayment re-fetches
// the authoritative status by id. Transport failures and non-2xx responses
// surface as domain.ErrGatewayUnavailable (retryable), distinct from a
// successfully fetched but non-approved payment.
type PaymentGateway interface {
	Name() string
	FetchPayment(ctx context.Context, paymentID string) (*model.GatewayPayment, error)
}
