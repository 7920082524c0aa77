package repository

import (
	"context"
	"time"

	"karaoke-subscription/internal/domain/model"
)

// -----------------------------
// Payment events (idempotency records)
// -----------------------------

type PaymentEventRepository interface {
	// Claim durably records "gateway payment id -> processing". Returns
	// domain.ErrAlreadyExists when the payment id was already claimed,
	// which callers treat as "already handled", not as an error.
	Claim(ctx context.Context, qx any, ev *model.PaymentEvent) error

	// MarkProcessed flips processing -> processed with a terminal outcome.
	// Returns false when the row was not in processing (someone else won);
	// callers must then abort their transaction so the account update
	// does not commit twice.
	MarkProcessed(ctx context.Context, qx any, gatewayPaymentID, outcome string) (bool, error)

	FindByGatewayID(ctx context.Context, qx any, gatewayPaymentID string) (*model.PaymentEvent, error)

	// ListStaleProcessing returns claims older than the cutoff that never
	// reached processed, i.e. work interrupted by a crash.
	ListStaleProcessing(ctx context.Context, qx any, olderThan time.Time, limit int) ([]*model.PaymentEvent, error)
}
