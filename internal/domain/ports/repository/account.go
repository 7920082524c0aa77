package repository

import (
	"context"

	"karaoke-subscription/internal/domain/model"
)

// -----------------------------
// Accounts
// -----------------------------

// AccountRepository abstracts the account datastore. The qx argument
// threads an optional transaction handle (pgx.Tx) through the call; nil
// means "run on the pool".
type AccountRepository interface {
	Save(ctx context.Context, qx any, a *model.Account) error
	FindByID(ctx context.Context, qx any, id string) (*model.Account, error)
	FindByEmail(ctx context.Context, qx any, email string) (*model.Account, error)

	// ActivateOrRenew transitions the account to active and extends the
	// entitlement window by durationDays counted from max(now, expires_at).
	// The new expiry is computed inside a single conditional UPDATE so two
	// racing renewals for the same account cannot lose days to a stale read.
	// The second return is the status the UPDATE replaced: callers that need
	// to distinguish a first activation from a renewal must use it instead
	// of a read taken before the transaction.
	ActivateOrRenew(ctx context.Context, qx any, accountID, plan string, durationDays int) (*model.Account, model.AccountStatus, error)

	// SetCredential stores a freshly issued credential digest.
	SetCredential(ctx context.Context, qx any, accountID, digest string) error
}
