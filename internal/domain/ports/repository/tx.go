package repository

import "context"

// TransactionManager runs fn inside a database transaction. The handle is
// passed to fn as qx and must be forwarded to every repository call that
// should participate in the transaction. fn returning an error rolls back.
type TransactionManager interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, qx any) error) error
}
