package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"karaoke-subscription/internal/domain"
	"karaoke-subscription/internal/domain/model"
	"karaoke-subscription/internal/domain/ports/repository"
)

var _ repository.AccountRepository = (*PostgresAccountRepo)(nil)

type PostgresAccountRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresAccountRepo(pool *pgxpool.Pool) *PostgresAccountRepo {
	return &PostgresAccountRepo{pool: pool}
}

const accountColumns = `id, email, name, credential_digest, plan, status, expires_at, created_at, updated_at`

func scanAccount(row pgx.Row) (*model.Account, error) {
	var a model.Account
	err := row.Scan(&a.ID, &a.Email, &a.Name, &a.CredentialDigest, &a.Plan, &a.Status, &a.ExpiresAt, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scan account: %w", err)
	}
	return &a, nil
}

func (r *PostgresAccountRepo) Save(ctx context.Context, qx any, a *model.Account) error {
	const q = `
INSERT INTO accounts (
  id, email, name, credential_digest, plan, status, expires_at, created_at, updated_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9
) ON CONFLICT (id) DO UPDATE SET
  email=$2, name=$3, credential_digest=$4, plan=$5, status=$6, expires_at=$7, updated_at=$9;
`
	_, err := pick(r.pool, qx).Exec(ctx, q, a.ID, a.Email, a.Name, a.CredentialDigest, a.Plan, a.Status, a.ExpiresAt, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyExists
		}
		return fmt.Errorf("save account: %w", err)
	}
	return nil
}

func (r *PostgresAccountRepo) FindByID(ctx context.Context, qx any, id string) (*model.Account, error) {
	q := `SELECT ` + accountColumns + ` FROM accounts WHERE id=$1;`
	return scanAccount(pick(r.pool, qx).QueryRow(ctx, q, id))
}

func (r *PostgresAccountRepo) FindByEmail(ctx context.Context, qx any, email string) (*model.Account, error) {
	q := `SELECT ` + accountColumns + ` FROM accounts WHERE email=$1;`
	return scanAccount(pick(r.pool, qx).QueryRow(ctx, q, model.NormalizeEmail(email)))
}

// ActivateOrRenew is a single conditional UPDATE: the new expiry is computed
// from the value read inside the same statement, so two racing renewals
// serialize on the row and both windows are applied in full. The self-join
// on prev returns the pre-update status so the caller can label the change
// (first activation vs renewal) without a racy read-before-write.
func (r *PostgresAccountRepo) ActivateOrRenew(ctx context.Context, qx any, accountID, plan string, durationDays int) (*model.Account, model.AccountStatus, error) {
	const q = `
UPDATE accounts
   SET status = 'active',
       plan = $2,
       expires_at = GREATEST(COALESCE(prev.expires_at, NOW()), NOW()) + make_interval(days => $3),
       updated_at = NOW()
  FROM accounts prev
 WHERE accounts.id = $1
   AND prev.id = accounts.id
RETURNING accounts.id, accounts.email, accounts.name, accounts.credential_digest,
          accounts.plan, accounts.status, accounts.expires_at, accounts.created_at,
          accounts.updated_at, prev.status;`
	var a model.Account
	var prev model.AccountStatus
	err := pick(r.pool, qx).QueryRow(ctx, q, accountID, plan, durationDays).
		Scan(&a.ID, &a.Email, &a.Name, &a.CredentialDigest, &a.Plan, &a.Status, &a.ExpiresAt, &a.CreatedAt, &a.UpdatedAt, &prev)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, "", domain.ErrNotFound
		}
		return nil, "", fmt.Errorf("activate or renew account: %w", err)
	}
	return &a, prev, nil
}

func (r *PostgresAccountRepo) SetCredential(ctx context.Context, qx any, accountID, digest string) error {
	const q = `UPDATE accounts SET credential_digest=$2, updated_at=NOW() WHERE id=$1;`
	tag, err := pick(r.pool, qx).Exec(ctx, q, accountID, digest)
	if err != nil {
		return fmt.Errorf("set credential: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
