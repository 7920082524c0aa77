package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"karaoke-subscription/internal/domain"
	"karaoke-subscription/internal/domain/model"
	"karaoke-subscription/internal/domain/ports/repository"
)

var _ repository.PaymentEventRepository = (*PostgresPaymentEventRepo)(nil)

type PostgresPaymentEventRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresPaymentEventRepo(pool *pgxpool.Pool) *PostgresPaymentEventRepo {
	return &PostgresPaymentEventRepo{pool: pool}
}

const eventColumns = `id, gateway_payment_id, order_id, account_id, plan, status, outcome, created_at, processed_at`

func scanEvent(row pgx.Row) (*model.PaymentEvent, error) {
	var ev model.PaymentEvent
	err := row.Scan(&ev.ID, &ev.GatewayPaymentID, &ev.OrderID, &ev.AccountID, &ev.Plan, &ev.Status, &ev.Outcome, &ev.CreatedAt, &ev.ProcessedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scan payment event: %w", err)
	}
	return &ev, nil
}

// Claim inserts the processing record. The UNIQUE index on
// gateway_payment_id is the de-duplication key for the whole pipeline:
// a conflicting insert means the payment was already claimed.
func (r *PostgresPaymentEventRepo) Claim(ctx context.Context, qx any, ev *model.PaymentEvent) error {
	const q = `
INSERT INTO payment_events (
  id, gateway_payment_id, order_id, account_id, plan, status, outcome, created_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8
) ON CONFLICT (gateway_payment_id) DO NOTHING;`
	tag, err := pick(r.pool, qx).Exec(ctx, q, ev.ID, ev.GatewayPaymentID, ev.OrderID, ev.AccountID, ev.Plan, ev.Status, ev.Outcome, ev.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyExists
		}
		return fmt.Errorf("claim payment event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAlreadyExists
	}
	return nil
}

// MarkProcessed flips processing -> processed. The WHERE status guard makes
// it a compare-and-set: a false return means another worker finished first
// and the caller must roll back its transaction.
func (r *PostgresPaymentEventRepo) MarkProcessed(ctx context.Context, qx any, gatewayPaymentID, outcome string) (bool, error) {
	const q = `
UPDATE payment_events
   SET status = 'processed', outcome = $2, processed_at = NOW()
 WHERE gateway_payment_id = $1
   AND status = 'processing';`
	tag, err := pick(r.pool, qx).Exec(ctx, q, gatewayPaymentID, outcome)
	if err != nil {
		return false, fmt.Errorf("mark payment event processed: %w", err)
	}
	return tag.RowsAffected() >= 1, nil
}

func (r *PostgresPaymentEventRepo) FindByGatewayID(ctx context.Context, qx any, gatewayPaymentID string) (*model.PaymentEvent, error) {
	q := `SELECT ` + eventColumns + ` FROM payment_events WHERE gateway_payment_id=$1;`
	return scanEvent(pick(r.pool, qx).QueryRow(ctx, q, gatewayPaymentID))
}

func (r *PostgresPaymentEventRepo) ListStaleProcessing(ctx context.Context, qx any, olderThan time.Time, limit int) ([]*model.PaymentEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	q := `SELECT ` + eventColumns + ` FROM payment_events WHERE status='processing' AND created_at < $1 ORDER BY created_at ASC LIMIT $2;`
	rows, err := pick(r.pool, qx).Query(ctx, q, olderThan, limit)
	if err != nil {
		return nil, fmt.Errorf("list stale payment events: %w", err)
	}
	defer rows.Close()

	var out []*model.PaymentEvent
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}
