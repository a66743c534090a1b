package postgres

import (
	"context"

	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/Rk13termux/KaliRootBot-sub000/internal/domain"
	"github.com/Rk13termux/KaliRootBot-sub000/internal/domain/ports/repository"
)

var _ repository.IdempotencyRegistry = (*IdempotencyRepo)(nil)

// IdempotencyRepo records processed invoice ids. Mark relies on the primary
// key: a conditional insert either claims the id or reports a duplicate, so
// two concurrent handlers can never both apply an invoice's effect when Mark
// runs in the same transaction as that effect.
type IdempotencyRepo struct {
	pool *pgxpool.Pool
}

func NewIdempotencyRepo(pool *pgxpool.Pool) *IdempotencyRepo {
	return &IdempotencyRepo{pool: pool}
}

func (r *IdempotencyRepo) Seen(ctx context.Context, qx repository.Tx, source, invoiceID string) (bool, error) {
	ex, err := pick(r.pool, qx)
	if err != nil {
		return false, err
	}
	var seen bool
	const q = `SELECT EXISTS (SELECT 1 FROM processed_invoices WHERE source = $1 AND invoice_id = $2);`
	if err := ex.QueryRow(ctx, q, source, invoiceID).Scan(&seen); err != nil {
		return false, err
	}
	return seen, nil
}

func (r *IdempotencyRepo) Mark(ctx context.Context, qx repository.Tx, source, invoiceID, status string) error {
	ex, err := pick(r.pool, qx)
	if err != nil {
		return err
	}
	const q = `
INSERT INTO processed_invoices (source, invoice_id, status, processed_at)
VALUES ($1, $2, $3, now())
ON CONFLICT (source, invoice_id) DO NOTHING;`
	tag, err := ex.Exec(ctx, q, source, invoiceID, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrDuplicateInvoice
	}
	return nil
}
