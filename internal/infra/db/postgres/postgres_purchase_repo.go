package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/Rk13termux/KaliRootBot-sub000/internal/domain"
	"github.com/Rk13termux/KaliRootBot-sub000/internal/domain/model"
	"github.com/Rk13termux/KaliRootBot-sub000/internal/domain/ports/repository"
)

var _ repository.PurchaseRepository = (*PurchaseRepo)(nil)

// PurchaseRepo is the append-only purchase log. The primary key on invoice_id
// is the second line of defense behind the idempotency registry.
type PurchaseRepo struct {
	pool *pgxpool.Pool
}

func NewPurchaseRepo(pool *pgxpool.Pool) *PurchaseRepo {
	return &PurchaseRepo{pool: pool}
}

const uniqueViolation = "23505"

func (r *PurchaseRepo) Append(ctx context.Context, qx repository.Tx, p *model.Purchase) error {
	ex, err := pick(r.pool, qx)
	if err != nil {
		return err
	}
	if p.ReceivedAt.IsZero() {
		p.ReceivedAt = time.Now().UTC()
	}
	const q = `
INSERT INTO purchases (invoice_id, user_id, product_tag, amount, currency, raw_payload, received_at)
VALUES ($1,$2,$3,$4,$5,$6,$7);`
	_, err = ex.Exec(ctx, q, p.InvoiceID, p.UserID, p.ProductTag, p.Amount, p.Currency, p.RawPayload, p.ReceivedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return domain.ErrAlreadyExists
		}
		return err
	}
	return nil
}

func (r *PurchaseRepo) ListByUser(ctx context.Context, qx repository.Tx, tgID int64) ([]*model.Purchase, error) {
	ex, err := pick(r.pool, qx)
	if err != nil {
		return nil, err
	}
	rows, err := ex.Query(ctx, `
SELECT invoice_id, user_id, product_tag, amount, currency, raw_payload, received_at
  FROM purchases WHERE user_id = $1 ORDER BY received_at DESC;`, tgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*model.Purchase
	for rows.Next() {
		var p model.Purchase
		if err := rows.Scan(&p.InvoiceID, &p.UserID, &p.ProductTag, &p.Amount, &p.Currency, &p.RawPayload, &p.ReceivedAt); err != nil {
			return nil, err
		}
		out = append(out, &p)
	}
	return out, rows.Err()
}

func (r *PurchaseRepo) SumRevenueByCurrency(ctx context.Context, qx repository.Tx) (map[string]float64, error) {
	ex, err := pick(r.pool, qx)
	if err != nil {
		return nil, err
	}
	rows, err := ex.Query(ctx, `SELECT currency, COALESCE(SUM(amount), 0) FROM purchases GROUP BY currency;`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string]float64{}
	for rows.Next() {
		var currency string
		var sum float64
		if err := rows.Scan(&currency, &sum); err != nil {
			return nil, err
		}
		out[currency] = sum
	}
	return out, rows.Err()
}
