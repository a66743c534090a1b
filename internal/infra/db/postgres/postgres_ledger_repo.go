package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/rs/zerolog"

	"github.com/Rk13termux/KaliRootBot-sub000/internal/domain"
	"github.com/Rk13termux/KaliRootBot-sub000/internal/domain/model"
	"github.com/Rk13termux/KaliRootBot-sub000/internal/domain/ports/repository"
)

var _ repository.LedgerRepository = (*LedgerRepo)(nil)

// LedgerRepo implements the atomic user/credit primitives on Postgres.
// Every mutation is a single conditional statement; correctness under
// concurrent callers comes from the store, not process-local locks.
type LedgerRepo struct {
	pool         *pgxpool.Pool
	initialGrant int64
	log          *zerolog.Logger
}

func NewLedgerRepo(pool *pgxpool.Pool, initialGrant int64, logger *zerolog.Logger) *LedgerRepo {
	l := logger.With().Str("component", "LedgerRepo").Logger()
	return &LedgerRepo{pool: pool, initialGrant: initialGrant, log: &l}
}

const userColumns = `
  user_id, first_name, last_name, username, credit_balance,
  subscription_status, subscription_expiry, pending_invoice_id,
  registered_at, last_active_at`

func scanUser(row pgx.Row) (*model.User, error) {
	var u model.User
	var firstName, lastName, username, pendingInvoice *string
	var status string
	var expiry *time.Time
	if err := row.Scan(&u.TelegramID, &firstName, &lastName, &username, &u.CreditBalance,
		&status, &expiry, &pendingInvoice, &u.RegisteredAt, &u.LastActiveAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if firstName != nil {
		u.FirstName = *firstName
	}
	if lastName != nil {
		u.LastName = *lastName
	}
	if username != nil {
		u.Username = *username
	}
	u.Subscription = model.SubscriptionState{
		Status:    model.SubscriptionStatus(status),
		ExpiresAt: expiry,
	}
	if pendingInvoice != nil {
		u.Subscription.PendingInvoiceID = *pendingInvoice
	}
	return &u, nil
}

// EnsureUser upserts the row. The `(xmax = 0)` projection distinguishes a
// fresh insert from a conflict-update, so exactly one of K concurrent callers
// observes created=true.
func (r *LedgerRepo) EnsureUser(ctx context.Context, qx repository.Tx, tgID int64, names model.Names) (repository.EnsureResult, error) {
	ex, err := pick(r.pool, qx)
	if err != nil {
		return repository.EnsureResult{}, err
	}
	const q = `
INSERT INTO users (user_id, first_name, last_name, username, credit_balance, subscription_status, registered_at, last_active_at)
VALUES ($1, NULLIF($2,''), NULLIF($3,''), NULLIF($4,''), $5, 'none', now(), now())
ON CONFLICT (user_id) DO UPDATE SET
  first_name = COALESCE(NULLIF($2,''), users.first_name),
  last_name  = COALESCE(NULLIF($3,''), users.last_name),
  username   = COALESCE(NULLIF($4,''), users.username),
  last_active_at = now()
RETURNING (xmax = 0) AS created,` + userColumns + `;`

	row := ex.QueryRow(ctx, q, tgID, names.FirstName, names.LastName, names.Username, r.initialGrant)
	var created bool
	var u model.User
	var firstName, lastName, username, pendingInvoice *string
	var status string
	var expiry *time.Time
	if err := row.Scan(&created, &u.TelegramID, &firstName, &lastName, &username, &u.CreditBalance,
		&status, &expiry, &pendingInvoice, &u.RegisteredAt, &u.LastActiveAt); err != nil {
		return repository.EnsureResult{}, err
	}
	if firstName != nil {
		u.FirstName = *firstName
	}
	if lastName != nil {
		u.LastName = *lastName
	}
	if username != nil {
		u.Username = *username
	}
	u.Subscription = model.SubscriptionState{Status: model.SubscriptionStatus(status), ExpiresAt: expiry}
	if pendingInvoice != nil {
		u.Subscription.PendingInvoiceID = *pendingInvoice
	}
	return repository.EnsureResult{Created: created, User: &u}, nil
}

func (r *LedgerRepo) Grant(ctx context.Context, qx repository.Tx, tgID int64, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, domain.ErrInvalidArgument
	}
	ex, err := pick(r.pool, qx)
	if err != nil {
		return 0, err
	}
	const q = `UPDATE users SET credit_balance = credit_balance + $2 WHERE user_id = $1 RETURNING credit_balance;`
	var balance int64
	if err := ex.QueryRow(ctx, q, tgID, amount).Scan(&balance); err != nil {
		if err == pgx.ErrNoRows {
			return 0, domain.ErrNotFound
		}
		return 0, err
	}
	return balance, nil
}

const chargeOneSQL = `UPDATE users SET credit_balance = credit_balance - 1 WHERE user_id = $1 AND credit_balance > 0;`

// ChargeOne performs the conditional decrement. When the store reports no
// change but a fresh read still shows a positive balance (a spurious
// success-but-no-change response), the same conditional decrement is retried
// once; the fallback path is logged at warning level.
func (r *LedgerRepo) ChargeOne(ctx context.Context, qx repository.Tx, tgID int64) (bool, error) {
	ex, err := pick(r.pool, qx)
	if err != nil {
		return false, err
	}
	tag, err := ex.Exec(ctx, chargeOneSQL, tgID)
	if err != nil {
		return false, err
	}
	if tag.RowsAffected() > 0 {
		return true, nil
	}

	balance, err := r.BalanceOf(ctx, qx, tgID)
	if err != nil {
		return false, err
	}
	if balance <= 0 {
		return false, nil
	}
	r.log.Warn().Int64("tg_id", tgID).Int64("balance", balance).
		Msg("charge reported no change with positive balance; retrying conditional decrement")
	tag, err = ex.Exec(ctx, chargeOneSQL, tgID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *LedgerRepo) BalanceOf(ctx context.Context, qx repository.Tx, tgID int64) (int64, error) {
	ex, err := pick(r.pool, qx)
	if err != nil {
		return 0, err
	}
	var balance int64
	if err := ex.QueryRow(ctx, `SELECT credit_balance FROM users WHERE user_id = $1;`, tgID).Scan(&balance); err != nil {
		if err == pgx.ErrNoRows {
			return 0, domain.ErrNotFound
		}
		return 0, err
	}
	return balance, nil
}

// SetSubscriptionPending writes pending state unless a different pending
// invoice already exists for the user.
func (r *LedgerRepo) SetSubscriptionPending(ctx context.Context, qx repository.Tx, tgID int64, invoiceID string) error {
	if invoiceID == "" {
		return domain.ErrInvalidArgument
	}
	ex, err := pick(r.pool, qx)
	if err != nil {
		return err
	}
	const q = `
UPDATE users SET subscription_status = 'pending', pending_invoice_id = $2
 WHERE user_id = $1
   AND NOT (subscription_status = 'pending' AND pending_invoice_id IS NOT NULL AND pending_invoice_id <> $2);`
	tag, err := ex.Exec(ctx, q, tgID, invoiceID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() > 0 {
		return nil
	}
	var exists bool
	if err := ex.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE user_id = $1);`, tgID).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return domain.ErrNotFound
	}
	return domain.ErrConflictingPending
}

func (r *LedgerRepo) ActivateSubscription(ctx context.Context, qx repository.Tx, tgID int64, expiresAt time.Time) error {
	ex, err := pick(r.pool, qx)
	if err != nil {
		return err
	}
	const q = `
UPDATE users SET subscription_status = 'active', subscription_expiry = $2, pending_invoice_id = NULL
 WHERE user_id = $1;`
	tag, err := ex.Exec(ctx, q, tgID, expiresAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *LedgerRepo) SubscriptionOf(ctx context.Context, qx repository.Tx, tgID int64) (model.SubscriptionState, error) {
	ex, err := pick(r.pool, qx)
	if err != nil {
		return model.SubscriptionState{}, err
	}
	const q = `SELECT subscription_status, subscription_expiry, pending_invoice_id FROM users WHERE user_id = $1;`
	var status string
	var expiry *time.Time
	var pendingInvoice *string
	if err := ex.QueryRow(ctx, q, tgID).Scan(&status, &expiry, &pendingInvoice); err != nil {
		if err == pgx.ErrNoRows {
			return model.SubscriptionState{}, domain.ErrNotFound
		}
		return model.SubscriptionState{}, err
	}
	st := model.SubscriptionState{Status: model.SubscriptionStatus(status), ExpiresAt: expiry}
	if pendingInvoice != nil {
		st.PendingInvoiceID = *pendingInvoice
	}
	return st, nil
}

func (r *LedgerRepo) ExpireOverdue(ctx context.Context, qx repository.Tx, now time.Time) (int, error) {
	ex, err := pick(r.pool, qx)
	if err != nil {
		return 0, err
	}
	const q = `UPDATE users SET subscription_status = 'expired' WHERE subscription_status = 'active' AND subscription_expiry < $1;`
	tag, err := ex.Exec(ctx, q, now)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func (r *LedgerRepo) FindByTelegramID(ctx context.Context, qx repository.Tx, tgID int64) (*model.User, error) {
	ex, err := pick(r.pool, qx)
	if err != nil {
		return nil, err
	}
	return scanUser(ex.QueryRow(ctx, `SELECT`+userColumns+` FROM users WHERE user_id = $1;`, tgID))
}

func (r *LedgerRepo) CountUsers(ctx context.Context, qx repository.Tx) (int, error) {
	ex, err := pick(r.pool, qx)
	if err != nil {
		return 0, err
	}
	var n int
	if err := ex.QueryRow(ctx, `SELECT COUNT(*) FROM users;`).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (r *LedgerRepo) CountActiveSubscriptions(ctx context.Context, qx repository.Tx, now time.Time) (int, error) {
	ex, err := pick(r.pool, qx)
	if err != nil {
		return 0, err
	}
	// Expiry is evaluated on read; the status column alone is not trusted.
	const q = `SELECT COUNT(*) FROM users WHERE subscription_status = 'active' AND subscription_expiry > $1;`
	var n int
	if err := ex.QueryRow(ctx, q, now).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
