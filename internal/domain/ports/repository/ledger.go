package repository

import (
	"context"
	"time"

	"github.com/Rk13termux/KaliRootBot-sub000/internal/domain/model"
)

// EnsureResult reports whether EnsureUser created the row.
type EnsureResult struct {
	Created bool
	User    *model.User
}

// LedgerRepository exposes the atomic primitives on users. Every method is
// safe for concurrent callers on the same user id; atomicity lives in the
// store, not in process-local locks (multiple instances may run).
//
// All methods accept a `qx Tx` executor so use cases can group several
// primitives under one transaction via TransactionManager.
type LedgerRepository interface {
	// EnsureUser creates the row if absent with the configured initial grant;
	// if present it refreshes the name fields and last-active time. Idempotent.
	EnsureUser(ctx context.Context, qx Tx, tgID int64, names model.Names) (EnsureResult, error)

	// Grant adds amount (> 0) and returns the new balance.
	Grant(ctx context.Context, qx Tx, tgID int64, amount int64) (int64, error)

	// ChargeOne decrements the balance by exactly one iff it is positive.
	// Returns false, leaving the balance untouched, otherwise.
	ChargeOne(ctx context.Context, qx Tx, tgID int64) (bool, error)

	// BalanceOf is a snapshot read.
	BalanceOf(ctx context.Context, qx Tx, tgID int64) (int64, error)

	// SetSubscriptionPending writes status=pending with the invoice id.
	// Fails with domain.ErrConflictingPending when a different pending
	// invoice is already recorded.
	SetSubscriptionPending(ctx context.Context, qx Tx, tgID int64, invoiceID string) error

	// ActivateSubscription transitions to active, stores the expiry and
	// clears the pending invoice id.
	ActivateSubscription(ctx context.Context, qx Tx, tgID int64, expiresAt time.Time) error

	// SubscriptionOf is a snapshot read of the subscription state.
	SubscriptionOf(ctx context.Context, qx Tx, tgID int64) (model.SubscriptionState, error)

	// ExpireOverdue flips active rows whose expiry has passed to expired and
	// returns how many were updated. Lazy read-side evaluation remains
	// authoritative; this keeps reports honest.
	ExpireOverdue(ctx context.Context, qx Tx, now time.Time) (int, error)

	FindByTelegramID(ctx context.Context, qx Tx, tgID int64) (*model.User, error)
	CountUsers(ctx context.Context, qx Tx) (int, error)
	CountActiveSubscriptions(ctx context.Context, qx Tx, now time.Time) (int, error)
}
