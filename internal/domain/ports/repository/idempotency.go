package repository

import "context"

// IdempotencyRegistry records processed invoice ids per source.
//
// Contract: when two concurrent handlers both observe Seen == false, at most
// one Mark succeeds; the loser gets domain.ErrDuplicateInvoice and must treat
// the invoice as already applied. Effects are applied in the same transaction
// as Mark, so a crash never leaves a marked-but-uncredited invoice.
type IdempotencyRegistry interface {
	Seen(ctx context.Context, qx Tx, source, invoiceID string) (bool, error)
	// Mark inserts atomically; a conflicting concurrent or prior mark yields
	// domain.ErrDuplicateInvoice.
	Mark(ctx context.Context, qx Tx, source, invoiceID, status string) error
}
