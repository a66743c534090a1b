package repository

import (
	"context"

	"github.com/jackc/pgx/v4"
)

// Tx is an opaque executor handle. Repositories accept nil (non-transactional
// path) or the infra-defined transaction type (pgx.Tx for Postgres).
type Tx interface{}

// NoTX is the explicit "no transaction" executor.
var NoTX Tx

// TransactionManager runs fn inside a store transaction, passing the handle
// through so repository calls made with it share the transaction. If fn
// returns an error the transaction is rolled back.
//
// Keep this interface small and stable; use-case code never sees pgx types
// beyond the options struct.
type TransactionManager interface {
	WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx Tx) error) error
}
