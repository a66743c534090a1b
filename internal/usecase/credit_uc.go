package usecase

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/Rk13termux/KaliRootBot-sub000/internal/domain/ports/repository"
	"github.com/Rk13termux/KaliRootBot-sub000/internal/infra/logging"
	"github.com/Rk13termux/KaliRootBot-sub000/internal/infra/metrics"
)

// Compile-time check
var _ CreditUseCase = (*creditUC)(nil)

// CreditUseCase is the credit engine: entitlement checks and the
// one-credit charge for a paid LLM call.
//
// The ordering contract for a paid operation is charge-AFTER-success: the
// external LLM is the scarcer, more failure-prone resource, so a rare free
// call on a retry beats double-billing. Callers must not charge for fallback
// responses.
type CreditUseCase interface {
	// CanUseLLM is true iff the balance is positive. Subscription status
	// alone grants nothing; subscribers recharge through the activation
	// bonus like any other grant.
	CanUseLLM(ctx context.Context, tgID int64) (bool, error)
	// ChargeForLLM deducts exactly one credit. A false return means the
	// paid operation must not be treated as covered.
	ChargeForLLM(ctx context.Context, tgID int64) (bool, error)
	// Grant adds amount under the given transaction handle (IPN effects run
	// inside the idempotency-mark transaction).
	Grant(ctx context.Context, qx repository.Tx, tgID int64, amount int64, reason string) (int64, error)
	BalanceOf(ctx context.Context, tgID int64) (int64, error)
}

type creditUC struct {
	ledger repository.LedgerRepository
	log    *zerolog.Logger
}

func NewCreditUseCase(ledger repository.LedgerRepository, logger *zerolog.Logger) *creditUC {
	return &creditUC{ledger: ledger, log: logger}
}

func (c *creditUC) CanUseLLM(ctx context.Context, tgID int64) (bool, error) {
	balance, err := c.ledger.BalanceOf(ctx, repository.NoTX, tgID)
	if err != nil {
		return false, err
	}
	return balance > 0, nil
}

func (c *creditUC) ChargeForLLM(ctx context.Context, tgID int64) (bool, error) {
	defer logging.TraceDuration(c.log, "CreditUC.ChargeForLLM")()

	ok, err := c.ledger.ChargeOne(ctx, repository.NoTX, tgID)
	if err != nil {
		return false, err
	}
	if ok {
		metrics.IncCreditCharged()
	} else {
		metrics.IncChargeDenied()
	}
	return ok, nil
}

func (c *creditUC) Grant(ctx context.Context, qx repository.Tx, tgID int64, amount int64, reason string) (int64, error) {
	balance, err := c.ledger.Grant(ctx, qx, tgID, amount)
	if err != nil {
		return 0, err
	}
	metrics.AddCreditsGranted(reason, amount)
	c.log.Info().Int64("tg_id", tgID).Int64("amount", amount).Str("reason", reason).
		Int64("new_balance", balance).Msg("credits granted")
	return balance, nil
}

func (c *creditUC) BalanceOf(ctx context.Context, tgID int64) (int64, error) {
	return c.ledger.BalanceOf(ctx, repository.NoTX, tgID)
}
