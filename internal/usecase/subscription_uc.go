package usecase

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/Rk13termux/KaliRootBot-sub000/internal/catalog"
	"github.com/Rk13termux/KaliRootBot-sub000/internal/domain"
	"github.com/Rk13termux/KaliRootBot-sub000/internal/domain/model"
	"github.com/Rk13termux/KaliRootBot-sub000/internal/domain/ports/adapter"
	"github.com/Rk13termux/KaliRootBot-sub000/internal/domain/ports/repository"
	"github.com/Rk13termux/KaliRootBot-sub000/internal/infra/logging"
	"github.com/Rk13termux/KaliRootBot-sub000/internal/infra/metrics"
)

// Compile-time check
var _ SubscriptionUseCase = (*subscriptionUC)(nil)

// SubscriptionUseCase drives the none -> pending -> active -> expired state
// machine over the ledger's conditional-update primitives.
type SubscriptionUseCase interface {
	// BeginPurchase mints a subscription invoice with the processor and
	// records the pending state. A user with a different open pending
	// invoice gets domain.ErrConflictingPending and no second invoice is
	// recorded.
	BeginPurchase(ctx context.Context, tgID int64) (adapter.Invoice, error)

	// ActivateFromInvoice applies invoice_finished(subscription) under the
	// caller's transaction: a matching pending invoice activates with
	// expiry = now + duration and grants the bonus; a mismatch is logged
	// and leaves the state unchanged (the caller still marks the invoice
	// processed).
	ActivateFromInvoice(ctx context.Context, qx repository.Tx, tgID int64, invoiceID string) error

	// Status returns the snapshot with overdue-active folded into expired.
	Status(ctx context.Context, tgID int64) (model.SubscriptionState, error)

	// ExpireOverdue writes back expirations that lazy reads have already
	// been treating as expired. Returns the number of rows flipped.
	ExpireOverdue(ctx context.Context) (int, error)
}

type subscriptionUC struct {
	ledger  repository.LedgerRepository
	credits CreditUseCase
	gateway adapter.PaymentGateway
	product catalog.SubscriptionProduct
	now     func() time.Time
	log     *zerolog.Logger
}

func NewSubscriptionUseCase(ledger repository.LedgerRepository, credits CreditUseCase, gateway adapter.PaymentGateway, product catalog.SubscriptionProduct, logger *zerolog.Logger) *subscriptionUC {
	return &subscriptionUC{
		ledger:  ledger,
		credits: credits,
		gateway: gateway,
		product: product,
		now:     time.Now,
		log:     logger,
	}
}

func (s *subscriptionUC) BeginPurchase(ctx context.Context, tgID int64) (adapter.Invoice, error) {
	defer logging.TraceDuration(s.log, "SubscriptionUC.BeginPurchase")()

	st, err := s.ledger.SubscriptionOf(ctx, repository.NoTX, tgID)
	if err != nil {
		return adapter.Invoice{}, err
	}
	if st.Status == model.SubscriptionStatusPending && st.PendingInvoiceID != "" {
		return adapter.Invoice{}, domain.ErrConflictingPending
	}

	inv, err := s.gateway.CreateInvoice(ctx, adapter.InvoiceRequest{
		OrderID:     strconv.FormatInt(tgID, 10),
		Description: s.product.Tag,
		Amount:      s.product.PriceUSD,
		Currency:    "usd",
	})
	if err != nil {
		return adapter.Invoice{}, fmt.Errorf("create subscription invoice: %w", err)
	}

	// A concurrent purchase may have won the pending slot between the check
	// above and this write; the conditional update closes that window.
	if err := s.ledger.SetSubscriptionPending(ctx, repository.NoTX, tgID, inv.ID); err != nil {
		return adapter.Invoice{}, err
	}
	s.log.Info().Int64("tg_id", tgID).Str("invoice_id", inv.ID).Msg("subscription invoice created")
	return inv, nil
}

func (s *subscriptionUC) ActivateFromInvoice(ctx context.Context, qx repository.Tx, tgID int64, invoiceID string) error {
	st, err := s.ledger.SubscriptionOf(ctx, qx, tgID)
	if err != nil {
		return err
	}
	if st.Status != model.SubscriptionStatusPending || st.PendingInvoiceID != invoiceID {
		s.log.Warn().Int64("tg_id", tgID).Str("invoice_id", invoiceID).
			Str("status", string(st.Status)).Str("pending_invoice_id", st.PendingInvoiceID).
			Msg("finished subscription invoice does not match pending state; no transition")
		return nil
	}

	expiry := s.now().Add(time.Duration(s.product.DurationDays) * 24 * time.Hour)
	if err := s.ledger.ActivateSubscription(ctx, qx, tgID, expiry); err != nil {
		return err
	}
	if s.product.BonusCredits > 0 {
		if _, err := s.credits.Grant(ctx, qx, tgID, s.product.BonusCredits, "bonus"); err != nil {
			return err
		}
	}
	metrics.IncSubscriptionActivated()
	s.log.Info().Int64("tg_id", tgID).Time("expires_at", expiry).Msg("subscription activated")
	return nil
}

func (s *subscriptionUC) Status(ctx context.Context, tgID int64) (model.SubscriptionState, error) {
	st, err := s.ledger.SubscriptionOf(ctx, repository.NoTX, tgID)
	if err != nil {
		return model.SubscriptionState{}, err
	}
	st.Status = st.Effective(s.now())
	return st, nil
}

func (s *subscriptionUC) ExpireOverdue(ctx context.Context) (int, error) {
	return s.ledger.ExpireOverdue(ctx, repository.NoTX, s.now())
}
