package usecase

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"github.com/Rk13termux/KaliRootBot-sub000/internal/catalog"
	"github.com/Rk13termux/KaliRootBot-sub000/internal/domain"
	"github.com/Rk13termux/KaliRootBot-sub000/internal/domain/model"
	"github.com/Rk13termux/KaliRootBot-sub000/internal/domain/ports/adapter"
	"github.com/Rk13termux/KaliRootBot-sub000/internal/domain/ports/repository"
	"github.com/Rk13termux/KaliRootBot-sub000/internal/infra/logging"
	"github.com/Rk13termux/KaliRootBot-sub000/internal/infra/metrics"
)

// SourcePayments scopes idempotency keys for the payment processor.
const SourcePayments = "nowpayments"

// Compile-time check
var _ PaymentUseCase = (*paymentUC)(nil)

// PaymentUseCase applies verified payment notifications and mints purchase
// links for credit packs.
type PaymentUseCase interface {
	// ApplyNotification applies a signature-verified IPN exactly once.
	// Non-terminal statuses are acknowledged without effect. Replays return
	// domain.ErrDuplicateInvoice. The idempotency mark and the effect share
	// one transaction, so a crash can never leave a marked-but-uncredited
	// invoice.
	ApplyNotification(ctx context.Context, n *model.PaymentNotification) error

	// CreateCreditInvoice mints a purchase link for the given pack.
	CreateCreditInvoice(ctx context.Context, tgID int64, pack catalog.CreditPack) (adapter.Invoice, error)
}

type paymentUC struct {
	ledger    repository.LedgerRepository
	purchases repository.PurchaseRepository
	registry  repository.IdempotencyRegistry
	subUC     SubscriptionUseCase
	credits   CreditUseCase
	gateway   adapter.PaymentGateway
	tm        repository.TransactionManager
	log       *zerolog.Logger
}

func NewPaymentUseCase(
	ledger repository.LedgerRepository,
	purchases repository.PurchaseRepository,
	registry repository.IdempotencyRegistry,
	subUC SubscriptionUseCase,
	credits CreditUseCase,
	gateway adapter.PaymentGateway,
	tm repository.TransactionManager,
	logger *zerolog.Logger,
) *paymentUC {
	return &paymentUC{
		ledger:    ledger,
		purchases: purchases,
		registry:  registry,
		subUC:     subUC,
		credits:   credits,
		gateway:   gateway,
		tm:        tm,
		log:       logger,
	}
}

func (u *paymentUC) ApplyNotification(ctx context.Context, n *model.PaymentNotification) error {
	defer logging.TraceDuration(u.log, "PaymentUC.ApplyNotification")()

	if n.InvoiceID == "" {
		return fmt.Errorf("%w: missing invoice_id", domain.ErrInvalidArgument)
	}
	if n.Status != model.PaymentStatusFinished {
		u.log.Debug().Str("invoice_id", n.InvoiceID).Str("status", string(n.Status)).
			Msg("non-terminal payment status; acknowledged without effect")
		metrics.IncPayment("ignored")
		return nil
	}
	userID, err := n.UserID()
	if err != nil {
		return fmt.Errorf("%w: order_id %q is not a user id", domain.ErrInvalidArgument, n.OrderID)
	}
	tag := model.ParseProductTag(n.Description)

	err = u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		// Claiming the invoice id and applying its effect commit together.
		if err := u.registry.Mark(ctx, tx, SourcePayments, n.InvoiceID, string(n.Status)); err != nil {
			return err
		}
		return u.applyEffect(ctx, tx, userID, tag, n)
	})
	if err != nil {
		if errors.Is(err, domain.ErrDuplicateInvoice) {
			u.log.Info().Str("invoice_id", n.InvoiceID).Msg("duplicate payment notification ignored")
			return err
		}
		return err
	}

	metrics.IncPayment("finished")
	metrics.AddPaymentRevenue(n.PriceCurrency, n.PriceAmount)
	return nil
}

func (u *paymentUC) applyEffect(ctx context.Context, tx repository.Tx, userID int64, tag model.ProductTag, n *model.PaymentNotification) error {
	// A payment can land before the user ever messaged the bot; the row must
	// exist for the grant to land.
	if _, err := u.ledger.EnsureUser(ctx, tx, userID, model.Names{}); err != nil {
		return err
	}

	switch tag.Kind {
	case model.ProductSubscription:
		if err := u.subUC.ActivateFromInvoice(ctx, tx, userID, n.InvoiceID); err != nil {
			return err
		}
	case model.ProductCredits:
		if _, err := u.credits.Grant(ctx, tx, userID, tag.Credits, "purchase"); err != nil {
			return err
		}
	default:
		u.log.Warn().Str("invoice_id", n.InvoiceID).Str("description", n.Description).
			Msg("unknown product tag; invoice acknowledged without effect")
		return nil
	}

	return u.purchases.Append(ctx, tx, &model.Purchase{
		InvoiceID:  n.InvoiceID,
		UserID:     userID,
		ProductTag: tag.String(),
		Amount:     n.PriceAmount,
		Currency:   n.PriceCurrency,
		RawPayload: n.Raw,
	})
}

func (u *paymentUC) CreateCreditInvoice(ctx context.Context, tgID int64, pack catalog.CreditPack) (adapter.Invoice, error) {
	inv, err := u.gateway.CreateInvoice(ctx, adapter.InvoiceRequest{
		OrderID:     strconv.FormatInt(tgID, 10),
		Description: pack.Tag,
		Amount:      pack.PriceUSD,
		Currency:    "usd",
	})
	if err != nil {
		return adapter.Invoice{}, fmt.Errorf("create credit invoice: %w", err)
	}
	u.log.Info().Int64("tg_id", tgID).Str("invoice_id", inv.ID).Str("pack", pack.Tag).Msg("credit invoice created")
	return inv, nil
}
