//go:build !integration

package usecase_test

import (
	"context"
	"errors"
	"testing"

	"github.com/Rk13termux/KaliRootBot-sub000/internal/domain"
	"github.com/Rk13termux/KaliRootBot-sub000/internal/domain/model"
	"github.com/Rk13termux/KaliRootBot-sub000/internal/domain/ports/repository"
	"github.com/Rk13termux/KaliRootBot-sub000/internal/usecase"
)

type payFixture struct {
	ledger    *MemLedgerRepo
	purchases *MemPurchaseRepo
	registry  *MemIdempotencyRegistry
	gateway   *MockGateway
	subUC     usecase.SubscriptionUseCase
	uc        usecase.PaymentUseCase
}

func newPayFixture(t *testing.T) *payFixture {
	t.Helper()
	ledger := newMemLedgerRepo(0)
	purchases := newMemPurchaseRepo()
	registry := newMemIdempotencyRegistry()
	gw := &MockGateway{}
	credits := usecase.NewCreditUseCase(ledger, newTestLogger())
	subUC := usecase.NewSubscriptionUseCase(ledger, credits, gw, testProduct(), newTestLogger())
	uc := usecase.NewPaymentUseCase(ledger, purchases, registry, subUC, credits, gw, &MemTxManager{}, newTestLogger())
	return &payFixture{
		ledger:    ledger,
		purchases: purchases,
		registry:  registry,
		gateway:   gw,
		subUC:     subUC,
		uc:        uc,
	}
}

func finishedIPN(invoiceID, orderID, description string, amount float64) *model.PaymentNotification {
	return &model.PaymentNotification{
		Status:        model.PaymentStatusFinished,
		InvoiceID:     invoiceID,
		OrderID:       orderID,
		Description:   description,
		PriceAmount:   amount,
		PriceCurrency: "usd",
		Raw:           []byte(`{}`),
	}
}

func TestPaymentUC_CreditPurchase(t *testing.T) {
	ctx := context.Background()
	f := newPayFixture(t)

	n := finishedIPN("inv-1", "500", "credits_400", 5)
	if err := f.uc.ApplyNotification(ctx, n); err != nil {
		t.Fatalf("apply: %v", err)
	}

	bal, err := f.ledger.BalanceOf(ctx, repository.NoTX, 500)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if bal != 400 {
		t.Fatalf("balance = %d, want 400", bal)
	}

	rows, _ := f.purchases.ListByUser(ctx, repository.NoTX, 500)
	if len(rows) != 1 || rows[0].InvoiceID != "inv-1" || rows[0].ProductTag != "credits_400" {
		t.Fatalf("purchase log = %+v", rows)
	}
}

// The same finished invoice replayed any number of times grants once.
func TestPaymentUC_ReplayIsIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newPayFixture(t)

	n := finishedIPN("inv-replay", "500", "credits_400", 5)
	if err := f.uc.ApplyNotification(ctx, n); err != nil {
		t.Fatalf("first apply: %v", err)
	}
	for i := 0; i < 5; i++ {
		err := f.uc.ApplyNotification(ctx, n)
		if !errors.Is(err, domain.ErrDuplicateInvoice) {
			t.Fatalf("replay %d err = %v, want ErrDuplicateInvoice", i, err)
		}
	}

	bal, _ := f.ledger.BalanceOf(ctx, repository.NoTX, 500)
	if bal != 400 {
		t.Fatalf("balance after replays = %d, want 400", bal)
	}
}

func TestPaymentUC_SubscriptionActivation(t *testing.T) {
	ctx := context.Background()
	f := newPayFixture(t)
	f.ledger.seed(7, 0)

	inv, err := f.subUC.BeginPurchase(ctx, 7)
	if err != nil {
		t.Fatalf("begin purchase: %v", err)
	}
	n := finishedIPN(inv.ID, "7", "subscription", 10)
	if err := f.uc.ApplyNotification(ctx, n); err != nil {
		t.Fatalf("apply: %v", err)
	}

	st, _ := f.ledger.SubscriptionOf(ctx, repository.NoTX, 7)
	if st.Status != model.SubscriptionStatusActive {
		t.Fatalf("status = %s, want active", st.Status)
	}
	bal, _ := f.ledger.BalanceOf(ctx, repository.NoTX, 7)
	if bal != 250 {
		t.Fatalf("bonus balance = %d, want 250", bal)
	}
	rows, _ := f.purchases.ListByUser(ctx, repository.NoTX, 7)
	if len(rows) != 1 {
		t.Fatalf("purchase rows = %d, want 1", len(rows))
	}
}

func TestPaymentUC_NonFinishedIsNoop(t *testing.T) {
	ctx := context.Background()
	f := newPayFixture(t)

	for _, status := range []model.PaymentStatus{
		model.PaymentStatusWaiting,
		model.PaymentStatusConfirming,
		model.PaymentStatusFailed,
		model.PaymentStatusExpired,
	} {
		n := finishedIPN("inv-x", "500", "credits_400", 5)
		n.Status = status
		if err := f.uc.ApplyNotification(ctx, n); err != nil {
			t.Fatalf("status %s: %v", status, err)
		}
	}

	if _, err := f.ledger.BalanceOf(ctx, repository.NoTX, 500); !errors.Is(err, domain.ErrNotFound) {
		t.Fatal("non-finished notification created state")
	}
	// the invoice must remain claimable by a later finished status
	seen, _ := f.registry.Seen(ctx, repository.NoTX, usecase.SourcePayments, "inv-x")
	if seen {
		t.Fatal("non-finished notification consumed the invoice id")
	}
}

func TestPaymentUC_UnknownTagAcknowledged(t *testing.T) {
	ctx := context.Background()
	f := newPayFixture(t)

	n := finishedIPN("inv-odd", "500", "mystery_product", 5)
	if err := f.uc.ApplyNotification(ctx, n); err != nil {
		t.Fatalf("unknown tag must be acknowledged, got %v", err)
	}
	bal, err := f.ledger.BalanceOf(ctx, repository.NoTX, 500)
	if err != nil {
		t.Fatalf("user row should exist: %v", err)
	}
	if bal != 0 {
		t.Fatalf("unknown tag granted credits: %d", bal)
	}
	// acknowledged means marked: a replay is a duplicate
	if err := f.uc.ApplyNotification(ctx, n); !errors.Is(err, domain.ErrDuplicateInvoice) {
		t.Fatalf("replay err = %v, want ErrDuplicateInvoice", err)
	}
}

func TestPaymentUC_BadOrderIDRejected(t *testing.T) {
	ctx := context.Background()
	f := newPayFixture(t)

	n := finishedIPN("inv-bad", "not-a-number", "credits_400", 5)
	if err := f.uc.ApplyNotification(ctx, n); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("err = %v, want ErrInvalidArgument", err)
	}
}
