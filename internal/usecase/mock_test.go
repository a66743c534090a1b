//go:build !integration

package usecase_test

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"github.com/Rk13termux/KaliRootBot-sub000/internal/domain"
	"github.com/Rk13termux/KaliRootBot-sub000/internal/domain/model"
	"github.com/Rk13termux/KaliRootBot-sub000/internal/domain/ports/adapter"
	"github.com/Rk13termux/KaliRootBot-sub000/internal/domain/ports/repository"
)

func newTestLogger() *zerolog.Logger { l := zerolog.Nop(); return &l }

// =============================
// In-memory ledger
// =============================

// MemLedgerRepo mirrors the conditional-update semantics of the Postgres
// implementation: ChargeOne never goes below zero and SetSubscriptionPending
// rejects a second distinct pending invoice.
type MemLedgerRepo struct {
	mu           sync.Mutex
	users        map[int64]*model.User
	initialGrant int64

	// optional error hooks
	errEnsure error
	errCharge error
	errGrant  error
}

var _ repository.LedgerRepository = (*MemLedgerRepo)(nil)

func newMemLedgerRepo(initialGrant int64) *MemLedgerRepo {
	return &MemLedgerRepo{users: map[int64]*model.User{}, initialGrant: initialGrant}
}

func (m *MemLedgerRepo) EnsureUser(ctx context.Context, qx repository.Tx, tgID int64, names model.Names) (repository.EnsureResult, error) {
	if m.errEnsure != nil {
		return repository.EnsureResult{}, m.errEnsure
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[tgID]; ok {
		if names.FirstName != "" {
			u.FirstName = names.FirstName
		}
		if names.LastName != "" {
			u.LastName = names.LastName
		}
		if names.Username != "" {
			u.Username = names.Username
		}
		u.LastActiveAt = time.Now()
		cp := *u
		return repository.EnsureResult{Created: false, User: &cp}, nil
	}
	u, err := model.NewUser(tgID, names)
	if err != nil {
		return repository.EnsureResult{}, err
	}
	u.CreditBalance = m.initialGrant
	m.users[tgID] = u
	cp := *u
	return repository.EnsureResult{Created: true, User: &cp}, nil
}

func (m *MemLedgerRepo) Grant(ctx context.Context, qx repository.Tx, tgID int64, amount int64) (int64, error) {
	if m.errGrant != nil {
		return 0, m.errGrant
	}
	if amount <= 0 {
		return 0, domain.ErrInvalidArgument
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[tgID]
	if !ok {
		return 0, domain.ErrNotFound
	}
	u.CreditBalance += amount
	return u.CreditBalance, nil
}

func (m *MemLedgerRepo) ChargeOne(ctx context.Context, qx repository.Tx, tgID int64) (bool, error) {
	if m.errCharge != nil {
		return false, m.errCharge
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[tgID]
	if !ok {
		return false, domain.ErrNotFound
	}
	if u.CreditBalance <= 0 {
		return false, nil
	}
	u.CreditBalance--
	return true, nil
}

func (m *MemLedgerRepo) BalanceOf(ctx context.Context, qx repository.Tx, tgID int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[tgID]
	if !ok {
		return 0, domain.ErrNotFound
	}
	return u.CreditBalance, nil
}

func (m *MemLedgerRepo) SetSubscriptionPending(ctx context.Context, qx repository.Tx, tgID int64, invoiceID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[tgID]
	if !ok {
		return domain.ErrNotFound
	}
	s := u.Subscription
	if s.Status == model.SubscriptionStatusPending && s.PendingInvoiceID != "" && s.PendingInvoiceID != invoiceID {
		return domain.ErrConflictingPending
	}
	u.Subscription.Status = model.SubscriptionStatusPending
	u.Subscription.PendingInvoiceID = invoiceID
	return nil
}

func (m *MemLedgerRepo) ActivateSubscription(ctx context.Context, qx repository.Tx, tgID int64, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[tgID]
	if !ok {
		return domain.ErrNotFound
	}
	u.Subscription = model.SubscriptionState{
		Status:    model.SubscriptionStatusActive,
		ExpiresAt: &expiresAt,
	}
	return nil
}

func (m *MemLedgerRepo) SubscriptionOf(ctx context.Context, qx repository.Tx, tgID int64) (model.SubscriptionState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[tgID]
	if !ok {
		return model.SubscriptionState{}, domain.ErrNotFound
	}
	return u.Subscription, nil
}

func (m *MemLedgerRepo) ExpireOverdue(ctx context.Context, qx repository.Tx, now time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, u := range m.users {
		s := u.Subscription
		if s.Status == model.SubscriptionStatusActive && (s.ExpiresAt == nil || !now.Before(*s.ExpiresAt)) {
			u.Subscription.Status = model.SubscriptionStatusExpired
			n++
		}
	}
	return n, nil
}

func (m *MemLedgerRepo) FindByTelegramID(ctx context.Context, qx repository.Tx, tgID int64) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[tgID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *MemLedgerRepo) CountUsers(ctx context.Context, qx repository.Tx) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.users), nil
}

func (m *MemLedgerRepo) CountActiveSubscriptions(ctx context.Context, qx repository.Tx, now time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, u := range m.users {
		if u.Subscription.IsSubscribed(now) {
			n++
		}
	}
	return n, nil
}

// helper used by tests to seed a user with a balance
func (m *MemLedgerRepo) seed(tgID, balance int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, _ := model.NewUser(tgID, model.Names{})
	u.CreditBalance = balance
	m.users[tgID] = u
}

// =============================
// Purchase log + idempotency registry
// =============================

type MemPurchaseRepo struct {
	mu   sync.Mutex
	rows map[string]*model.Purchase
}

var _ repository.PurchaseRepository = (*MemPurchaseRepo)(nil)

func newMemPurchaseRepo() *MemPurchaseRepo {
	return &MemPurchaseRepo{rows: map[string]*model.Purchase{}}
}

func (m *MemPurchaseRepo) Append(ctx context.Context, qx repository.Tx, p *model.Purchase) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[p.InvoiceID]; ok {
		return domain.ErrAlreadyExists
	}
	cp := *p
	if cp.ReceivedAt.IsZero() {
		cp.ReceivedAt = time.Now()
	}
	m.rows[p.InvoiceID] = &cp
	return nil
}

func (m *MemPurchaseRepo) ListByUser(ctx context.Context, qx repository.Tx, tgID int64) ([]*model.Purchase, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Purchase
	for _, p := range m.rows {
		if p.UserID == tgID {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *MemPurchaseRepo) SumRevenueByCurrency(ctx context.Context, qx repository.Tx) (map[string]float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[string]float64{}
	for _, p := range m.rows {
		out[p.Currency] += p.Amount
	}
	return out, nil
}

type MemIdempotencyRegistry struct {
	mu   sync.Mutex
	seen map[string]string // source/invoice -> status
}

var _ repository.IdempotencyRegistry = (*MemIdempotencyRegistry)(nil)

func newMemIdempotencyRegistry() *MemIdempotencyRegistry {
	return &MemIdempotencyRegistry{seen: map[string]string{}}
}

func (m *MemIdempotencyRegistry) key(source, invoiceID string) string {
	return source + "/" + invoiceID
}

func (m *MemIdempotencyRegistry) Seen(ctx context.Context, qx repository.Tx, source, invoiceID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.seen[m.key(source, invoiceID)]
	return ok, nil
}

func (m *MemIdempotencyRegistry) Mark(ctx context.Context, qx repository.Tx, source, invoiceID, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := m.key(source, invoiceID)
	if _, ok := m.seen[k]; ok {
		return domain.ErrDuplicateInvoice
	}
	m.seen[k] = status
	return nil
}

// =============================
// Tx manager + gateway
// =============================

type memTx struct{}

// MemTxManager runs fn directly. The mem repos are already atomic per call,
// which is enough for use-case level tests.
type MemTxManager struct{}

var _ repository.TransactionManager = (*MemTxManager)(nil)

func (m *MemTxManager) WithTx(ctx context.Context, _ pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	return fn(ctx, memTx{})
}

type MockGateway struct {
	mu      sync.Mutex
	seq     int
	created []adapter.InvoiceRequest

	CreateInvoiceFunc func(ctx context.Context, req adapter.InvoiceRequest) (adapter.Invoice, error)
}

var _ adapter.PaymentGateway = (*MockGateway)(nil)

func (m *MockGateway) Name() string { return "mock" }

func (m *MockGateway) CreateInvoice(ctx context.Context, req adapter.InvoiceRequest) (adapter.Invoice, error) {
	if m.CreateInvoiceFunc != nil {
		return m.CreateInvoiceFunc(ctx, req)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	id := fmt.Sprintf("inv-%d", m.seq)
	m.created = append(m.created, req)
	return adapter.Invoice{ID: id, URL: "https://pay.example/" + id}, nil
}
