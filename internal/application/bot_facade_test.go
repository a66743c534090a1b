//go:build !integration

package application_test

import (
	"context"
	"strings"
	"sync"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"github.com/Rk13termux/KaliRootBot-sub000/internal/application"
	"github.com/Rk13termux/KaliRootBot-sub000/internal/catalog"
	"github.com/Rk13termux/KaliRootBot-sub000/internal/domain"
	"github.com/Rk13termux/KaliRootBot-sub000/internal/domain/model"
	"github.com/Rk13termux/KaliRootBot-sub000/internal/domain/ports/adapter"
	"github.com/Rk13termux/KaliRootBot-sub000/internal/domain/ports/repository"
	"github.com/Rk13termux/KaliRootBot-sub000/internal/usecase"
)

func newTestLogger() *zerolog.Logger { l := zerolog.Nop(); return &l }

// ---- Mock bot adapter ----

type sentMessage struct {
	ChatID int64
	Text   string
}

type MockBot struct {
	mu     sync.Mutex
	Sent   []sentMessage
	Typing int
}

var _ adapter.TelegramBotAdapter = (*MockBot)(nil)

func (m *MockBot) SendMessage(ctx context.Context, chatID int64, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sent = append(m.Sent, sentMessage{ChatID: chatID, Text: text})
	return nil
}

func (m *MockBot) SendKeyboard(ctx context.Context, chatID int64, text string, kb adapter.ReplyKeyboard) error {
	return m.SendMessage(ctx, chatID, text)
}

func (m *MockBot) SendTyping(ctx context.Context, chatID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Typing++
	return nil
}

func (m *MockBot) SetWebhook(ctx context.Context, url, secret string) error { return nil }
func (m *MockBot) DeleteWebhook(ctx context.Context) error                  { return nil }

func (m *MockBot) last(t *testing.T) sentMessage {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Sent) == 0 {
		t.Fatal("no message sent")
	}
	return m.Sent[len(m.Sent)-1]
}

// ---- Mock AI ----

type MockAI struct {
	Reply adapter.ChatReply
	Err   error

	mu    sync.Mutex
	Asked []string
}

var _ adapter.AIServiceAdapter = (*MockAI)(nil)

func (m *MockAI) Ask(ctx context.Context, question string) (adapter.ChatReply, error) {
	m.mu.Lock()
	m.Asked = append(m.Asked, question)
	m.mu.Unlock()
	return m.Reply, m.Err
}

// ---- Mock use cases ----

type MockUserUC struct {
	Created bool
	User    *model.User
}

var _ usecase.UserUseCase = (*MockUserUC)(nil)

func (m *MockUserUC) EnsureUser(ctx context.Context, tgID int64, names model.Names) (repository.EnsureResult, error) {
	u := m.User
	if u == nil {
		u, _ = model.NewUser(tgID, names)
		u.CreditBalance = 10
	}
	return repository.EnsureResult{Created: m.Created, User: u}, nil
}

func (m *MockUserUC) GetByTelegramID(ctx context.Context, tgID int64) (*model.User, error) {
	return m.User, nil
}

func (m *MockUserUC) Count(ctx context.Context) (int, error) { return 1, nil }

type MockCreditUC struct {
	Balance int64

	ChargeFunc func() (bool, error)
	Charges    int
	mu         sync.Mutex
}

var _ usecase.CreditUseCase = (*MockCreditUC)(nil)

func (m *MockCreditUC) CanUseLLM(ctx context.Context, tgID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Balance > 0, nil
}

func (m *MockCreditUC) ChargeForLLM(ctx context.Context, tgID int64) (bool, error) {
	if m.ChargeFunc != nil {
		return m.ChargeFunc()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Balance <= 0 {
		return false, nil
	}
	m.Balance--
	m.Charges++
	return true, nil
}

func (m *MockCreditUC) Grant(ctx context.Context, qx repository.Tx, tgID int64, amount int64, reason string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Balance += amount
	return m.Balance, nil
}

func (m *MockCreditUC) BalanceOf(ctx context.Context, tgID int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Balance, nil
}

type MockSubUC struct {
	BeginErr error
	State    model.SubscriptionState
}

var _ usecase.SubscriptionUseCase = (*MockSubUC)(nil)

func (m *MockSubUC) BeginPurchase(ctx context.Context, tgID int64) (adapter.Invoice, error) {
	if m.BeginErr != nil {
		return adapter.Invoice{}, m.BeginErr
	}
	return adapter.Invoice{ID: "sub-inv", URL: "https://pay.example/sub-inv"}, nil
}

func (m *MockSubUC) ActivateFromInvoice(ctx context.Context, qx repository.Tx, tgID int64, invoiceID string) error {
	return nil
}

func (m *MockSubUC) Status(ctx context.Context, tgID int64) (model.SubscriptionState, error) {
	return m.State, nil
}

func (m *MockSubUC) ExpireOverdue(ctx context.Context) (int, error) { return 0, nil }

type MockPayUC struct {
	InvoiceErr error
}

var _ usecase.PaymentUseCase = (*MockPayUC)(nil)

func (m *MockPayUC) ApplyNotification(ctx context.Context, n *model.PaymentNotification) error {
	return nil
}

func (m *MockPayUC) CreateCreditInvoice(ctx context.Context, tgID int64, pack catalog.CreditPack) (adapter.Invoice, error) {
	if m.InvoiceErr != nil {
		return adapter.Invoice{}, m.InvoiceErr
	}
	return adapter.Invoice{ID: "pack-" + pack.Tag, URL: "https://pay.example/" + pack.Tag}, nil
}

// ---- helpers ----

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	c, err := catalog.Load(30, 250)
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	return c
}

type fixture struct {
	bot     *MockBot
	ai      *MockAI
	credits *MockCreditUC
	subUC   *MockSubUC
	payUC   *MockPayUC
	facade  *application.BotFacade
}

func newFixture(t *testing.T, balance int64) *fixture {
	t.Helper()
	bot := &MockBot{}
	ai := &MockAI{Reply: adapter.ChatReply{Text: "an answer"}}
	credits := &MockCreditUC{Balance: balance}
	subUC := &MockSubUC{}
	payUC := &MockPayUC{}
	facade := application.NewBotFacade(
		&MockUserUC{}, credits, subUC, payUC, ai, bot, nil, testCatalog(t), 20, newTestLogger(),
	)
	return &fixture{bot: bot, ai: ai, credits: credits, subUC: subUC, payUC: payUC, facade: facade}
}

func textUpdate(tgID int64, text string) *tgbotapi.Update {
	return &tgbotapi.Update{
		Message: &tgbotapi.Message{
			From: &tgbotapi.User{ID: tgID, FirstName: "Ada"},
			Chat: &tgbotapi.Chat{ID: tgID},
			Text: text,
		},
	}
}

// ---- tests ----

func TestFacade_QuestionChargedAfterAnswer(t *testing.T) {
	f := newFixture(t, 3)

	f.facade.HandleUpdate(context.Background(), textUpdate(1, "what is a SYN scan?"))

	if len(f.ai.Asked) != 1 {
		t.Fatalf("ai asked %d times, want 1", len(f.ai.Asked))
	}
	if f.credits.Charges != 1 {
		t.Fatalf("charges = %d, want 1", f.credits.Charges)
	}
	if got := f.bot.last(t).Text; got != "an answer" {
		t.Fatalf("reply = %q, want the answer", got)
	}
}

func TestFacade_FallbackNotBilled(t *testing.T) {
	f := newFixture(t, 3)
	f.ai.Reply = adapter.ChatReply{Text: "sorry, try later", Fallback: true}

	f.facade.HandleUpdate(context.Background(), textUpdate(1, "question"))

	if f.credits.Charges != 0 {
		t.Fatalf("fallback reply was billed (%d charges)", f.credits.Charges)
	}
	if got := f.bot.last(t).Text; got != "sorry, try later" {
		t.Fatalf("reply = %q, want fallback text", got)
	}
}

func TestFacade_OutOfCreditsOffersTopUp(t *testing.T) {
	f := newFixture(t, 0)

	f.facade.HandleUpdate(context.Background(), textUpdate(1, "question"))

	if len(f.ai.Asked) != 0 {
		t.Fatal("LLM called with zero balance")
	}
	got := f.bot.last(t).Text
	if !strings.Contains(got, "out of credits") {
		t.Fatalf("reply = %q, want out-of-credits notice", got)
	}
	if !strings.Contains(got, "https://pay.example/") {
		t.Fatalf("reply = %q, want a purchase link", got)
	}
}

// The precheck passed but a concurrent message spent the last credit before
// the charge: the answer is withheld and the user gets the top-up offer.
func TestFacade_ChargeDeniedAfterAnswerWithholds(t *testing.T) {
	f := newFixture(t, 1)
	f.credits.ChargeFunc = func() (bool, error) { return false, nil }

	f.facade.HandleUpdate(context.Background(), textUpdate(1, "question"))

	if len(f.ai.Asked) != 1 {
		t.Fatalf("ai asked %d times, want 1", len(f.ai.Asked))
	}
	got := f.bot.last(t).Text
	if got == "an answer" {
		t.Fatal("unpaid answer was delivered")
	}
	if !strings.Contains(got, "out of credits") {
		t.Fatalf("reply = %q, want out-of-credits notice", got)
	}
}

func TestFacade_StartWelcomesCreatedUser(t *testing.T) {
	bot := &MockBot{}
	u, _ := model.NewUser(1, model.Names{FirstName: "Ada"})
	u.CreditBalance = 10
	facade := application.NewBotFacade(
		&MockUserUC{Created: true, User: u}, &MockCreditUC{Balance: 10}, &MockSubUC{}, &MockPayUC{},
		&MockAI{}, bot, nil, testCatalog(t), 20, newTestLogger(),
	)

	facade.HandleUpdate(context.Background(), textUpdate(1, "/start"))

	got := bot.last(t).Text
	if !strings.Contains(got, "Welcome, Ada") {
		t.Fatalf("welcome = %q, want first-contact greeting", got)
	}
	if !strings.Contains(got, "10") {
		t.Fatalf("welcome = %q, want initial credit count", got)
	}
}

func TestFacade_StartWelcomesReturningUser(t *testing.T) {
	bot := &MockBot{}
	u, _ := model.NewUser(1, model.Names{FirstName: "Ada"})
	u.CreditBalance = 4
	facade := application.NewBotFacade(
		&MockUserUC{User: u}, &MockCreditUC{Balance: 4}, &MockSubUC{}, &MockPayUC{},
		&MockAI{}, bot, nil, testCatalog(t), 20, newTestLogger(),
	)

	facade.HandleUpdate(context.Background(), textUpdate(1, "/start"))

	got := bot.last(t).Text
	if !strings.Contains(got, "Welcome back") {
		t.Fatalf("welcome = %q, want returning greeting", got)
	}
}

func TestFacade_SubscribeConflictingPending(t *testing.T) {
	f := newFixture(t, 3)
	f.subUC.BeginErr = domain.ErrConflictingPending

	f.facade.HandleUpdate(context.Background(), textUpdate(1, "/subscribe"))

	got := f.bot.last(t).Text
	if !strings.Contains(got, "in flight") {
		t.Fatalf("reply = %q, want conflicting-pending notice", got)
	}
}

func TestFacade_MenuLabelRoutesLikeCommand(t *testing.T) {
	f := newFixture(t, 5)

	f.facade.HandleUpdate(context.Background(), textUpdate(1, "💳 Balance"))

	got := f.bot.last(t).Text
	if !strings.Contains(got, "Balance: 5") {
		t.Fatalf("reply = %q, want balance line", got)
	}
}

func TestFacade_IgnoresBots(t *testing.T) {
	f := newFixture(t, 5)
	upd := textUpdate(1, "hello")
	upd.Message.From.IsBot = true

	f.facade.HandleUpdate(context.Background(), upd)

	if len(f.bot.Sent) != 0 {
		t.Fatalf("replied to a bot: %+v", f.bot.Sent)
	}
}
