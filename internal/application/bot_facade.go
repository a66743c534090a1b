package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"github.com/Rk13termux/KaliRootBot-sub000/internal/catalog"
	"github.com/Rk13termux/KaliRootBot-sub000/internal/domain"
	"github.com/Rk13termux/KaliRootBot-sub000/internal/domain/model"
	"github.com/Rk13termux/KaliRootBot-sub000/internal/domain/ports/adapter"
	"github.com/Rk13termux/KaliRootBot-sub000/internal/domain/ports/repository"
	"github.com/Rk13termux/KaliRootBot-sub000/internal/infra/logging"
	"github.com/Rk13termux/KaliRootBot-sub000/internal/infra/redis"
	"github.com/Rk13termux/KaliRootBot-sub000/internal/usecase"
)

// Menu button labels. The reply keyboard echoes these back as plain text, so
// the router treats them like their slash-command twins.
const (
	btnBalance   = "💳 Balance"
	btnBuy       = "🛒 Buy credits"
	btnSubscribe = "⭐ Subscribe"
	btnHelp      = "ℹ️ Help"
)

const typingInterval = 4 * time.Second

var mainKeyboard = adapter.ReplyKeyboard{
	{btnBalance, btnBuy},
	{btnSubscribe, btnHelp},
}

// BotFacade routes inbound Telegram updates through the policy pipeline:
// registration, rate limiting, command dispatch, and the metered chat flow.
// All replies go out through the bot adapter; HandleUpdate never surfaces an
// error to the webhook handler, because Telegram retries on anything but 200.
type BotFacade struct {
	userUC  usecase.UserUseCase
	credits usecase.CreditUseCase
	subUC   usecase.SubscriptionUseCase
	payUC   usecase.PaymentUseCase
	ai      adapter.AIServiceAdapter
	bot     adapter.TelegramBotAdapter
	limiter *redis.RateLimiter
	packs   *catalog.Catalog

	rateLimit  int
	rateWindow time.Duration
	log        *zerolog.Logger
}

func NewBotFacade(
	userUC usecase.UserUseCase,
	credits usecase.CreditUseCase,
	subUC usecase.SubscriptionUseCase,
	payUC usecase.PaymentUseCase,
	ai adapter.AIServiceAdapter,
	bot adapter.TelegramBotAdapter,
	limiter *redis.RateLimiter,
	packs *catalog.Catalog,
	rateLimitPerMinute int,
	logger *zerolog.Logger,
) *BotFacade {
	return &BotFacade{
		userUC:     userUC,
		credits:    credits,
		subUC:      subUC,
		payUC:      payUC,
		ai:         ai,
		bot:        bot,
		limiter:    limiter,
		packs:      packs,
		rateLimit:  rateLimitPerMinute,
		rateWindow: time.Minute,
		log:        logger,
	}
}

// HandleUpdate processes one inbound update end to end. It is safe to call
// concurrently; each call runs on its own worker.
func (b *BotFacade) HandleUpdate(ctx context.Context, upd *tgbotapi.Update) {
	msg := upd.Message
	if msg == nil || msg.From == nil || msg.From.IsBot {
		return
	}
	tgID := msg.From.ID
	ctx = logging.WithTgID(ctx, tgID)

	res, err := b.userUC.EnsureUser(ctx, tgID, model.Names{
		FirstName: msg.From.FirstName,
		LastName:  msg.From.LastName,
		Username:  msg.From.UserName,
	})
	if err != nil {
		b.log.Error().Err(err).Int64("tg_id", tgID).Msg("ensure user failed")
		b.send(ctx, tgID, "Something went wrong on our side. Please try again in a moment.")
		return
	}

	ok, err := b.limiter.Allow(ctx, redis.UserMessageKey(tgID), b.rateLimit, b.rateWindow)
	if err != nil {
		// Limiter trouble must not take the bot down; let the message through.
		b.log.Warn().Err(err).Msg("rate limiter unavailable, allowing message")
		ok = true
	}
	if !ok {
		b.send(ctx, tgID, "⏳ Slow down a little — you're sending messages too fast. Try again in a minute.")
		return
	}

	text := strings.TrimSpace(msg.Text)
	switch {
	case strings.HasPrefix(text, "/start"):
		b.handleStart(ctx, tgID, res)
	case text == "/balance" || text == btnBalance:
		b.handleBalance(ctx, tgID)
	case text == "/buy" || text == btnBuy:
		b.handleBuy(ctx, tgID)
	case text == "/subscribe" || text == btnSubscribe:
		b.handleSubscribe(ctx, tgID)
	case text == "/help" || text == btnHelp:
		b.handleHelp(ctx, tgID)
	case text == "":
		b.send(ctx, tgID, "I can only read text messages. Ask me a cybersecurity question!")
	default:
		b.handleQuestion(ctx, tgID, text)
	}
}

func (b *BotFacade) handleStart(ctx context.Context, tgID int64, res repository.EnsureResult) {
	var greeting string
	if res.Created {
		greeting = fmt.Sprintf(
			"👋 Welcome, %s!\n\nI'm your cybersecurity tutor. You start with %d free credits; each question costs one.\n\nAsk me anything about pentesting, networking, or Linux, or use the menu below.",
			displayName(res.User), res.User.CreditBalance)
	} else {
		greeting = fmt.Sprintf(
			"👋 Welcome back, %s!\n\nYou have %d credits. Ask away, or use the menu below.",
			displayName(res.User), res.User.CreditBalance)
	}
	if err := b.bot.SendKeyboard(ctx, tgID, greeting, mainKeyboard); err != nil {
		b.log.Error().Err(err).Msg("send welcome failed")
	}
}

func (b *BotFacade) handleBalance(ctx context.Context, tgID int64) {
	bal, err := b.credits.BalanceOf(ctx, tgID)
	if err != nil {
		b.log.Error().Err(err).Msg("balance lookup failed")
		b.send(ctx, tgID, "Couldn't fetch your balance right now. Try again shortly.")
		return
	}
	sub, err := b.subUC.Status(ctx, tgID)
	if err != nil {
		b.log.Error().Err(err).Msg("subscription lookup failed")
		b.send(ctx, tgID, fmt.Sprintf("💳 Balance: %d credits", bal))
		return
	}
	line := fmt.Sprintf("💳 Balance: %d credits\n", bal)
	switch {
	case sub.Status == model.SubscriptionStatusActive && sub.ExpiresAt != nil:
		line += fmt.Sprintf("⭐ Subscription active until %s", sub.ExpiresAt.Format("2006-01-02"))
	case sub.Status == model.SubscriptionStatusPending:
		line += "⭐ Subscription payment pending — it activates as soon as it confirms."
	default:
		line += "No active subscription. Use /subscribe to get 30 days + bonus credits."
	}
	b.send(ctx, tgID, line)
}

func (b *BotFacade) handleBuy(ctx context.Context, tgID int64) {
	var sb strings.Builder
	sb.WriteString("🛒 Credit packs (paid in crypto):\n\n")
	minted := 0
	for _, p := range b.packs.CreditPacks {
		inv, err := b.payUC.CreateCreditInvoice(ctx, tgID, p)
		if err != nil {
			b.log.Error().Err(err).Str("pack", p.Tag).Msg("credit invoice failed")
			continue
		}
		minted++
		sb.WriteString(fmt.Sprintf("• %d credits for $%.0f\n  %s\n", p.Credits, p.PriceUSD, inv.URL))
	}
	if minted == 0 {
		b.send(ctx, tgID, "Purchases are unavailable right now. Please try again later.")
		return
	}
	sb.WriteString("\nCredits land automatically once the payment confirms.")
	b.send(ctx, tgID, sb.String())
}

func (b *BotFacade) handleSubscribe(ctx context.Context, tgID int64) {
	inv, err := b.subUC.BeginPurchase(ctx, tgID)
	if err != nil {
		if errors.Is(err, domain.ErrConflictingPending) {
			b.send(ctx, tgID, "You already have a subscription payment in flight. Please finish it or wait for it to expire before starting another.")
			return
		}
		b.log.Error().Err(err).Msg("begin subscription purchase failed")
		b.send(ctx, tgID, "Couldn't create the subscription invoice. Please try again later.")
		return
	}
	b.send(ctx, tgID, fmt.Sprintf(
		"⭐ Subscription: $%.0f for %d days, plus %d bonus credits on activation.\n\nPay here:\n%s",
		b.packs.Subscription.PriceUSD, b.packs.Subscription.DurationDays, b.packs.Subscription.BonusCredits, inv.URL))
}

func (b *BotFacade) handleHelp(ctx context.Context, tgID int64) {
	b.send(ctx, tgID,
		"Ask me any cybersecurity question — each answer costs 1 credit.\n\n"+
			"/balance — credits and subscription status\n"+
			"/buy — buy credit packs\n"+
			"/subscribe — 30-day subscription with bonus credits\n"+
			"/help — this message")
}

// handleQuestion is the metered chat flow. The credit is charged only after a
// successful, non-fallback answer; a reply the user never got useful text for
// is never billed.
func (b *BotFacade) handleQuestion(ctx context.Context, tgID int64, question string) {
	can, err := b.credits.CanUseLLM(ctx, tgID)
	if err != nil {
		b.log.Error().Err(err).Msg("credit precheck failed")
		b.send(ctx, tgID, "Something went wrong on our side. Please try again in a moment.")
		return
	}
	if !can {
		b.sendOutOfCredits(ctx, tgID)
		return
	}

	stopTyping := b.keepTyping(ctx, tgID)
	reply, err := b.ai.Ask(ctx, question)
	stopTyping()
	if err != nil {
		b.log.Error().Err(err).Msg("ai ask failed")
		b.send(ctx, tgID, "Something went wrong on our side. Please try again in a moment.")
		return
	}
	if reply.Fallback {
		// Provider trouble; answer with the canned reply and bill nothing.
		b.send(ctx, tgID, reply.Text)
		return
	}

	charged, err := b.credits.ChargeForLLM(ctx, tgID)
	if err != nil {
		b.log.Error().Err(err).Msg("charge failed after successful answer")
		b.send(ctx, tgID, "Something went wrong on our side. Please try again in a moment.")
		return
	}
	if !charged {
		// Credits ran out between the precheck and the charge (a concurrent
		// message spent the last one). The answer is withheld, nothing billed.
		b.sendOutOfCredits(ctx, tgID)
		return
	}
	b.send(ctx, tgID, reply.Text)
}

func (b *BotFacade) sendOutOfCredits(ctx context.Context, tgID int64) {
	text := "😔 You're out of credits."
	pack := b.packs.SmallestPack()
	if inv, err := b.payUC.CreateCreditInvoice(ctx, tgID, pack); err == nil {
		text += fmt.Sprintf("\n\nTop up with %d credits for $%.0f:\n%s", pack.Credits, pack.PriceUSD, inv.URL)
	} else {
		b.log.Error().Err(err).Msg("top-up invoice failed")
	}
	text += "\n\nOr use /subscribe for 30 days of access with bonus credits."
	b.send(ctx, tgID, text)
}

// keepTyping emits the typing chat action until the returned stop func is
// called. Telegram drops the indicator after ~5s, so it refreshes on a ticker.
func (b *BotFacade) keepTyping(ctx context.Context, tgID int64) func() {
	done := make(chan struct{})
	go func() {
		_ = b.bot.SendTyping(ctx, tgID)
		t := time.NewTicker(typingInterval)
		defer t.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-t.C:
				_ = b.bot.SendTyping(ctx, tgID)
			}
		}
	}()
	var once bool
	return func() {
		if !once {
			once = true
			close(done)
		}
	}
}

func (b *BotFacade) send(ctx context.Context, chatID int64, text string) {
	if err := b.bot.SendMessage(ctx, chatID, text); err != nil {
		b.log.Error().Err(err).Int64("chat_id", chatID).Msg("send message failed")
	}
}

func displayName(u *model.User) string {
	if u.FirstName != "" {
		return u.FirstName
	}
	if u.Username != "" {
		return "@" + u.Username
	}
	return "there"
}
