package telegram

import (
	"context"
	"errors"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"github.com/Rk13termux/KaliRootBot-sub000/internal/domain/ports/adapter"
)

var _ adapter.TelegramBotAdapter = (*RealBotAdapter)(nil)

// RealBotAdapter implements the outbound Telegram port with tgbotapi. Updates
// come in over the webhook; this adapter only emits messages and manages the
// webhook registration.
type RealBotAdapter struct {
	bot *tgbotapi.BotAPI
	log *zerolog.Logger
}

func NewRealBotAdapter(token string, logger *zerolog.Logger) (*RealBotAdapter, error) {
	if token == "" {
		return nil, errors.New("bot token empty")
	}
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	logger.Info().Str("bot", bot.Self.UserName).Msg("telegram bot authorized")
	return &RealBotAdapter{bot: bot, log: logger}, nil
}

func (r *RealBotAdapter) SendMessage(ctx context.Context, chatID int64, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(chatID, text)
	msg.DisableWebPagePreview = true
	_, err := r.bot.Send(msg)
	return err
}

func (r *RealBotAdapter) SendKeyboard(ctx context.Context, chatID int64, text string, kb adapter.ReplyKeyboard) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	rows := make([][]tgbotapi.KeyboardButton, 0, len(kb))
	for _, row := range kb {
		btns := make([]tgbotapi.KeyboardButton, 0, len(row))
		for _, label := range row {
			btns = append(btns, tgbotapi.NewKeyboardButton(label))
		}
		rows = append(rows, btns)
	}
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = tgbotapi.NewReplyKeyboard(rows...)
	_, err := r.bot.Send(msg)
	return err
}

func (r *RealBotAdapter) SendTyping(ctx context.Context, chatID int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := r.bot.Request(tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping))
	return err
}

// SetWebhook registers the webhook through the raw API because the library's
// WebhookConfig predates the secret_token parameter.
func (r *RealBotAdapter) SetWebhook(ctx context.Context, url, secret string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	params := tgbotapi.Params{
		"url":             url,
		"secret_token":    secret,
		"allowed_updates": `["message"]`,
	}
	if _, err := r.bot.MakeRequest("setWebhook", params); err != nil {
		return err
	}
	r.log.Info().Str("url", url).Msg("webhook registered")
	return nil
}

func (r *RealBotAdapter) DeleteWebhook(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := r.bot.MakeRequest("deleteWebhook", tgbotapi.Params{"drop_pending_updates": "false"})
	return err
}
