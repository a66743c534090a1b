package telegram

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/Rk13termux/KaliRootBot-sub000/internal/domain/ports/adapter"
)

var _ adapter.TelegramBotAdapter = (*NoopBotAdapter)(nil)

// NoopBotAdapter logs outbound messages instead of sending them. Used in
// local runs without a bot token.
type NoopBotAdapter struct {
	log *zerolog.Logger
}

func NewNoopBotAdapter(logger *zerolog.Logger) *NoopBotAdapter {
	return &NoopBotAdapter{log: logger}
}

func (n *NoopBotAdapter) SendMessage(ctx context.Context, chatID int64, text string) error {
	n.log.Info().Int64("chat_id", chatID).Str("text", text).Msg("[noop-bot] send")
	return nil
}

func (n *NoopBotAdapter) SendKeyboard(ctx context.Context, chatID int64, text string, kb adapter.ReplyKeyboard) error {
	n.log.Info().Int64("chat_id", chatID).Str("text", text).Interface("keyboard", kb).Msg("[noop-bot] send keyboard")
	return nil
}

func (n *NoopBotAdapter) SendTyping(ctx context.Context, chatID int64) error {
	return nil
}

func (n *NoopBotAdapter) SetWebhook(ctx context.Context, url, secret string) error {
	n.log.Info().Str("url", url).Msg("[noop-bot] set webhook")
	return nil
}

func (n *NoopBotAdapter) DeleteWebhook(ctx context.Context) error {
	n.log.Info().Msg("[noop-bot] delete webhook")
	return nil
}
