package adapter

import "context"

// ReplyKeyboard is a fixed set of button labels rendered under the input box.
type ReplyKeyboard [][]string

// TelegramBotAdapter is the outbound port to the chat platform. Inbound
// updates arrive over the webhook; this port only emits.
type TelegramBotAdapter interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
	SendKeyboard(ctx context.Context, chatID int64, text string, kb ReplyKeyboard) error
	// SendTyping emits the "typing…" chat action; used as the keep-typing
	// signal while an LLM call is in flight.
	SendTyping(ctx context.Context, chatID int64) error

	// SetWebhook registers the webhook URL with the platform, attaching the
	// shared secret so it is echoed in the secret-token header.
	SetWebhook(ctx context.Context, url, secret string) error
	DeleteWebhook(ctx context.Context) error
}
