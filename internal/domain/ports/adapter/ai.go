package adapter

import "context"

// Message represents a chat message.
type Message struct {
	Role    string `json:"role"` // "user", "assistant", "system"
	Content string `json:"content"`
}

// ChatReply is the response envelope of the LLM gateway. Fallback is set when
// the provider was unreachable, declined, or returned a sentinel/empty body;
// fallback replies are never billed.
type ChatReply struct {
	Text     string
	Fallback bool
}

// AIServiceAdapter is the port for the external LLM gateway.
type AIServiceAdapter interface {
	// Ask sends the user's question with the tutoring system prompt and
	// returns a reply envelope. Transport failures surface as Fallback
	// replies, not errors; err is reserved for programming mistakes
	// (nil context, empty prompt).
	Ask(ctx context.Context, question string) (ChatReply, error)
}
