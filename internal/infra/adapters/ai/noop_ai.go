package ai

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/Rk13termux/KaliRootBot-sub000/internal/domain/ports/adapter"
)

var _ adapter.AIServiceAdapter = (*NoopAIAdapter)(nil)

// NoopAIAdapter answers every question with a fixed reply. Used in local
// runs without a provider key so the full billing pipeline (including the
// post-answer charge) stays exercisable.
type NoopAIAdapter struct {
	log *zerolog.Logger
}

func NewNoopAIAdapter(logger *zerolog.Logger) *NoopAIAdapter {
	return &NoopAIAdapter{log: logger}
}

func (a *NoopAIAdapter) Ask(ctx context.Context, question string) (adapter.ChatReply, error) {
	select {
	case <-ctx.Done():
		return adapter.ChatReply{}, ctx.Err()
	default:
	}
	a.log.Debug().Str("question", question).Msg("[noop-ai] ask")
	return adapter.ChatReply{Text: "This is a development build; no AI provider is configured."}, nil
}
