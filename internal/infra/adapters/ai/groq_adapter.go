package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/Rk13termux/KaliRootBot-sub000/internal/domain/ports/adapter"
	"github.com/Rk13termux/KaliRootBot-sub000/internal/infra/metrics"
)

// Compile-time assurance this adapter satisfies the port
var _ adapter.AIServiceAdapter = (*GroqAdapter)(nil)

const defaultGroqBase = "https://api.groq.com/openai/v1"

// systemPrompt frames every conversation. The bot is a tutor, not an exploit
// vending machine; the prompt keeps answers educational.
const systemPrompt = "You are an expert cybersecurity tutor helping students learn " +
	"ethical hacking, networking, and Linux. Explain concepts clearly, prefer " +
	"practical examples, and always frame offensive techniques in terms of " +
	"authorized testing and defense."

// fallbackText is the canned reply sent when the provider is unreachable.
// Fallback replies are never billed.
const fallbackText = "🤖 I'm having trouble reaching my knowledge base right now. " +
	"Your credit was NOT used. Please try again in a moment."

// GroqAdapter talks to Groq's OpenAI-compatible chat completions endpoint.
// Authorization: Bearer <GROQ_API_KEY>; path is the usual /chat/completions.
type GroqAdapter struct {
	apiKey string
	base   string
	model  string
	client *http.Client
	log    *zerolog.Logger
}

func NewGroqAdapter(apiKey, model, base string, logger *zerolog.Logger) (*GroqAdapter, error) {
	if apiKey == "" {
		return nil, errors.New("groq api key empty")
	}
	if model == "" {
		model = "llama-3.1-8b-instant"
	}
	if base == "" {
		base = defaultGroqBase
	}
	return &GroqAdapter{
		apiKey: apiKey,
		base:   strings.TrimRight(base, "/"),
		model:  model,
		client: &http.Client{Timeout: 60 * time.Second},
		log:    logger,
	}, nil
}

func (g *GroqAdapter) Ask(ctx context.Context, question string) (adapter.ChatReply, error) {
	if strings.TrimSpace(question) == "" {
		return adapter.ChatReply{}, errors.New("empty question")
	}
	start := time.Now()

	text, err := g.chat(ctx, question)
	latency := float64(time.Since(start).Milliseconds())
	if err != nil || strings.TrimSpace(text) == "" {
		metrics.ObserveAICall(g.model, latency, false)
		metrics.IncAIFallback()
		g.log.Warn().Err(err).Msg("llm call failed, serving fallback")
		return adapter.ChatReply{Text: fallbackText, Fallback: true}, nil
	}

	metrics.ObserveAICall(g.model, latency, true)
	return adapter.ChatReply{Text: text}, nil
}

func (g *GroqAdapter) chat(ctx context.Context, question string) (string, error) {
	reqBody := struct {
		Model    string            `json:"model"`
		Messages []adapter.Message `json:"messages"`
	}{
		Model: g.model,
		Messages: []adapter.Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: question},
		},
	}

	b, _ := json.Marshal(reqBody)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.base+"/chat/completions", bytes.NewReader(b))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.apiKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return "", errors.New("groq http " + resp.Status)
	}

	var payload struct {
		Choices []struct {
			Message adapter.Message `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", err
	}
	for _, c := range payload.Choices {
		if c.Message.Content != "" {
			return c.Message.Content, nil
		}
	}
	return "", errors.New("empty completion")
}
