// Package generation produces answer text from a prompt with a fixed sampling policy.
package generation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/sony/gobreaker"
)

// DefaultModel is the chat model used when none is configured.
const DefaultModel = "gpt-4o-mini"

// DefaultMaxPromptTokens bounds the prompt length before truncation (in tokens).
const DefaultMaxPromptTokens = 2048

// ErrNoChoices is returned when the server answers without any completion.
var ErrNoChoices = errors.New("completion returned no choices")

// tripAfter consecutive failures open the breaker; it half-opens after breakerCooldown.
const (
	tripAfter       = 5
	breakerCooldown = 30 * time.Second
)

// Policy is the sampling configuration sent with every request.
type Policy struct {
	MaxNewTokens      int64
	Temperature       float64
	TopP              float64
	TopK              int
	RepetitionPenalty float64
}

// DefaultPolicy favours short, conservative answers.
var DefaultPolicy = Policy{
	MaxNewTokens:      300,
	Temperature:       0.3,
	TopP:              0.8,
	TopK:              40,
	RepetitionPenalty: 1.2,
}

// Generator calls an OpenAI-compatible chat completion endpoint.
type Generator struct {
	client          *openai.Client
	model           string
	policy          Policy
	maxPromptTokens int
	breaker         *gobreaker.CircuitBreaker
	logger          *slog.Logger
}

// NewGenerator creates a generator for model. An empty model selects DefaultModel.
func NewGenerator(client *openai.Client, model string, logger *slog.Logger) *Generator {
	if model == "" {
		model = DefaultModel
	}
	if logger == nil {
		logger = slog.Default()
	}
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "generation",
		MaxRequests: 1,
		Timeout:     breakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= tripAfter
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
		},
	})

	return &Generator{
		client:          client,
		model:           model,
		policy:          DefaultPolicy,
		maxPromptTokens: DefaultMaxPromptTokens,
		breaker:         breaker,
		logger:          logger,
	}
}

// Model returns the chat model name.
func (g *Generator) Model() string {
	return g.model
}

// Generate returns the raw completion for prompt. After repeated failures the
// breaker opens and calls fail fast until the cooldown passes.
func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	prompt = g.truncatePrompt(prompt)

	out, err := g.breaker.Execute(func() (interface{}, error) {
		return g.complete(ctx, prompt)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return "", fmt.Errorf("generation unavailable: %w", err)
		}
		return "", err
	}
	return out.(string), nil
}

// complete sends one chat completion. top_k and repetition_penalty are not
// part of the OpenAI schema and are sent as extra JSON fields, which local
// inference servers honour.
func (g *Generator) complete(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		Model:       openai.ChatModel(g.model),
		MaxTokens:   openai.Int(g.policy.MaxNewTokens),
		Temperature: openai.Float(g.policy.Temperature),
		TopP:        openai.Float(g.policy.TopP),
	},
		option.WithJSONSet("top_k", g.policy.TopK),
		option.WithJSONSet("repetition_penalty", g.policy.RepetitionPenalty),
	)
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrNoChoices
	}
	return resp.Choices[0].Message.Content, nil
}

// truncatePrompt keeps the head of the prompt within the token budget.
// Uses rough estimate of 4 characters per token.
func (g *Generator) truncatePrompt(prompt string) string {
	maxChars := g.maxPromptTokens * 4

	runes := []rune(prompt)
	if len(runes) <= maxChars {
		return prompt
	}

	g.logger.Warn("Truncating prompt",
		"from_chars", len(runes),
		"to_chars", maxChars,
		"max_tokens", g.maxPromptTokens,
	)
	return string(runes[:maxChars])
}
