// Package llm wraps the external text-generation service behind a one-method
// port. The model is a black-box text generator here: prompt in, raw text
// out. Parsing and trust decisions live upstream in internal/intent and
// internal/validation.
package llm

//go:generate mockgen -source=llm.go -destination=mocks/mocks.go -package=mocks Client

import (
	"context"
	"errors"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/openai"

	"ordergate/internal/platform/config"
)

// ErrProvider wraps quota, timeout, and transport failures from the
// underlying provider so callers can treat them uniformly as synthesizer
// failures.
var ErrProvider = errors.New("llm provider error")

// Client generates text for a prompt. Implementations must honor context
// cancellation; callers apply the timeout.
type Client interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// LangChainClient implements Client over a langchaingo llms.Model.
type LangChainClient struct {
	model       llms.Model
	temperature float64
	maxTokens   int
}

// New builds a client for the configured provider ("openai" or "googleai").
func New(ctx context.Context, cfg config.LLMConfig) (*LangChainClient, error) {
	var (
		model llms.Model
		err   error
	)
	switch cfg.Provider {
	case "openai":
		model, err = openai.New(
			openai.WithToken(cfg.APIKey),
			openai.WithModel(cfg.Model),
		)
	case "googleai":
		model, err = googleai.New(ctx,
			googleai.WithAPIKey(cfg.APIKey),
			googleai.WithDefaultModel(cfg.Model),
		)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("init llm provider %s: %w", cfg.Provider, err)
	}

	return &LangChainClient{
		model:       model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
	}, nil
}

// Generate runs a single-prompt completion.
func (c *LangChainClient) Generate(ctx context.Context, prompt string) (string, error) {
	out, err := llms.GenerateFromSinglePrompt(ctx, c.model, prompt,
		llms.WithTemperature(c.temperature),
		llms.WithMaxTokens(c.maxTokens),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrProvider, err)
	}
	return out, nil
}
