package intent

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"ordergate/internal/conversation"
	"ordergate/internal/llm"
)

// Request carries everything one synthesis call needs.
type Request struct {
	Text     string
	History  []conversation.Turn
	OrderIDs []string
}

// Synthesizer produces a StructuredIntent from sanitized text via one call
// to the external model. All failures surface as errors; the caller converts
// them into the safe fallback intent.
type Synthesizer struct {
	client     llm.Client
	classifier *Classifier
	timeout    time.Duration
	logger     *slog.Logger
}

// SynthesizerOption configures a Synthesizer.
type SynthesizerOption func(*Synthesizer)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) SynthesizerOption {
	return func(s *Synthesizer) { s.logger = logger }
}

// NewSynthesizer constructs a Synthesizer. timeout <= 0 defaults to 10s; the
// model call must never block a chat request indefinitely.
func NewSynthesizer(client llm.Client, timeout time.Duration, opts ...SynthesizerOption) (*Synthesizer, error) {
	if client == nil {
		return nil, fmt.Errorf("llm client is required")
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	s := &Synthesizer{
		client:     client,
		classifier: NewClassifier(),
		timeout:    timeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Synthesize builds the prompt, calls the model under a bounded timeout, and
// parses the response. A timeout is a synthesizer failure like any other.
func (s *Synthesizer) Synthesize(ctx context.Context, req Request) (*StructuredIntent, error) {
	category := s.classifier.Classify(req.Text, len(req.OrderIDs) > 0)
	prompt := BuildPrompt(req.Text, req.History, req.OrderIDs, category)

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	raw, err := s.client.Generate(callCtx, prompt)
	if err != nil {
		return nil, fmt.Errorf("generate intent: %w", err)
	}

	parsed, err := ParseIntent(raw)
	if err != nil {
		if s.logger != nil {
			s.logger.WarnContext(ctx, "intent parse failed",
				"category_hint", string(category),
				"duration_ms", time.Since(start).Milliseconds(),
				"error", err,
			)
		}
		return nil, err
	}

	if s.logger != nil {
		s.logger.DebugContext(ctx, "intent synthesized",
			"action", string(parsed.Action),
			"confidence", parsed.Confidence,
			"category_hint", string(category),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
	return parsed, nil
}
