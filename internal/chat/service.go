// Package chat orchestrates the message pipeline: sanitize, synthesize (with
// cache), validate, execute, audit. The model's output is treated as an
// untrusted proposal throughout; only the validator's verdict gates mutation.
package chat

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"ordergate/internal/audit"
	"ordergate/internal/conversation"
	"ordergate/internal/intent"
	"ordergate/internal/intent/cache"
	"ordergate/internal/order"
	"ordergate/internal/sanitize"
	"ordergate/internal/validation"
)

const blockedMessage = "Your message could not be processed. Please rephrase your request without special formatting."

// Limits carries the pipeline thresholds the chat service enforces directly.
type Limits struct {
	MaxMessageLen      int
	BlockRiskThreshold int
	HistoryTurns       int
}

// DefaultChatLimits mirror the documented defaults.
func DefaultChatLimits() Limits {
	return Limits{
		MaxMessageLen:      1000,
		BlockRiskThreshold: sanitize.DefaultBlockThreshold,
		HistoryTurns:       20,
	}
}

// Message is one inbound chat turn, already authenticated.
type Message struct {
	SessionID string
	UserID    string
	Text      string
}

// Metadata describes how the reply was produced.
type Metadata struct {
	Validated      bool  `json:"validated"`
	RiskScore      int   `json:"riskScore"`
	Cached         bool  `json:"cached"`
	ResponseTimeMS int64 `json:"totalResponseTime_ms"`
}

// Reply is the pipeline's answer to one message.
type Reply struct {
	Message           string                   `json:"message"`
	Intent            *intent.StructuredIntent `json:"intent,omitempty"`
	ValidationReasons []string                 `json:"validationReasons,omitempty"`
	Metadata          Metadata                 `json:"metadata"`
}

// Service wires the pipeline stages together.
type Service struct {
	orders    order.Store
	audits    *audit.Recorder
	validator *validation.Service
	synth     *intent.Synthesizer
	cache     *cache.Cache
	history   *conversation.Manager
	limits    Limits
	logger    *slog.Logger
	tracer    trace.Tracer
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) { s.logger = logger }
}

// WithLimits overrides DefaultChatLimits.
func WithLimits(limits Limits) ServiceOption {
	return func(s *Service) {
		if limits.MaxMessageLen > 0 {
			s.limits.MaxMessageLen = limits.MaxMessageLen
		}
		if limits.BlockRiskThreshold > 0 {
			s.limits.BlockRiskThreshold = limits.BlockRiskThreshold
		}
		if limits.HistoryTurns > 0 {
			s.limits.HistoryTurns = limits.HistoryTurns
		}
	}
}

// WithCache enables the intent cache. Without it every message calls the
// synthesizer.
func WithCache(c *cache.Cache) ServiceOption {
	return func(s *Service) { s.cache = c }
}

// NewService constructs the pipeline. Every stage except the cache is
// mandatory.
func NewService(
	orders order.Store,
	audits *audit.Recorder,
	validator *validation.Service,
	synth *intent.Synthesizer,
	history *conversation.Manager,
	opts ...ServiceOption,
) (*Service, error) {
	if orders == nil {
		return nil, fmt.Errorf("order store is required")
	}
	if audits == nil {
		return nil, fmt.Errorf("audit recorder is required")
	}
	if validator == nil {
		return nil, fmt.Errorf("validation service is required")
	}
	if synth == nil {
		return nil, fmt.Errorf("intent synthesizer is required")
	}
	if history == nil {
		return nil, fmt.Errorf("conversation manager is required")
	}
	s := &Service{
		orders:    orders,
		audits:    audits,
		validator: validator,
		synth:     synth,
		history:   history,
		limits:    DefaultChatLimits(),
		tracer:    otel.Tracer("ordergate/chat"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Process runs one message through the full pipeline. It only returns an
// error for programmer mistakes (empty identifiers); every runtime failure is
// absorbed into a safe reply.
func (s *Service) Process(ctx context.Context, msg Message) (*Reply, error) {
	if msg.UserID == "" || msg.SessionID == "" {
		return nil, fmt.Errorf("user and session identifiers are required")
	}

	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "chat.process",
		trace.WithAttributes(attribute.String("session.id", msg.SessionID)))
	defer span.End()

	// Stage 1: sanitize. Blocking happens before any model call so injection
	// attempts never reach the prompt.
	sanitized := sanitize.Sanitize(msg.Text, s.limits.MaxMessageLen)
	span.SetAttributes(attribute.Int("sanitize.risk_score", sanitized.RiskScore))

	if sanitize.ShouldBlock(sanitized.RiskScore, s.limits.BlockRiskThreshold) {
		s.audits.Record(ctx, audit.Record{
			SessionID: msg.SessionID,
			UserID:    msg.UserID,
			Action:    audit.ActionSecurityViolation,
			Result:    audit.ResultBlocked,
			Severity:  audit.SeverityCritical,
			Details: map[string]any{
				"risk_score": sanitized.RiskScore,
				"warnings":   sanitized.Warnings,
			},
		})
		if s.logger != nil {
			s.logger.WarnContext(ctx, "message blocked before synthesis",
				"user_id", msg.UserID,
				"session_id", msg.SessionID,
				"risk_score", sanitized.RiskScore,
			)
		}
		observeMessage("blocked", false, time.Since(start))
		return &Reply{
			Message:           blockedMessage,
			ValidationReasons: sanitized.Warnings,
			Metadata: Metadata{
				Validated:      false,
				RiskScore:      sanitized.RiskScore,
				ResponseTimeMS: time.Since(start).Milliseconds(),
			},
		}, nil
	}

	// Stage 2: reference extraction and history.
	extracted := sanitize.ExtractOrderIDs(sanitized.SanitizedText)
	history := s.history.Recent(ctx, msg.SessionID, s.limits.HistoryTurns)

	// Stage 3: synthesize, behind the cache. Only clean syntheses are cached;
	// fallbacks are transient failures that should not be replayed for an hour.
	si, cached := s.synthesize(ctx, span, sanitized.SanitizedText, history, extracted.OrderIDs, msg.UserID)

	// Stage 4: validate. Every action goes through the gate, pass-through
	// actions included, so the audit trail is uniform.
	verdict := s.validator.Validate(ctx, si, validation.RequestContext{
		UserID:    msg.UserID,
		SessionID: msg.SessionID,
	})
	span.SetAttributes(
		attribute.String("intent.action", string(si.Action)),
		attribute.Bool("validation.is_valid", verdict.IsValid),
		attribute.Int("validation.risk_score", verdict.RiskScore),
	)

	var responseText string
	if verdict.IsValid {
		responseText = s.execute(ctx, si, msg)
	} else {
		responseText = s.denialMessage(ctx, si, msg, verdict)
	}

	// Stage 5: history and the per-message audit record. Both fail open.
	s.history.Append(ctx, msg.SessionID, conversation.RoleUser, sanitized.SanitizedText)
	s.history.Append(ctx, msg.SessionID, conversation.RoleAssistant, responseText)

	s.audits.Record(ctx, audit.Record{
		SessionID: msg.SessionID,
		UserID:    msg.UserID,
		Action:    audit.ActionMessageProcessed,
		OrderID:   si.OrderID,
		Result:    audit.ResultSuccess,
		Details: map[string]any{
			"intent_action": string(si.Action),
			"is_valid":      verdict.IsValid,
			"risk_score":    verdict.RiskScore,
			"cached":        cached,
			"duration_ms":   time.Since(start).Milliseconds(),
		},
	})

	outcome := "ok"
	if !verdict.IsValid {
		outcome = "denied"
	}
	observeMessage(outcome, cached, time.Since(start))

	return &Reply{
		Message:           responseText,
		Intent:            si,
		ValidationReasons: verdict.Reasons,
		Metadata: Metadata{
			Validated:      verdict.IsValid,
			RiskScore:      verdict.RiskScore,
			Cached:         cached,
			ResponseTimeMS: time.Since(start).Milliseconds(),
		},
	}, nil
}

// synthesize resolves the structured intent, consulting the cache first. A
// synthesizer failure yields the fallback intent rather than an error: the
// user always gets an answer, and the fallback's error action is inert.
func (s *Service) synthesize(ctx context.Context, span trace.Span, text string, history []conversation.Turn, orderIDs []string, userID string) (*intent.StructuredIntent, bool) {
	var key string
	if s.cache != nil {
		key = cache.Key(text, history, map[string]string{"user": userID})
		if hit := s.cache.Get(ctx, key); hit != nil {
			span.SetAttributes(attribute.Bool("intent.cached", true))
			return hit, true
		}
	}

	si, err := s.synth.Synthesize(ctx, intent.Request{
		Text:     text,
		History:  history,
		OrderIDs: orderIDs,
	})
	if err != nil {
		if s.logger != nil {
			s.logger.WarnContext(ctx, "intent synthesis failed, using fallback",
				"user_id", userID, "error", err)
		}
		return intent.FallbackIntent(), false
	}

	s.audits.Record(ctx, audit.Record{
		UserID:  userID,
		Action:  audit.ActionIntentSynthesized,
		OrderID: si.OrderID,
		Result:  audit.ResultSuccess,
		Details: map[string]any{
			"intent_action": string(si.Action),
			"confidence":    si.Confidence,
		},
	})

	if s.cache != nil && si.Action != intent.ActionError {
		s.cache.Put(ctx, key, si)
	}
	return si, false
}

// denialMessage converts a failed validation into a user-facing explanation
// and, for cancellation attempts, the mandatory denial audit record.
func (s *Service) denialMessage(ctx context.Context, si *intent.StructuredIntent, msg Message, verdict *validation.Result) string {
	if si.Action.StateChanging() {
		s.audits.Record(ctx, audit.Record{
			SessionID: msg.SessionID,
			UserID:    msg.UserID,
			Action:    audit.ActionCancellationDenied,
			OrderID:   si.OrderID,
			Result:    audit.ResultBlocked,
			Severity:  audit.SeverityWarning,
			Details: map[string]any{
				"reasons":    verdict.Reasons,
				"risk_score": verdict.RiskScore,
			},
		})
	}

	var b strings.Builder
	b.WriteString("I can't complete that request.")
	if len(verdict.Reasons) > 0 {
		b.WriteString(" ")
		b.WriteString(capitalize(verdict.Reasons[0]))
		b.WriteString(".")
	}
	if len(verdict.Recommendations) > 0 {
		b.WriteString(" ")
		b.WriteString(capitalize(verdict.Recommendations[0]))
		b.WriteString(".")
	}
	return b.String()
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
