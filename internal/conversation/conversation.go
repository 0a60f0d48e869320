// Package conversation maintains bounded per-session message history for the
// intent synthesizer's context window. History is an optimization input, not
// a correctness dependency: a failing store degrades to an empty history.
package conversation

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Roles for conversation turns.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is one message in a session's history.
type Turn struct {
	Role    string    `json:"role"`
	Content string    `json:"content"`
	At      time.Time `json:"at"`
}

// Store persists bounded per-session histories.
type Store interface {
	// Append adds a turn, trimming the history to maxTurns.
	Append(ctx context.Context, sessionID string, turn Turn, maxTurns int) error

	// Recent returns up to n most recent turns, oldest first.
	Recent(ctx context.Context, sessionID string, n int) ([]Turn, error)
}

// Manager wraps a Store with the session history policy and fail-open reads.
type Manager struct {
	store    Store
	maxTurns int
	logger   *slog.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) { m.logger = logger }
}

// NewManager constructs a Manager. maxTurns <= 0 defaults to 20.
func NewManager(store Store, maxTurns int, opts ...Option) (*Manager, error) {
	if store == nil {
		return nil, fmt.Errorf("conversation store is required")
	}
	if maxTurns <= 0 {
		maxTurns = 20
	}
	m := &Manager{store: store, maxTurns: maxTurns}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Append records a turn. Store errors are logged and swallowed; losing a
// history turn must not fail the request.
func (m *Manager) Append(ctx context.Context, sessionID, role, content string) {
	turn := Turn{Role: role, Content: content, At: time.Now()}
	if err := m.store.Append(ctx, sessionID, turn, m.maxTurns); err != nil && m.logger != nil {
		m.logger.WarnContext(ctx, "conversation append failed, continuing",
			"session_id", sessionID, "error", err)
	}
}

// Recent returns up to n most recent turns, oldest first. Store errors
// degrade to an empty history with a logged warning.
func (m *Manager) Recent(ctx context.Context, sessionID string, n int) []Turn {
	turns, err := m.store.Recent(ctx, sessionID, n)
	if err != nil {
		if m.logger != nil {
			m.logger.WarnContext(ctx, "conversation read failed, using empty history",
				"session_id", sessionID, "error", err)
		}
		return nil
	}
	return turns
}
