package audit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Publisher mirrors records to an event stream. Implemented by KafkaPublisher.
type Publisher interface {
	Publish(ctx context.Context, record Record)
}

// Recorder is the audit boundary the pipeline talks to. It is fail-open by
// design: auditing must never block or fail the request path, so append
// errors are logged and swallowed, and trailing-window counts degrade to
// zero with a logged warning. This is the deliberate counterpart to the
// fail-closed order store rules; observability is sacrificed before mutation
// safety ever is.
type Recorder struct {
	store     Store
	publisher Publisher
	logger    *slog.Logger
}

// Option configures a Recorder.
type Option func(*Recorder)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Recorder) { r.logger = logger }
}

// WithPublisher mirrors records onto an event stream in addition to the
// durable store append.
func WithPublisher(p Publisher) Option {
	return func(r *Recorder) { r.publisher = p }
}

// NewRecorder constructs a Recorder backed by the given store.
func NewRecorder(store Store, opts ...Option) (*Recorder, error) {
	if store == nil {
		return nil, fmt.Errorf("audit store is required")
	}
	r := &Recorder{store: store}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Record appends an audit record, assigning ID and timestamp if unset.
// Never returns an error.
func (r *Recorder) Record(ctx context.Context, record Record) {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.Timestamp.IsZero() {
		record.Timestamp = time.Now()
	}
	if record.Severity == "" {
		record.Severity = SeverityInfo
	}

	if err := r.store.Append(ctx, record); err != nil && r.logger != nil {
		r.logger.WarnContext(ctx, "audit append failed, continuing",
			"action", record.Action,
			"user_id", record.UserID,
			"error", err,
		)
	}

	if r.publisher != nil {
		r.publisher.Publish(ctx, record)
	}
}

// CountRecent counts records matching the filter within the trailing window.
// On store failure it returns zero with a logged warning so rate/abuse rules
// degrade open rather than rejecting every request while the store is down.
func (r *Recorder) CountRecent(ctx context.Context, filter Filter, window time.Duration) int {
	count, err := r.store.CountByFilter(ctx, filter, time.Now().Add(-window))
	if err != nil {
		if r.logger != nil {
			r.logger.WarnContext(ctx, "audit count failed, assuming zero recent events",
				"user_id", filter.UserID,
				"window", window.String(),
				"error", err,
			)
		}
		return 0
	}
	return count
}
