package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// failingStore simulates an unavailable audit backend.
type failingStore struct{}

func (failingStore) Append(context.Context, Record) error { return errors.New("audit db down") }
func (failingStore) CountByFilter(context.Context, Filter, time.Time) (int, error) {
	return 0, errors.New("audit db down")
}

func TestRecorder_AssignsIDAndTimestamp(t *testing.T) {
	store := NewInMemoryStore()
	r, err := NewRecorder(store)
	require.NoError(t, err)

	r.Record(context.Background(), Record{
		UserID: "u1",
		Action: ActionMessageProcessed,
		Result: ResultSuccess,
	})

	records := store.ListAll()
	require.Len(t, records, 1)
	assert.NotEmpty(t, records[0].ID)
	assert.False(t, records[0].Timestamp.IsZero())
	assert.Equal(t, SeverityInfo, records[0].Severity)
}

func TestRecorder_FailOpenOnAppend(t *testing.T) {
	r, err := NewRecorder(failingStore{})
	require.NoError(t, err)

	// Must not panic or surface the store failure.
	r.Record(context.Background(), Record{UserID: "u1", Action: ActionOrderCancelled})
}

func TestRecorder_CountRecentWindow(t *testing.T) {
	store := NewInMemoryStore()
	r, err := NewRecorder(store)
	require.NoError(t, err)
	ctx := context.Background()

	now := time.Now()
	r.Record(ctx, Record{UserID: "u1", Action: ActionCancellationRequested, Timestamp: now.Add(-30 * time.Minute)})
	r.Record(ctx, Record{UserID: "u1", Action: ActionOrderCancelled, Timestamp: now.Add(-2 * time.Hour)})
	r.Record(ctx, Record{UserID: "u1", Action: ActionCancellationRequested, Timestamp: now.Add(-48 * time.Hour)})
	r.Record(ctx, Record{UserID: "u2", Action: ActionCancellationRequested, Timestamp: now.Add(-time.Minute)})
	r.Record(ctx, Record{UserID: "u1", Action: ActionMessageProcessed, Timestamp: now.Add(-time.Minute)})

	count := r.CountRecent(ctx, Filter{
		UserID:  "u1",
		Actions: []string{ActionCancellationRequested, ActionOrderCancelled},
	}, 24*time.Hour)

	// Two cancellation events for u1 inside the day; the 48h-old one and the
	// other user's are out, and message_processed doesn't match the filter.
	assert.Equal(t, 2, count)
}

func TestRecorder_CountRecentDegradesToZero(t *testing.T) {
	r, err := NewRecorder(failingStore{})
	require.NoError(t, err)

	count := r.CountRecent(context.Background(), Filter{UserID: "u1"}, time.Hour)
	assert.Zero(t, count)
}

func TestFilter_Matches(t *testing.T) {
	rec := Record{UserID: "u1", SessionID: "s1", Action: ActionOrderCancelled}

	assert.True(t, Filter{}.Matches(rec))
	assert.True(t, Filter{UserID: "u1"}.Matches(rec))
	assert.False(t, Filter{UserID: "u2"}.Matches(rec))
	assert.True(t, Filter{SessionID: "s1", Actions: []string{ActionOrderCancelled}}.Matches(rec))
	assert.False(t, Filter{Actions: []string{ActionSecurityViolation}}.Matches(rec))
}
