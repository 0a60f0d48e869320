package audit

import (
	"context"
	"sync"
	"time"
)

// InMemoryStore keeps audit records in memory. Used in dev mode and as the
// test fake; production deployments use PostgresStore.
type InMemoryStore struct {
	mu      sync.RWMutex
	records []Record
}

// NewInMemoryStore creates an empty in-memory audit store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Append(_ context.Context, record Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, record)
	return nil
}

func (s *InMemoryStore) CountByFilter(_ context.Context, filter Filter, since time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, r := range s.records {
		if r.Timestamp.Before(since) {
			continue
		}
		if filter.Matches(r) {
			count++
		}
	}
	return count, nil
}

// ListAll returns a copy of every record, oldest first. Test helper.
func (s *InMemoryStore) ListAll() []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Record{}, s.records...)
}

// Clear removes all records. Test helper.
func (s *InMemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = nil
}
