package conversation

import (
	"context"
	"sync"
)

// InMemoryStore keeps session histories in process memory. Dev/test
// implementation; production uses RedisStore so history survives restarts.
type InMemoryStore struct {
	mu       sync.RWMutex
	sessions map[string][]Turn
}

// NewInMemoryStore creates an empty in-memory conversation store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{sessions: make(map[string][]Turn)}
}

func (s *InMemoryStore) Append(_ context.Context, sessionID string, turn Turn, maxTurns int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	turns := append(s.sessions[sessionID], turn)
	if len(turns) > maxTurns {
		turns = turns[len(turns)-maxTurns:]
	}
	s.sessions[sessionID] = turns
	return nil
}

func (s *InMemoryStore) Recent(_ context.Context, sessionID string, n int) ([]Turn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	turns := s.sessions[sessionID]
	if len(turns) > n {
		turns = turns[len(turns)-n:]
	}
	return append([]Turn{}, turns...), nil
}
