package order

import (
	"context"
	"sort"
	"sync"
	"time"

	"ordergate/pkg/platform/sentinel"
)

// InMemoryStore is the development and test implementation of Store. The
// mutex makes UpdateStatus atomic, preserving conditional-write semantics
// under concurrent cancellation requests.
type InMemoryStore struct {
	mu     sync.RWMutex
	orders map[string]Order
}

// NewInMemoryStore creates an empty in-memory order store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{orders: make(map[string]Order)}
}

// Put inserts or replaces an order. Used by seeding and tests.
func (s *InMemoryStore) Put(o Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now()
	}
	if o.UpdatedAt.IsZero() {
		o.UpdatedAt = o.CreatedAt
	}
	s.orders[o.OrderID] = o
}

func (s *InMemoryStore) FindByOrderID(_ context.Context, orderID string) (*Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orders[orderID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := o
	return &copied, nil
}

func (s *InMemoryStore) FindByOwner(_ context.Context, ownerID string) ([]Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Order
	for _, o := range s.orders {
		if o.OwnerID == ownerID {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *InMemoryStore) UpdateStatus(_ context.Context, orderID string, newStatus Status, reason string, allowedCurrent []Status) (UpdateOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[orderID]
	if !ok {
		return UpdateOutcome{}, nil
	}
	if !StatusIn(o.Status, allowedCurrent) {
		return UpdateOutcome{Matched: true}, nil
	}

	o.Status = newStatus
	o.UpdatedAt = time.Now()
	s.orders[orderID] = o
	return UpdateOutcome{Matched: true, Modified: true}, nil
}
