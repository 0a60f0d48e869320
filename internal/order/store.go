package order

import "context"

// Store is the read/update port over order records. Implementations must make
// UpdateStatus a conditional write: the new status is applied only if the
// current status is still in allowedCurrent at write time, so racing
// cancellations cannot double-process past the terminal-state invariant.
type Store interface {
	// FindByOrderID returns the order or sentinel.ErrNotFound.
	FindByOrderID(ctx context.Context, orderID string) (*Order, error)

	// FindByOwner returns all orders belonging to a user, newest first.
	FindByOwner(ctx context.Context, ownerID string) ([]Order, error)

	// UpdateStatus conditionally transitions the order. The race loser
	// observes Matched=true, Modified=false.
	UpdateStatus(ctx context.Context, orderID string, newStatus Status, reason string, allowedCurrent []Status) (UpdateOutcome, error)
}
