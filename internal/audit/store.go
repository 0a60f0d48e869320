package audit

import (
	"context"
	"time"
)

// Store is the append-only persistence port for audit records.
type Store interface {
	Append(ctx context.Context, record Record) error

	// CountByFilter counts records matching the filter with
	// Timestamp >= since.
	CountByFilter(ctx context.Context, filter Filter, since time.Time) (int, error)
}
