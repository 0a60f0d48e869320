package order

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"ordergate/pkg/platform/sentinel"
)

// PostgresStore implements Store over the orders table.
//
// Schema (managed by external migrations):
//
//	CREATE TABLE orders (
//	    order_id       TEXT PRIMARY KEY,
//	    owner_id       TEXT NOT NULL,
//	    status         TEXT NOT NULL,
//	    total_amount   NUMERIC(12,2) NOT NULL DEFAULT 0,
//	    items          JSONB NOT NULL DEFAULT '[]',
//	    status_reason  TEXT,
//	    created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
//	    updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
//	);
//	CREATE INDEX orders_owner_idx ON orders (owner_id, created_at DESC);
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a Postgres-backed order store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) FindByOrderID(ctx context.Context, orderID string) (*Order, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT order_id, owner_id, status, total_amount, items, created_at, updated_at
		FROM orders WHERE order_id = $1`, orderID)

	o, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find order %s: %w", orderID, err)
	}
	return o, nil
}

func (s *PostgresStore) FindByOwner(ctx context.Context, ownerID string) ([]Order, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT order_id, owner_id, status, total_amount, items, created_at, updated_at
		FROM orders WHERE owner_id = $1 ORDER BY created_at DESC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("find orders for owner: %w", err)
	}
	defer rows.Close()

	var out []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order row: %w", err)
		}
		out = append(out, *o)
	}
	return out, rows.Err()
}

// UpdateStatus applies the transition only if the current status is still in
// allowedCurrent at write time. The WHERE clause is the race guard: the
// second of two concurrent cancellations matches zero rows.
func (s *PostgresStore) UpdateStatus(ctx context.Context, orderID string, newStatus Status, reason string, allowedCurrent []Status) (UpdateOutcome, error) {
	allowed := make([]string, len(allowedCurrent))
	for i, st := range allowedCurrent {
		allowed[i] = string(st)
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE orders
		SET status = $2, status_reason = $3, updated_at = now()
		WHERE order_id = $1 AND status = ANY($4)`,
		orderID, string(newStatus), reason, pq.Array(allowed))
	if err != nil {
		return UpdateOutcome{}, fmt.Errorf("update order status: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return UpdateOutcome{}, fmt.Errorf("rows affected: %w", err)
	}
	if affected > 0 {
		return UpdateOutcome{Matched: true, Modified: true}, nil
	}

	// Zero rows: distinguish "not found" from "state no longer allows it".
	var exists bool
	if err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM orders WHERE order_id = $1)`, orderID).Scan(&exists); err != nil {
		return UpdateOutcome{}, fmt.Errorf("check order existence: %w", err)
	}
	return UpdateOutcome{Matched: exists, Modified: false}, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*Order, error) {
	var o Order
	var itemsJSON []byte
	if err := row.Scan(&o.OrderID, &o.OwnerID, &o.Status, &o.TotalAmount, &itemsJSON, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return nil, err
	}
	if len(itemsJSON) > 0 {
		if err := json.Unmarshal(itemsJSON, &o.Items); err != nil {
			return nil, fmt.Errorf("decode items: %w", err)
		}
	}
	return &o, nil
}
