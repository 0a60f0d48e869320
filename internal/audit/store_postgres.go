package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// PostgresStore implements Store over the audit_records table.
//
// Schema (managed by external migrations):
//
//	CREATE TABLE audit_records (
//	    id         UUID PRIMARY KEY,
//	    session_id TEXT NOT NULL,
//	    user_id    TEXT NOT NULL,
//	    action     TEXT NOT NULL,
//	    order_id   TEXT,
//	    details    JSONB,
//	    result     TEXT NOT NULL,
//	    severity   TEXT NOT NULL,
//	    created_at TIMESTAMPTZ NOT NULL
//	);
//	CREATE INDEX audit_user_time_idx ON audit_records (user_id, created_at DESC);
//	CREATE INDEX audit_session_time_idx ON audit_records (session_id, created_at DESC);
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a Postgres-backed audit store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Append(ctx context.Context, record Record) error {
	details, err := json.Marshal(record.Details)
	if err != nil {
		return fmt.Errorf("marshal audit details: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO audit_records (id, session_id, user_id, action, order_id, details, result, severity, created_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7, $8, $9)`,
		record.ID, record.SessionID, record.UserID, record.Action, record.OrderID,
		details, string(record.Result), string(record.Severity), record.Timestamp)
	if err != nil {
		return fmt.Errorf("append audit record: %w", err)
	}
	return nil
}

func (s *PostgresStore) CountByFilter(ctx context.Context, filter Filter, since time.Time) (int, error) {
	query := `SELECT COUNT(*) FROM audit_records WHERE created_at >= $1`
	args := []any{since}

	if filter.UserID != "" {
		args = append(args, filter.UserID)
		query += fmt.Sprintf(" AND user_id = $%d", len(args))
	}
	if filter.SessionID != "" {
		args = append(args, filter.SessionID)
		query += fmt.Sprintf(" AND session_id = $%d", len(args))
	}
	if len(filter.Actions) > 0 {
		args = append(args, pq.Array(filter.Actions))
		query += fmt.Sprintf(" AND action = ANY($%d)", len(args))
	}

	var count int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count audit records: %w", err)
	}
	return count, nil
}
