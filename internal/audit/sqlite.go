package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// SQLiteStore implements Store over a shared sqlite handle.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore wraps the given database handle. The audit_events table
// must already exist (see storage.Migrate).
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Append inserts the event and fills in its assigned id.
func (s *SQLiteStore) Append(ctx context.Context, event *Event) error {
	payload, err := json.Marshal(event.Payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_events (job_id, event_type, payload, created_at)
		VALUES (?, ?, ?, ?)
	`, event.JobID, string(event.Type), string(payload), event.CreatedAt)
	if err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("audit event id: %w", err)
	}
	event.ID = id
	return nil
}

// ListByJob returns the job's events ordered by id.
func (s *SQLiteStore) ListByJob(ctx context.Context, jobID string) ([]*Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, job_id, event_type, payload, created_at
		FROM audit_events
		WHERE job_id = ?
		ORDER BY id ASC
	`, jobID)
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()

	var events []*Event
	for rows.Next() {
		var (
			e       Event
			typ     string
			payload string
		)
		if err := rows.Scan(&e.ID, &e.JobID, &typ, &payload, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		e.Type = EventType(typ)
		if payload != "" {
			if err := json.Unmarshal([]byte(payload), &e.Payload); err != nil {
				return nil, fmt.Errorf("unmarshal payload: %w", err)
			}
		}
		events = append(events, &e)
	}
	return events, rows.Err()
}
