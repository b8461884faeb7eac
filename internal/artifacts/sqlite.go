package artifacts

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

// NewSQLiteStore wraps the given database handle. The artifacts table must
// already exist (see storage.Migrate).
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Append inserts the artifact and fills in its assigned id.
func (s *SQLiteStore) Append(ctx context.Context, artifact *Artifact) error {
	payload, err := json.Marshal(artifact.Payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	if artifact.CreatedAt.IsZero() {
		artifact.CreatedAt = time.Now().UTC()
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO artifacts (job_id, name, payload, created_at)
		VALUES (?, ?, ?, ?)
	`, artifact.JobID, artifact.Name, string(payload), artifact.CreatedAt)
	if err != nil {
		return fmt.Errorf("append artifact: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("artifact id: %w", err)
	}
	artifact.ID = id
	return nil
}

// ListByJob returns the job's artifacts ordered by id.
func (s *SQLiteStore) ListByJob(ctx context.Context, jobID string) ([]*Artifact, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, job_id, name, payload, created_at
		FROM artifacts
		WHERE job_id = ?
		ORDER BY id ASC
	`, jobID)
	if err != nil {
		return nil, fmt.Errorf("list artifacts: %w", err)
	}
	defer rows.Close()

	var result []*Artifact
	for rows.Next() {
		var (
			a       Artifact
			payload string
		)
		if err := rows.Scan(&a.ID, &a.JobID, &a.Name, &payload, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan artifact: %w", err)
		}
		if payload != "" {
			if err := json.Unmarshal([]byte(payload), &a.Payload); err != nil {
				return nil, fmt.Errorf("unmarshal payload: %w", err)
			}
		}
		result = append(result, &a)
	}
	return result, rows.Err()
}
