package jobs

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// SQLiteStore implements Store over a shared sqlite handle.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore wraps the given database handle. The jobs table must
// already exist (see storage.Migrate).
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Create inserts the job row.
func (s *SQLiteStore) Create(ctx context.Context, job *Job) error {
	signals, err := marshalSignals(job.Signals)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	if job.CreatedAt.IsZero() {
		job.CreatedAt = now
	}
	job.UpdatedAt = now

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO jobs (id, status, filename, content_type, domain, pipeline_id, schema_id, error, source_text, signals, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		job.ID,
		string(job.Status),
		job.Filename,
		job.ContentType,
		nullableString(job.Domain),
		nullableString(job.PipelineID),
		nullableString(job.SchemaID),
		nullableString(job.Error),
		nullableString(job.SourceText),
		signals,
		job.CreatedAt,
		job.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create job: %w", err)
	}
	return nil
}

// Get returns a job by id, or ErrNotFound.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*Job, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, status, filename, content_type, domain, pipeline_id, schema_id, error, source_text, signals, created_at, updated_at
		FROM jobs WHERE id = ?
	`, id)
	return scanJob(row)
}

// List returns jobs ordered by created_at, newest first.
func (s *SQLiteStore) List(ctx context.Context, limit int) ([]*Job, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, status, filename, content_type, domain, pipeline_id, schema_id, error, source_text, signals, created_at, updated_at
		FROM jobs ORDER BY created_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var result []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, job)
	}
	return result, rows.Err()
}

// SetStatus updates the status column.
func (s *SQLiteStore) SetStatus(ctx context.Context, id string, status Status) error {
	return s.update(ctx, id, `UPDATE jobs SET status = ?, updated_at = ? WHERE id = ?`, string(status))
}

// SetRouting records the routing decision.
func (s *SQLiteStore) SetRouting(ctx context.Context, id string, domain, pipelineID, schemaID string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE jobs SET domain = ?, pipeline_id = ?, schema_id = ?, updated_at = ? WHERE id = ?
	`, domain, pipelineID, schemaID, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("set routing: %w", err)
	}
	return requireRow(res)
}

// SetError records a failure reason.
func (s *SQLiteStore) SetError(ctx context.Context, id string, message string) error {
	return s.update(ctx, id, `UPDATE jobs SET error = ?, updated_at = ? WHERE id = ?`, message)
}

// MergeSignals shallow-merges signals onto the job row and returns the
// refreshed job. The read-merge-write runs inside a transaction so a
// concurrent writer cannot interleave.
func (s *SQLiteStore) MergeSignals(ctx context.Context, id string, signals map[string]any) (*Job, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin merge: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var raw sql.NullString
	if err := tx.QueryRowContext(ctx, `SELECT signals FROM jobs WHERE id = ?`, id).Scan(&raw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read signals: %w", err)
	}

	merged := map[string]any{}
	if raw.Valid && raw.String != "" {
		if err := json.Unmarshal([]byte(raw.String), &merged); err != nil {
			return nil, fmt.Errorf("unmarshal signals: %w", err)
		}
	}
	for k, v := range signals {
		merged[k] = v
	}

	out, err := marshalSignals(merged)
	if err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, `UPDATE jobs SET signals = ?, updated_at = ? WHERE id = ?`, out, time.Now().UTC(), id); err != nil {
		return nil, fmt.Errorf("write signals: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit merge: %w", err)
	}

	return s.Get(ctx, id)
}

func (s *SQLiteStore) update(ctx context.Context, id, query string, value any) error {
	res, err := s.db.ExecContext(ctx, query, value, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	return requireRow(res)
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanJob(row scannable) (*Job, error) {
	var (
		job        Job
		status     string
		domain     sql.NullString
		pipelineID sql.NullString
		schemaID   sql.NullString
		errMsg     sql.NullString
		sourceText sql.NullString
		signals    sql.NullString
	)
	err := row.Scan(
		&job.ID, &status, &job.Filename, &job.ContentType,
		&domain, &pipelineID, &schemaID, &errMsg, &sourceText, &signals,
		&job.CreatedAt, &job.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan job: %w", err)
	}

	job.Status = Status(status)
	job.Domain = domain.String
	job.PipelineID = pipelineID.String
	job.SchemaID = schemaID.String
	job.Error = errMsg.String
	job.SourceText = sourceText.String
	job.Signals = map[string]any{}
	if signals.Valid && signals.String != "" {
		if err := json.Unmarshal([]byte(signals.String), &job.Signals); err != nil {
			return nil, fmt.Errorf("unmarshal signals: %w", err)
		}
	}
	return &job, nil
}

func marshalSignals(signals map[string]any) (string, error) {
	if signals == nil {
		signals = map[string]any{}
	}
	data, err := json.Marshal(signals)
	if err != nil {
		return "", fmt.Errorf("marshal signals: %w", err)
	}
	return string(data), nil
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
