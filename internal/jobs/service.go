package jobs

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/haasonsaas/docops/internal/audit"
)

// Service is the only path that mutates job status. It validates transitions
// against the state machine, persists the change, and emits the
// STATUS_CHANGED audit event.
type Service struct {
	store  Store
	audit  *audit.Recorder
	logger *slog.Logger
}

// NewService creates a job service.
func NewService(store Store, recorder *audit.Recorder, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:  store,
		audit:  recorder,
		logger: logger.With("component", "jobs"),
	}
}

// Store exposes the underlying store for read paths.
func (s *Service) Store() Store {
	return s.store
}

// Create registers a new job in RECEIVED and emits JOB_CREATED.
func (s *Service) Create(ctx context.Context, filename, contentType, sourceText string) (*Job, error) {
	job := &Job{
		ID:          uuid.NewString(),
		Status:      StatusReceived,
		Filename:    filename,
		ContentType: contentType,
		SourceText:  sourceText,
		Signals:     map[string]any{},
	}
	if err := s.store.Create(ctx, job); err != nil {
		return nil, err
	}

	err := s.audit.Write(ctx, job.ID, audit.EventJobCreated, map[string]any{
		"filename":     job.Filename,
		"content_type": job.ContentType,
		"has_text":     job.SourceText != "",
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("job created", "job_id", job.ID, "filename", job.Filename)
	return job, nil
}

// Get returns a job by id.
func (s *Service) Get(ctx context.Context, id string) (*Job, error) {
	return s.store.Get(ctx, id)
}

// List returns recent jobs, newest first.
func (s *Service) List(ctx context.Context, limit int) ([]*Job, error) {
	return s.store.List(ctx, limit)
}

// SetStatus validates the transition, persists it, and emits STATUS_CHANGED.
func (s *Service) SetStatus(ctx context.Context, jobID string, to Status, reason string) (*Job, error) {
	job, err := s.store.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}

	from := job.Status
	if err := EnsureTransitionAllowed(from, to); err != nil {
		return nil, err
	}

	if err := s.store.SetStatus(ctx, jobID, to); err != nil {
		return nil, err
	}

	err = s.audit.Write(ctx, jobID, audit.EventStatusChanged, map[string]any{
		"from":   string(from),
		"to":     string(to),
		"reason": reason,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("status changed", "job_id", jobID, "from", from, "to", to, "reason", reason)
	return s.store.Get(ctx, jobID)
}

// AdvanceStatus moves the job forward monotonically: if the current status
// already ranks at or past the target, it is a no-op and writes no audit.
func (s *Service) AdvanceStatus(ctx context.Context, job *Job, to Status, reason string) error {
	if job.Status == to {
		return nil
	}
	if job.Status.Order() > to.Order() {
		return nil
	}

	updated, err := s.SetStatus(ctx, job.ID, to, reason)
	if err != nil {
		return fmt.Errorf("advance to %s: %w", to, err)
	}
	*job = *updated
	return nil
}

// MergeSignals shallow-merges signals onto the job and refreshes it in place.
func (s *Service) MergeSignals(ctx context.Context, job *Job, signals map[string]any) error {
	updated, err := s.store.MergeSignals(ctx, job.ID, signals)
	if err != nil {
		return err
	}
	*job = *updated
	return nil
}

// SetRouting records the routing decision on the job row.
func (s *Service) SetRouting(ctx context.Context, job *Job, domain, pipelineID, schemaID string) error {
	if err := s.store.SetRouting(ctx, job.ID, domain, pipelineID, schemaID); err != nil {
		return err
	}
	job.Domain = domain
	job.PipelineID = pipelineID
	job.SchemaID = schemaID
	return nil
}

// SetError records a failure reason on the job row.
func (s *Service) SetError(ctx context.Context, jobID, message string) error {
	return s.store.SetError(ctx, jobID, message)
}
