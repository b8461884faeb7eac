package jobs

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Store persists job rows.
type Store interface {
	Create(ctx context.Context, job *Job) error
	Get(ctx context.Context, id string) (*Job, error)
	List(ctx context.Context, limit int) ([]*Job, error)
	// SetStatus updates only the status column. Transition legality is the
	// service's responsibility.
	SetStatus(ctx context.Context, id string, status Status) error
	// SetRouting records the routing decision on the job row.
	SetRouting(ctx context.Context, id string, domain, pipelineID, schemaID string) error
	// SetError records a failure reason.
	SetError(ctx context.Context, id string, message string) error
	// MergeSignals shallow-merges new signals onto the job, later keys
	// winning, and returns the refreshed row.
	MergeSignals(ctx context.Context, id string, signals map[string]any) (*Job, error)
}

// MemoryStore keeps jobs in memory.
type MemoryStore struct {
	mu   sync.RWMutex
	jobs map[string]*Job
}

// NewMemoryStore returns a new in-memory job store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{jobs: make(map[string]*Job)}
}

// Create stores a job.
func (s *MemoryStore) Create(ctx context.Context, job *Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	if job.CreatedAt.IsZero() {
		job.CreatedAt = now
	}
	job.UpdatedAt = now
	s.jobs[job.ID] = cloneJob(job)
	return nil
}

// Get returns a job by id.
func (s *MemoryStore) Get(ctx context.Context, id string) (*Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneJob(job), nil
}

// List returns jobs ordered by creation time, newest first.
func (s *MemoryStore) List(ctx context.Context, limit int) ([]*Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		result = append(result, cloneJob(job))
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// SetStatus updates the status column.
func (s *MemoryStore) SetStatus(ctx context.Context, id string, status Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return ErrNotFound
	}
	job.Status = status
	job.UpdatedAt = time.Now().UTC()
	return nil
}

// SetRouting records the routing decision.
func (s *MemoryStore) SetRouting(ctx context.Context, id string, domain, pipelineID, schemaID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return ErrNotFound
	}
	job.Domain = domain
	job.PipelineID = pipelineID
	job.SchemaID = schemaID
	job.UpdatedAt = time.Now().UTC()
	return nil
}

// SetError records a failure reason.
func (s *MemoryStore) SetError(ctx context.Context, id string, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return ErrNotFound
	}
	job.Error = message
	job.UpdatedAt = time.Now().UTC()
	return nil
}

// MergeSignals shallow-merges signals onto the job.
func (s *MemoryStore) MergeSignals(ctx context.Context, id string, signals map[string]any) (*Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return nil, ErrNotFound
	}
	if job.Signals == nil {
		job.Signals = make(map[string]any, len(signals))
	}
	for k, v := range signals {
		job.Signals[k] = v
	}
	job.UpdatedAt = time.Now().UTC()
	return cloneJob(job), nil
}

func cloneJob(job *Job) *Job {
	clone := *job
	clone.Signals = job.CloneSignals()
	return &clone
}
