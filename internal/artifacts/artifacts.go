// Package artifacts stores named structured outputs produced during job
// execution. The store is append-only; multiple artifacts may share a name
// and readers take the latest by id.
package artifacts

import (
	"context"
	"sync"
	"time"
)

// Artifact is one appended output row.
type Artifact struct {
	ID        int64          `json:"id"`
	JobID     string         `json:"job_id"`
	Name      string         `json:"name"`
	Payload   map[string]any `json:"payload"`
	CreatedAt time.Time      `json:"created_at"`
}

// Store persists artifacts.
type Store interface {
	// Append inserts a new row and fills in its assigned id. Existing rows
	// with the same name are left untouched.
	Append(ctx context.Context, artifact *Artifact) error
	ListByJob(ctx context.Context, jobID string) ([]*Artifact, error)
}

// Latest returns the newest artifact with the given name from a listing,
// or nil when absent.
func Latest(list []*Artifact, name string) *Artifact {
	var found *Artifact
	for _, a := range list {
		if a.Name == name && (found == nil || a.ID > found.ID) {
			found = a
		}
	}
	return found
}

// MemoryStore keeps artifacts in memory.
type MemoryStore struct {
	mu     sync.RWMutex
	nextID int64
	rows   []*Artifact
}

// NewMemoryStore returns a new in-memory artifact store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{nextID: 1}
}

// Append stores a copy of the artifact with the next id.
func (s *MemoryStore) Append(ctx context.Context, artifact *Artifact) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	artifact.ID = s.nextID
	s.nextID++
	if artifact.CreatedAt.IsZero() {
		artifact.CreatedAt = time.Now().UTC()
	}
	s.rows = append(s.rows, cloneArtifact(artifact))
	return nil
}

// ListByJob returns the job's artifacts in id order.
func (s *MemoryStore) ListByJob(ctx context.Context, jobID string) ([]*Artifact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*Artifact
	for _, a := range s.rows {
		if a.JobID == jobID {
			result = append(result, cloneArtifact(a))
		}
	}
	return result, nil
}

func cloneArtifact(a *Artifact) *Artifact {
	clone := *a
	if a.Payload != nil {
		payload := make(map[string]any, len(a.Payload))
		for k, v := range a.Payload {
			payload[k] = v
		}
		clone.Payload = payload
	}
	return &clone
}
