package audit

import (
	"context"
	"sync"
	"time"
)

// Store persists audit events. Implementations must be append-only: Append
// assigns the event id and no method mutates or removes existing rows.
type Store interface {
	Append(ctx context.Context, event *Event) error
	ListByJob(ctx context.Context, jobID string) ([]*Event, error)
}

// MemoryStore keeps events in memory, ordered by id.
type MemoryStore struct {
	mu     sync.RWMutex
	nextID int64
	events []*Event
}

// NewMemoryStore returns a new in-memory audit store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{nextID: 1}
}

// Append assigns the next id and stores a copy of the event.
func (s *MemoryStore) Append(ctx context.Context, event *Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	event.ID = s.nextID
	s.nextID++
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	s.events = append(s.events, cloneEvent(event))
	return nil
}

// ListByJob returns the job's events in id order.
func (s *MemoryStore) ListByJob(ctx context.Context, jobID string) ([]*Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*Event
	for _, e := range s.events {
		if e.JobID == jobID {
			result = append(result, cloneEvent(e))
		}
	}
	return result, nil
}

func cloneEvent(e *Event) *Event {
	clone := *e
	if e.Payload != nil {
		payload := make(map[string]any, len(e.Payload))
		for k, v := range e.Payload {
			payload[k] = v
		}
		clone.Payload = payload
	}
	return &clone
}
