// Package jobs defines the job model, its lifecycle state machine, and the
// persistence and service layers that mutate it.
package jobs

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a job lookup by id misses.
var ErrNotFound = errors.New("job not found")

// Job is the unit of work: one document moving through the pipeline.
type Job struct {
	ID          string `json:"id"`
	Status      Status `json:"status"`
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`

	// Routing attributes, empty until the job is ROUTED.
	Domain     string `json:"domain,omitempty"`
	PipelineID string `json:"pipeline_id,omitempty"`
	SchemaID   string `json:"schema_id,omitempty"`

	// Error holds the failure reason for FAILED jobs.
	Error string `json:"error,omitempty"`

	// SourceText is the document body; required before running.
	SourceText string `json:"-"`

	// Signals accumulate dotted-key facts during processing. The runner only
	// merges, never deletes.
	Signals map[string]any `json:"signals"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CloneSignals returns a shallow copy of the job's signals, never nil.
func (j *Job) CloneSignals() map[string]any {
	signals := make(map[string]any, len(j.Signals))
	for k, v := range j.Signals {
		signals[k] = v
	}
	return signals
}
