// Package audit provides the append-only audit event timeline for jobs.
// Events are never updated or deleted; their integer ids give a total causal
// order per job.
package audit

import "time"

// EventType categorizes audit events.
type EventType string

const (
	EventJobCreated     EventType = "JOB_CREATED"
	EventStatusChanged  EventType = "STATUS_CHANGED"
	EventToolCalled     EventType = "TOOL_CALLED"
	EventToolResult     EventType = "TOOL_RESULT"
	EventPolicyDenied   EventType = "POLICY_DENIED"
	EventExecutorHalted EventType = "EXECUTOR_HALTED"
	EventError          EventType = "ERROR"
)

// Event is a single append-only timeline entry for a job.
type Event struct {
	// ID is assigned by the store on append; monotonically increasing.
	ID int64 `json:"id"`

	// JobID references the owning job.
	JobID string `json:"job_id"`

	// Type categorizes the event.
	Type EventType `json:"event_type"`

	// Payload holds structured, already-redacted event details.
	Payload map[string]any `json:"payload"`

	// CreatedAt is when the event was appended.
	CreatedAt time.Time `json:"created_at"`
}
