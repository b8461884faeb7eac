package audit

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/haasonsaas/docops/internal/observability"
)

// Recorder writes audit events to the store and mirrors them to structured
// logs with trace correlation. The store write is authoritative: if it fails,
// the original operation fails with it (audit is not best-effort).
type Recorder struct {
	store  Store
	logger *slog.Logger
}

// NewRecorder creates a Recorder. A nil logger disables the slog mirror.
func NewRecorder(store Store, logger *slog.Logger) *Recorder {
	if logger != nil {
		logger = logger.With("component", "audit")
	}
	return &Recorder{store: store, logger: logger}
}

// Write appends an event for the job and mirrors it to the log.
func (r *Recorder) Write(ctx context.Context, jobID string, eventType EventType, payload map[string]any) error {
	event := &Event{
		JobID:   jobID,
		Type:    eventType,
		Payload: payload,
	}
	if err := r.store.Append(ctx, event); err != nil {
		return fmt.Errorf("write audit event: %w", err)
	}

	observability.AuditEvents.WithLabelValues(string(eventType)).Inc()

	if r.logger != nil {
		attrs := []any{
			"audit_id", event.ID,
			"job_id", jobID,
			"event_type", string(eventType),
		}
		if traceID := observability.GetTraceID(ctx); traceID != "" {
			attrs = append(attrs, "trace_id", traceID)
		}
		if spanID := observability.GetSpanID(ctx); spanID != "" {
			attrs = append(attrs, "span_id", spanID)
		}
		for k, v := range payload {
			attrs = append(attrs, k, v)
		}
		r.logger.Info("audit", attrs...)
	}
	return nil
}

// ListByJob returns the job's timeline in causal (id) order.
func (r *Recorder) ListByJob(ctx context.Context, jobID string) ([]*Event, error) {
	return r.store.ListByJob(ctx, jobID)
}
