package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics for the job pipeline. Registered on the default registry and
// exposed by the gateway at /metrics.
var (
	// JobRuns counts run_job invocations by final status.
	JobRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "docops",
		Name:      "job_runs_total",
		Help:      "Job runs by final status.",
	}, []string{"final_status"})

	// ToolCalls counts bounded-executor tool invocations by tool and outcome.
	ToolCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "docops",
		Name:      "tool_calls_total",
		Help:      "Tool invocations by tool name and outcome.",
	}, []string{"tool", "outcome"})

	// PolicyDenials counts deny-by-default policy rejections by tool.
	PolicyDenials = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "docops",
		Name:      "policy_denials_total",
		Help:      "Tool invocations rejected by policy.",
	}, []string{"tool"})

	// ToolDuration observes tool invocation latency.
	ToolDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "docops",
		Name:      "tool_duration_seconds",
		Help:      "Tool invocation latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"tool"})

	// AuditEvents counts persisted audit events by type.
	AuditEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "docops",
		Name:      "audit_events_total",
		Help:      "Audit events persisted by event type.",
	}, []string{"event_type"})
)
