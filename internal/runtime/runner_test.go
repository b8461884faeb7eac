package runtime

import (
	"context"
	"errors"
	"testing"

	"github.com/haasonsaas/docops/internal/artifacts"
	"github.com/haasonsaas/docops/internal/audit"
	"github.com/haasonsaas/docops/internal/jobs"
	"github.com/haasonsaas/docops/internal/plan"
	"github.com/haasonsaas/docops/internal/policy"
	"github.com/haasonsaas/docops/internal/tools"
)

type harness struct {
	runner    *Runner
	jobs      *jobs.Service
	artifacts *artifacts.MemoryStore
	audit     *audit.MemoryStore
}

// verdictRegistry wires the real action stubs with a verification tool that
// always returns the given verdict.
func verdictRegistry(verdict string) *tools.Registry {
	reg := tools.NewRegistry()
	reg.Register(plan.ToolExtraction, tools.StubExtraction)
	reg.Register(plan.ToolVerification, func(ctx context.Context, inputs map[string]any, tc *tools.Context) (map[string]any, error) {
		return map[string]any{
			"report": map[string]any{
				"verdict": verdict,
				"checks":  []any{},
			},
		}, nil
	})
	reg.Register(plan.ToolExportJSON, tools.ExportJSON)
	reg.Register(plan.ToolDraftEmail, tools.DraftEmail)
	reg.Register(plan.ToolCreateTicket, tools.CreateTicket)
	return reg
}

func newHarness(t *testing.T, reg *tools.Registry, pol policy.Policy) *harness {
	t.Helper()
	auditStore := audit.NewMemoryStore()
	recorder := audit.NewRecorder(auditStore, nil)
	jobService := jobs.NewService(jobs.NewMemoryStore(), recorder, nil)
	artifactStore := artifacts.NewMemoryStore()
	return &harness{
		runner:    NewRunner(jobService, artifactStore, recorder, reg, pol, nil),
		jobs:      jobService,
		artifacts: artifactStore,
		audit:     auditStore,
	}
}

func (h *harness) submit(t *testing.T, sourceText string) *jobs.Job {
	t.Helper()
	job, err := h.jobs.Create(context.Background(), "doc.txt", "text/plain", sourceText)
	if err != nil {
		t.Fatalf("create job: %v", err)
	}
	return job
}

func eventsOfType(events []*audit.Event, et audit.EventType) []*audit.Event {
	var out []*audit.Event
	for _, e := range events {
		if e.Type == et {
			out = append(out, e)
		}
	}
	return out
}

func artifactNames(list []*artifacts.Artifact) map[string]bool {
	names := map[string]bool{}
	for _, a := range list {
		names[a.Name] = true
	}
	return names
}

func TestRunJobPassPath(t *testing.T) {
	h := newHarness(t, verdictRegistry("PASS"), policy.Default())
	job := h.submit(t, "invoice text")
	ctx := context.Background()

	result, err := h.runner.RunJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.FinalStatus != jobs.StatusSucceeded {
		t.Fatalf("expected SUCCEEDED, got %s", result.FinalStatus)
	}
	if result.Signals["verification.verdict"] != "PASS" {
		t.Fatalf("verdict signal missing: %v", result.Signals)
	}
	if result.Signals["routing.domain"] != "general" {
		t.Fatalf("routing signal missing: %v", result.Signals)
	}

	list, _ := h.artifacts.ListByJob(ctx, job.ID)
	names := artifactNames(list)
	for _, want := range []string{"extracted_json", "verification_report", "export_result", "email_draft"} {
		if !names[want] {
			t.Fatalf("missing artifact %s, have %v", want, names)
		}
	}
	if names["ticket"] {
		t.Fatal("PASS run must not create a ticket")
	}

	events, _ := h.audit.ListByJob(ctx, job.ID)
	// extract, verify, export, email = 4 tool invocations
	if got := len(eventsOfType(events, audit.EventToolCalled)); got != 4 {
		t.Fatalf("expected 4 TOOL_CALLED, got %d", got)
	}
	if got := len(eventsOfType(events, audit.EventToolResult)); got != 4 {
		t.Fatalf("expected 4 TOOL_RESULT, got %d", got)
	}
	if len(eventsOfType(events, audit.EventExecutorHalted)) != 0 {
		t.Fatal("PASS run must not halt")
	}

	changes := eventsOfType(events, audit.EventStatusChanged)
	var seq []string
	for _, e := range changes {
		seq = append(seq, e.Payload["to"].(string))
	}
	want := []string{"PREPROCESSED", "ROUTED", "PLANNED", "EXECUTING", "VERIFIED", "ACTED", "SUCCEEDED"}
	if len(seq) != len(want) {
		t.Fatalf("status sequence %v, want %v", seq, want)
	}
	for i := range want {
		if seq[i] != want[i] {
			t.Fatalf("status sequence %v, want %v", seq, want)
		}
	}
}

func TestRunJobFailPathHalts(t *testing.T) {
	h := newHarness(t, verdictRegistry("FAIL"), policy.Default())
	job := h.submit(t, "broken doc")
	ctx := context.Background()

	result, err := h.runner.RunJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.FinalStatus != jobs.StatusFailed {
		t.Fatalf("expected FAILED, got %s", result.FinalStatus)
	}

	list, _ := h.artifacts.ListByJob(ctx, job.ID)
	names := artifactNames(list)
	if !names["ticket"] {
		t.Fatal("FAIL run must create a ticket")
	}
	if names["email_draft"] {
		t.Fatal("FAIL run must not draft an email")
	}

	events, _ := h.audit.ListByJob(ctx, job.ID)
	halts := eventsOfType(events, audit.EventExecutorHalted)
	if len(halts) != 1 || halts[0].Payload["reason"] != "verification_failed" {
		t.Fatalf("expected one halt with reason verification_failed: %v", halts)
	}
}

func TestRunJobWarnPath(t *testing.T) {
	h := newHarness(t, verdictRegistry("WARN"), policy.Default())
	job := h.submit(t, "partial doc")
	ctx := context.Background()

	result, err := h.runner.RunJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.FinalStatus != jobs.StatusNeedsReview {
		t.Fatalf("expected NEEDS_REVIEW, got %s", result.FinalStatus)
	}

	list, _ := h.artifacts.ListByJob(ctx, job.ID)
	names := artifactNames(list)
	if !names["ticket"] {
		t.Fatal("WARN run must create a ticket")
	}
	if names["email_draft"] {
		t.Fatal("WARN run must not draft an email")
	}
}

func TestRunJobEmptyPolicyDeniesFirstTool(t *testing.T) {
	h := newHarness(t, verdictRegistry("PASS"), policy.New(nil, nil))
	job := h.submit(t, "doc")
	ctx := context.Background()

	_, err := h.runner.RunJob(ctx, job.ID)
	var pde *PolicyDeniedError
	if !errors.As(err, &pde) || pde.Tool != plan.ToolExtraction {
		t.Fatalf("expected policy denial on %s, got %v", plan.ToolExtraction, err)
	}

	events, _ := h.audit.ListByJob(ctx, job.ID)
	if len(eventsOfType(events, audit.EventPolicyDenied)) != 1 {
		t.Fatalf("expected one POLICY_DENIED event")
	}
	if len(eventsOfType(events, audit.EventToolCalled)) != 0 {
		t.Fatal("no tool may be invoked under an empty policy")
	}

	list, _ := h.artifacts.ListByJob(ctx, job.ID)
	if len(list) != 0 {
		t.Fatalf("no artifacts expected, got %v", list)
	}
}

func TestRunJobMissingSource(t *testing.T) {
	h := newHarness(t, verdictRegistry("PASS"), policy.Default())
	job := h.submit(t, "")

	_, err := h.runner.RunJob(context.Background(), job.ID)
	if !errors.Is(err, ErrMissingSource) {
		t.Fatalf("expected ErrMissingSource, got %v", err)
	}
}

func TestRunJobTerminalNoOp(t *testing.T) {
	h := newHarness(t, verdictRegistry("PASS"), policy.Default())
	job := h.submit(t, "doc")
	ctx := context.Background()

	if _, err := h.runner.RunJob(ctx, job.ID); err != nil {
		t.Fatalf("first run: %v", err)
	}

	eventsBefore, _ := h.audit.ListByJob(ctx, job.ID)
	artifactsBefore, _ := h.artifacts.ListByJob(ctx, job.ID)

	result, err := h.runner.RunJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if result.FinalStatus != jobs.StatusSucceeded {
		t.Fatalf("expected SUCCEEDED, got %s", result.FinalStatus)
	}
	if result.Note == "" {
		t.Fatal("expected a no-op note on terminal re-run")
	}

	eventsAfter, _ := h.audit.ListByJob(ctx, job.ID)
	artifactsAfter, _ := h.artifacts.ListByJob(ctx, job.ID)
	if len(eventsAfter) != len(eventsBefore) {
		t.Fatalf("terminal re-run wrote audit events: %d -> %d", len(eventsBefore), len(eventsAfter))
	}
	if len(artifactsAfter) != len(artifactsBefore) {
		t.Fatalf("terminal re-run wrote artifacts: %d -> %d", len(artifactsBefore), len(artifactsAfter))
	}
}

func TestRunJobCancelledNoOp(t *testing.T) {
	h := newHarness(t, verdictRegistry("PASS"), policy.Default())
	job := h.submit(t, "doc")
	ctx := context.Background()

	if _, err := h.jobs.SetStatus(ctx, job.ID, jobs.StatusCancelled, "operator_cancel"); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	result, err := h.runner.RunJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("run cancelled job: %v", err)
	}
	if result.FinalStatus != jobs.StatusCancelled {
		t.Fatalf("expected CANCELLED, got %s", result.FinalStatus)
	}
	if result.Note == "" {
		t.Fatal("expected a no-op note")
	}
}

func TestRunJobNoVerdictFallback(t *testing.T) {
	// A registry whose verify tool reports no verdict exercises the lenient
	// finalization branch.
	reg := verdictRegistry("PASS")
	reg.Register(plan.ToolVerification, func(ctx context.Context, inputs map[string]any, tc *tools.Context) (map[string]any, error) {
		return map[string]any{"report": map[string]any{"checks": []any{}}}, nil
	})

	h := newHarness(t, reg, policy.Default())
	job := h.submit(t, "doc")

	result, err := h.runner.RunJob(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.FinalStatus != jobs.StatusSucceeded {
		t.Fatalf("expected SUCCEEDED fallback, got %s", result.FinalStatus)
	}
}
