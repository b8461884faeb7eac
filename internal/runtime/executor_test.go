package runtime

import (
	"context"
	"errors"
	"testing"

	"github.com/haasonsaas/docops/internal/audit"
	"github.com/haasonsaas/docops/internal/policy"
	"github.com/haasonsaas/docops/internal/tools"
)

func okTool(result map[string]any) tools.Func {
	return func(ctx context.Context, inputs map[string]any, tc *tools.Context) (map[string]any, error) {
		return result, nil
	}
}

func failTool(err error) tools.Func {
	return func(ctx context.Context, inputs map[string]any, tc *tools.Context) (map[string]any, error) {
		return nil, err
	}
}

func testPolicy() policy.Policy {
	return policy.New(
		[]string{"t.ok", "t.fail"},
		map[string][]string{"t.ok": {"visible"}},
	)
}

func TestRunToolAuditPair(t *testing.T) {
	store := audit.NewMemoryStore()
	exec := NewBoundedExecutor(Limits{MaxSteps: 5, MaxToolCalls: 5, MaxCostUnits: 5}, audit.NewRecorder(store, nil))
	state := &State{}

	result, err := exec.RunTool(context.Background(), "j1", "t.ok",
		okTool(map[string]any{"b": 1, "a": 2}),
		map[string]any{"visible": "yes", "secret": "no"},
		nil, state, testPolicy())
	if err != nil {
		t.Fatalf("run tool: %v", err)
	}
	if result["a"] != 2 {
		t.Fatalf("unexpected result: %v", result)
	}

	events, _ := store.ListByJob(context.Background(), "j1")
	if len(events) != 2 {
		t.Fatalf("expected TOOL_CALLED and TOOL_RESULT, got %d events", len(events))
	}
	if events[0].Type != audit.EventToolCalled || events[1].Type != audit.EventToolResult {
		t.Fatalf("wrong event order: %s, %s", events[0].Type, events[1].Type)
	}

	inputs, _ := events[0].Payload["inputs"].(map[string]any)
	if inputs["visible"] != "yes" {
		t.Fatalf("whitelisted key missing: %v", inputs)
	}
	if _, leaked := inputs["secret"]; leaked {
		t.Fatalf("non-whitelisted key leaked into audit: %v", inputs)
	}

	keys, _ := events[1].Payload["result_keys"].([]string)
	if len(keys) != 2 || keys[0] != "a" || keys[1] != "b" {
		t.Fatalf("expected sorted result keys, got %v", keys)
	}
}

func TestRunToolPolicyDenied(t *testing.T) {
	store := audit.NewMemoryStore()
	exec := NewBoundedExecutor(Limits{MaxSteps: 5, MaxToolCalls: 5, MaxCostUnits: 5}, audit.NewRecorder(store, nil))
	state := &State{}

	invoked := false
	fn := func(ctx context.Context, inputs map[string]any, tc *tools.Context) (map[string]any, error) {
		invoked = true
		return nil, nil
	}

	_, err := exec.RunTool(context.Background(), "j1", "t.denied", fn, nil, nil, state, testPolicy())
	var pde *PolicyDeniedError
	if !errors.As(err, &pde) || pde.Tool != "t.denied" {
		t.Fatalf("expected PolicyDeniedError, got %v", err)
	}
	if invoked {
		t.Fatal("denied tool must not be invoked")
	}
	if state.Steps != 0 || state.ToolCalls != 0 || state.CostUnits != 0 {
		t.Fatalf("denial must not charge budget: %+v", state)
	}

	events, _ := store.ListByJob(context.Background(), "j1")
	if len(events) != 1 || events[0].Type != audit.EventPolicyDenied {
		t.Fatalf("expected only POLICY_DENIED, got %v", events)
	}
}

func TestRunToolToolCallBudget(t *testing.T) {
	store := audit.NewMemoryStore()
	exec := NewBoundedExecutor(Limits{MaxSteps: 12, MaxToolCalls: 1, MaxCostUnits: 20}, audit.NewRecorder(store, nil))
	state := &State{}
	pol := testPolicy()

	if _, err := exec.RunTool(context.Background(), "j1", "t.ok", okTool(nil), nil, nil, state, pol); err != nil {
		t.Fatalf("first call: %v", err)
	}

	_, err := exec.RunTool(context.Background(), "j1", "t.ok", okTool(nil), nil, nil, state, pol)
	var bee *BudgetExceededError
	if !errors.As(err, &bee) || bee.Which != "max_tool_calls" {
		t.Fatalf("expected max_tool_calls budget error, got %v", err)
	}
}

func TestRunToolStepLimit(t *testing.T) {
	exec := NewBoundedExecutor(Limits{MaxSteps: 1, MaxToolCalls: 10, MaxCostUnits: 10}, audit.NewRecorder(audit.NewMemoryStore(), nil))
	state := &State{Steps: 1}

	_, err := exec.RunTool(context.Background(), "j1", "t.ok", okTool(nil), nil, nil, state, testPolicy())
	var sle *StepLimitExceededError
	if !errors.As(err, &sle) || sle.Max != 1 {
		t.Fatalf("expected step limit error, got %v", err)
	}
}

func TestRunToolChargesOnFailure(t *testing.T) {
	exec := NewBoundedExecutor(Limits{MaxSteps: 5, MaxToolCalls: 5, MaxCostUnits: 5}, audit.NewRecorder(audit.NewMemoryStore(), nil))
	state := &State{}

	boom := errors.New("boom")
	_, err := exec.RunTool(context.Background(), "j1", "t.fail", failTool(boom), nil, nil, state, testPolicy())
	if !errors.Is(err, boom) {
		t.Fatalf("expected tool error, got %v", err)
	}
	if state.ToolCalls != 1 || state.CostUnits != 1 {
		t.Fatalf("failed call must still consume budget: %+v", state)
	}
}
