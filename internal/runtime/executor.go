// Package runtime contains the bounded executor and the runner that drive a
// job's plan through the lifecycle state machine.
package runtime

import (
	"context"
	"sort"
	"time"

	"github.com/haasonsaas/docops/internal/audit"
	"github.com/haasonsaas/docops/internal/observability"
	"github.com/haasonsaas/docops/internal/policy"
	"github.com/haasonsaas/docops/internal/tools"
)

// Limits bound a single plan execution.
type Limits struct {
	MaxSteps     int
	MaxToolCalls int
	MaxCostUnits int
}

// State holds the budget counters for one run of a job. Counters never
// decrease within a run.
type State struct {
	Steps     int
	ToolCalls int
	CostUnits int
}

// BoundedExecutor runs single tool calls under policy and budget control,
// emitting the audit pair TOOL_CALLED / TOOL_RESULT for every invocation.
type BoundedExecutor struct {
	limits Limits
	audit  *audit.Recorder
}

// NewBoundedExecutor creates an executor with the given limits.
func NewBoundedExecutor(limits Limits, recorder *audit.Recorder) *BoundedExecutor {
	return &BoundedExecutor{limits: limits, audit: recorder}
}

// RunTool executes one tool call. The order is contractual:
// policy gate, budget check, budget charge, redacted TOOL_CALLED audit,
// invocation, TOOL_RESULT audit. Policy denial emits POLICY_DENIED and
// charges no budget; cost is charged before invocation so a failing tool
// still consumes budget.
func (e *BoundedExecutor) RunTool(
	ctx context.Context,
	jobID string,
	toolName string,
	fn tools.Func,
	inputs map[string]any,
	tc *tools.Context,
	state *State,
	pol policy.Policy,
) (map[string]any, error) {
	if !pol.IsAllowed(toolName) {
		observability.PolicyDenials.WithLabelValues(toolName).Inc()
		err := e.audit.Write(ctx, jobID, audit.EventPolicyDenied, map[string]any{
			"tool":   toolName,
			"reason": "deny_by_default",
		})
		if err != nil {
			return nil, err
		}
		return nil, &PolicyDeniedError{Tool: toolName}
	}

	if state.Steps >= e.limits.MaxSteps {
		return nil, &StepLimitExceededError{Max: e.limits.MaxSteps}
	}
	if state.ToolCalls >= e.limits.MaxToolCalls {
		return nil, &BudgetExceededError{Which: "max_tool_calls"}
	}

	state.Steps++
	state.ToolCalls++
	state.CostUnits++
	if state.CostUnits > e.limits.MaxCostUnits {
		return nil, &BudgetExceededError{Which: "max_cost_units"}
	}

	safeInputs := pol.RedactInputs(toolName, inputs)
	err := e.audit.Write(ctx, jobID, audit.EventToolCalled, map[string]any{
		"tool":   toolName,
		"inputs": safeInputs,
	})
	if err != nil {
		return nil, err
	}

	start := time.Now()
	result, err := fn(ctx, inputs, tc)
	observability.ToolDuration.WithLabelValues(toolName).Observe(time.Since(start).Seconds())
	if err != nil {
		observability.ToolCalls.WithLabelValues(toolName, "error").Inc()
		return nil, err
	}
	observability.ToolCalls.WithLabelValues(toolName, "ok").Inc()

	keys := make([]string, 0, len(result))
	for k := range result {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	err = e.audit.Write(ctx, jobID, audit.EventToolResult, map[string]any{
		"tool":        toolName,
		"result_keys": keys,
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}
