package runtime

import (
	"errors"
	"fmt"
)

// ErrMissingSource is returned when a run is requested for a job without
// source text.
var ErrMissingSource = errors.New("job has no source_text")

// PolicyDeniedError reports a tool rejected by the capability policy.
type PolicyDeniedError struct {
	Tool string
}

func (e *PolicyDeniedError) Error() string {
	return "tool not allowed by policy: " + e.Tool
}

// BudgetExceededError reports an exhausted execution budget.
type BudgetExceededError struct {
	Which string // "max_tool_calls" or "max_cost_units"
}

func (e *BudgetExceededError) Error() string {
	return fmt.Sprintf("budget exceeded: %s", e.Which)
}

// StepLimitExceededError reports the per-run step cap being hit.
type StepLimitExceededError struct {
	Max int
}

func (e *StepLimitExceededError) Error() string {
	return fmt.Sprintf("step limit exceeded: max_steps=%d", e.Max)
}
