// Package plan defines the typed plan DSL (steps, gating predicates, limits)
// and the deterministic planner that builds the default plan for a job.
package plan

import (
	"fmt"
	"reflect"
)

// StepType tags the kind of work a step performs.
type StepType string

const (
	StepExtract StepType = "extract"
	StepVerify  StepType = "verify"
	StepAction  StepType = "action"
	StepHalt    StepType = "halt"
)

// When is a gating predicate evaluated against the working signals.
type When interface {
	Matches(signals map[string]any) bool
}

// WhenEquals matches when the signal equals the expected value.
type WhenEquals struct {
	Signal string
	Equals any
}

// Matches reports whether the signal carries exactly the expected value.
func (w WhenEquals) Matches(signals map[string]any) bool {
	return reflect.DeepEqual(signals[w.Signal], w.Equals)
}

// WhenIn matches when the signal's value is one of the listed values.
type WhenIn struct {
	Signal string
	In     []any
}

// Matches reports whether the signal's value appears in the list.
func (w WhenIn) Matches(signals map[string]any) bool {
	val := signals[w.Signal]
	for _, candidate := range w.In {
		if reflect.DeepEqual(val, candidate) {
			return true
		}
	}
	return false
}

// Step is one unit of the plan. Non-halt steps name a registered tool; halt
// steps carry a reason instead.
type Step struct {
	ID     string
	Type   StepType
	Tool   string
	Inputs map[string]any
	When   When
	Reason string
}

// Limits bound a single plan execution. MaxReplans is zero: the plan is
// single-shot and re-running a job rebuilds it from scratch.
type Limits struct {
	MaxSteps     int
	MaxToolCalls int
	MaxCostUnits int
	MaxReplans   int
}

// Plan is a validated, ordered list of steps for one job run. Plans are
// transient and never persisted.
type Plan struct {
	Version string
	JobID   string
	Limits  Limits
	Steps   []Step
}

// New validates and constructs a plan.
func New(jobID string, limits Limits, steps []Step) (*Plan, error) {
	if len(steps) > limits.MaxSteps {
		return nil, fmt.Errorf("plan exceeds max_steps: %d > %d", len(steps), limits.MaxSteps)
	}

	seen := make(map[string]bool, len(steps))
	for _, step := range steps {
		if step.ID == "" {
			return nil, fmt.Errorf("step without id")
		}
		if seen[step.ID] {
			return nil, fmt.Errorf("duplicate step id: %s", step.ID)
		}
		seen[step.ID] = true

		switch step.Type {
		case StepHalt:
			if step.Reason == "" {
				return nil, fmt.Errorf("halt step %s requires reason", step.ID)
			}
		case StepExtract, StepVerify, StepAction:
			if step.Tool == "" {
				return nil, fmt.Errorf("%s step %s requires tool", step.Type, step.ID)
			}
		default:
			return nil, fmt.Errorf("unknown step type %q in step %s", step.Type, step.ID)
		}
	}

	return &Plan{
		Version: "1.0",
		JobID:   jobID,
		Limits:  limits,
		Steps:   steps,
	}, nil
}
