package runtime

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/haasonsaas/docops/internal/artifacts"
	"github.com/haasonsaas/docops/internal/audit"
	"github.com/haasonsaas/docops/internal/jobs"
	"github.com/haasonsaas/docops/internal/observability"
	"github.com/haasonsaas/docops/internal/plan"
	"github.com/haasonsaas/docops/internal/policy"
	"github.com/haasonsaas/docops/internal/tools"
)

// RunResult is the payload returned by RunJob.
type RunResult struct {
	JobID       string         `json:"job_id"`
	FinalStatus jobs.Status    `json:"final_status"`
	Signals     map[string]any `json:"signals"`
	Note        string         `json:"note,omitempty"`
}

// Runner orchestrates one job end to end: status advancement, plan walk,
// artifact/signal persistence, and terminal finalization. Each RunJob call
// owns the job for its duration; callers must not run the same job
// concurrently.
type Runner struct {
	jobs      *jobs.Service
	artifacts artifacts.Store
	audit     *audit.Recorder
	registry  *tools.Registry
	policy    policy.Policy
	logger    *slog.Logger
}

// NewRunner creates a runner.
func NewRunner(
	jobService *jobs.Service,
	artifactStore artifacts.Store,
	recorder *audit.Recorder,
	registry *tools.Registry,
	pol policy.Policy,
	logger *slog.Logger,
) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		jobs:      jobService,
		artifacts: artifactStore,
		audit:     recorder,
		registry:  registry,
		policy:    pol,
		logger:    logger.With("component", "runner"),
	}
}

// RunJob advances the job through the lifecycle, walks the plan, and
// finalizes the terminal state from the verification verdict. Re-running a
// terminal job is a no-op; re-running a non-terminal job resumes forward
// progress (the plan is rebuilt from scratch, duplicate artifacts are
// permitted).
func (r *Runner) RunJob(ctx context.Context, jobID string) (*RunResult, error) {
	job, err := r.jobs.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}

	// Idempotency: NEEDS_REVIEW and all terminal states (CANCELLED included)
	// short-circuit to a no-op.
	if job.Status.Terminal() || job.Status == jobs.StatusNeedsReview {
		return &RunResult{
			JobID:       jobID,
			FinalStatus: job.Status,
			Signals:     job.CloneSignals(),
			Note:        fmt.Sprintf("no-op: job already terminal (%s)", job.Status),
		}, nil
	}

	if job.SourceText == "" {
		return nil, ErrMissingSource
	}

	if job.Status == jobs.StatusReceived {
		if err := r.jobs.AdvanceStatus(ctx, job, jobs.StatusPreprocessed, "preprocess_done"); err != nil {
			return nil, err
		}
	}

	// The planner owns routing.
	p, routing, err := plan.BuildPlan(jobID, job.SourceText)
	if err != nil {
		return nil, err
	}
	if err := r.jobs.SetRouting(ctx, job, routing.Domain, routing.PipelineID, routing.SchemaID); err != nil {
		return nil, err
	}
	if err := r.jobs.MergeSignals(ctx, job, map[string]any{
		"routing.domain":      routing.Domain,
		"routing.pipeline_id": routing.PipelineID,
		"routing.schema_id":   routing.SchemaID,
	}); err != nil {
		return nil, err
	}

	if err := r.jobs.AdvanceStatus(ctx, job, jobs.StatusRouted, "routed"); err != nil {
		return nil, err
	}
	if err := r.jobs.AdvanceStatus(ctx, job, jobs.StatusPlanned, "plan_built"); err != nil {
		return nil, err
	}
	if err := r.jobs.AdvanceStatus(ctx, job, jobs.StatusExecuting, "execution_started"); err != nil {
		return nil, err
	}

	signals, err := r.walkPlan(ctx, job, p, routing)
	if err != nil {
		return nil, err
	}

	return r.finalize(ctx, jobID, signals)
}

// walkPlan iterates plan steps in declared order, skipping steps whose gate
// does not match the working signals, and returns the accumulated signals.
func (r *Runner) walkPlan(ctx context.Context, job *jobs.Job, p *plan.Plan, routing plan.Routing) (map[string]any, error) {
	executor := NewBoundedExecutor(Limits{
		MaxSteps:     p.Limits.MaxSteps,
		MaxToolCalls: p.Limits.MaxToolCalls,
		MaxCostUnits: p.Limits.MaxCostUnits,
	}, r.audit)
	state := &State{}

	signals := job.CloneSignals()
	var extracted map[string]any
	var verificationReport map[string]any

	for _, step := range p.Steps {
		matched := step.When == nil || step.When.Matches(signals)

		if step.Type == plan.StepHalt {
			if !matched {
				continue
			}
			err := r.audit.Write(ctx, job.ID, audit.EventExecutorHalted, map[string]any{
				"reason": step.Reason,
			})
			if err != nil {
				return nil, err
			}
			break
		}

		if !matched {
			continue
		}

		fn, err := r.registry.Get(step.Tool)
		if err != nil {
			return nil, err
		}

		inputs := make(map[string]any, len(step.Inputs)+2)
		for k, v := range step.Inputs {
			inputs[k] = v
		}
		switch step.Type {
		case plan.StepExtract:
			inputs["source_text"] = job.SourceText
		case plan.StepVerify:
			inputs["source_text"] = job.SourceText
			inputs["extracted"] = orEmpty(extracted)
		}
		switch step.Tool {
		case plan.ToolExportJSON, plan.ToolDraftEmail:
			inputs["extracted"] = orEmpty(extracted)
		case plan.ToolCreateTicket:
			inputs["report"] = orEmpty(verificationReport)
		}

		tc := &tools.Context{
			JobID:   job.ID,
			Domain:  routing.Domain,
			Signals: signals,
		}
		result, err := executor.RunTool(ctx, job.ID, step.Tool, fn, inputs, tc, state, r.policy)
		if err != nil {
			return nil, err
		}

		switch step.Type {
		case plan.StepExtract:
			extracted, _ = result["extracted"].(map[string]any)
			if err := r.storeArtifact(ctx, job.ID, "extracted_json", orEmpty(extracted)); err != nil {
				return nil, err
			}
			signals["extraction.ok"] = true
		case plan.StepVerify:
			verificationReport, _ = result["report"].(map[string]any)
			if err := r.storeArtifact(ctx, job.ID, "verification_report", orEmpty(verificationReport)); err != nil {
				return nil, err
			}
			signals["verification.verdict"] = verificationReport["verdict"]
		}

		switch step.Tool {
		case plan.ToolExportJSON:
			if err := r.storeArtifact(ctx, job.ID, "export_result", result); err != nil {
				return nil, err
			}
		case plan.ToolDraftEmail:
			if err := r.storeArtifact(ctx, job.ID, "email_draft", result); err != nil {
				return nil, err
			}
		case plan.ToolCreateTicket:
			if err := r.storeArtifact(ctx, job.ID, "ticket", result); err != nil {
				return nil, err
			}
		}
	}

	return signals, nil
}

// finalize merges the accumulated signals onto the job and dispatches the
// terminal transition from the verification verdict.
func (r *Runner) finalize(ctx context.Context, jobID string, signals map[string]any) (*RunResult, error) {
	job, err := r.jobs.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if err := r.jobs.MergeSignals(ctx, job, signals); err != nil {
		return nil, err
	}

	verdict, _ := job.Signals["verification.verdict"].(string)

	if err := r.jobs.AdvanceStatus(ctx, job, jobs.StatusVerified, "verification_completed"); err != nil {
		return nil, err
	}

	switch verdict {
	case "PASS":
		if err := r.jobs.AdvanceStatus(ctx, job, jobs.StatusActed, "actions_completed"); err != nil {
			return nil, err
		}
		if err := r.jobs.AdvanceStatus(ctx, job, jobs.StatusSucceeded, "done"); err != nil {
			return nil, err
		}
	case "WARN":
		if err := r.jobs.AdvanceStatus(ctx, job, jobs.StatusActed, "actions_completed_warn"); err != nil {
			return nil, err
		}
		if err := r.jobs.AdvanceStatus(ctx, job, jobs.StatusNeedsReview, "needs_human_review"); err != nil {
			return nil, err
		}
	case "FAIL":
		if err := r.jobs.AdvanceStatus(ctx, job, jobs.StatusActed, "actions_completed_fail"); err != nil {
			return nil, err
		}
		if err := r.jobs.AdvanceStatus(ctx, job, jobs.StatusFailed, "verification_failed"); err != nil {
			return nil, err
		}
	default:
		// Lenient fallback: no verify step ran or the verdict was unset.
		if err := r.jobs.AdvanceStatus(ctx, job, jobs.StatusSucceeded, "done_no_verdict"); err != nil {
			return nil, err
		}
	}

	job, err = r.jobs.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}

	observability.JobRuns.WithLabelValues(string(job.Status)).Inc()
	r.logger.Info("job run finished", "job_id", jobID, "final_status", job.Status)

	return &RunResult{
		JobID:       jobID,
		FinalStatus: job.Status,
		Signals:     job.CloneSignals(),
	}, nil
}

func (r *Runner) storeArtifact(ctx context.Context, jobID, name string, payload map[string]any) error {
	return r.artifacts.Append(ctx, &artifacts.Artifact{
		JobID:   jobID,
		Name:    name,
		Payload: payload,
	})
}

func orEmpty(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}
