package plan

// Routing is the planner's routing decision for a job. The planner is the
// single source of truth for routing; the runner only records it.
type Routing struct {
	Domain     string
	PipelineID string
	SchemaID   string
}

// Tool names dispatched by the default plan.
const (
	ToolExtraction   = "extraction.run"
	ToolVerification = "verification.run"
	ToolExportJSON   = "actions.export_json"
	ToolDraftEmail   = "actions.draft_email"
	ToolCreateTicket = "actions.create_ticket"
)

// BuildPlan is the deterministic default planner: given the job id and its
// source text it returns the default plan and routing decision. It is
// stateless with respect to the job row.
func BuildPlan(jobID, sourceText string) (*Plan, Routing, error) {
	routing := Routing{
		Domain:     "general",
		PipelineID: "general.default",
		SchemaID:   "general.v1",
	}

	limits := Limits{
		MaxSteps:     12,
		MaxToolCalls: 8,
		MaxCostUnits: 20,
		MaxReplans:   0,
	}

	steps := []Step{
		{
			ID:   "extract",
			Type: StepExtract,
			Tool: ToolExtraction,
			Inputs: map[string]any{
				"schema_id":   routing.SchemaID,
				"pipeline_id": routing.PipelineID,
			},
		},
		{
			ID:   "verify",
			Type: StepVerify,
			Tool: ToolVerification,
			Inputs: map[string]any{
				"domain":    routing.Domain,
				"schema_id": routing.SchemaID,
			},
		},
		{
			ID:     "export_json",
			Type:   StepAction,
			Tool:   ToolExportJSON,
			Inputs: map[string]any{},
		},
		{
			ID:     "ticket_warn",
			Type:   StepAction,
			Tool:   ToolCreateTicket,
			When:   WhenEquals{Signal: "verification.verdict", Equals: "WARN"},
			Inputs: map[string]any{"reason": "verification_warn"},
		},
		{
			ID:     "ticket_fail",
			Type:   StepAction,
			Tool:   ToolCreateTicket,
			When:   WhenEquals{Signal: "verification.verdict", Equals: "FAIL"},
			Inputs: map[string]any{"reason": "verification_fail"},
		},
		{
			ID:   "email_pass",
			Type: StepAction,
			Tool: ToolDraftEmail,
			When: WhenEquals{Signal: "verification.verdict", Equals: "PASS"},
			Inputs: map[string]any{
				"to":          "ops@example.com",
				"template_id": routing.Domain + "_processed",
			},
		},
		{
			ID:     "halt_on_fail",
			Type:   StepHalt,
			When:   WhenEquals{Signal: "verification.verdict", Equals: "FAIL"},
			Reason: "verification_failed",
		},
	}

	p, err := New(jobID, limits, steps)
	if err != nil {
		return nil, Routing{}, err
	}
	return p, routing, nil
}
