package tools

import (
	"context"
	"errors"
	"time"

	"github.com/haasonsaas/docops/internal/extraction"
)

// DefaultExtractionTimeout bounds an extraction call unless the tool
// context overrides it.
const DefaultExtractionTimeout = 20 * time.Second

// ExtractionRun adapts the LLM extraction engine into a tool, enforcing a
// per-call timeout. Timeouts surface as *TimeoutError; any other engine
// failure as *ExecutionError.
func ExtractionRun(engine *extraction.Engine, defaultTimeout time.Duration) Func {
	if defaultTimeout <= 0 {
		defaultTimeout = DefaultExtractionTimeout
	}

	return func(ctx context.Context, inputs map[string]any, tc *Context) (map[string]any, error) {
		schemaID, _ := inputs["schema_id"].(string)
		pipelineID, _ := inputs["pipeline_id"].(string)
		sourceText, _ := inputs["source_text"].(string)
		if sourceText == "" {
			return nil, &ExecutionError{Tool: "extraction.run", Err: errors.New("source_text is required")}
		}

		timeout := defaultTimeout
		if tc != nil && tc.ToolTimeout > 0 {
			timeout = tc.ToolTimeout
		}
		callCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		fields, err := engine.ExtractFields(callCtx, schemaID, pipelineID, sourceText)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				return nil, &TimeoutError{Tool: "extraction.run", Timeout: timeout}
			}
			return nil, &ExecutionError{Tool: "extraction.run", Err: err}
		}

		return map[string]any{
			"extracted": map[string]any{
				"schema_id":   schemaID,
				"pipeline_id": pipelineID,
				"fields":      fields,
			},
		}, nil
	}
}

// BuildRegistry wires the default tool set. A nil engine registers the stub
// extractor instead of the LLM adapter.
func BuildRegistry(engine *extraction.Engine, extractionTimeout time.Duration) *Registry {
	reg := NewRegistry()
	if engine != nil {
		reg.Register("extraction.run", ExtractionRun(engine, extractionTimeout))
	} else {
		reg.Register("extraction.run", StubExtraction)
	}
	reg.Register("verification.run", VerificationRun)
	reg.Register("actions.export_json", ExportJSON)
	reg.Register("actions.draft_email", DraftEmail)
	reg.Register("actions.create_ticket", CreateTicket)
	return reg
}
