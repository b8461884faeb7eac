package tools

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/haasonsaas/docops/internal/verification"
)

// VerificationRun runs the deterministic verification rules over the
// extracted data bound by the runner.
func VerificationRun(ctx context.Context, inputs map[string]any, tc *Context) (map[string]any, error) {
	domain, _ := inputs["domain"].(string)
	schemaID, _ := inputs["schema_id"].(string)
	sourceText, _ := inputs["source_text"].(string)
	extracted, _ := inputs["extracted"].(map[string]any)

	report := verification.Verify(domain, schemaID, sourceText, extracted)
	return map[string]any{"report": report.AsMap()}, nil
}

// ExportJSON is the export action stub: it acknowledges the export of the
// extracted data.
func ExportJSON(ctx context.Context, inputs map[string]any, tc *Context) (map[string]any, error) {
	return map[string]any{"exported": true}, nil
}

// DraftEmail drafts a notification email from the extracted data.
func DraftEmail(ctx context.Context, inputs map[string]any, tc *Context) (map[string]any, error) {
	to, _ := inputs["to"].(string)
	templateID, _ := inputs["template_id"].(string)
	return map[string]any{
		"to":      to,
		"subject": "[DOCOPS] " + templateID,
		"body":    "Draft email body (stub) based on extracted data.",
	}, nil
}

// CreateTicket opens a review ticket carrying the verification report.
func CreateTicket(ctx context.Context, inputs map[string]any, tc *Context) (map[string]any, error) {
	return map[string]any{
		"ticket_id": "TCK-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:6],
		"status":    "CREATED",
	}, nil
}

// StubExtraction is the no-LLM extraction fallback used when no API key is
// configured. It echoes the routing attributes with a fixed example field.
func StubExtraction(ctx context.Context, inputs map[string]any, tc *Context) (map[string]any, error) {
	schemaID, _ := inputs["schema_id"].(string)
	pipelineID, _ := inputs["pipeline_id"].(string)
	return map[string]any{
		"extracted": map[string]any{
			"schema_id":   schemaID,
			"pipeline_id": pipelineID,
			"fields":      map[string]any{"example": "value"},
		},
	}, nil
}
