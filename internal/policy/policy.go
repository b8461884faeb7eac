// Package policy implements the deny-by-default tool capability check and
// the per-tool whitelist of input keys that may appear in audit payloads.
package policy

// Policy is an immutable tool allow-list. A tool name absent from the
// allow-list is rejected; input keys absent from the audit whitelist are
// omitted (not masked) from persisted audit payloads.
type Policy struct {
	allowedTools    map[string]struct{}
	auditKeysByTool map[string]map[string]struct{}
}

// New builds a Policy from an allow-list and a per-tool audit key whitelist.
func New(allowedTools []string, auditKeys map[string][]string) Policy {
	allowed := make(map[string]struct{}, len(allowedTools))
	for _, name := range allowedTools {
		allowed[name] = struct{}{}
	}
	byTool := make(map[string]map[string]struct{}, len(auditKeys))
	for tool, keys := range auditKeys {
		set := make(map[string]struct{}, len(keys))
		for _, k := range keys {
			set[k] = struct{}{}
		}
		byTool[tool] = set
	}
	return Policy{allowedTools: allowed, auditKeysByTool: byTool}
}

// IsAllowed reports whether the tool may be invoked. Deny by default.
func (p Policy) IsAllowed(toolName string) bool {
	_, ok := p.allowedTools[toolName]
	return ok
}

// AllowedAuditKeys returns the input keys that may be copied into audit
// payloads for the tool. Unknown tools get an empty set.
func (p Policy) AllowedAuditKeys(toolName string) map[string]struct{} {
	return p.auditKeysByTool[toolName]
}

// RedactInputs keeps only the audit-whitelisted keys of inputs.
func (p Policy) RedactInputs(toolName string, inputs map[string]any) map[string]any {
	allowed := p.AllowedAuditKeys(toolName)
	safe := map[string]any{}
	for k := range allowed {
		if v, ok := inputs[k]; ok {
			safe[k] = v
		}
	}
	return safe
}

// Default permits exactly the five pipeline tools, with source text and
// extracted content never reaching audit payloads.
func Default() Policy {
	return New(
		[]string{
			"extraction.run",
			"verification.run",
			"actions.export_json",
			"actions.draft_email",
			"actions.create_ticket",
		},
		map[string][]string{
			"extraction.run":        {"schema_id", "pipeline_id"},
			"verification.run":      {"domain", "schema_id"},
			"actions.export_json":   {},
			"actions.draft_email":   {"to", "template_id"},
			"actions.create_ticket": {"queue", "title"},
		},
	)
}
