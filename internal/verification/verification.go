// Package verification runs deterministic (non-LLM) checks over extracted
// fields and produces a PASS/WARN/FAIL report.
package verification

import (
	"sort"
	"strings"
)

// Verdicts.
const (
	VerdictPass = "PASS"
	VerdictWarn = "WARN"
	VerdictFail = "FAIL"
)

// Check severities. A failed HARD check forces FAIL; a failed SOFT check
// forces WARN unless a HARD check also failed.
const (
	SeverityHard = "HARD"
	SeveritySoft = "SOFT"
)

// Check is one rule evaluation.
type Check struct {
	Name     string         `json:"name"`
	Pass     bool           `json:"pass"`
	Severity string         `json:"severity"`
	Details  map[string]any `json:"details"`
}

// Report is the verification outcome for one extraction.
type Report struct {
	Verdict string  `json:"verdict"`
	Checks  []Check `json:"checks"`
}

// AsMap renders the report as a JSON-shaped map for artifacts and tool
// results.
func (r Report) AsMap() map[string]any {
	checks := make([]any, 0, len(r.Checks))
	for _, c := range r.Checks {
		details := c.Details
		if details == nil {
			details = map[string]any{}
		}
		checks = append(checks, map[string]any{
			"name":     c.Name,
			"pass":     c.Pass,
			"severity": c.Severity,
			"details":  details,
		})
	}
	return map[string]any{
		"verdict": r.Verdict,
		"checks":  checks,
	}
}

type collector struct {
	checks   []Check
	hardFail bool
	softFail bool
}

func (c *collector) add(name string, passed bool, severity string, details map[string]any) {
	if details == nil {
		details = map[string]any{}
	}
	c.checks = append(c.checks, Check{Name: name, Pass: passed, Severity: severity, Details: details})
	if passed {
		return
	}
	if severity == SeverityHard {
		c.hardFail = true
	} else {
		c.softFail = true
	}
}

// Verify runs the universal has_fields check and then domain-specific checks
// over the extracted fields.
func Verify(domain, schemaID, sourceText string, extracted map[string]any) Report {
	fields := extractedFields(extracted)
	c := &collector{}

	c.add("has_fields", len(fields) > 0, SeverityHard, map[string]any{
		"keys": fieldKeys(fields, 20),
	})

	switch domain {
	case "finance":
		c.add("vendor_present", presentString(fields["vendor"]), SeveritySoft, nil)
		c.add("total_present", presentNumber(fields["total"]) || presentString(fields["total"]), SeveritySoft, nil)
		c.add("currency_present", presentString(fields["currency"]), SeveritySoft, nil)
	case "legal":
		c.add("parties_present", presentAny(fields["parties"]), SeveritySoft, nil)
		c.add("effective_date_present", presentString(fields["effective_date"]), SeveritySoft, nil)
		c.add("governing_law_present", presentString(fields["governing_law"]), SeveritySoft, nil)
	default:
		c.add("non_empty_example_or_summary", len(fields) > 0, SeveritySoft, nil)
	}

	verdict := VerdictPass
	if c.hardFail {
		verdict = VerdictFail
	} else if c.softFail {
		verdict = VerdictWarn
	}
	return Report{Verdict: verdict, Checks: c.checks}
}

// fieldKeys lists up to max field names for check diagnostics.
func fieldKeys(fields map[string]any, max int) []string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
		if len(keys) == max {
			break
		}
	}
	sort.Strings(keys)
	return keys
}

func extractedFields(extracted map[string]any) map[string]any {
	if extracted == nil {
		return map[string]any{}
	}
	if fields, ok := extracted["fields"].(map[string]any); ok {
		return fields
	}
	return map[string]any{}
}

func presentString(v any) bool {
	s, ok := v.(string)
	return ok && strings.TrimSpace(s) != ""
}

func presentNumber(v any) bool {
	switch v.(type) {
	case int, int64, float32, float64:
		return true
	}
	return false
}

func presentAny(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case string:
		return presentString(val)
	case []any:
		return len(val) > 0
	case map[string]any:
		return len(val) > 0
	}
	return true
}
