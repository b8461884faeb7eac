package extraction

// SchemaConfig carries per-schema extraction instructions appended to the
// prompt.
type SchemaConfig struct {
	Instructions string
}

// SchemaRegistry maps schema ids to their extraction instructions. Unknown
// ids fall back to general.v1.
var SchemaRegistry = map[string]SchemaConfig{
	"general.v1": {
		Instructions: "Extract key facts into a flat 'fields' object. " +
			"Use only what is explicitly in the text. No inventions.",
	},
	"finance.v1": {
		Instructions: "Extract invoice facts: vendor, total, currency, invoice_number, due_date. " +
			"Use only what is explicitly in the text. Numbers stay numbers.",
	},
	"legal.v1": {
		Instructions: "Extract contract facts: parties (list), effective_date, governing_law, term. " +
			"Use only what is explicitly in the text.",
	},
}

// SchemaFor resolves a schema id, falling back to general.v1.
func SchemaFor(schemaID string) SchemaConfig {
	if cfg, ok := SchemaRegistry[schemaID]; ok {
		return cfg
	}
	return SchemaRegistry["general.v1"]
}
