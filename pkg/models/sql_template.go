package models

// SQLTemplate is the parameterized, masked shape of one or more log entries.
//
// Fingerprint is content-addressed over the normalized template text plus the
// sorted set of referenced tables, and nothing else: two entries map to the
// same fingerprint iff those two fields are identical. Timestamps and
// executors must never influence it.
type SQLTemplate struct {
	Fingerprint string   `json:"fingerprint"`
	TemplateSQL string   `json:"template_sql"`
	Tables      []string `json:"tables"` // lowercased, deduplicated, sorted
	ParamCount  int      `json:"param_count"`

	// ParamValues holds the literal values that were replaced, keyed by
	// placeholder name (param_1, param_2, ...). They are kept for entity
	// inspection and injection screening only; they are not part of the
	// fingerprint.
	ParamValues map[string]string `json:"param_values,omitempty"`
}
