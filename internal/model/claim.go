package model

// Claim is a dimension-scoped assertion synthesized from one extraction
// unit. When several units assert the same dimension each becomes its own
// Claim: corroboration and conflict are both informative, so values are
// never merged or overwritten.
type Claim struct {
	ID           string   `json:"id"`
	Dimension    string   `json:"dimension"`
	Statement    string   `json:"statement"`
	SourceURL    string   `json:"source_url"`
	EvidenceRefs []string `json:"evidence_refs,omitempty"`

	// Broken marks a claim whose evidence references could not be resolved.
	// Broken claims are retained, never silently dropped.
	Broken bool `json:"broken,omitempty"`
}
