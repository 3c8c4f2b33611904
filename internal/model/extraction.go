package model

import "time"

// FieldValue is one extracted dimension value together with the local
// evidence IDs that substantiate it. Local IDs are unique only within the
// unit that produced them; the synthesizer re-keys them globally.
type FieldValue struct {
	Value       string   `json:"value"`
	EvidenceIDs []string `json:"evidence_ids,omitempty"`
}

// ExtractionUnit is the structured output of one deep-extraction task.
// Units are produced independently and share no state; a failed task still
// yields a placeholder unit so sibling results are never lost.
type ExtractionUnit struct {
	SourceURL    string                `json:"source_url"`
	SourceTitle  string                `json:"source_title,omitempty"`
	Rank         int                   `json:"rank"`
	Summary      string                `json:"summary,omitempty"`
	EntityFields map[string]FieldValue `json:"entity_fields"`
	Evidence     map[string]string     `json:"evidence"`
	ExtractedAt  time.Time             `json:"extracted_at"`
	Failed       bool                  `json:"failed,omitempty"`
	FailureNote  string                `json:"failure_note,omitempty"`
}

// Empty reports whether the unit carries no extracted substance.
func (u *ExtractionUnit) Empty() bool {
	return len(u.EntityFields) == 0
}
