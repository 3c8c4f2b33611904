package model

import "time"

// EvidenceRecord is a quoted excerpt substantiating one or more claims.
type EvidenceRecord struct {
	SourceURL   string    `json:"source_url"`
	Excerpt     string    `json:"excerpt"`
	PageTitle   string    `json:"page_title,omitempty"`
	ExtractedAt time.Time `json:"extracted_at"`
}

// EvidenceIndex maps run-unique evidence IDs to their records. IDs are
// assigned by a monotonic counter walking extraction units in rank order,
// so identical unit sets always produce identical IDs.
type EvidenceIndex map[string]EvidenceRecord
