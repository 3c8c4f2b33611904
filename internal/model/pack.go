package model

import "time"

// PackSchemaVersion identifies the artifact layout; bump on breaking change.
const PackSchemaVersion = "1"

// SiteMetadata describes the run that produced an intelligence pack.
type SiteMetadata struct {
	Domain         string    `json:"domain"`
	RunID          string    `json:"run_id"`
	GeneratedAt    time.Time `json:"generated_at"`
	PagesCrawled   int       `json:"pages_crawled"`
	PagesFailed    int       `json:"pages_failed"`
	UnitsExtracted int       `json:"units_extracted"`
	Degraded       bool      `json:"degraded"`
	DegradedReason string    `json:"degraded_reason,omitempty"`
	SchemaVersion  string    `json:"schema_version"`
}

// IntelligencePack is the final, immutable run artifact.
type IntelligencePack struct {
	SiteMetadata       SiteMetadata       `json:"site_metadata"`
	ClaimsByDimension  map[string][]Claim `json:"claims_by_dimension"`
	EvidenceIndex      EvidenceIndex      `json:"evidence_index"`
	ValidationWarnings []string           `json:"validation_warnings"`
}

// DegradedSignal is handed to the external notification collaborator when a
// run falls under the minimum success thresholds. It is metadata, not an
// error: degraded runs still produce a complete artifact.
type DegradedSignal struct {
	Degraded bool   `json:"degraded"`
	Reason   string `json:"reason,omitempty"`
}
