// Package validate checks synthesized intelligence packs, attaching
// warnings without ever halting the pipeline.
package validate

import (
	"fmt"
	"sort"

	"github.com/okulov/siteintel/internal/model"
)

// Result is the validator verdict. Valid means no warnings; an invalid
// pack is still published with its warnings embedded.
type Result struct {
	Valid    bool     `json:"valid"`
	Warnings []string `json:"warnings"`
}

// Validator checks intelligence packs against the schema invariants.
type Validator struct{}

// NewValidator creates a schema validator.
func NewValidator() *Validator {
	return &Validator{}
}

// Check verifies the pack: every claim's evidence refs must resolve in the
// evidence index, required top-level sections must be present, and no
// evidence entry may be orphaned from a known crawled page. Unresolved
// references produce warnings; the claims are retained, never dropped.
func (v *Validator) Check(pack *model.IntelligencePack, knownPages map[string]bool) Result {
	var warnings []string

	if pack.SiteMetadata.Domain == "" {
		warnings = append(warnings, "site_metadata: missing domain")
	}
	if pack.SiteMetadata.RunID == "" {
		warnings = append(warnings, "site_metadata: missing run_id")
	}
	if pack.ClaimsByDimension == nil {
		warnings = append(warnings, "claims_by_dimension: section missing")
	}
	if pack.EvidenceIndex == nil {
		warnings = append(warnings, "evidence_index: section missing")
	}

	for _, dimension := range sortedDimensions(pack.ClaimsByDimension) {
		for _, claim := range pack.ClaimsByDimension[dimension] {
			resolved := 0
			for _, ref := range claim.EvidenceRefs {
				if _, ok := pack.EvidenceIndex[ref]; ok {
					resolved++
				} else {
					warnings = append(warnings,
						fmt.Sprintf("claim %s (%s): evidence ref %q does not resolve", claim.ID, dimension, ref))
				}
			}
			if resolved == 0 {
				warnings = append(warnings,
					fmt.Sprintf("claim %s (%s): no resolvable evidence, flagged broken", claim.ID, dimension))
			}
		}
	}

	for _, id := range sortedEvidenceIDs(pack.EvidenceIndex) {
		record := pack.EvidenceIndex[id]
		if len(knownPages) > 0 && !knownPages[record.SourceURL] {
			warnings = append(warnings,
				fmt.Sprintf("evidence %s: source %q is not a known crawled page", id, record.SourceURL))
		}
	}

	return Result{
		Valid:    len(warnings) == 0,
		Warnings: warnings,
	}
}

func sortedDimensions(claims map[string][]model.Claim) []string {
	dims := make([]string, 0, len(claims))
	for d := range claims {
		dims = append(dims, d)
	}
	sort.Strings(dims)
	return dims
}

func sortedEvidenceIDs(index model.EvidenceIndex) []string {
	ids := make([]string, 0, len(index))
	for id := range index {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
