// Package synth merges extraction units into dimension-grouped claims and
// a global evidence index.
package synth

import (
	"fmt"
	"sort"
	"time"

	"github.com/okulov/siteintel/internal/model"
)

// Synthesizer builds the intelligence pack draft from extraction units.
type Synthesizer struct{}

// NewSynthesizer creates a synthesizer.
func NewSynthesizer() *Synthesizer {
	return &Synthesizer{}
}

// Build re-keys every unit's local evidence IDs into run-unique global IDs
// and groups entity fields into claims by dimension.
//
// IDs come from a monotonic counter walking units in rank order and local
// IDs in sorted order, so identical unit sets always yield identical IDs
// regardless of how the extraction tasks completed. The counter runs
// strictly after all tasks have joined, so no locking is involved.
//
// Units asserting the same dimension each become their own claim; values
// are never merged, since corroboration and conflict both matter. A claim
// whose evidence cannot be resolved is flagged broken but retained.
func (s *Synthesizer) Build(meta model.SiteMetadata, units []model.ExtractionUnit) *model.IntelligencePack {
	ordered := make([]model.ExtractionUnit, len(units))
	copy(ordered, units)
	sort.Slice(ordered, func(a, b int) bool {
		return ordered[a].Rank < ordered[b].Rank
	})

	index := model.EvidenceIndex{}
	claims := map[string][]model.Claim{}

	evidenceCounter := 0
	claimCounter := 0

	for _, unit := range ordered {
		localToGlobal := make(map[string]string, len(unit.Evidence))

		for _, localID := range sortedKeys(unit.Evidence) {
			evidenceCounter++
			globalID := fmt.Sprintf("ev-%04d", evidenceCounter)
			localToGlobal[localID] = globalID
			index[globalID] = model.EvidenceRecord{
				SourceURL:   unit.SourceURL,
				Excerpt:     unit.Evidence[localID],
				PageTitle:   unit.SourceTitle,
				ExtractedAt: unit.ExtractedAt,
			}
		}

		for _, dimension := range sortedFieldKeys(unit.EntityFields) {
			field := unit.EntityFields[dimension]

			claimCounter++
			claim := model.Claim{
				ID:        fmt.Sprintf("clm-%04d", claimCounter),
				Dimension: dimension,
				Statement: field.Value,
				SourceURL: unit.SourceURL,
			}

			resolved := 0
			for _, localID := range field.EvidenceIDs {
				if globalID, ok := localToGlobal[localID]; ok {
					claim.EvidenceRefs = append(claim.EvidenceRefs, globalID)
					resolved++
				} else {
					// dangling local reference: keep it so the validator
					// can surface the defect instead of losing it
					claim.EvidenceRefs = append(claim.EvidenceRefs, localID)
				}
			}
			if resolved == 0 {
				claim.Broken = true
			}

			claims[dimension] = append(claims[dimension], claim)
		}
	}

	if meta.GeneratedAt.IsZero() {
		meta.GeneratedAt = time.Now().UTC()
	}
	meta.SchemaVersion = model.PackSchemaVersion

	return &model.IntelligencePack{
		SiteMetadata:       meta,
		ClaimsByDimension:  claims,
		EvidenceIndex:      index,
		ValidationWarnings: []string{},
	}
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedFieldKeys(m map[string]model.FieldValue) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
