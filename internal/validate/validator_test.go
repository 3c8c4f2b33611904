package validate

import (
	"strings"
	"testing"

	"github.com/okulov/siteintel/internal/model"
)

func healthyPack() *model.IntelligencePack {
	return &model.IntelligencePack{
		SiteMetadata: model.SiteMetadata{Domain: "acme.test", RunID: "r1"},
		ClaimsByDimension: map[string][]model.Claim{
			"pricing_model": {{
				ID:           "clm-0001",
				Dimension:    "pricing_model",
				Statement:    "subscription",
				SourceURL:    "https://acme.test/pricing",
				EvidenceRefs: []string{"ev-0001"},
			}},
		},
		EvidenceIndex: model.EvidenceIndex{
			"ev-0001": {SourceURL: "https://acme.test/pricing", Excerpt: "Plans start at $10."},
		},
	}
}

func knownPages() map[string]bool {
	return map[string]bool{"https://acme.test/pricing": true}
}

func TestCheck_HealthyPack(t *testing.T) {
	result := NewValidator().Check(healthyPack(), knownPages())
	if !result.Valid {
		t.Errorf("healthy pack flagged invalid: %v", result.Warnings)
	}
	if len(result.Warnings) != 0 {
		t.Errorf("unexpected warnings: %v", result.Warnings)
	}
}

func TestCheck_UnresolvedEvidenceRef(t *testing.T) {
	pack := healthyPack()
	pack.ClaimsByDimension["pricing_model"][0].EvidenceRefs = []string{"ev-9999"}

	result := NewValidator().Check(pack, knownPages())
	if result.Valid {
		t.Fatal("pack with dangling refs must be invalid")
	}

	var unresolved, noEvidence bool
	for _, w := range result.Warnings {
		if strings.Contains(w, `"ev-9999" does not resolve`) {
			unresolved = true
		}
		if strings.Contains(w, "no resolvable evidence") {
			noEvidence = true
		}
	}
	if !unresolved {
		t.Errorf("missing unresolved-ref warning: %v", result.Warnings)
	}
	if !noEvidence {
		t.Errorf("missing broken-claim warning: %v", result.Warnings)
	}
}

func TestCheck_OrphanEvidence(t *testing.T) {
	pack := healthyPack()
	pack.EvidenceIndex["ev-0002"] = model.EvidenceRecord{
		SourceURL: "https://elsewhere.test/page",
		Excerpt:   "unrelated",
	}

	result := NewValidator().Check(pack, knownPages())
	if result.Valid {
		t.Fatal("orphan evidence must produce a warning")
	}

	var found bool
	for _, w := range result.Warnings {
		if strings.Contains(w, "ev-0002") && strings.Contains(w, "not a known crawled page") {
			found = true
		}
	}
	if !found {
		t.Errorf("missing orphan warning: %v", result.Warnings)
	}
}

func TestCheck_NoKnownPagesSkipsOrphanCheck(t *testing.T) {
	result := NewValidator().Check(healthyPack(), nil)
	if !result.Valid {
		t.Errorf("orphan check must be skipped without a page set: %v", result.Warnings)
	}
}

func TestCheck_MissingSections(t *testing.T) {
	pack := &model.IntelligencePack{}

	result := NewValidator().Check(pack, nil)
	if result.Valid {
		t.Fatal("empty pack must be invalid")
	}

	for _, want := range []string{"missing domain", "missing run_id", "claims_by_dimension", "evidence_index"} {
		var found bool
		for _, w := range result.Warnings {
			if strings.Contains(w, want) {
				found = true
			}
		}
		if !found {
			t.Errorf("missing warning about %q: %v", want, result.Warnings)
		}
	}
}

func TestCheck_WarningsDeterministic(t *testing.T) {
	pack := healthyPack()
	pack.ClaimsByDimension["founding_year"] = []model.Claim{{
		ID: "clm-0002", Dimension: "founding_year", EvidenceRefs: []string{"nope"},
	}}
	pack.ClaimsByDimension["pricing_model"][0].EvidenceRefs = []string{"gone"}

	first := NewValidator().Check(pack, knownPages())
	for i := 0; i < 10; i++ {
		again := NewValidator().Check(pack, knownPages())
		if len(again.Warnings) != len(first.Warnings) {
			t.Fatalf("warning count changed between runs")
		}
		for j := range first.Warnings {
			if again.Warnings[j] != first.Warnings[j] {
				t.Fatalf("warning order differs: %q vs %q", first.Warnings[j], again.Warnings[j])
			}
		}
	}
}
