// Package rank scores representative inventory entries and produces a
// strict total order over them.
package rank

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/okulov/siteintel/internal/llm"
	"github.com/okulov/siteintel/internal/model"
)

// semanticWeight scales the 0..1 relevance judgment into score points.
const semanticWeight = 40.0

// snippetChars is how much content the lightweight judgment sees.
const snippetChars = 2000

// Ranker orders inventory entries by keyword and semantic relevance.
type Ranker struct {
	service llm.Service
	logger  *zap.Logger
}

// NewRanker creates a ranker backed by the given extraction service.
func NewRanker(service llm.Service, logger *zap.Logger) *Ranker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ranker{service: service, logger: logger}
}

// Rank scores every rankable representative entry and returns them totally
// ordered: score descending, then shorter canonical URL, then earlier
// discovery. A failed semantic judgment demotes an entry to keyword-only
// scoring; it is never dropped.
func (r *Ranker) Rank(ctx context.Context, entries []model.InventoryEntry, contentByURL map[string]string) []model.RankedEntry {
	var ranked []model.RankedEntry

	for _, entry := range entries {
		if !entry.Rankable() {
			continue
		}

		kwScore, cat, reasons := keywordScore(pathOf(entry.CanonicalURL), entry.Title)
		if cat == "" {
			cat = model.CategoryUncategorized
		}

		re := model.RankedEntry{
			InventoryEntry: entry,
			KeywordScore:   kwScore,
			Category:       cat,
			Reasons:        reasons,
		}

		judgment, err := r.service.JudgeRelevance(ctx, entry.Title, snippet(contentByURL[entry.URL]))
		if err != nil {
			re.Reasons = append(re.Reasons, "semantic:unavailable")
			r.logger.Debug("semantic judgment failed, keyword-only",
				zap.String("url", entry.URL), zap.Error(err))
		} else {
			re.SemanticScore = judgment * semanticWeight
			re.Reasons = append(re.Reasons, fmt.Sprintf("semantic:%.2f", judgment))
		}

		re.Score = re.KeywordScore + re.SemanticScore
		ranked = append(ranked, re)
	}

	sort.SliceStable(ranked, func(a, b int) bool {
		if ranked[a].Score != ranked[b].Score {
			return ranked[a].Score > ranked[b].Score
		}
		if len(ranked[a].CanonicalURL) != len(ranked[b].CanonicalURL) {
			return len(ranked[a].CanonicalURL) < len(ranked[b].CanonicalURL)
		}
		return ranked[a].DiscoveryIndex < ranked[b].DiscoveryIndex
	})

	for i := range ranked {
		ranked[i].Rank = i + 1
	}

	return ranked
}

func pathOf(canonicalURL string) string {
	u, err := url.Parse(canonicalURL)
	if err != nil {
		return canonicalURL
	}
	return u.Path
}

// snippet truncates content to the judgment window, backing off to a rune
// boundary so the cut never emits an invalid trailing byte.
func snippet(content string) string {
	if len(content) <= snippetChars {
		return content
	}
	cut := snippetChars
	for cut > 0 && !utf8.RuneStart(content[cut]) {
		cut--
	}
	return content[:cut]
}
