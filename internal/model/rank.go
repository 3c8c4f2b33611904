package model

// RankedEntry is an inventory entry with its relevance verdict.
// Rank is a strict total order over rankable representative entries:
// 1 is the most relevant page.
type RankedEntry struct {
	InventoryEntry

	Rank          int      `json:"rank"`
	Score         float64  `json:"score"`
	KeywordScore  float64  `json:"keyword_score"`
	SemanticScore float64  `json:"semantic_score"`
	Reasons       []string `json:"reasons,omitempty"`
	Category      string   `json:"category"`
}

// CategoryUncategorized is assigned when no lexicon bucket matches.
const CategoryUncategorized = "uncategorized"
