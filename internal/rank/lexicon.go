package rank

import "strings"

// category is one lexicon bucket. Keyword hits against URL path and title
// contribute weight points each, capped per category so a keyword-stuffed
// page cannot dominate the ordering.
type category struct {
	name     string
	weight   float64
	cap      float64
	keywords []string
}

// lexicon orders buckets by intelligence value: pages that talk about money
// and product outrank marketing fluff.
var lexicon = []category{
	{name: "pricing", weight: 30, cap: 60, keywords: []string{"pricing", "price", "prices", "plans", "plan", "cost", "billing"}},
	{name: "product", weight: 25, cap: 50, keywords: []string{"product", "products", "features", "platform", "solutions", "solution", "services"}},
	{name: "about", weight: 20, cap: 40, keywords: []string{"about", "company", "team", "mission", "story", "leadership"}},
	{name: "legal", weight: 15, cap: 30, keywords: []string{"legal", "terms", "privacy", "policy", "compliance", "gdpr", "security"}},
	{name: "docs", weight: 12, cap: 24, keywords: []string{"docs", "documentation", "api", "developers", "developer", "guide", "reference"}},
	{name: "support", weight: 10, cap: 20, keywords: []string{"support", "help", "faq", "contact"}},
	{name: "blog", weight: 8, cap: 16, keywords: []string{"blog", "news", "press", "articles", "updates", "changelog"}},
	{name: "careers", weight: 5, cap: 10, keywords: []string{"careers", "jobs", "hiring", "join"}},
}

// keywordScore computes the capped lexicon score and the winning category
// for a URL path and page title.
func keywordScore(path, title string) (float64, string, []string) {
	tokens := tokenize(path + " " + title)

	total := 0.0
	best := ""
	bestScore := 0.0
	var reasons []string

	for _, cat := range lexicon {
		hits := 0
		for _, kw := range cat.keywords {
			hits += tokens[kw]
		}
		if hits == 0 {
			continue
		}

		score := float64(hits) * cat.weight
		if score > cat.cap {
			score = cat.cap
		}
		total += score
		reasons = append(reasons, "keyword:"+cat.name)

		if score > bestScore {
			bestScore = score
			best = cat.name
		}
	}

	return total, best, reasons
}

// tokenize splits text on URL and word separators and counts lowercase
// tokens.
func tokenize(text string) map[string]int {
	counts := make(map[string]int)
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		switch r {
		case '/', '-', '_', '.', '?', '=', '&', ' ', '\t', '\n', ',', ':', '|':
			return true
		}
		return false
	})
	for _, f := range fields {
		if f != "" {
			counts[f]++
		}
	}
	return counts
}
