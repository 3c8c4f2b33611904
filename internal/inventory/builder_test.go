package inventory

import (
	"testing"
	"time"

	"github.com/okulov/siteintel/internal/model"
)

func page(url, content string, status int) model.PageRecord {
	return model.PageRecord{
		URL:        url,
		RawContent: content,
		HTTPStatus: status,
		FetchedAt:  time.Now().UTC(),
		Method:     model.FetchMethodFallback,
	}
}

func TestBuild_TrailingSlashDuplicates(t *testing.T) {
	// https://x.com/a and https://x.com/a/ with identical content form one
	// dedup cluster of size 2 with exactly one representative.
	pages := []model.PageRecord{
		page("https://x.com/a", "same body text", 200),
		page("https://x.com/a/", "same  body \n text", 200), // whitespace differs only
	}

	entries := NewBuilder().Build(pages)
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}

	if entries[0].DedupClusterID != entries[1].DedupClusterID {
		t.Errorf("expected one cluster, got %q and %q",
			entries[0].DedupClusterID, entries[1].DedupClusterID)
	}

	reps := 0
	for _, e := range entries {
		if e.Representative {
			reps++
			if e.CanonicalURL != "https://x.com/a" {
				t.Errorf("representative should be the shorter canonical URL, got %q", e.CanonicalURL)
			}
		}
	}
	if reps != 1 {
		t.Errorf("expected exactly 1 representative, got %d", reps)
	}
}

func TestBuild_ClusterIDOrderIndependent(t *testing.T) {
	// Identical content must join the same cluster ID regardless of crawl
	// order.
	a := page("https://x.com/long-url-path", "shared content", 200)
	b := page("https://x.com/p", "shared content", 200)
	c := page("https://x.com/other", "different content", 200)

	first := NewBuilder().Build([]model.PageRecord{a, b, c})
	second := NewBuilder().Build([]model.PageRecord{c, b, a})

	idsFirst := map[string]string{}
	for _, e := range first {
		idsFirst[e.URL] = e.DedupClusterID
	}
	for _, e := range second {
		if idsFirst[e.URL] != e.DedupClusterID {
			t.Errorf("cluster ID for %s changed with crawl order: %q vs %q",
				e.URL, idsFirst[e.URL], e.DedupClusterID)
		}
	}

	if idsFirst[a.URL] != idsFirst[b.URL] {
		t.Errorf("identical content split across clusters: %q vs %q", idsFirst[a.URL], idsFirst[b.URL])
	}
	if idsFirst[a.URL] == idsFirst[c.URL] {
		t.Error("distinct content merged into one cluster")
	}
}

func TestBuild_RepresentativeTieBreak(t *testing.T) {
	// Equal-length canonical URLs: earliest discovery wins.
	pages := []model.PageRecord{
		page("https://x.com/aa", "dup", 200),
		page("https://x.com/ab", "dup", 200),
	}

	entries := NewBuilder().Build(pages)
	for _, e := range entries {
		if e.Representative && e.URL != "https://x.com/aa" {
			t.Errorf("expected earliest discovery to win the tie, got %q", e.URL)
		}
	}
}

func TestBuild_FailedFetchSingleton(t *testing.T) {
	pages := []model.PageRecord{
		page("https://x.com/", "home", 200),
		{URL: "https://x.com/broken", HTTPStatus: 500, FailureNote: "server error"},
		{URL: "https://x.com/gone", HTTPStatus: 404},
	}

	entries := NewBuilder().Build(pages)

	clusters := map[string]int{}
	for _, e := range entries {
		clusters[e.DedupClusterID]++
	}
	if len(clusters) != 3 {
		t.Fatalf("expected 3 clusters (failed pages stay singleton), got %d", len(clusters))
	}

	for _, e := range entries {
		if e.HTTPStatus == 200 {
			continue
		}
		if e.ContentHash != "" {
			t.Errorf("failed page %s should have empty content hash", e.URL)
		}
		if e.Rankable() {
			t.Errorf("failed page %s must not be rankable", e.URL)
		}
		if e.Notes == "" {
			t.Errorf("failed page %s should carry a note", e.URL)
		}
	}
}

func TestBuild_OneRepresentativePerCluster(t *testing.T) {
	pages := []model.PageRecord{
		page("https://x.com/", "home page", 200),
		page("https://x.com/pricing", "plans and pricing", 200),
		page("https://x.com/pricing/", "plans and pricing", 200),
		page("https://x.com/about", "about us", 200),
		{URL: "https://x.com/404", HTTPStatus: 404},
	}

	entries := NewBuilder().Build(pages)

	repsPerCluster := map[string]int{}
	for _, e := range entries {
		if e.Representative {
			repsPerCluster[e.DedupClusterID]++
		}
	}
	clusterCount := map[string]bool{}
	for _, e := range entries {
		clusterCount[e.DedupClusterID] = true
	}

	for id := range clusterCount {
		if repsPerCluster[id] != 1 {
			t.Errorf("cluster %s has %d representatives, want 1", id, repsPerCluster[id])
		}
	}
}

func TestContentHash(t *testing.T) {
	if ContentHash("") != "" {
		t.Error("empty text must hash to empty string")
	}
	if ContentHash("a  b\n\tc") != ContentHash("a b c") {
		t.Error("whitespace normalization must not affect the hash")
	}
	if ContentHash("a") == ContentHash("b") {
		t.Error("distinct content must hash differently")
	}
}
