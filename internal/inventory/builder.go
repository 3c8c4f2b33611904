// Package inventory canonicalizes crawled pages, fingerprints their
// content, and clusters duplicates.
package inventory

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"

	"github.com/okulov/siteintel/internal/model"
)

// Builder turns raw page records into deduplicated inventory entries.
type Builder struct{}

// NewBuilder creates an inventory builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// Build produces one InventoryEntry per PageRecord. Entries are grouped by
// canonical URL equality, then groups sharing a content hash merge into one
// dedup cluster. Cluster IDs derive from content rather than crawl order,
// so identical page sets cluster identically regardless of discovery order.
func (b *Builder) Build(pages []model.PageRecord) []model.InventoryEntry {
	entries := make([]model.InventoryEntry, 0, len(pages))

	for i, page := range pages {
		canonical, err := Canonicalize(page.URL)
		if err != nil {
			canonical = page.URL
		}

		entry := model.InventoryEntry{
			URL:            page.URL,
			CanonicalURL:   canonical,
			Title:          page.Title,
			HTTPStatus:     page.HTTPStatus,
			DiscoveryIndex: i,
		}

		if page.Succeeded() {
			entry.ContentHash = ContentHash(page.RawContent)
		} else {
			entry.Notes = "fetch failed"
			if page.FailureNote != "" {
				entry.Notes = "fetch failed: " + page.FailureNote
			}
		}

		entries = append(entries, entry)
	}

	assignClusters(entries)
	markRepresentatives(entries)

	return entries
}

// ContentHash fingerprints whitespace-normalized text. Empty text hashes to
// the empty string so failed fetches never cluster together.
func ContentHash(text string) string {
	normalized := strings.Join(strings.Fields(text), " ")
	if normalized == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

// assignClusters unions entries sharing a canonical URL, then unions
// canonical groups sharing a non-empty content hash. The cluster ID is
// derived from the lexically smallest content hash in the cluster, or from
// the canonical URL for hashless (failed) singletons.
func assignClusters(entries []model.InventoryEntry) {
	parent := make([]int, len(entries))
	for i := range parent {
		parent[i] = i
	}

	var find func(int) int
	find = func(x int) int {
		for parent[x] != x {
			parent[x] = parent[parent[x]]
			x = parent[x]
		}
		return x
	}
	union := func(a, b int) {
		ra, rb := find(a), find(b)
		if ra != rb {
			parent[rb] = ra
		}
	}

	byCanonical := make(map[string]int)
	byHash := make(map[string]int)
	for i, e := range entries {
		if j, ok := byCanonical[e.CanonicalURL]; ok {
			union(j, i)
		} else {
			byCanonical[e.CanonicalURL] = i
		}
		if e.ContentHash != "" {
			if j, ok := byHash[e.ContentHash]; ok {
				union(j, i)
			} else {
				byHash[e.ContentHash] = i
			}
		}
	}

	// Pick a deterministic, order-independent ID per cluster.
	clusterKey := make(map[int]string)
	for i, e := range entries {
		root := find(i)
		key := clusterKey[root]
		if e.ContentHash != "" {
			hashKey := "h:" + e.ContentHash
			if key == "" || !strings.HasPrefix(key, "h:") || hashKey < key {
				clusterKey[root] = hashKey
			}
		} else if key == "" {
			clusterKey[root] = "u:" + e.CanonicalURL
		}
	}

	for i := range entries {
		key := clusterKey[find(i)]
		sum := sha256.Sum256([]byte(key))
		entries[i].DedupClusterID = "c-" + hex.EncodeToString(sum[:6])
	}
}

// markRepresentatives flags exactly one representative per cluster: the
// entry with the shortest canonical URL, ties broken by earliest discovery.
// Successful entries always outrank failed ones within a cluster.
func markRepresentatives(entries []model.InventoryEntry) {
	best := make(map[string]int)

	indexes := make([]int, len(entries))
	for i := range entries {
		indexes[i] = i
	}
	sort.SliceStable(indexes, func(a, b int) bool {
		ea, eb := entries[indexes[a]], entries[indexes[b]]
		if ea.DedupClusterID != eb.DedupClusterID {
			return ea.DedupClusterID < eb.DedupClusterID
		}
		aOK, bOK := ea.HTTPStatus == 200, eb.HTTPStatus == 200
		if aOK != bOK {
			return aOK
		}
		if len(ea.CanonicalURL) != len(eb.CanonicalURL) {
			return len(ea.CanonicalURL) < len(eb.CanonicalURL)
		}
		return ea.DiscoveryIndex < eb.DiscoveryIndex
	})

	for _, i := range indexes {
		id := entries[i].DedupClusterID
		if _, ok := best[id]; !ok {
			best[id] = i
		}
	}

	for _, i := range best {
		entries[i].Representative = true
	}
}
