package model

// InventoryEntry is one deduplicated page in the site inventory.
//
// CanonicalURL is the normalized dedup key: lowercased scheme and host,
// default port and fragment stripped, query parameters sorted. ContentHash
// fingerprints whitespace-normalized extracted text; entries sharing a hash
// join one dedup cluster even when their canonical URLs differ.
type InventoryEntry struct {
	URL            string `json:"url"`
	CanonicalURL   string `json:"canonical_url"`
	Title          string `json:"title,omitempty"`
	ContentHash    string `json:"content_hash,omitempty"`
	DedupClusterID string `json:"dedup_cluster_id"`
	HTTPStatus     int    `json:"http_status"`
	Representative bool   `json:"representative"`
	DiscoveryIndex int    `json:"discovery_index"`
	Notes          string `json:"notes,omitempty"`
}

// Rankable reports whether the entry participates in relevance ranking.
// Failed fetches keep their inventory entry but never rank.
func (e *InventoryEntry) Rankable() bool {
	return e.Representative && e.HTTPStatus == 200 && e.ContentHash != ""
}
