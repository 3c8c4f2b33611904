package model

import "time"

// FetchMethod records which fetcher produced a page.
type FetchMethod string

const (
	FetchMethodProvider FetchMethod = "provider" // hosted crawl provider
	FetchMethodFallback FetchMethod = "fallback" // plain HTTP, no script execution
)

// PageRecord is a raw crawled page. Records are ephemeral: they feed the
// inventory builder and are never persisted.
type PageRecord struct {
	URL            string      `json:"url"`
	Title          string      `json:"title,omitempty"`
	RawContent     string      `json:"raw_content,omitempty"`
	HTTPStatus     int         `json:"http_status"`
	DiscoveredFrom string      `json:"discovered_from,omitempty"`
	FetchedAt      time.Time   `json:"fetch_timestamp"`
	Method         FetchMethod `json:"method"`
	FailureNote    string      `json:"failure_note,omitempty"`
}

// Succeeded reports whether the page was actually retrieved.
func (p *PageRecord) Succeeded() bool {
	return p.HTTPStatus == 200 && p.FailureNote == ""
}
