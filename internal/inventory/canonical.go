package inventory

import (
	"fmt"
	"net/url"
	"strings"
)

// Canonicalize normalizes a URL into the dedup key: lowercased scheme and
// host, default port stripped, fragment dropped, query parameters sorted.
// Canonicalization is idempotent: applying it to its own output is a no-op.
func Canonicalize(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)

	if u.Scheme == "http" {
		u.Host = strings.TrimSuffix(u.Host, ":80")
	}
	if u.Scheme == "https" {
		u.Host = strings.TrimSuffix(u.Host, ":443")
	}

	u.Fragment = ""

	// url.Values.Encode sorts by key
	u.RawQuery = u.Query().Encode()

	return u.String(), nil
}
