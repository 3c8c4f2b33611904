// Package compliance fetches and evaluates a site's exclusion policy.
package compliance

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/temoto/robotstxt"
)

// Policy is the parsed exclusion policy for one domain. The zero value
// permits everything, which is also what a failed fetch produces: the gate
// fails open and never blocks the pipeline.
type Policy struct {
	DisallowPaths []string `json:"disallow_paths"`
	Fetched       bool     `json:"fetched"`

	group *robotstxt.Group
}

// Allowed reports whether the given URL path may be fetched.
func (p *Policy) Allowed(path string) bool {
	if p.group == nil {
		return true
	}
	if path == "" {
		path = "/"
	}
	return p.group.Test(path)
}

// Gate fetches exclusion policies over HTTPS with a short timeout.
type Gate struct {
	httpClient *http.Client
	userAgent  string
}

// NewGate creates a compliance gate.
func NewGate(userAgent string, timeout time.Duration) *Gate {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Gate{
		httpClient: &http.Client{Timeout: timeout},
		userAgent:  userAgent,
	}
}

// FetchPolicy retrieves and parses https://<domain>/robots.txt. It is a
// pure function of the domain: on 404, timeout, or any network error it
// returns an empty policy with Fetched=false rather than an error.
func (g *Gate) FetchPolicy(ctx context.Context, domain string) *Policy {
	robotsURL := fmt.Sprintf("https://%s/robots.txt", domain)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return &Policy{}
	}
	req.Header.Set("User-Agent", g.userAgent)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return &Policy{}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &Policy{}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 512*1024))
	if err != nil {
		return &Policy{}
	}

	return PolicyFromRobots(resp.StatusCode, body, g.userAgent)
}

// PolicyFromRobots parses a robots.txt body into a Policy. An unparseable
// body fails open.
func PolicyFromRobots(statusCode int, body []byte, userAgent string) *Policy {
	data, err := robotstxt.FromStatusAndBytes(statusCode, body)
	if err != nil {
		return &Policy{}
	}

	agent := normalizeUserAgent(userAgent)
	return &Policy{
		DisallowPaths: disallowPaths(body, agent),
		Fetched:       true,
		group:         data.FindGroup(agent),
	}
}

// disallowPaths collects the Disallow patterns that apply to the given
// agent (its own group plus the wildcard group). robotstxt keeps match
// state internal, so the recorded set is read from the raw body.
func disallowPaths(body []byte, agent string) []string {
	var paths []string
	applies := false
	inAgentBlock := false
	lowerAgent := strings.ToLower(agent)

	scanner := bufio.NewScanner(strings.NewReader(string(body)))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = strings.TrimSpace(line[:i])
		}
		if line == "" {
			continue
		}

		key, value, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		key = strings.ToLower(strings.TrimSpace(key))
		value = strings.TrimSpace(value)

		if key == "user-agent" {
			// A User-agent line after directives starts a new group;
			// consecutive User-agent lines extend the current one.
			if !inAgentBlock {
				applies = false
			}
			inAgentBlock = true
			ua := strings.ToLower(value)
			if ua == "*" || strings.Contains(lowerAgent, ua) {
				applies = true
			}
			continue
		}

		inAgentBlock = false
		if key == "disallow" && applies && value != "" {
			paths = append(paths, value)
		}
	}

	return paths
}

// normalizeUserAgent reduces a full User-Agent header to the product token
// used for robots group matching.
func normalizeUserAgent(ua string) string {
	parts := strings.Fields(ua)
	if len(parts) > 0 {
		return strings.Split(parts[0], "/")[0]
	}
	return ua
}
