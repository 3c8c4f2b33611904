// Package crawl drives the external crawl provider under compliance,
// rate-limit, and budget constraints and produces raw page records.
package crawl

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/okulov/siteintel/internal/util"
)

// PageResult is the provider fetch contract: fetch(url) -> {title, text,
// status}, plus the same-host links the provider discovered on the page.
type PageResult struct {
	Title  string   `json:"title"`
	Text   string   `json:"text"`
	Status int      `json:"status"`
	Links  []string `json:"links"`
}

// Provider fetches a single page. Implementations must be safe for
// concurrent use.
type Provider interface {
	Name() string
	Fetch(ctx context.Context, url string) (*PageResult, error)
}

// ErrProvider wraps failures of the provider itself (transport errors, API
// 5xx) as opposed to failures of the target page. The orchestrator retries
// these and eventually switches to the fallback fetcher.
var ErrProvider = errors.New("crawl provider failure")

// APIProvider is a client for the hosted crawl provider, which renders
// pages with script execution and returns extracted text and links.
type APIProvider struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	userAgent  string
}

// NewAPIProvider creates a hosted crawl provider client.
func NewAPIProvider(baseURL, apiKey, userAgent string, timeout time.Duration, httpProxy, httpsProxy, noProxy string) *APIProvider {
	return &APIProvider{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy: util.NewProxyFunc(httpProxy, httpsProxy, noProxy),
			},
		},
		userAgent: userAgent,
	}
}

// Name returns the provider name.
func (p *APIProvider) Name() string {
	return "api"
}

type apiFetchRequest struct {
	URL string `json:"url"`
}

// Fetch asks the hosted provider to render and scrape one URL.
func (p *APIProvider) Fetch(ctx context.Context, url string) (*PageResult, error) {
	payload, err := json.Marshal(apiFetchRequest{URL: url})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v1/fetch", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", p.userAgent)
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProvider, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("%w: api status %d", ErrProvider, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("api status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrProvider, err)
	}

	var result PageResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("%w: decode body: %v", ErrProvider, err)
	}

	return &result, nil
}
