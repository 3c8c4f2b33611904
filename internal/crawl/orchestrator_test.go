package crawl

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/okulov/siteintel/internal/compliance"
	"github.com/okulov/siteintel/internal/inventory"
	"github.com/okulov/siteintel/internal/model"
	"github.com/okulov/siteintel/internal/worker"
)

// fakeProvider serves an in-memory site map.
type fakeProvider struct {
	pages   map[string]*PageResult
	fetches atomic.Int32

	// failuresBeforeSuccess makes every call fail with ErrProvider until
	// the counter is spent.
	failuresBeforeSuccess atomic.Int32
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) Fetch(ctx context.Context, url string) (*PageResult, error) {
	f.fetches.Add(1)
	if f.failuresBeforeSuccess.Load() > 0 {
		f.failuresBeforeSuccess.Add(-1)
		return nil, fmt.Errorf("%w: simulated outage", ErrProvider)
	}
	if result, ok := f.pages[url]; ok {
		return result, nil
	}
	return &PageResult{Status: 404}, nil
}

func testSite() map[string]*PageResult {
	return map[string]*PageResult{
		"https://example.com/": {
			Title:  "Home",
			Text:   "welcome to example",
			Status: 200,
			Links: []string{
				"https://example.com/pricing",
				"https://example.com/about",
				"https://example.com/admin/panel",
				"https://other.com/external",
			},
		},
		"https://example.com/pricing": {
			Title: "Pricing", Text: "plans and pricing", Status: 200,
		},
		"https://example.com/about": {
			Title: "About", Text: "about the company", Status: 200,
		},
		"https://example.com/admin/panel": {
			Title: "Admin", Text: "secret admin panel", Status: 200,
		},
	}
}

func newTestOrchestrator(provider, fallback Provider, budget int) *Orchestrator {
	return NewOrchestrator(Options{
		Provider:  provider,
		Fallback:  fallback,
		Gate:      worker.NewGate(1000), // effectively unlimited for tests
		Budget:    budget,
		WallClock: time.Minute,
	})
}

func allowAll() *compliance.Policy {
	return &compliance.Policy{}
}

func TestCrawl_FollowsLinksWithinBudget(t *testing.T) {
	provider := &fakeProvider{pages: testSite()}
	o := newTestOrchestrator(provider, nil, 10)

	records := o.Crawl(context.Background(), "example.com", allowAll())

	urls := map[string]bool{}
	for _, r := range records {
		urls[r.URL] = true
	}
	for _, want := range []string{"https://example.com/", "https://example.com/pricing", "https://example.com/about"} {
		if !urls[want] {
			t.Errorf("expected %s to be crawled", want)
		}
	}
	if urls["https://other.com/external"] {
		t.Error("crawl must stay on the target host")
	}
}

func TestCrawl_DisallowedPathsFilteredBeforeFetch(t *testing.T) {
	// Scenario: exclusion policy blocks /admin/*; no inventory entry may
	// end up under /admin/.
	policy := compliance.PolicyFromRobots(200, []byte("User-agent: *\nDisallow: /admin/\n"), "siteintel/0.1")

	provider := &fakeProvider{pages: testSite()}
	o := newTestOrchestrator(provider, nil, 10)

	records := o.Crawl(context.Background(), "example.com", policy)

	for _, r := range records {
		if strings.Contains(r.URL, "/admin/") {
			t.Errorf("disallowed URL was fetched: %s", r.URL)
		}
	}

	entries := inventory.NewBuilder().Build(records)
	for _, e := range entries {
		if strings.Contains(e.CanonicalURL, "/admin/") {
			t.Errorf("inventory entry under disallowed path: %s", e.CanonicalURL)
		}
	}
}

func TestCrawl_BudgetExhaustion(t *testing.T) {
	provider := &fakeProvider{pages: testSite()}
	o := newTestOrchestrator(provider, nil, 2)

	records := o.Crawl(context.Background(), "example.com", allowAll())

	if len(records) != 2 {
		t.Errorf("expected exactly 2 records at budget 2, got %d", len(records))
	}
}

func TestCrawl_NoDuplicateFetches(t *testing.T) {
	site := testSite()
	// home links to itself in two lexically distinct spellings
	site["https://example.com/"].Links = append(site["https://example.com/"].Links,
		"HTTPS://EXAMPLE.COM/", "https://example.com:443/")

	provider := &fakeProvider{pages: site}
	o := newTestOrchestrator(provider, nil, 20)

	records := o.Crawl(context.Background(), "example.com", allowAll())

	seen := map[string]int{}
	for _, r := range records {
		canonical, err := inventory.Canonicalize(r.URL)
		if err != nil {
			t.Fatalf("canonicalize: %v", err)
		}
		seen[canonical]++
	}
	for canonical, n := range seen {
		if n > 1 {
			t.Errorf("canonical URL %s fetched %d times", canonical, n)
		}
	}
}

func TestCrawl_ProviderFailureSwitchesToFallback(t *testing.T) {
	origSleep := crawlSleepFunc
	crawlSleepFunc = func(context.Context, time.Duration) {}
	defer func() { crawlSleepFunc = origSleep }()

	broken := &fakeProvider{pages: testSite()}
	broken.failuresBeforeSuccess.Store(1000) // provider never recovers

	fallback := &fakeProvider{pages: testSite()}

	o := newTestOrchestrator(broken, fallback, 5)
	records := o.Crawl(context.Background(), "example.com", allowAll())

	if len(records) == 0 {
		t.Fatal("expected records from the fallback fetcher")
	}
	for _, r := range records {
		if r.Method != model.FetchMethodFallback {
			t.Errorf("record %s fetched via %s, want fallback", r.URL, r.Method)
		}
	}
	// 3 attempts on the primary for the first URL, then the switch is
	// wholesale: the primary is never consulted again
	if got := broken.fetches.Load(); got != 3 {
		t.Errorf("expected 3 primary attempts before the switch, got %d", got)
	}
}

func TestCrawl_ProviderRetryThenRecover(t *testing.T) {
	origSleep := crawlSleepFunc
	crawlSleepFunc = func(context.Context, time.Duration) {}
	defer func() { crawlSleepFunc = origSleep }()

	flaky := &fakeProvider{pages: testSite()}
	flaky.failuresBeforeSuccess.Store(2) // two transient failures

	o := newTestOrchestrator(flaky, nil, 1)
	records := o.Crawl(context.Background(), "example.com", allowAll())

	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if !records[0].Succeeded() {
		t.Errorf("expected success after retries, got %+v", records[0])
	}
	if records[0].Method != model.FetchMethodProvider {
		t.Errorf("expected provider method, got %s", records[0].Method)
	}
}

func TestCrawl_PageFailureRecordedNotFatal(t *testing.T) {
	site := testSite()
	site["https://example.com/pricing"] = &PageResult{Status: 500}

	provider := &fakeProvider{pages: site}
	o := newTestOrchestrator(provider, nil, 10)

	records := o.Crawl(context.Background(), "example.com", allowAll())

	var failed *model.PageRecord
	for i := range records {
		if records[i].URL == "https://example.com/pricing" {
			failed = &records[i]
		}
	}
	if failed == nil {
		t.Fatal("failed page must still produce a record")
	}
	if failed.Succeeded() {
		t.Error("500 page must not count as success")
	}

	// siblings keep crawling
	if len(records) < 3 {
		t.Errorf("expected crawl to continue past the failure, got %d records", len(records))
	}
}

func TestCrawl_ContextCancelled(t *testing.T) {
	provider := &fakeProvider{pages: testSite()}
	o := newTestOrchestrator(provider, nil, 100)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	records := o.Crawl(ctx, "example.com", allowAll())
	if len(records) != 0 {
		t.Errorf("expected no records under a cancelled context, got %d", len(records))
	}
}

func TestCrawl_NoFallbackConfigured(t *testing.T) {
	origSleep := crawlSleepFunc
	crawlSleepFunc = func(context.Context, time.Duration) {}
	defer func() { crawlSleepFunc = origSleep }()

	broken := &fakeProvider{pages: testSite()}
	broken.failuresBeforeSuccess.Store(1000)

	o := newTestOrchestrator(broken, nil, 3)
	records := o.Crawl(context.Background(), "example.com", allowAll())

	if len(records) == 0 {
		t.Fatal("expected a failure record")
	}
	if records[0].FailureNote == "" {
		t.Error("expected a failure note when no fallback exists")
	}
}

func TestCrawl_CancelDuringBackoff(t *testing.T) {
	// Cancellation must cut the retry backoff short, not linger through it.
	broken := &fakeProvider{pages: testSite()}
	broken.failuresBeforeSuccess.Store(1000)

	o := newTestOrchestrator(broken, nil, 10)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	done := make(chan []model.PageRecord, 1)
	go func() {
		done <- o.Crawl(ctx, "example.com", allowAll())
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("crawl slept through the backoff after cancellation")
	}
}

func TestErrProviderWrapping(t *testing.T) {
	err := fmt.Errorf("%w: boom", ErrProvider)
	if !errors.Is(err, ErrProvider) {
		t.Error("wrapped provider error must match ErrProvider")
	}
}
