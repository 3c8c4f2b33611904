package crawl

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/okulov/siteintel/internal/cache"
	"github.com/okulov/siteintel/internal/compliance"
	"github.com/okulov/siteintel/internal/inventory"
	"github.com/okulov/siteintel/internal/model"
	"github.com/okulov/siteintel/internal/worker"
)

// crawlSleepFunc is the sleep function used between provider retries
// (injectable for tests). It must return early when the context is done.
var crawlSleepFunc = sleepContext

func sleepContext(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

// Orchestrator drives a breadth-first crawl of one domain through the
// active provider, under the shared rate gate, the page budget, and the
// wall-clock ceiling. Individual page failures are recorded, not raised.
type Orchestrator struct {
	provider   Provider
	fallback   Provider
	gate       *worker.Gate
	pageCache  cache.Cache
	logger     *zap.Logger
	budget     int
	wallClock  time.Duration
	maxRetries int

	useFallback bool
}

// Options configures an Orchestrator.
type Options struct {
	Provider   Provider // nil starts the crawl directly on the fallback
	Fallback   Provider
	Gate       *worker.Gate
	PageCache  cache.Cache
	Logger     *zap.Logger
	Budget     int
	WallClock  time.Duration
	MaxRetries int
}

// NewOrchestrator creates a crawl orchestrator.
func NewOrchestrator(opts Options) *Orchestrator {
	if opts.Budget <= 0 {
		opts.Budget = 200
	}
	if opts.WallClock <= 0 {
		opts.WallClock = 5 * time.Minute
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 3
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.PageCache == nil {
		opts.PageCache = cache.NewMemoryCache(time.Hour, time.Hour)
	}

	return &Orchestrator{
		provider:    opts.Provider,
		fallback:    opts.Fallback,
		gate:        opts.Gate,
		pageCache:   opts.PageCache,
		logger:      opts.Logger,
		budget:      opts.Budget,
		wallClock:   opts.WallClock,
		maxRetries:  opts.MaxRetries,
		useFallback: opts.Provider == nil,
	}
}

type frontierItem struct {
	url  string
	from string
}

// Crawl walks the domain starting at its root until the page budget is
// spent, the frontier is exhausted, or the wall clock expires. Every fetch
// attempt produces a PageRecord, failed ones included.
func (o *Orchestrator) Crawl(ctx context.Context, domain string, policy *compliance.Policy) []model.PageRecord {
	var records []model.PageRecord

	deadline := time.Now().Add(o.wallClock)
	frontier := []frontierItem{{url: "https://" + domain + "/"}}

	for len(frontier) > 0 && len(records) < o.budget {
		if time.Now().After(deadline) {
			o.logger.Warn("wall clock expired, stopping crawl",
				zap.String("domain", domain),
				zap.Int("pages", len(records)))
			break
		}
		if ctx.Err() != nil {
			break
		}

		item := frontier[0]
		frontier = frontier[1:]

		canonical, err := inventory.Canonicalize(item.url)
		if err != nil {
			continue
		}
		if !sameHost(canonical, domain) {
			continue
		}
		if !policy.Allowed(urlPath(canonical)) {
			o.logger.Debug("disallowed by exclusion policy", zap.String("url", canonical))
			continue
		}

		// run-scoped memoization: one fetch per canonical URL
		if _, seen := o.pageCache.Get(cache.Key(canonical)); seen {
			continue
		}
		_ = o.pageCache.Set(cache.Key(canonical), []byte{1}, 0)

		if err := o.gate.Wait(ctx); err != nil {
			break
		}

		result, method, err := o.fetch(ctx, item.url)
		record := model.PageRecord{
			URL:            item.url,
			DiscoveredFrom: item.from,
			FetchedAt:      time.Now().UTC(),
			Method:         method,
		}
		if err != nil {
			record.FailureNote = err.Error()
			o.logger.Debug("page fetch failed", zap.String("url", item.url), zap.Error(err))
		} else {
			record.Title = result.Title
			record.RawContent = result.Text
			record.HTTPStatus = result.Status
			if result.Status != 200 {
				record.FailureNote = "non-200 status"
			}
		}
		records = append(records, record)

		if record.Succeeded() && result != nil {
			for _, link := range result.Links {
				frontier = append(frontier, frontierItem{url: link, from: item.url})
			}
		}
	}

	o.logger.Info("crawl finished",
		zap.String("domain", domain),
		zap.Int("records", len(records)),
		zap.Int64("tokens_issued", o.gate.Issued()),
		zap.Bool("fallback_active", o.useFallback))

	return records
}

// fetch runs one page through the active provider. Provider-level errors
// are retried with exponential backoff; after maxRetries the orchestrator
// switches wholesale to the fallback for the rest of the budget.
func (o *Orchestrator) fetch(ctx context.Context, rawURL string) (*PageResult, model.FetchMethod, error) {
	if !o.useFallback {
		var lastErr error
		for attempt := 1; attempt <= o.maxRetries; attempt++ {
			result, err := o.provider.Fetch(ctx, rawURL)
			if err == nil {
				return result, model.FetchMethodProvider, nil
			}
			if !errors.Is(err, ErrProvider) {
				return nil, model.FetchMethodProvider, err
			}
			lastErr = err
			if attempt < o.maxRetries {
				crawlSleepFunc(ctx, time.Duration(1<<uint(attempt-1))*time.Second)
				if ctx.Err() != nil {
					return nil, model.FetchMethodProvider, ctx.Err()
				}
			}
		}
		o.useFallback = true
		o.logger.Warn("crawl provider exhausted retries, switching to fallback",
			zap.Error(lastErr))
	}

	if o.fallback == nil {
		return nil, model.FetchMethodFallback, errors.New("no fallback fetcher configured")
	}
	result, err := o.fallback.Fetch(ctx, rawURL)
	if err != nil {
		return nil, model.FetchMethodFallback, err
	}
	return result, model.FetchMethodFallback, nil
}

func sameHost(canonicalURL, domain string) bool {
	u, err := url.Parse(canonicalURL)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	domain = strings.ToLower(domain)
	return host == domain || host == "www."+domain
}

func urlPath(canonicalURL string) string {
	u, err := url.Parse(canonicalURL)
	if err != nil {
		return "/"
	}
	if u.Path == "" {
		return "/"
	}
	return u.Path
}
