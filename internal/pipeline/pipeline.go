// Package pipeline wires the stages into the single linear run flow:
// compliance gate, crawl, inventory, ranking, deep extraction, synthesis,
// validation, artifacts.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/okulov/siteintel/internal/cache"
	"github.com/okulov/siteintel/internal/compliance"
	"github.com/okulov/siteintel/internal/crawl"
	"github.com/okulov/siteintel/internal/extract"
	"github.com/okulov/siteintel/internal/inventory"
	"github.com/okulov/siteintel/internal/llm"
	"github.com/okulov/siteintel/internal/model"
	"github.com/okulov/siteintel/internal/rank"
	"github.com/okulov/siteintel/internal/synth"
	"github.com/okulov/siteintel/internal/validate"
	"github.com/okulov/siteintel/internal/worker"
)

// minHealthyPages and minHealthyUnits are the floors under which a run is
// flagged degraded. A degraded run still completes and publishes its
// artifact; the signal goes to the external notification collaborator.
const (
	minHealthyPages = 5
	minHealthyUnits = 5
)

// Pipeline orchestrates one complete run for a domain.
type Pipeline struct {
	config  *model.Config
	service llm.Service
	logger  *zap.Logger
}

// RunResult is everything a run produced.
type RunResult struct {
	Pack          *model.IntelligencePack
	Signal        model.DegradedSignal
	RunDir        string
	ArtifactPaths []string
}

// NewPipeline creates a pipeline from configuration. The extraction
// service may be the disabled one: the run still completes, degraded.
func NewPipeline(cfg *model.Config, service llm.Service, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{config: cfg, service: service, logger: logger}
}

// Run executes the full pipeline for one domain. Per-item failures are
// isolated at each stage; the final artifact always exists, with warnings
// embedded rather than the run failing outright.
func (p *Pipeline) Run(ctx context.Context, domain string) (*RunResult, error) {
	runID := newRunID()
	logger := p.logger.With(zap.String("domain", domain), zap.String("run_id", runID))
	logger.Info("run starting",
		zap.Int("page_budget", p.config.Crawl.PageBudget),
		zap.Int("deep_extract_count", p.config.Extract.DeepExtractCount))

	// 1. compliance gate: fail-open, pure function of domain
	gate := compliance.NewGate(p.config.HTTP.UserAgent, 10*time.Second)
	policy := gate.FetchPolicy(ctx, domain)
	logger.Info("exclusion policy",
		zap.Bool("fetched", policy.Fetched),
		zap.Int("disallow_paths", len(policy.DisallowPaths)))

	// 2. crawl under the shared rate gate and page budget
	pages := p.crawl(ctx, domain, policy, logger)
	crawledOK := 0
	for i := range pages {
		if pages[i].Succeeded() {
			crawledOK++
		}
	}
	logger.Info("crawl complete",
		zap.Int("pages", len(pages)), zap.Int("succeeded", crawledOK))

	// 3. inventory: canonicalize, fingerprint, cluster
	entries := inventory.NewBuilder().Build(pages)

	contentByURL := make(map[string]string, len(pages))
	knownPages := make(map[string]bool, len(pages))
	for i := range pages {
		contentByURL[pages[i].URL] = pages[i].RawContent
		knownPages[pages[i].URL] = true
	}

	// 4. relevance ranking over representatives
	ranked := rank.NewRanker(p.service, logger).Rank(ctx, entries, contentByURL)
	logger.Info("ranking complete", zap.Int("ranked", len(ranked)))

	// 5. deep extraction fan-out
	pageInputs := make([]extract.PageContent, 0, len(ranked))
	for _, re := range ranked {
		pageInputs = append(pageInputs, extract.PageContent{
			Entry:   re,
			Content: contentByURL[re.URL],
		})
	}
	coordinator := extract.NewCoordinator(p.service, p.config.Extract.TaskTimeout, p.config.Extract.MaxContentChars, logger)
	units := coordinator.Run(ctx, pageInputs, p.config.Extract.DeepExtractCount)

	nonEmptyUnits := 0
	for i := range units {
		if !units[i].Empty() {
			nonEmptyUnits++
		}
	}
	logger.Info("extraction complete",
		zap.Int("units", len(units)), zap.Int("non_empty", nonEmptyUnits))

	// 6. degraded-run signal
	signal := degradedSignal(crawledOK, nonEmptyUnits)
	if signal.Degraded {
		logger.Warn("run degraded", zap.String("reason", signal.Reason))
	}

	// 7. synthesis: deterministic re-keying after all tasks joined
	meta := model.SiteMetadata{
		Domain:         domain,
		RunID:          runID,
		GeneratedAt:    time.Now().UTC(),
		PagesCrawled:   crawledOK,
		PagesFailed:    len(pages) - crawledOK,
		UnitsExtracted: nonEmptyUnits,
		Degraded:       signal.Degraded,
		DegradedReason: signal.Reason,
	}
	pack := synth.NewSynthesizer().Build(meta, units)

	// 8. schema validation: warnings only, never halts
	result := validate.NewValidator().Check(pack, knownPages)
	pack.ValidationWarnings = result.Warnings
	if !result.Valid {
		logger.Warn("validation warnings", zap.Int("count", len(result.Warnings)))
	}

	// 9. immutable artifacts
	writer, err := NewArtifactWriter(p.config.Output.Dir, domain, runID)
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, artifact := range []struct {
		name string
		v    any
	}{
		{ArtifactInventory, entries},
		{ArtifactRankedPages, ranked},
		{ArtifactDeepExtract, units},
		{ArtifactPack, pack},
	} {
		path, err := writer.WriteJSON(artifact.name, artifact.v)
		if err != nil {
			return nil, fmt.Errorf("write %s: %w", artifact.name, err)
		}
		paths = append(paths, path)
	}

	logger.Info("run complete", zap.String("dir", writer.Dir()),
		zap.Bool("degraded", signal.Degraded))

	return &RunResult{
		Pack:          pack,
		Signal:        signal,
		RunDir:        writer.Dir(),
		ArtifactPaths: paths,
	}, nil
}

func (p *Pipeline) crawl(ctx context.Context, domain string, policy *compliance.Policy, logger *zap.Logger) []model.PageRecord {
	var provider crawl.Provider
	if p.config.Crawl.ProviderBaseURL != "" {
		provider = crawl.NewAPIProvider(
			p.config.Crawl.ProviderBaseURL,
			p.config.Crawl.ProviderAPIKey,
			p.config.HTTP.UserAgent,
			p.config.HTTP.Timeout,
			p.config.HTTP.HTTPProxy, p.config.HTTP.HTTPSProxy, p.config.HTTP.NoProxy,
		)
	}
	fallback := crawl.NewFallback(
		p.config.HTTP.Timeout,
		p.config.HTTP.UserAgent,
		p.config.HTTP.MaxBodyBytes,
		p.config.HTTP.HTTPProxy, p.config.HTTP.HTTPSProxy, p.config.HTTP.NoProxy,
	)

	orchestrator := crawl.NewOrchestrator(crawl.Options{
		Provider:   provider,
		Fallback:   fallback,
		Gate:       worker.NewGate(p.config.Crawl.RequestsPerSecond),
		PageCache:  cache.NewMemoryCache(time.Hour, 10*time.Minute),
		Logger:     logger,
		Budget:     p.config.Crawl.PageBudget,
		WallClock:  p.config.Crawl.WallClock,
		MaxRetries: p.config.Crawl.MaxRetries,
	})

	return orchestrator.Crawl(ctx, domain, policy)
}

// degradedSignal applies the 5-page and 5-unit floors.
func degradedSignal(crawledOK, nonEmptyUnits int) model.DegradedSignal {
	var reasons []string
	if crawledOK < minHealthyPages {
		reasons = append(reasons,
			fmt.Sprintf("crawled %d pages, floor is %d", crawledOK, minHealthyPages))
	}
	if nonEmptyUnits < minHealthyUnits {
		reasons = append(reasons,
			fmt.Sprintf("extracted %d non-empty units, floor is %d", nonEmptyUnits, minHealthyUnits))
	}
	if len(reasons) == 0 {
		return model.DegradedSignal{}
	}
	return model.DegradedSignal{
		Degraded: true,
		Reason:   strings.Join(reasons, "; "),
	}
}

// newRunID composes a sortable timestamp with a random suffix.
func newRunID() string {
	return time.Now().UTC().Format("20060102T150405Z") + "-" + uuid.NewString()[:8]
}
