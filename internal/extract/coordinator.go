// Package extract fans selected pages out to the structured-extraction
// service under bounded parallelism with per-task failure isolation.
package extract

import (
	"context"
	"sort"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/okulov/siteintel/internal/llm"
	"github.com/okulov/siteintel/internal/model"
	"github.com/okulov/siteintel/internal/worker"
)

const (
	// maxPoolSize bounds the worker pool regardless of K.
	maxPoolSize = 10

	// sequentialThreshold is the K below which the pool is not worth
	// spinning up; the per-page logic is identical either way.
	sequentialThreshold = 3
)

// PageContent pairs a ranked entry with its crawled text.
type PageContent struct {
	Entry   model.RankedEntry
	Content string
}

// Coordinator runs deep extraction over the top-K ranked pages.
type Coordinator struct {
	service         llm.Service
	taskTimeout     time.Duration
	maxContentChars int
	logger          *zap.Logger
}

// NewCoordinator creates a deep extraction coordinator.
func NewCoordinator(service llm.Service, taskTimeout time.Duration, maxContentChars int, logger *zap.Logger) *Coordinator {
	if taskTimeout <= 0 {
		taskTimeout = 90 * time.Second
	}
	if maxContentChars <= 0 {
		maxContentChars = 50_000
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Coordinator{
		service:         service,
		taskTimeout:     taskTimeout,
		maxContentChars: maxContentChars,
		logger:          logger,
	}
}

// Run extracts the top-K pages by rank. Tasks are stateless and
// independent: a failed or timed-out task yields a placeholder unit and
// never cancels its siblings. Results are returned in rank order so output
// never depends on task completion order.
func (c *Coordinator) Run(ctx context.Context, pages []PageContent, k int) []model.ExtractionUnit {
	selected := selectTopK(pages, k)
	if len(selected) == 0 {
		return nil
	}

	var units []model.ExtractionUnit
	if len(selected) >= sequentialThreshold {
		units = c.runPooled(ctx, selected)
	} else {
		units = c.runSequential(ctx, selected)
	}

	sort.Slice(units, func(a, b int) bool {
		return units[a].Rank < units[b].Rank
	})

	return units
}

func (c *Coordinator) runSequential(ctx context.Context, pages []PageContent) []model.ExtractionUnit {
	units := make([]model.ExtractionUnit, 0, len(pages))
	for _, page := range pages {
		units = append(units, c.extractOne(ctx, page))
	}
	return units
}

func (c *Coordinator) runPooled(ctx context.Context, pages []PageContent) []model.ExtractionUnit {
	size := len(pages)
	if size > maxPoolSize {
		size = maxPoolSize
	}

	pool := worker.NewPool(size, len(pages))
	pool.Start()

	for _, page := range pages {
		pool.Submit(&extractJob{coordinator: c, parent: ctx, page: page})
	}

	results := pool.Wait()

	units := make([]model.ExtractionUnit, 0, len(results))
	for _, res := range results {
		units = append(units, res.(*extractResult).unit)
	}
	return units
}

// extractOne is the per-page logic shared by both execution paths.
func (c *Coordinator) extractOne(ctx context.Context, page PageContent) model.ExtractionUnit {
	unit := model.ExtractionUnit{
		SourceURL:    page.Entry.URL,
		SourceTitle:  page.Entry.Title,
		Rank:         page.Entry.Rank,
		EntityFields: map[string]model.FieldValue{},
		Evidence:     map[string]string{},
		ExtractedAt:  time.Now().UTC(),
	}

	content := truncateContent(page.Content, c.maxContentChars)

	taskCtx, cancel := context.WithTimeout(ctx, c.taskTimeout)
	defer cancel()

	record, err := c.service.Extract(taskCtx, llm.ExtractRequest{
		URL:     page.Entry.URL,
		Title:   page.Entry.Title,
		Content: content,
	})
	if err != nil {
		unit.Failed = true
		unit.FailureNote = err.Error()
		c.logger.Debug("extraction task failed",
			zap.String("url", page.Entry.URL), zap.Error(err))
		return unit
	}

	unit.Summary = record.Summary
	for dim, field := range record.EntityFields {
		unit.EntityFields[dim] = model.FieldValue{
			Value:       field.Value,
			EvidenceIDs: field.Evidence,
		}
	}
	for id, excerpt := range record.Evidence {
		unit.Evidence[id] = excerpt
	}

	return unit
}

// truncateContent applies the content ceiling, backing off to a rune
// boundary so the cut never emits an invalid trailing byte.
func truncateContent(content string, limit int) string {
	if len(content) <= limit {
		return content
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(content[cut]) {
		cut--
	}
	return content[:cut]
}

// selectTopK returns the K best-ranked pages. Input order is not assumed.
func selectTopK(pages []PageContent, k int) []PageContent {
	sorted := make([]PageContent, len(pages))
	copy(sorted, pages)
	sort.Slice(sorted, func(a, b int) bool {
		return sorted[a].Entry.Rank < sorted[b].Entry.Rank
	})

	if k > 0 && k < len(sorted) {
		sorted = sorted[:k]
	}
	return sorted
}

type extractJob struct {
	coordinator *Coordinator
	parent      context.Context
	page        PageContent
}

// Execute runs the job. The pool's context only signals shutdown; the
// task's own deadline comes from the coordinator.
func (j *extractJob) Execute(poolCtx context.Context) worker.Result {
	ctx := j.parent
	if ctx == nil {
		ctx = poolCtx
	}
	return &extractResult{unit: j.coordinator.extractOne(ctx, j.page)}
}

type extractResult struct {
	unit model.ExtractionUnit
}

// GetError reports per-task failure; placeholder units are not pool errors.
func (r *extractResult) GetError() error {
	return nil
}
