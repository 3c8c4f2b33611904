package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/okulov/siteintel/internal/logging"
)

var (
	batchConcurrency int
	batchTimeout     time.Duration
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <file>",
	Short: "Run the pipeline for multiple domains from a file",
	Long: `Batch reads domains from a file (one per line, # comments allowed)
and runs the full pipeline for each. Domains run concurrently up to the
configured limit; each domain's crawl still honors its own rate gate.

Example:
  siteintel batch domains.txt
  siteintel batch domains.txt --concurrency 4 --pages 50`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().IntVar(&batchConcurrency, "concurrency", 3, "number of domains processed in parallel")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 2*time.Hour, "total batch timeout")

	// per-domain knobs shared with run
	batchCmd.Flags().IntVar(&pageBudget, "pages", 200, "crawl page budget per domain")
	batchCmd.Flags().IntVar(&deepExtract, "deep-extract", 15, "number of top-ranked pages to deep-extract")
	batchCmd.Flags().StringVar(&outputDir, "out", "./siteintel-runs", "artifact output directory")
	batchCmd.Flags().Float64Var(&rps, "rps", 1.5, "per-domain requests per second")
	batchCmd.Flags().DurationVar(&wallClock, "wall-clock", 5*time.Minute, "crawl wall-clock ceiling per domain")
	batchCmd.Flags().DurationVar(&httpTimeout, "http-timeout", 30*time.Second, "per-request HTTP timeout")
	batchCmd.Flags().StringVar(&userAgent, "ua", "siteintel/0.1 (+https://github.com/okulov/siteintel)", "HTTP User-Agent")
	batchCmd.Flags().Int64Var(&maxBytes, "max-bytes", 2_000_000, "max response bytes to read")
	batchCmd.Flags().StringVar(&providerURL, "provider-url", "", "hosted crawl provider base URL")
	batchCmd.Flags().StringVar(&llmProvider, "llm-provider", "", "extraction provider (openai, ollama)")
	batchCmd.Flags().StringVar(&llmModel, "llm-model", "", "extraction model name")
	batchCmd.Flags().DurationVar(&extractTmout, "extract-timeout", 90*time.Second, "per-task extraction timeout")
}

func runBatch(cmd *cobra.Command, args []string) error {
	domains, err := readDomains(args[0])
	if err != nil {
		return err
	}
	if len(domains) == 0 {
		return fmt.Errorf("no domains in %s", args[0])
	}

	ctx, cancel := context.WithTimeout(context.Background(), batchTimeout)
	defer cancel()

	cfg, err := buildConfig()
	if err != nil {
		return err
	}

	logger, err := logging.New(verbose)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	p, err := newPipeline(cfg, logger)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "⚙  Processing %d domains with %d workers...\n", len(domains), batchConcurrency)

	var mu sync.Mutex
	failures := 0

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(batchConcurrency)
	for _, domain := range domains {
		domain := domain
		g.Go(func() error {
			result, err := p.Run(gctx, domain)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failures++
				fmt.Fprintf(os.Stderr, "✗ %s: %v\n", domain, err)
				return nil // one domain failing never cancels the batch
			}
			reportRun(domain, result)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "\nBatch complete: %d domains, %d failures\n", len(domains), failures)
	return nil
}

// readDomains reads domains from a file, one per line, skipping blanks and
// # comments, deduplicating.
func readDomains(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var domains []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if !seen[line] {
			seen[line] = true
			domains = append(domains, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return domains, nil
}
