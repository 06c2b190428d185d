package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nao1215/pagecrawl/internal/crawler"
	"github.com/nao1215/pagecrawl/internal/model"
	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency is the number of seeds crawled at once when
// WithConcurrency is not used.
const DefaultConcurrency = 4

// RunFactory builds the spider and pipeline for one seed. It is called once
// per seed so that per-site settings and per-run step state stay separate.
type RunFactory func(seed string) (*crawler.Spider, *Pipeline, error)

// BatchProcessor crawls multiple seeds concurrently.
// Every seed gets its own run and pipeline; a failing seed does not stop
// the others.
type BatchProcessor struct {
	// factory creates the spider and pipeline for each seed.
	factory RunFactory

	// concurrency is the maximum number of simultaneous runs.
	concurrency int

	// logger is used for batch-level logging.
	logger *slog.Logger
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of simultaneous runs.
// Values below one are ignored.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// NewBatchProcessor creates a new BatchProcessor.
func NewBatchProcessor(factory RunFactory, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		factory:     factory,
		concurrency: DefaultConcurrency,
	}

	for _, opt := range opts {
		opt(bp)
	}

	if bp.logger == nil {
		bp.logger = slog.Default()
	}

	return bp
}

// Concurrency returns the configured run limit.
func (bp *BatchProcessor) Concurrency() int {
	return bp.concurrency
}

// ProcessBatch crawls every seed and returns one summary per seed, in the
// order of seeds. Failed runs are reported in their summary, not in the
// returned error. The error is non-nil only when ctx was cancelled; seeds
// that never started then get a cancelled summary.
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, seeds []string) ([]*model.RunSummary, error) {
	results := make([]*model.RunSummary, len(seeds))

	err := bp.ProcessBatchWithCallback(ctx, seeds, func(summary *model.RunSummary, index int) {
		results[index] = summary
	})

	for i, seed := range seeds {
		if results[i] != nil {
			continue
		}
		summary := &model.RunSummary{Seed: seed}
		summary.SetOutcome(model.OutcomeCancelled)
		if err != nil {
			summary.Error = err
			summary.ErrorMessage = err.Error()
		}
		results[i] = summary
	}

	return results, err
}

// ProcessBatchWithCallback crawls every seed and calls callback with each
// summary as its run ends. callback is called from the goroutine that ran
// the seed, but never concurrently for the same index.
func (bp *BatchProcessor) ProcessBatchWithCallback(
	ctx context.Context,
	seeds []string,
	callback func(summary *model.RunSummary, index int),
) error {
	bp.logger.Info("starting batch",
		"total_seeds", len(seeds),
		"concurrency", bp.concurrency,
	)

	startTime := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.concurrency)

	for i, seed := range seeds {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			bp.logger.Info("crawling seed",
				"seed", seed,
				"index", i+1,
				"total", len(seeds),
			)

			summary, err := bp.runOne(gctx, seed)
			callback(summary, i)

			// Per-seed failures are recorded in the summary.
			if err != nil {
				bp.logger.Warn("crawl failed",
					"seed", seed,
					"error", err,
				)
			}
			return nil
		})
	}

	err := g.Wait()
	if err == nil {
		err = ctx.Err()
	}

	bp.logger.Info("batch complete",
		"total_seeds", len(seeds),
		"elapsed", time.Since(startTime),
	)

	return err
}

// runOne builds and runs the pipeline for one seed.
func (bp *BatchProcessor) runOne(ctx context.Context, seed string) (*model.RunSummary, error) {
	spider, p, err := bp.factory(seed)
	if err != nil {
		now := time.Now()
		summary := &model.RunSummary{Seed: seed, StartedAt: now, FinishedAt: now}
		err = fmt.Errorf("failed to prepare crawl of %s: %w", seed, err)
		summary.Fail(err)
		return summary, err
	}
	return p.Run(ctx, spider, seed)
}
