package pipeline

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

// Loader loads the document for a target and wraps it in a job.
type Loader func(ctx context.Context, target string) (*Job, error)

// Factory builds the pipeline for a target. Each target gets its own
// pipeline so per-page state such as the package URL resolver is not
// shared between pages.
type Factory func(target string) *Pipeline

// Result is the outcome of one target in a batch.
type Result struct {
	// Target is the input as given.
	Target string

	// Job holds the enhanced document and its pass. Nil when loading failed.
	Job *Job

	// Err is the load or pipeline error, if any.
	Err error
}

// BatchProcessor enhances multiple documents concurrently.
type BatchProcessor struct {
	loader      Loader
	factory     Factory
	concurrency int
	logger      *slog.Logger
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of documents processed at once.
// Default is 4 if not specified.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// NewBatchProcessor creates a new BatchProcessor.
func NewBatchProcessor(loader Loader, factory Factory, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		loader:      loader,
		factory:     factory,
		concurrency: 4,
	}
	for _, opt := range opts {
		opt(bp)
	}
	if bp.logger == nil {
		bp.logger = slog.Default()
	}
	return bp
}

// ProcessBatch enhances every target and returns the results in input
// order. A failing target does not stop the others; the returned error is
// non-nil only when ctx ends the batch, in which case targets that never
// started have a nil entry.
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, targets []string) ([]*Result, error) {
	results := make([]*Result, len(targets))
	err := bp.ProcessBatchWithCallback(ctx, targets, func(r *Result, index int) {
		results[index] = r
	})
	return results, err
}

// ProcessBatchWithCallback enhances every target and calls callback as
// each one completes. callback runs on the worker goroutine and must be
// safe for concurrent use.
func (bp *BatchProcessor) ProcessBatchWithCallback(
	ctx context.Context,
	targets []string,
	callback func(result *Result, index int),
) error {
	bp.logger.Debug("starting batch processing",
		"total_targets", len(targets),
		"concurrency", bp.concurrency,
	)
	startTime := time.Now()

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.concurrency)

	for i, target := range targets {
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			callback(bp.process(ctx, target), i)
			return nil
		})
	}

	err := g.Wait()
	bp.logger.Debug("batch processing complete",
		"total_targets", len(targets),
		"elapsed", time.Since(startTime),
	)
	return err
}

func (bp *BatchProcessor) process(ctx context.Context, target string) *Result {
	result := &Result{Target: target}

	job, err := bp.loader(ctx, target)
	if err != nil {
		bp.logger.Warn("failed to load document", "target", target, "error", err)
		result.Err = err
		return result
	}
	result.Job = job

	if err := bp.factory(target).Execute(ctx, job); err != nil {
		bp.logger.Warn("enhancement failed", "target", target, "error", err)
		result.Err = err
	}
	return result
}
