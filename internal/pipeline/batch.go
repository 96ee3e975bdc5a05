package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/Jekudy/MuSync/internal/metrics"
	"github.com/Jekudy/MuSync/internal/models"
	"github.com/Jekudy/MuSync/internal/providers"
	"github.com/Jekudy/MuSync/internal/shared"
)

const (
	// DefaultBatchSize matches the target provider's per-request limit.
	DefaultBatchSize = 100
	// DefaultMaxRetries bounds transient-failure retries per batch.
	DefaultMaxRetries = 3
)

// BatchProcessor drives batch writes against the target provider with
// bounded retry and rate-limit back-off.
//
// Rate-limit waits never count against the retry budget: being told to
// wait is expected behavior, not a failure. Any other error is treated
// as transient and retried with exponential back-off (1s, 2s, 4s, ...)
// until the attempt budget is exhausted.
type BatchProcessor struct {
	target     providers.Provider
	batchSize  int
	maxRetries int
	logger     *log.Logger
	collector  *metrics.Collector

	// sleep is replaceable in tests.
	sleep func(time.Duration)
}

// NewBatchProcessor creates a processor writing through the target
// provider. Non-positive sizes fall back to the defaults.
func NewBatchProcessor(target providers.Provider, batchSize, maxRetries int, logger *log.Logger) *BatchProcessor {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &BatchProcessor{
		target:     target,
		batchSize:  batchSize,
		maxRetries: maxRetries,
		logger:     logger,
		sleep:      time.Sleep,
	}
}

// SetCollector attaches a metrics collector recording retries and waits.
func (p *BatchProcessor) SetCollector(collector *metrics.Collector) {
	p.collector = collector
}

// BatchSize returns the configured batch size.
func (p *BatchProcessor) BatchSize() int {
	return p.batchSize
}

// SplitIntoBatches chunks URIs into fixed-size batches preserving input
// order; the last batch may be shorter.
func (p *BatchProcessor) SplitIntoBatches(uris []string) [][]string {
	var batches [][]string
	for start := 0; start < len(uris); start += p.batchSize {
		end := start + p.batchSize
		if end > len(uris) {
			end = len(uris)
		}
		batches = append(batches, uris[start:end])
	}
	return batches
}

// ProcessBatch writes one batch of URIs to the target playlist. In dry-run
// mode it returns a synthetic success without touching the provider.
func (p *BatchProcessor) ProcessBatch(ctx context.Context, playlistID string, uris []string, jobID string, batchIndex int, dryRun bool) (models.AddResult, error) {
	if dryRun {
		p.logger.Info("dry-run: skipping batch write", "job", jobID, "batch", batchIndex, "tracks", len(uris))
		return models.AddResult{Added: len(uris)}, nil
	}

	return p.runWithRetry(ctx, jobID, batchIndex, func() (models.AddResult, error) {
		return p.target.AddTracksBatch(ctx, playlistID, uris)
	})
}

// ProcessLikesBatch writes one batch of URIs into the user's liked
// collection with the same retry policy as ProcessBatch.
func (p *BatchProcessor) ProcessLikesBatch(ctx context.Context, uris []string, jobID string, batchIndex int, dryRun bool) (models.AddResult, error) {
	if dryRun {
		p.logger.Info("dry-run: skipping likes batch write", "job", jobID, "batch", batchIndex, "tracks", len(uris))
		return models.AddResult{Added: len(uris)}, nil
	}

	return p.runWithRetry(ctx, jobID, batchIndex, func() (models.AddResult, error) {
		return p.target.AddLikesBatch(ctx, uris)
	})
}

func (p *BatchProcessor) runWithRetry(ctx context.Context, jobID string, batchIndex int, write func() (models.AddResult, error)) (models.AddResult, error) {
	attempt := 0
	for {
		p.logger.Debug("processing batch", "job", jobID, "batch", batchIndex, "attempt", attempt+1)

		result, err := write()
		if err == nil {
			p.logger.Info("batch completed",
				"job", jobID, "batch", batchIndex,
				"added", result.Added, "duplicates", result.Duplicates, "errors", result.Errors)
			return result, nil
		}

		if rl, ok := shared.AsRateLimit(err); ok {
			// Not counted against the retry budget.
			p.logger.Warn("rate limited", "job", jobID, "batch", batchIndex, "wait", rl.RetryAfter)
			if p.collector != nil {
				p.collector.RecordRateLimitWait(rl.RetryAfter)
			}
			p.sleep(rl.RetryAfter)
			continue
		}

		attempt++
		if attempt > p.maxRetries {
			p.logger.Error("max retries exceeded", "job", jobID, "batch", batchIndex, "err", err)
			return models.AddResult{}, fmt.Errorf("%w: batch %d failed after %d retries: %v",
				shared.ErrTemporaryFailure, batchIndex, p.maxRetries, err)
		}

		backoff := time.Duration(1<<(attempt-1)) * time.Second
		p.logger.Warn("batch failed, retrying",
			"job", jobID, "batch", batchIndex, "attempt", attempt, "backoff", backoff, "err", err)
		if p.collector != nil {
			p.collector.RecordRetry()
		}
		p.sleep(backoff)
	}
}
