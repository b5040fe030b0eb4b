// Package worker drives URL batches through the fetch, extract, and ingest
// pipeline with bounded concurrency.
package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mediapulse/article-crawler/internal/crawler"
	"github.com/mediapulse/article-crawler/internal/metrics"
)

// Config controls batching behavior.
type Config struct {
	MaxConcurrent int
	BatchDelay    time.Duration
}

// Worker executes batch runs. One URL's failure never affects the others;
// failed URLs are logged and dropped from the result set.
type Worker struct {
	fetcher   crawler.Fetcher
	extractor crawler.Extractor
	store     crawler.ArticleStore
	cfg       Config
	logger    *zap.Logger
}

// New constructs a Worker. MaxConcurrent defaults to 3 and BatchDelay to 1s.
func New(
	fetcher crawler.Fetcher,
	extractor crawler.Extractor,
	store crawler.ArticleStore,
	cfg Config,
	logger *zap.Logger,
) *Worker {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 3
	}
	if cfg.BatchDelay <= 0 {
		cfg.BatchDelay = time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Worker{
		fetcher:   fetcher,
		extractor: extractor,
		store:     store,
		cfg:       cfg,
		logger:    logger,
	}
}

// Run partitions urls into contiguous batches of maxConcurrent (the
// configured default when maxConcurrent is not positive), processes each
// batch fully before starting the next, and pauses between batches. The
// result holds only the successfully stored articles, in completion order
// within each batch. Once ctx fails no further batches are dispatched.
func (w *Worker) Run(ctx context.Context, urls []string, maxConcurrent int) []crawler.ArticleRecord {
	if maxConcurrent <= 0 {
		maxConcurrent = w.cfg.MaxConcurrent
	}

	logger := w.logger.With(zap.String("run_id", uuid.NewString()))
	logger.Info("run started",
		zap.Int("urls", len(urls)),
		zap.Int("max_concurrent", maxConcurrent),
	)

	records := make([]crawler.ArticleRecord, 0, len(urls))
	for start := 0; start < len(urls); start += maxConcurrent {
		if start > 0 {
			if err := w.pause(ctx); err != nil {
				logger.Warn("run interrupted between batches", zap.Error(err))
				break
			}
		}
		end := start + maxConcurrent
		if end > len(urls) {
			end = len(urls)
		}
		records = append(records, w.runBatch(ctx, logger, urls[start:end])...)
	}

	logger.Info("run complete",
		zap.Int("urls", len(urls)),
		zap.Int("succeeded", len(records)),
		zap.Int("failed", len(urls)-len(records)),
	)
	return records
}

// runBatch dispatches every URL in the batch concurrently and waits for all
// of them to settle before returning.
func (w *Worker) runBatch(ctx context.Context, logger *zap.Logger, batch []string) []crawler.ArticleRecord {
	start := time.Now()
	results := make(chan crawler.ArticleRecord, len(batch))

	var wg sync.WaitGroup
	for _, url := range batch {
		wg.Add(1)
		go func(url string) {
			defer wg.Done()
			metrics.WorkerStarted()
			defer metrics.WorkerFinished()

			record, err := w.processURL(ctx, logger, url)
			if err != nil {
				// Dropped from the result set, not fatal to the batch.
				logger.Warn("url failed", zap.String("url", url), zap.Error(err))
				return
			}
			results <- record
		}(url)
	}
	wg.Wait()
	close(results)

	records := make([]crawler.ArticleRecord, 0, len(batch))
	for record := range results {
		records = append(records, record)
	}
	metrics.ObserveBatchDuration(time.Since(start))
	return records
}

func (w *Worker) processURL(ctx context.Context, logger *zap.Logger, url string) (crawler.ArticleRecord, error) {
	rawHTML, err := w.fetcher.Fetch(ctx, url)
	if err != nil {
		return crawler.ArticleRecord{}, fmt.Errorf("fetch: %w", err)
	}

	data, err := w.extractor.Extract(rawHTML, url)
	if err != nil {
		return crawler.ArticleRecord{}, fmt.Errorf("extract: %w", err)
	}

	record, err := w.store.Ingest(ctx, data)
	if err != nil {
		metrics.IncIngest("error")
		return crawler.ArticleRecord{}, fmt.Errorf("ingest %q: %w", data.Title, err)
	}
	metrics.IncIngest("ok")

	logger.Debug("article stored",
		zap.String("url", url),
		zap.String("title", record.Title),
		zap.Int64("article_id", record.ID),
	)
	return record, nil
}

// pause waits out the inter-batch delay, a load-shedding courtesy separate
// from the fetcher's own rate limiter.
func (w *Worker) pause(ctx context.Context) error {
	timer := time.NewTimer(w.cfg.BatchDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
