// Package metrics exposes Prometheus collectors for the crawler pipeline.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	fetchAttemptsTotal    *prometheus.CounterVec
	fetchRetriesTotal     prometheus.Counter
	rateLimitDelaySeconds prometheus.Histogram
	ingestsTotal          *prometheus.CounterVec
	batchDurationSeconds  prometheus.Histogram
	activeWorkers         prometheus.Gauge

	once sync.Once
)

// Init registers the collectors with the default registry. Safe to call more
// than once.
func Init() {
	once.Do(func() {
		fetchAttemptsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "newscrawler_fetch_attempts_total",
				Help: "Total fetch attempts, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		fetchRetriesTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "newscrawler_fetch_retries_total",
				Help: "Total fetch retries after a transient failure.",
			},
		)

		rateLimitDelaySeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "newscrawler_rate_limit_delay_seconds",
				Help:    "Time spent waiting on the global rate limiter.",
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
		)

		ingestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "newscrawler_ingests_total",
				Help: "Total article ingest attempts, labeled by status.",
			},
			[]string{"status"},
		)

		batchDurationSeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "newscrawler_batch_duration_seconds",
				Help:    "Wall time of one concurrent batch, dispatch to join.",
				Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
			},
		)

		activeWorkers = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "newscrawler_active_workers",
				Help: "Number of in-flight URL pipelines.",
			},
		)
	})
}

// IncFetchAttempt records one fetch attempt with its outcome ("ok" or "error").
func IncFetchAttempt(outcome string) {
	if fetchAttemptsTotal != nil {
		fetchAttemptsTotal.WithLabelValues(outcome).Inc()
	}
}

// IncFetchRetry records one retry dispatch.
func IncFetchRetry() {
	if fetchRetriesTotal != nil {
		fetchRetriesTotal.Inc()
	}
}

// ObserveRateLimitDelay records time spent blocked on the token bucket.
func ObserveRateLimitDelay(d time.Duration) {
	if rateLimitDelaySeconds != nil {
		rateLimitDelaySeconds.Observe(d.Seconds())
	}
}

// IncIngest records one ingest attempt with its status ("ok" or "error").
func IncIngest(status string) {
	if ingestsTotal != nil {
		ingestsTotal.WithLabelValues(status).Inc()
	}
}

// ObserveBatchDuration records how long one batch took to settle.
func ObserveBatchDuration(d time.Duration) {
	if batchDurationSeconds != nil {
		batchDurationSeconds.Observe(d.Seconds())
	}
}

// WorkerStarted marks one URL pipeline as in flight.
func WorkerStarted() {
	if activeWorkers != nil {
		activeWorkers.Inc()
	}
}

// WorkerFinished marks one URL pipeline as settled.
func WorkerFinished() {
	if activeWorkers != nil {
		activeWorkers.Dec()
	}
}
