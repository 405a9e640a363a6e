package metrics

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// LLM metrics
	llmRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vocabforge_llm_request_duration_seconds",
			Help:    "LLM generate request duration in seconds by model",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 11), // 0.5s to ~512s
		},
		[]string{"model", "status"},
	)

	llmRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vocabforge_llm_requests_total",
			Help: "Total LLM generate requests by outcome",
		},
		[]string{"status"}, // "success", "transport_error", "malformed"
	)

	rateLimiterWaitDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "vocabforge_rate_limiter_wait_duration_seconds",
			Help:    "Time spent waiting on the LLM rate limiter",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 15), // 1ms to ~32s
		},
	)

	// Batch workflow metrics
	batchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vocabforge_batch_duration_seconds",
			Help:    "Batch processing duration including retries",
			Buckets: prometheus.ExponentialBuckets(1, 2, 11), // 1s to ~1024s
		},
		[]string{"theme"},
	)

	batches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vocabforge_batches_total",
			Help: "Batches processed by theme and status",
		},
		[]string{"theme", "status"},
	)

	wordsGenerated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vocabforge_words_generated_total",
			Help: "Words that received at least one accepted sentence",
		},
		[]string{"theme"},
	)

	sentencesRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vocabforge_sentences_rejected_total",
			Help: "Candidate sentences dropped by part-of-speech validation",
		},
		[]string{"pos"},
	)

	activeJobs = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "vocabforge_jobs_active",
			Help: "Number of batch jobs currently processing",
		},
	)
)

// Collector provides convenience methods for recording metrics.
// A nil *Collector is valid and records nothing.
type Collector struct {
	logger *slog.Logger
}

// NewCollector creates a new metrics collector
func NewCollector(logger *slog.Logger) *Collector {
	return &Collector{logger: logger}
}

// RecordLLMRequest records one generate call and its outcome
func (c *Collector) RecordLLMRequest(model string, duration time.Duration, status string) {
	if c == nil {
		return
	}
	outcome := "success"
	if status != "success" {
		outcome = "error"
	}
	llmRequestDuration.WithLabelValues(model, outcome).Observe(duration.Seconds())
	llmRequests.WithLabelValues(status).Inc()
}

// RecordRateLimiterWait records rate limiter wait time
func (c *Collector) RecordRateLimiterWait(duration time.Duration) {
	if c == nil {
		return
	}
	rateLimiterWaitDuration.Observe(duration.Seconds())
}

// RecordBatch records a finished batch
func (c *Collector) RecordBatch(theme string, duration time.Duration, success bool, wordsWithSentences int) {
	if c == nil {
		return
	}
	status := "completed"
	if !success {
		status = "failed"
	}
	batchDuration.WithLabelValues(theme).Observe(duration.Seconds())
	batches.WithLabelValues(theme, status).Inc()
	if wordsWithSentences > 0 {
		wordsGenerated.WithLabelValues(theme).Add(float64(wordsWithSentences))
	}
}

// RecordRejectedSentence counts a sentence dropped by the usage validator
func (c *Collector) RecordRejectedSentence(pos string) {
	if c == nil {
		return
	}
	sentencesRejected.WithLabelValues(pos).Inc()
}

// JobStarted increments the active job gauge
func (c *Collector) JobStarted() {
	if c == nil {
		return
	}
	activeJobs.Inc()
}

// JobFinished decrements the active job gauge
func (c *Collector) JobFinished() {
	if c == nil {
		return
	}
	activeJobs.Dec()
}
