package utils

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the prediction pipeline.
type Metrics struct {
	predictRequests    *prometheus.CounterVec
	predictLatency     prometheus.Histogram
	inferenceLatency   prometheus.Histogram
	cacheHits          prometheus.Counter
	cacheMisses        prometheus.Counter
	validationFailures *prometheus.CounterVec
	cacheEntries       prometheus.Gauge
	warmupCompleted    prometheus.Gauge
	batchRuns          prometheus.Counter
	batchFiles         *prometheus.CounterVec
}

// NewMetrics creates and registers all prediction metrics with reg. The
// server passes prometheus.DefaultRegisterer; tests pass a fresh registry so
// repeated construction never collides.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		predictRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "predict_requests_total",
				Help: "Total number of predict requests by outcome",
			},
			[]string{"status"},
		),
		predictLatency: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "predict_latency_ms",
				Help:    "End-to-end predict request latency in milliseconds",
				Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
			},
		),
		inferenceLatency: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "inference_latency_ms",
				Help:    "Model inference latency in milliseconds, cache misses only",
				Buckets: []float64{0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
			},
		),
		cacheHits: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "prediction_cache_hits_total",
				Help: "Total number of predictions served from the cache",
			},
		),
		cacheMisses: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "prediction_cache_misses_total",
				Help: "Total number of predictions that ran inference",
			},
		),
		validationFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "validation_failures_total",
				Help: "Total number of rejected uploads by validation stage",
			},
			[]string{"stage"},
		),
		cacheEntries: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "prediction_cache_entries",
				Help: "Current number of entries in the prediction cache",
			},
		),
		warmupCompleted: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "model_warmup_completed",
				Help: "Whether model warmup has completed (0 or 1)",
			},
		),
		batchRuns: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "batch_runs_total",
				Help: "Total number of archive batch runs",
			},
		),
		batchFiles: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "batch_files_total",
				Help: "Total number of batch-processed files by result",
			},
			[]string{"result"},
		),
	}
}

// RecordRequest counts one predict request with its outcome label:
// "success" or the error type name.
func (m *Metrics) RecordRequest(status string) {
	m.predictRequests.WithLabelValues(status).Inc()
}

// RecordPredictLatency records the end-to-end latency of one predict request.
func (m *Metrics) RecordPredictLatency(milliseconds float64) {
	m.predictLatency.Observe(milliseconds)
}

// RecordInferenceLatency records the latency of one model inference.
func (m *Metrics) RecordInferenceLatency(milliseconds float64) {
	m.inferenceLatency.Observe(milliseconds)
}

// IncrementCacheHits counts a prediction served from cache.
func (m *Metrics) IncrementCacheHits() {
	m.cacheHits.Inc()
}

// IncrementCacheMisses counts a prediction that ran inference.
func (m *Metrics) IncrementCacheMisses() {
	m.cacheMisses.Inc()
}

// RecordValidationFailure counts a rejected upload by validation stage.
func (m *Metrics) RecordValidationFailure(stage string) {
	m.validationFailures.WithLabelValues(stage).Inc()
}

// SetCacheEntries sets the current cache entry count.
func (m *Metrics) SetCacheEntries(count int) {
	m.cacheEntries.Set(float64(count))
}

// SetWarmupCompleted flags whether warmup finished.
func (m *Metrics) SetWarmupCompleted(done bool) {
	if done {
		m.warmupCompleted.Set(1)
	} else {
		m.warmupCompleted.Set(0)
	}
}

// RecordBatchRun counts one archive batch run and its per-file outcomes.
func (m *Metrics) RecordBatchRun(succeeded, failed int) {
	m.batchRuns.Inc()
	m.batchFiles.WithLabelValues("success").Add(float64(succeeded))
	m.batchFiles.WithLabelValues("failure").Add(float64(failed))
}
