package metrics

import (
	"fmt"
	"sync"
	"time"
)

// BatchMetrics tracks one archive batch run: per-file outcomes recorded
// concurrently by the worker pool, totals computed on Finalize.
type BatchMetrics struct {
	mu sync.Mutex

	BatchID   string    `json:"batchId"`
	StartTime time.Time `json:"-"`
	FileCount int       `json:"fileCount"`
	Workers   int       `json:"workers"`

	TotalLatencyMs   float64 `json:"totalLatencyMs"`
	MaxFileLatencyMs float64 `json:"maxFileLatencyMs"`
	SucceededCount   int     `json:"succeededCount"`
	FailedCount      int     `json:"failedCount"`
	CacheHitCount    int     `json:"cacheHitCount"`
}

func NewBatchMetrics(batchID string, fileCount, workers int) *BatchMetrics {
	return &BatchMetrics{
		BatchID:   batchID,
		StartTime: time.Now(),
		FileCount: fileCount,
		Workers:   workers,
	}
}

// RecordSuccess counts one successfully predicted file.
func (bm *BatchMetrics) RecordSuccess(latency time.Duration, fromCache bool) {
	bm.mu.Lock()
	defer bm.mu.Unlock()
	bm.SucceededCount++
	if fromCache {
		bm.CacheHitCount++
	}
	bm.recordLatency(latency)
}

// RecordFailure counts one failed file.
func (bm *BatchMetrics) RecordFailure(latency time.Duration) {
	bm.mu.Lock()
	defer bm.mu.Unlock()
	bm.FailedCount++
	bm.recordLatency(latency)
}

// recordLatency updates the slowest-file watermark. The caller holds the lock.
func (bm *BatchMetrics) recordLatency(latency time.Duration) {
	ms := float64(latency.Microseconds()) / 1000.0
	if ms > bm.MaxFileLatencyMs {
		bm.MaxFileLatencyMs = ms
	}
}

// Finalize computes the wall-clock duration of the whole run.
func (bm *BatchMetrics) Finalize() {
	bm.mu.Lock()
	defer bm.mu.Unlock()
	bm.TotalLatencyMs = float64(time.Since(bm.StartTime).Microseconds()) / 1000.0
}

// Summary renders a one-line digest for the batch completion log.
func (bm *BatchMetrics) Summary() string {
	bm.mu.Lock()
	defer bm.mu.Unlock()
	return fmt.Sprintf("batch %s: %d files, %d ok, %d failed, %d cache hits, %.2fms total (slowest file %.2fms, %d workers)",
		bm.BatchID, bm.FileCount, bm.SucceededCount, bm.FailedCount, bm.CacheHitCount,
		bm.TotalLatencyMs, bm.MaxFileLatencyMs, bm.Workers)
}
