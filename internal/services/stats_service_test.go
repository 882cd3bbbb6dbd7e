package services

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStatsSnapshotDerivedRates(t *testing.T) {
	stats := NewStatsService(true, 128)

	for i := 0; i < 10; i++ {
		stats.RecordPrediction()
	}
	for i := 0; i < 7; i++ {
		stats.RecordHit()
	}
	stats.RecordMiss(20 * time.Millisecond)
	stats.RecordMiss(40 * time.Millisecond)
	stats.RecordMiss(60 * time.Millisecond)

	snap := stats.Snapshot()
	assert.Equal(t, int64(10), snap.TotalPredictions)
	assert.Equal(t, int64(7), snap.CacheHits)
	assert.Equal(t, int64(3), snap.CacheMisses)
	assert.InDelta(t, 70.0, snap.CacheHitRatePercent, 0.01)
	assert.InDelta(t, 40.0, snap.AvgInferenceTimeMS, 0.01)
	assert.InDelta(t, 120.0, snap.TotalInferenceTimeMS, 0.01)
	assert.True(t, snap.CacheEnabled)
	assert.Equal(t, 128, snap.CacheSize)
}

func TestStatsSnapshotZeroDivisors(t *testing.T) {
	snap := NewStatsService(true, 16).Snapshot()
	assert.Zero(t, snap.CacheHitRatePercent)
	assert.Zero(t, snap.AvgInferenceTimeMS)
	assert.NotNil(t, snap.ValidationFailures)
}

func TestStatsValidationFailuresByStage(t *testing.T) {
	stats := NewStatsService(true, 16)
	stats.RecordValidationFailure("signature")
	stats.RecordValidationFailure("signature")
	stats.RecordValidationFailure("dimensions")

	snap := stats.Snapshot()
	assert.Equal(t, int64(2), snap.ValidationFailures["signature"])
	assert.Equal(t, int64(1), snap.ValidationFailures["dimensions"])

	// The snapshot map is a copy, not a live view.
	snap.ValidationFailures["signature"] = 99
	assert.Equal(t, int64(2), stats.Snapshot().ValidationFailures["signature"])
}

func TestStatsResetCacheCountersKeepsTotals(t *testing.T) {
	stats := NewStatsService(true, 16)
	stats.RecordPrediction()
	stats.RecordPrediction()
	stats.RecordHit()
	stats.RecordMiss(10 * time.Millisecond)
	stats.MarkWarmupCompleted()

	stats.ResetCacheCounters()

	snap := stats.Snapshot()
	assert.Equal(t, int64(0), snap.CacheHits)
	assert.Equal(t, int64(0), snap.CacheMisses)
	assert.Equal(t, int64(2), snap.TotalPredictions, "prediction totals survive a flush")
	assert.True(t, snap.WarmupCompleted, "warmup state survives a flush")
}

func TestStatsConcurrentRecording(t *testing.T) {
	stats := NewStatsService(true, 16)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				stats.RecordPrediction()
				stats.RecordHit()
				stats.RecordMiss(time.Millisecond)
				stats.RecordValidationFailure("integrity")
			}
		}()
	}
	wg.Wait()

	snap := stats.Snapshot()
	assert.Equal(t, int64(800), snap.TotalPredictions)
	assert.Equal(t, int64(800), snap.CacheHits)
	assert.Equal(t, int64(800), snap.CacheMisses)
	assert.Equal(t, int64(800), snap.ValidationFailures["integrity"])
}

func TestStatsUptimeAdvances(t *testing.T) {
	stats := NewStatsService(false, 0)
	time.Sleep(5 * time.Millisecond)
	assert.Greater(t, stats.Uptime(), time.Duration(0))
	assert.Greater(t, stats.Snapshot().UptimeSeconds, 0.0)
}
