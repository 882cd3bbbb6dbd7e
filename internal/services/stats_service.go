package services

import (
	"math"
	"sync"
	"time"

	"classifier-service/internal/models"
)

// StatsService aggregates the service counters exposed by GET /model/stats.
// All methods are safe for concurrent use.
type StatsService struct {
	mu sync.RWMutex

	cacheEnabled bool
	cacheSize    int

	totalPredictions   int64
	cacheHits          int64
	cacheMisses        int64
	totalInferenceMS   float64
	validationFailures map[string]int64
	warmupCompleted    bool
	startedAt          time.Time
}

func NewStatsService(cacheEnabled bool, cacheSize int) *StatsService {
	return &StatsService{
		cacheEnabled:       cacheEnabled,
		cacheSize:          cacheSize,
		validationFailures: make(map[string]int64),
		startedAt:          time.Now(),
	}
}

// RecordPrediction counts one prediction attempt that passed validation,
// regardless of whether it will be served from cache.
func (s *StatsService) RecordPrediction() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.totalPredictions++
}

// RecordHit counts a prediction served without running inference.
func (s *StatsService) RecordHit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cacheHits++
}

// RecordMiss counts a prediction that ran inference and accumulates its
// latency. Only misses contribute to the inference time average: hits never
// touch the model.
func (s *StatsService) RecordMiss(inferenceLatency time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cacheMisses++
	s.totalInferenceMS += float64(inferenceLatency.Microseconds()) / 1000.0
}

// RecordValidationFailure counts a rejected upload by validation stage.
func (s *StatsService) RecordValidationFailure(stage string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.validationFailures[stage]++
}

// MarkWarmupCompleted records a successful model warmup.
func (s *StatsService) MarkWarmupCompleted() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.warmupCompleted = true
}

// ResetCacheCounters zeroes the hit and miss counters after a cache flush.
// Prediction totals, accumulated inference time and the warmup flag survive:
// they describe the process, not the cache.
func (s *StatsService) ResetCacheCounters() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cacheHits = 0
	s.cacheMisses = 0
}

// Uptime reports how long the service has been running.
func (s *StatsService) Uptime() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return time.Since(s.startedAt)
}

// Snapshot returns a point-in-time copy of all counters with the derived
// rates: hit rate as a percentage of total predictions, average inference
// time over cache misses.
func (s *StatsService) Snapshot() models.Statistics {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var hitRate float64
	if s.totalPredictions > 0 {
		hitRate = round2(float64(s.cacheHits) / float64(s.totalPredictions) * 100)
	}
	var avgInference float64
	if s.cacheMisses > 0 {
		avgInference = round2(s.totalInferenceMS / float64(s.cacheMisses))
	}

	failures := make(map[string]int64, len(s.validationFailures))
	for stage, count := range s.validationFailures {
		failures[stage] = count
	}

	return models.Statistics{
		TotalPredictions:     s.totalPredictions,
		CacheEnabled:         s.cacheEnabled,
		CacheSize:            s.cacheSize,
		CacheHits:            s.cacheHits,
		CacheMisses:          s.cacheMisses,
		CacheHitRatePercent:  hitRate,
		AvgInferenceTimeMS:   avgInference,
		TotalInferenceTimeMS: round2(s.totalInferenceMS),
		WarmupCompleted:      s.warmupCompleted,
		ValidationFailures:   failures,
		UptimeSeconds:        time.Since(s.startedAt).Seconds(),
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
