package services

import (
	"context"
	"log"

	"golang.org/x/sync/singleflight"

	"classifier-service/internal/models"
	"classifier-service/internal/services/cache"
)

// ComputeFunc produces the prediction scores for a fingerprint on a cache
// miss. It is invoked at most once per in-flight fingerprint.
type ComputeFunc func() ([]models.ClassScore, error)

// PredictionCache wraps the score store with single-flight deduplication:
// concurrent requests for the same fingerprint share one computation instead
// of racing the inference session. With caching disabled every call computes
// independently, matching a cacheless deployment exactly.
type PredictionCache struct {
	store   cache.Store
	flight  singleflight.Group
	enabled bool
}

func NewPredictionCache(store cache.Store, enabled bool) *PredictionCache {
	return &PredictionCache{store: store, enabled: enabled}
}

func (pc *PredictionCache) Enabled() bool {
	return pc.enabled
}

// Get returns the cached scores for fingerprint. It never blocks on an
// in-flight computation.
func (pc *PredictionCache) Get(fingerprint string) ([]models.ClassScore, bool) {
	if !pc.enabled {
		return nil, false
	}
	return pc.store.Get(fingerprint)
}

// flightResult carries the scores out of a single-flight call along with
// whether they were found already stored by the double-check.
type flightResult struct {
	scores    []models.ClassScore
	fromCache bool
}

// GetOrCompute returns the scores for fingerprint, computing them at most
// once across all concurrent callers. The second return value reports
// whether this caller was served without running compute itself, either from
// a stored entry or by waiting on another caller's in-flight computation.
//
// Failed computations are never stored; the error propagates to every waiter
// and the next request re-attempts. When ctx expires while waiting, this
// caller abandons the wait but the computation itself continues and its
// result is still stored for future requests.
func (pc *PredictionCache) GetOrCompute(ctx context.Context, fingerprint string, compute ComputeFunc) ([]models.ClassScore, bool, error) {
	if !pc.enabled {
		scores, err := compute()
		return scores, false, err
	}

	if scores, ok := pc.store.Get(fingerprint); ok {
		log.Printf("CACHE HIT: prediction %s", shortFingerprint(fingerprint))
		return scores, true, nil
	}

	var won bool
	ch := pc.flight.DoChan(fingerprint, func() (interface{}, error) {
		won = true
		// A peer may have stored the result between our miss above and
		// winning the flight.
		if scores, ok := pc.store.Peek(fingerprint); ok {
			return flightResult{scores: scores, fromCache: true}, nil
		}
		log.Printf("CACHE MISS: computing prediction %s", shortFingerprint(fingerprint))
		scores, err := compute()
		if err != nil {
			return nil, err
		}
		pc.store.Put(fingerprint, scores)
		return flightResult{scores: scores}, nil
	})

	select {
	case <-ctx.Done():
		return nil, false, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, false, res.Err
		}
		fr := res.Val.(flightResult)
		return fr.scores, fr.fromCache || !won, nil
	}
}

// Flush clears all stored entries. In-flight computations are not
// interrupted; they complete and insert into the emptied cache.
func (pc *PredictionCache) Flush() error {
	if !pc.enabled {
		return models.ErrCacheDisabled
	}
	pc.store.Clear()
	log.Printf("CACHE FLUSH: all prediction entries cleared")
	return nil
}

// Info returns the store counters, or ErrCacheDisabled when caching is off.
func (pc *PredictionCache) Info() (models.CacheInfo, error) {
	if !pc.enabled {
		return models.CacheInfo{}, models.ErrCacheDisabled
	}
	return pc.store.Info(), nil
}

// Len reports the current number of stored entries.
func (pc *PredictionCache) Len() int {
	if !pc.enabled {
		return 0
	}
	return pc.store.Info().Currsize
}

func shortFingerprint(fp string) string {
	if len(fp) > 12 {
		return fp[:12]
	}
	return fp
}
