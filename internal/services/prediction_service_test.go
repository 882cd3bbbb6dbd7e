package services

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"classifier-service/internal/conversion"
	"classifier-service/internal/fingerprint"
	"classifier-service/internal/models"
	"classifier-service/internal/services/caches"
	"classifier-service/internal/utils"
	"classifier-service/internal/validation"
)

// stubEngine satisfies inference.Engine without ONNX Runtime.
type stubEngine struct {
	ready     bool
	scores    []models.ClassScore
	err       error
	block     chan struct{}
	started   chan struct{}
	startOnce sync.Once
	calls     atomic.Int32
}

func (e *stubEngine) Warmup() error { return nil }

func (e *stubEngine) Infer(t *conversion.Tensor) ([]models.ClassScore, error) {
	e.calls.Add(1)
	if e.started != nil {
		e.startOnce.Do(func() { close(e.started) })
	}
	if e.block != nil {
		<-e.block
	}
	if e.err != nil {
		return nil, e.err
	}
	out := make([]models.ClassScore, len(e.scores))
	copy(out, e.scores)
	return out, nil
}

func (e *stubEngine) Ready() bool { return e.ready }

func (e *stubEngine) Info() models.ModelInfo {
	status := "ready"
	if !e.ready {
		status = "not_loaded"
	}
	return models.ModelInfo{Status: status, ModelPath: "stub.onnx"}
}

func (e *stubEngine) Close() error { return nil }

func testScores() []models.ClassScore {
	return []models.ClassScore{
		{ClassName: "tabby cat", Probability: 0.75},
		{ClassName: "golden retriever", Probability: 0.25},
	}
}

func encodePNG(t *testing.T, width, height int, c color.NRGBA) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func newTestService(t *testing.T, engine *stubEngine, cacheEnabled bool) (*PredictionService, *StatsService, *PredictionCache) {
	t.Helper()
	store := caches.NewLRUStore(16)
	cache := NewPredictionCache(store, cacheEnabled)
	stats := NewStatsService(cacheEnabled, 16)
	m := utils.NewMetrics(prometheus.NewRegistry())
	svc := NewPredictionService(
		validation.NewImageValidator(10*1024*1024),
		fingerprint.NewHasher(),
		conversion.NewConverter(32),
		engine,
		cache,
		stats,
		m,
	)
	return svc, stats, cache
}

func TestPredictMissThenHit(t *testing.T) {
	engine := &stubEngine{ready: true, scores: testScores()}
	svc, stats, _ := newTestService(t, engine, true)
	data := encodePNG(t, 64, 64, color.NRGBA{R: 200, G: 60, B: 20, A: 255})

	first, err := svc.Predict(context.Background(), data, "cat.png")
	require.NoError(t, err)
	assert.False(t, first.FromCache)
	assert.Len(t, first.Predictions, 2)
	assert.Equal(t, "tabby cat", first.Predictions[0].ClassName)
	assert.Len(t, first.Fingerprint, 64, "fingerprint is hex sha-256")
	assert.GreaterOrEqual(t, first.ProcessingTimeMS, 0.0)

	second, err := svc.Predict(context.Background(), data, "cat-again.png")
	require.NoError(t, err)
	assert.True(t, second.FromCache)
	assert.Equal(t, first.Fingerprint, second.Fingerprint)
	assert.Equal(t, first.Predictions, second.Predictions)
	assert.Equal(t, int32(1), engine.calls.Load(), "identical bytes never run inference twice")

	snap := stats.Snapshot()
	assert.Equal(t, int64(2), snap.TotalPredictions)
	assert.Equal(t, int64(1), snap.CacheHits)
	assert.Equal(t, int64(1), snap.CacheMisses)
}

func TestPredictDifferentImagesDifferentFingerprints(t *testing.T) {
	engine := &stubEngine{ready: true, scores: testScores()}
	svc, _, _ := newTestService(t, engine, true)

	red, err := svc.Predict(context.Background(), encodePNG(t, 64, 64, color.NRGBA{R: 255, A: 255}), "red.png")
	require.NoError(t, err)
	blue, err := svc.Predict(context.Background(), encodePNG(t, 64, 64, color.NRGBA{B: 255, A: 255}), "blue.png")
	require.NoError(t, err)

	assert.NotEqual(t, red.Fingerprint, blue.Fingerprint)
	assert.Equal(t, int32(2), engine.calls.Load())
}

func TestPredictValidationFailure(t *testing.T) {
	engine := &stubEngine{ready: true, scores: testScores()}
	svc, stats, _ := newTestService(t, engine, true)

	_, err := svc.Predict(context.Background(), []byte("not an image"), "junk.bin")
	require.Error(t, err)

	var validationErr *models.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "signature", validationErr.Stage)
	assert.Equal(t, int64(1), stats.Snapshot().ValidationFailures["signature"])
	assert.Equal(t, int32(0), engine.calls.Load(), "invalid uploads never reach the model")
	assert.Equal(t, int64(0), stats.Snapshot().TotalPredictions)
}

func TestPredictDimensionFailure(t *testing.T) {
	engine := &stubEngine{ready: true, scores: testScores()}
	svc, stats, _ := newTestService(t, engine, true)

	_, err := svc.Predict(context.Background(), encodePNG(t, 8, 8, color.NRGBA{R: 1, A: 255}), "tiny.png")
	require.Error(t, err)

	var validationErr *models.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "dimensions", validationErr.Stage)
	assert.Equal(t, int64(1), stats.Snapshot().ValidationFailures["dimensions"])
}

func TestPredictModelNotReady(t *testing.T) {
	engine := &stubEngine{ready: false}
	svc, _, _ := newTestService(t, engine, true)

	_, err := svc.Predict(context.Background(), encodePNG(t, 64, 64, color.NRGBA{R: 1, A: 255}), "cat.png")
	assert.ErrorIs(t, err, models.ErrModelNotLoaded)
}

func TestPredictInferenceErrorNotCached(t *testing.T) {
	engine := &stubEngine{ready: true, err: fmt.Errorf("session crashed")}
	svc, stats, cache := newTestService(t, engine, true)
	data := encodePNG(t, 64, 64, color.NRGBA{G: 128, A: 255})

	_, err := svc.Predict(context.Background(), data, "cat.png")
	require.Error(t, err)
	var inferenceErr *models.InferenceError
	require.ErrorAs(t, err, &inferenceErr)
	assert.Equal(t, 0, cache.Len(), "failures are never cached")

	// The model recovers; the next identical upload recomputes.
	engine.err = nil
	result, err := svc.Predict(context.Background(), data, "cat.png")
	require.NoError(t, err)
	assert.False(t, result.FromCache)
	assert.Equal(t, int32(2), engine.calls.Load())

	snap := stats.Snapshot()
	assert.Equal(t, int64(1), snap.CacheMisses, "failed attempts do not count as misses")
}

func TestPredictConcurrentIdenticalUploads(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	engine := &stubEngine{ready: true, scores: testScores(), block: release, started: started}
	svc, stats, _ := newTestService(t, engine, true)
	data := encodePNG(t, 64, 64, color.NRGBA{R: 90, G: 90, B: 90, A: 255})

	const n = 50
	var wg sync.WaitGroup
	var fromCacheCount atomic.Int32
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := svc.Predict(context.Background(), data, "cat.png")
			if err != nil {
				errs <- err
				return
			}
			if result.FromCache {
				fromCacheCount.Add(1)
			}
		}()
	}

	// Let the goroutines pile up on the single in-flight computation.
	<-started
	close(release)
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), engine.calls.Load(), "one inference for the whole burst")
	assert.Equal(t, int32(n-1), fromCacheCount.Load())

	snap := stats.Snapshot()
	assert.Equal(t, int64(n), snap.TotalPredictions)
	assert.Equal(t, int64(1), snap.CacheMisses)
	assert.Equal(t, int64(n-1), snap.CacheHits)
}

func TestPredictCacheDisabled(t *testing.T) {
	engine := &stubEngine{ready: true, scores: testScores()}
	svc, _, _ := newTestService(t, engine, false)
	data := encodePNG(t, 64, 64, color.NRGBA{B: 200, A: 255})

	for i := 0; i < 3; i++ {
		result, err := svc.Predict(context.Background(), data, "cat.png")
		require.NoError(t, err)
		assert.False(t, result.FromCache)
	}
	assert.Equal(t, int32(3), engine.calls.Load(), "disabled cache recomputes every request")
}

func TestPredictResultIsIndependentCopy(t *testing.T) {
	engine := &stubEngine{ready: true, scores: testScores()}
	svc, _, _ := newTestService(t, engine, true)
	data := encodePNG(t, 64, 64, color.NRGBA{R: 10, G: 200, B: 10, A: 255})

	first, err := svc.Predict(context.Background(), data, "cat.png")
	require.NoError(t, err)
	first.Predictions[0].ClassName = "mutated"

	second, err := svc.Predict(context.Background(), data, "cat.png")
	require.NoError(t, err)
	assert.Equal(t, "tabby cat", second.Predictions[0].ClassName)
}
