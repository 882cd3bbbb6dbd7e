package services

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"

	"classifier-service/internal/conversion"
	"classifier-service/internal/fingerprint"
	"classifier-service/internal/inference"
	"classifier-service/internal/metrics"
	"classifier-service/internal/models"
	"classifier-service/internal/repository"
	"classifier-service/internal/storage"
	"classifier-service/internal/utils"
	"classifier-service/internal/validation"
)

// PredictionService drives the predict pipeline: validation, content
// fingerprinting, cache lookup with single-flight deduplication, inference.
// AuditRepo and Archive are optional; when set, completed predictions are
// recorded and original uploads stored asynchronously.
type PredictionService struct {
	validator *validation.ImageValidator
	hasher    *fingerprint.Hasher
	converter *conversion.Converter
	engine    inference.Engine
	cache     *PredictionCache
	stats     *StatsService
	metrics   *utils.Metrics

	AuditRepo repository.PredictionRepository
	Archive   *storage.UploadArchive
}

func NewPredictionService(
	validator *validation.ImageValidator,
	hasher *fingerprint.Hasher,
	converter *conversion.Converter,
	engine inference.Engine,
	cache *PredictionCache,
	stats *StatsService,
	m *utils.Metrics,
) *PredictionService {
	return &PredictionService{
		validator: validator,
		hasher:    hasher,
		converter: converter,
		engine:    engine,
		cache:     cache,
		stats:     stats,
		metrics:   m,
	}
}

// Predict classifies one uploaded image.
func (s *PredictionService) Predict(ctx context.Context, data []byte, filename string) (*models.PredictionResult, error) {
	return s.PredictWithMetrics(ctx, data, filename, nil)
}

// PredictWithMetrics is Predict with optional per-stage latency collection.
// rm may be nil.
func (s *PredictionService) PredictWithMetrics(ctx context.Context, data []byte, filename string, rm *metrics.RequestMetrics) (*models.PredictionResult, error) {
	start := time.Now()

	if !s.engine.Ready() {
		return nil, models.ErrModelNotLoaded
	}

	rm.StartStage(metrics.StageValidation)
	outcome := s.validator.Validate(data)
	rm.EndStage(metrics.StageValidation)
	if !outcome.Valid {
		stage := string(outcome.Stage)
		s.stats.RecordValidationFailure(stage)
		s.metrics.RecordValidationFailure(stage)
		log.Printf("Validation rejected %s at %s stage: %s", filename, stage, outcome.Reason)
		return nil, &models.ValidationError{Stage: stage, Reason: outcome.Reason}
	}

	rm.StartStage(metrics.StageFingerprint)
	fp := s.hasher.Hash(outcome.Image, outcome.Width, outcome.Height)
	rm.EndStage(metrics.StageFingerprint)

	s.stats.RecordPrediction()

	var inferenceTime time.Duration
	rm.StartStage(metrics.StageCache)
	scores, fromCache, err := s.cache.GetOrCompute(ctx, fp, func() ([]models.ClassScore, error) {
		rm.StartStage(metrics.StageInference)
		defer rm.EndStage(metrics.StageInference)

		tensor, convErr := s.converter.ToTensor(outcome.Image)
		if convErr != nil {
			return nil, &models.ProcessingError{Err: convErr}
		}
		inferStart := time.Now()
		result, inferErr := s.engine.Infer(tensor)
		if inferErr != nil {
			if errors.Is(inferErr, models.ErrModelNotLoaded) {
				return nil, inferErr
			}
			return nil, &models.InferenceError{Err: inferErr}
		}
		inferenceTime = time.Since(inferStart)
		return result, nil
	})
	rm.EndStage(metrics.StageCache)
	if err != nil {
		return nil, err
	}

	if fromCache {
		s.stats.RecordHit()
		s.metrics.IncrementCacheHits()
	} else {
		s.stats.RecordMiss(inferenceTime)
		s.metrics.IncrementCacheMisses()
		s.metrics.RecordInferenceLatency(float64(inferenceTime.Microseconds()) / 1000.0)
	}
	s.metrics.SetCacheEntries(s.cache.Len())
	rm.SetFromCache(fromCache)

	result := &models.PredictionResult{
		Predictions:      scores,
		FromCache:        fromCache,
		Fingerprint:      fp,
		ProcessingTimeMS: round2(float64(time.Since(start).Microseconds()) / 1000.0),
	}

	s.auditAsync(result, filename)
	if !fromCache {
		s.archiveAsync(fp, outcome.Format, data)
	}

	return result, nil
}

// auditAsync writes the prediction record off the request path. Audit
// failures are logged and never surface to the caller.
func (s *PredictionService) auditAsync(result *models.PredictionResult, filename string) {
	if s.AuditRepo == nil || len(result.Predictions) == 0 {
		return
	}
	record := &models.PredictionRecord{
		ID:               uuid.New(),
		Fingerprint:      result.Fingerprint,
		Filename:         filename,
		TopClass:         result.Predictions[0].ClassName,
		TopProbability:   result.Predictions[0].Probability,
		FromCache:        result.FromCache,
		ProcessingTimeMS: result.ProcessingTimeMS,
	}
	go func() {
		if err := s.AuditRepo.Create(record); err != nil {
			log.Printf("Failed to write prediction audit record: %v", err)
		}
	}()
}

// archiveAsync stores the original upload bytes off the request path. The
// request buffer is copied because fiber reuses it once the handler returns.
func (s *PredictionService) archiveAsync(fp, format string, data []byte) {
	if s.Archive == nil {
		return
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	go func() {
		if _, err := s.Archive.Store(context.Background(), fp, format, buf); err != nil {
			log.Printf("Failed to archive upload %s: %v", shortFingerprint(fp), err)
		}
	}()
}
