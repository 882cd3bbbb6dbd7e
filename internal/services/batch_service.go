package services

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"classifier-service/internal/extraction"
	"classifier-service/internal/metrics"
	"classifier-service/internal/models"
	"classifier-service/internal/utils"
)

// archiveExtensions lists the upload formats the batch endpoint extracts.
var archiveExtensions = []string{".zip", ".rar", ".7z", ".tar", ".tar.gz", ".tgz"}

// IsArchiveFilename reports whether filename carries a supported archive
// extension.
func IsArchiveFilename(filename string) bool {
	lower := strings.ToLower(filename)
	for _, ext := range archiveExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// BatchService classifies every image inside an uploaded archive using a
// bounded worker pool. Identical images across the archive deduplicate
// through the prediction cache like any other request.
type BatchService struct {
	predictions *PredictionService
	maxWorkers  int
	metrics     *utils.Metrics
}

func NewBatchService(predictions *PredictionService, maxWorkers int, m *utils.Metrics) *BatchService {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	return &BatchService{
		predictions: predictions,
		maxWorkers:  maxWorkers,
		metrics:     m,
	}
}

// PredictArchive extracts archiveData and runs a prediction for every image
// it contains. Per-file failures are reported inside the result; only
// archive-level problems return an error.
func (s *BatchService) PredictArchive(ctx context.Context, archiveData []byte, filename string) (*models.BatchResult, error) {
	if !IsArchiveFilename(filename) {
		return nil, &models.FileError{Reason: fmt.Sprintf("unsupported archive format: %q", filepath.Ext(filename))}
	}

	tempArchive, err := os.CreateTemp("", "batch-upload-*"+filepath.Ext(filename))
	if err != nil {
		return nil, errors.Wrap(err, "create temporary archive file")
	}
	tempPath := tempArchive.Name()
	defer os.Remove(tempPath)
	if _, err := tempArchive.Write(archiveData); err != nil {
		tempArchive.Close()
		return nil, errors.Wrap(err, "write temporary archive file")
	}
	if err := tempArchive.Close(); err != nil {
		return nil, errors.Wrap(err, "close temporary archive file")
	}

	paths, destDir, err := extraction.ExtractImages(tempPath)
	if err != nil {
		return nil, &models.FileError{Reason: "could not extract archive: " + err.Error()}
	}
	defer os.RemoveAll(destDir)

	if len(paths) == 0 {
		return nil, &models.FileError{Reason: "no image files found in archive"}
	}
	sort.Strings(paths)

	batchID := uuid.New()
	bm := metrics.NewBatchMetrics(batchID.String(), len(paths), s.maxWorkers)
	log.Printf("BATCH START: %s (%d files, %d workers)", batchID, len(paths), s.maxWorkers)

	results := make([]models.BatchFileResult, len(paths))
	sem := make(chan struct{}, s.maxWorkers)
	var wg sync.WaitGroup
	for i, path := range paths {
		wg.Add(1)
		go func(idx int, imagePath string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			results[idx] = s.predictFile(ctx, imagePath, bm)
		}(i, path)
	}
	wg.Wait()
	bm.Finalize()

	s.metrics.RecordBatchRun(bm.SucceededCount, bm.FailedCount)
	log.Printf("BATCH COMPLETE: %s", bm.Summary())

	return &models.BatchResult{
		ID:             batchID,
		FileCount:      len(paths),
		Succeeded:      bm.SucceededCount,
		Failed:         bm.FailedCount,
		TotalLatencyMS: bm.TotalLatencyMs,
		Results:        results,
	}, nil
}

// predictFile classifies one extracted file, mapping any failure to its
// error_type name so the batch result mirrors the single predict endpoint.
func (s *BatchService) predictFile(ctx context.Context, path string, bm *metrics.BatchMetrics) models.BatchFileResult {
	name := filepath.Base(path)
	start := time.Now()

	data, err := os.ReadFile(path)
	if err != nil {
		bm.RecordFailure(time.Since(start))
		return models.BatchFileResult{
			Filename:  name,
			Success:   false,
			Error:     "could not read extracted file: " + err.Error(),
			ErrorType: "FileValidationError",
		}
	}

	pred, err := s.predictions.Predict(ctx, data, name)
	if err != nil {
		bm.RecordFailure(time.Since(start))
		return models.BatchFileResult{
			Filename:  name,
			Success:   false,
			Error:     err.Error(),
			ErrorType: models.ErrorTypeOf(err),
		}
	}

	bm.RecordSuccess(time.Since(start), pred.FromCache)
	return models.BatchFileResult{
		Filename:    name,
		Success:     true,
		Predictions: pred.Predictions,
		FromCache:   pred.FromCache,
	}
}
