package handlers

import (
	"io"
	"log"
	"mime/multipart"

	"github.com/gofiber/fiber/v2"
	"github.com/pkg/errors"

	"classifier-service/internal/config"
	"classifier-service/internal/models"
	"classifier-service/internal/services"
	"classifier-service/internal/utils"
)

// PredictHandler defines handlers for the classification endpoints.
type PredictHandler struct {
	Service *services.PredictionService
	Batch   *services.BatchService

	cfg     *config.Config
	metrics *utils.Metrics
}

// NewPredictHandler creates a new PredictHandler.
func NewPredictHandler(service *services.PredictionService, batch *services.BatchService, m *utils.Metrics, cfg *config.Config) *PredictHandler {
	return &PredictHandler{Service: service, Batch: batch, cfg: cfg, metrics: m}
}

// Predict handles POST /predict to classify one uploaded image.
// @Summary Classify an image
// @Description Validates the uploaded image and returns class probabilities. Identical images are served from the prediction cache.
// @Tags predict
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Image file (JPEG, PNG, GIF or WebP)"
// @Success 200 {object} map[string]interface{} "Predictions with metadata"
// @Failure 400 {object} map[string]interface{} "Invalid or missing image"
// @Failure 413 {object} map[string]interface{} "Upload too large"
// @Failure 422 {object} map[string]interface{} "Image could not be processed"
// @Failure 500 {object} map[string]interface{} "Prediction failed"
// @Failure 503 {object} map[string]interface{} "Model not loaded"
// @Router /predict [post]
func (h *PredictHandler) Predict(c *fiber.Ctx) error {
	data, filename, err := h.readImageUpload(c)
	if err != nil {
		return h.errorResponse(c, filename, err)
	}

	result, err := h.Service.Predict(c.Context(), data, filename)
	if err != nil {
		return h.errorResponse(c, filename, err)
	}
	return h.successResponse(c, result, filename)
}

// BatchPredict handles POST /predict/batch to classify every image in an
// uploaded archive.
// @Summary Classify all images in an archive
// @Description Extracts the uploaded archive and classifies each contained image with a bounded worker pool. Per-file failures are reported in the result.
// @Tags predict
// @Accept multipart/form-data
// @Produce json
// @Param archive formData file true "Archive file (.zip, .rar, .7z, .tar, .tar.gz)"
// @Success 200 {object} map[string]interface{} "Batch result"
// @Failure 400 {object} map[string]interface{} "Invalid or missing archive"
// @Failure 413 {object} map[string]interface{} "Upload too large"
// @Failure 503 {object} map[string]interface{} "Model not loaded"
// @Router /predict/batch [post]
func (h *PredictHandler) BatchPredict(c *fiber.Ctx) error {
	fileHeader, err := c.FormFile("archive")
	if err != nil {
		return h.errorResponse(c, "", &models.FileError{Reason: "no archive provided in request"})
	}
	if fileHeader.Size == 0 {
		return h.errorResponse(c, fileHeader.Filename, &models.FileError{Reason: "uploaded archive is empty"})
	}
	if fileHeader.Size > h.cfg.MaxContentLength {
		return h.errorResponse(c, fileHeader.Filename, &models.CapacityError{Size: fileHeader.Size, Limit: h.cfg.MaxContentLength})
	}

	data, err := readMultipartFile(fileHeader)
	if err != nil {
		return h.errorResponse(c, fileHeader.Filename, err)
	}

	batch, err := h.Batch.PredictArchive(c.Context(), data, fileHeader.Filename)
	if err != nil {
		return h.errorResponse(c, fileHeader.Filename, err)
	}

	log.Printf("Batch %s finished: %d/%d files succeeded", batch.ID, batch.Succeeded, batch.FileCount)
	return c.JSON(fiber.Map{
		"success": true,
		"batch":   batch,
	})
}

// readImageUpload pulls the image bytes out of the multipart "file" field
// and enforces the configured size ceiling before anything touches the data.
func (h *PredictHandler) readImageUpload(c *fiber.Ctx) ([]byte, string, error) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return nil, "", &models.FileError{Reason: "no file provided in request"}
	}
	if fileHeader.Size == 0 {
		return nil, fileHeader.Filename, &models.FileError{Reason: "uploaded file is empty"}
	}
	if fileHeader.Size > h.cfg.MaxContentLength {
		return nil, fileHeader.Filename, &models.CapacityError{Size: fileHeader.Size, Limit: h.cfg.MaxContentLength}
	}

	data, err := readMultipartFile(fileHeader)
	if err != nil {
		return nil, fileHeader.Filename, err
	}
	return data, fileHeader.Filename, nil
}

func (h *PredictHandler) successResponse(c *fiber.Ctx, result *models.PredictionResult, filename string) error {
	h.metrics.RecordRequest("success")
	h.metrics.RecordPredictLatency(result.ProcessingTimeMS)
	return c.JSON(fiber.Map{
		"success":     true,
		"predictions": result.Predictions,
		"metadata": fiber.Map{
			"processing_time_ms": result.ProcessingTimeMS,
			"from_cache":         result.FromCache,
			"image_size":         []int{h.cfg.TargetImageSize, h.cfg.TargetImageSize},
			"filename":           filename,
			"model_version":      h.cfg.ModelVersion,
			"cache_enabled":      h.cfg.EnableModelCache,
		},
	})
}

func (h *PredictHandler) errorResponse(c *fiber.Ctx, filename string, err error) error {
	h.metrics.RecordRequest(models.ErrorTypeOf(err))
	log.Printf("Predict failed for %q: %v", filename, err)
	return errorJSON(c, err)
}

// errorJSON renders err as the shared error envelope with its mapped status.
func errorJSON(c *fiber.Ctx, err error) error {
	return c.Status(statusCodeOf(err)).JSON(fiber.Map{
		"success":    false,
		"error":      err.Error(),
		"error_type": models.ErrorTypeOf(err),
	})
}

// statusCodeOf maps the error taxonomy to HTTP status codes.
func statusCodeOf(err error) int {
	var (
		validationErr *models.ValidationError
		fileErr       *models.FileError
		capacityErr   *models.CapacityError
		processingErr *models.ProcessingError
		inferenceErr  *models.InferenceError
	)
	switch {
	case errors.As(err, &validationErr), errors.As(err, &fileErr):
		return fiber.StatusBadRequest
	case errors.As(err, &capacityErr):
		return fiber.StatusRequestEntityTooLarge
	case errors.As(err, &processingErr):
		return fiber.StatusUnprocessableEntity
	case errors.As(err, &inferenceErr):
		return fiber.StatusInternalServerError
	case errors.Is(err, models.ErrModelNotLoaded):
		return fiber.StatusServiceUnavailable
	case errors.Is(err, models.ErrCacheDisabled):
		return fiber.StatusBadRequest
	default:
		return fiber.StatusInternalServerError
	}
}

func readMultipartFile(fileHeader *multipart.FileHeader) ([]byte, error) {
	src, err := fileHeader.Open()
	if err != nil {
		return nil, errors.Wrap(err, "open uploaded file")
	}
	defer src.Close()
	data, err := io.ReadAll(src)
	if err != nil {
		return nil, errors.Wrap(err, "read uploaded file")
	}
	return data, nil
}
