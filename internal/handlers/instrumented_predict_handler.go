package handlers

import (
	"log"

	"github.com/gofiber/fiber/v2"

	"classifier-service/internal/config"
	"classifier-service/internal/metrics"
	"classifier-service/internal/services"
	"classifier-service/internal/utils"
)

// InstrumentedPredictHandler extends PredictHandler with per-stage latency
// headers on every prediction response.
type InstrumentedPredictHandler struct {
	*PredictHandler
}

// NewInstrumentedPredictHandler creates a new instrumented handler
func NewInstrumentedPredictHandler(service *services.PredictionService, batch *services.BatchService, m *utils.Metrics, cfg *config.Config) *InstrumentedPredictHandler {
	return &InstrumentedPredictHandler{
		PredictHandler: NewPredictHandler(service, batch, m, cfg),
	}
}

// Predict handles POST /predict with stage timing headers
// @Summary Classify an image
// @Description Validates the uploaded image and returns class probabilities. Responses carry X-Latency-* headers for each pipeline stage.
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
func (h *InstrumentedPredictHandler) Predict(c *fiber.Ctx) error {
	data, filename, err := h.readImageUpload(c)
	if err != nil {
		return h.errorResponse(c, filename, err)
	}

	rm := metrics.NewRequestMetrics(filename)

	result, err := h.Service.PredictWithMetrics(c.Context(), data, filename, rm)
	if err != nil {
		rm.Finalize()
		setMetricHeaders(c, rm)
		return h.errorResponse(c, filename, err)
	}

	rm.SetFromCache(result.FromCache)
	rm.Finalize()
	setMetricHeaders(c, rm)

	log.Printf("Predict complete - File: %s, Cache: %t, Total: %.2fms",
		filename, result.FromCache, rm.TotalLatencyMs)

	return h.successResponse(c, result, filename)
}

func setMetricHeaders(c *fiber.Ctx, rm *metrics.RequestMetrics) {
	for key, value := range rm.Headers() {
		c.Set(key, value)
	}
}
