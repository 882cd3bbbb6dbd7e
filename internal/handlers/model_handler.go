package handlers

import (
	"github.com/gofiber/fiber/v2"

	"classifier-service/internal/inference"
	"classifier-service/internal/services"
)

// ModelHandler handles model introspection endpoints
type ModelHandler struct {
	engine inference.Engine
	stats  *services.StatsService
	cache  *services.PredictionCache
}

// NewModelHandler creates a new model handler
func NewModelHandler(engine inference.Engine, stats *services.StatsService, cache *services.PredictionCache) *ModelHandler {
	return &ModelHandler{
		engine: engine,
		stats:  stats,
		cache:  cache,
	}
}

// GetModelInfo handles GET /model/info to describe the loaded model
// @Summary Get model information
// @Description Get the load status, input/output names and class list of the model
// @Tags model
// @Accept json
// @Produce json
// @Success 200 {object} models.ModelInfo "Model information"
// @Router /model/info [get]
func (h *ModelHandler) GetModelInfo(c *fiber.Ctx) error {
	return c.JSON(h.engine.Info())
}

// GetModelStats handles GET /model/stats to retrieve service statistics
// @Summary Get service statistics
// @Description Get prediction counters, cache hit rates and validation failure counts
// @Tags model
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{} "Service statistics"
// @Router /model/stats [get]
func (h *ModelHandler) GetModelStats(c *fiber.Ctx) error {
	var cacheInfo interface{}
	if info, err := h.cache.Info(); err == nil {
		cacheInfo = info
	}

	return c.JSON(fiber.Map{
		"success":    true,
		"statistics": h.stats.Snapshot(),
		"cache_info": cacheInfo,
	})
}
