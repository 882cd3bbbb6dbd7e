package handlers

import (
	"log"

	"github.com/gofiber/fiber/v2"

	"classifier-service/internal/services"
)

// CacheHandler handles prediction-cache HTTP endpoints
type CacheHandler struct {
	cache *services.PredictionCache
	stats *services.StatsService
}

// NewCacheHandler creates a new cache handler
func NewCacheHandler(cache *services.PredictionCache, stats *services.StatsService) *CacheHandler {
	return &CacheHandler{
		cache: cache,
		stats: stats,
	}
}

// GetCacheInfo handles GET /model/cache to retrieve cache counters
// @Summary Get cache counters
// @Description Get hit/miss counters and fill level of the prediction cache
// @Tags cache
// @Accept json
// @Produce json
// @Success 200 {object} models.CacheInfo "Cache counters"
// @Failure 400 {object} map[string]interface{} "Cache disabled"
// @Router /model/cache [get]
func (h *CacheHandler) GetCacheInfo(c *fiber.Ctx) error {
	info, err := h.cache.Info()
	if err != nil {
		log.Printf("Cache info requested while cache disabled: %v", err)
		return errorJSON(c, err)
	}

	return c.JSON(info)
}

// ClearCache handles DELETE /model/cache to flush all cached predictions
// @Summary Clear prediction cache
// @Description Remove all cached predictions and reset the hit/miss counters
// @Tags cache
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{} "Cache cleared"
// @Failure 400 {object} map[string]interface{} "Cache disabled"
// @Router /model/cache [delete]
func (h *CacheHandler) ClearCache(c *fiber.Ctx) error {
	if err := h.cache.Flush(); err != nil {
		log.Printf("Error clearing prediction cache: %v", err)
		return errorJSON(c, err)
	}
	h.stats.ResetCacheCounters()

	return c.JSON(fiber.Map{
		"success": true,
	})
}
