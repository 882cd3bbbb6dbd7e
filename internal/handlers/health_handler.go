package handlers

import (
	"math"

	"github.com/gofiber/fiber/v2"

	"classifier-service/internal/config"
	"classifier-service/internal/inference"
	"classifier-service/internal/services"
)

// HealthHandler handles liveness and readiness endpoints
type HealthHandler struct {
	engine inference.Engine
	stats  *services.StatsService
	cfg    *config.Config
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(engine inference.Engine, stats *services.StatsService, cfg *config.Config) *HealthHandler {
	return &HealthHandler{
		engine: engine,
		stats:  stats,
		cfg:    cfg,
	}
}

// Health handles GET /health to report overall service health
// @Summary Get service health
// @Description Report whether the service is healthy or running degraded without a model
// @Tags health
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{} "Health report"
// @Router /health [get]
func (h *HealthHandler) Health(c *fiber.Ctx) error {
	status := "healthy"
	model := "ready"
	if !h.engine.Ready() {
		status = "degraded"
		model = "not_loaded"
	}

	return c.JSON(fiber.Map{
		"status":         status,
		"model":          model,
		"version":        h.cfg.ModelVersion,
		"uptime_seconds": roundSeconds(h.stats.Uptime().Seconds()),
	})
}

// Live handles GET /health/live for liveness probes
// @Summary Liveness probe
// @Description Report that the process is alive
// @Tags health
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{} "Liveness report"
// @Router /health/live [get]
func (h *HealthHandler) Live(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":         "alive",
		"uptime_seconds": roundSeconds(h.stats.Uptime().Seconds()),
	})
}

// Ready handles GET /health/ready for readiness probes
// @Summary Readiness probe
// @Description Report whether the service can serve predictions; 503 until the model is loaded
// @Tags health
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{} "Ready"
// @Failure 503 {object} map[string]interface{} "Not ready"
// @Router /health/ready [get]
func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	ready := h.engine.Ready()
	status := "ready"
	code := fiber.StatusOK
	if !ready {
		status = "not_ready"
		code = fiber.StatusServiceUnavailable
	}

	return c.Status(code).JSON(fiber.Map{
		"status": status,
		"checks": fiber.Map{
			"model": ready,
		},
	})
}

func roundSeconds(s float64) float64 {
	return math.Round(s*100) / 100
}
