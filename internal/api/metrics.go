package api

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/aiopslab/aiops-gateway/internal/services/middleware"
)

// MetricsHandler serves the request aggregates collected by the metrics
// middleware.
type MetricsHandler struct {
	metrics *middleware.Metrics
	started time.Time
}

func NewMetricsHandler(metrics *middleware.Metrics) *MetricsHandler {
	return &MetricsHandler{metrics: metrics, started: time.Now()}
}

func (h *MetricsHandler) GetMetrics(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"uptime_seconds": int64(time.Since(h.started).Seconds()),
		"routes":         h.metrics.Snapshot(),
	})
}
