package api

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/aiopslab/aiops-gateway/internal/services/cache"
	"github.com/aiopslab/aiops-gateway/internal/services/database"
	"github.com/aiopslab/aiops-gateway/internal/services/llm"
)

// HealthHandler reports gateway liveness and dependency status.
type HealthHandler struct {
	db    *database.DB
	cache *cache.ResponseCache
	llm   *llm.Manager
}

// NewHealthHandler creates a new health check handler. db and cache may
// be nil when the corresponding backend is not configured.
func NewHealthHandler(db *database.DB, responseCache *cache.ResponseCache, manager *llm.Manager) *HealthHandler {
	return &HealthHandler{db: db, cache: responseCache, llm: manager}
}

// HealthCheck returns the health status of the gateway and its local
// dependencies. Provider backends are not called here; see ProviderHealth.
func (h *HealthHandler) HealthCheck(c *fiber.Ctx) error {
	checks := fiber.Map{
		"database": h.checkDatabase(),
		"cache":    h.checkCache(),
	}

	overallStatus := "healthy"
	statusCode := fiber.StatusOK
	for _, status := range checks {
		if status == "unhealthy" {
			overallStatus = "degraded"
			statusCode = fiber.StatusServiceUnavailable
		}
	}

	return c.Status(statusCode).JSON(fiber.Map{
		"status":    overallStatus,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"checks":    checks,
	})
}

// ProviderHealth probes every configured provider concurrently. This
// makes real (billable) API calls, hence admin-only.
func (h *HealthHandler) ProviderHealth(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 15*time.Second)
	defer cancel()

	statuses := h.llm.HealthCheckAll(ctx)

	healthy := true
	for _, s := range statuses {
		if !s.Healthy {
			healthy = false
			break
		}
	}

	statusCode := fiber.StatusOK
	if !healthy {
		statusCode = fiber.StatusServiceUnavailable
	}
	return c.Status(statusCode).JSON(fiber.Map{"providers": statuses})
}

func (h *HealthHandler) checkDatabase() string {
	if h.db == nil {
		return "not_configured"
	}
	if err := h.db.Ping(); err != nil {
		return "unhealthy"
	}
	return "healthy"
}

func (h *HealthHandler) checkCache() string {
	if h.cache == nil {
		return "not_configured"
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := h.cache.Ping(ctx); err != nil {
		return "unhealthy"
	}
	return "healthy"
}
