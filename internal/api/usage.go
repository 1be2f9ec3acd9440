package api

import (
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"

	"github.com/aiopslab/aiops-gateway/internal/models"
	"github.com/aiopslab/aiops-gateway/internal/services/usage"
)

// UsageHandler exposes the ledger's aggregate views and the admin reset.
type UsageHandler struct {
	ledger *usage.Ledger
}

func NewUsageHandler(ledger *usage.Ledger) *UsageHandler {
	return &UsageHandler{ledger: ledger}
}

// GetStats returns aggregate usage, optionally bounded by start/end
// RFC3339 query parameters.
func (h *UsageHandler) GetStats(c *fiber.Ctx) error {
	var from, to *time.Time

	if startStr := c.Query("start"); startStr != "" {
		start, err := time.Parse(time.RFC3339, startStr)
		if err != nil {
			return respondError(c, models.NewValidationError("invalid start date, expected RFC3339", err))
		}
		from = &start
	}
	if endStr := c.Query("end"); endStr != "" {
		end, err := time.Parse(time.RFC3339, endStr)
		if err != nil {
			return respondError(c, models.NewValidationError("invalid end date, expected RFC3339", err))
		}
		to = &end
	}
	if from != nil && to != nil && to.Before(*from) {
		return respondError(c, models.NewValidationError("end date is before start date", nil))
	}

	return c.JSON(h.ledger.Stats(from, to))
}

// GetBudget returns the current budget position.
func (h *UsageHandler) GetBudget(c *fiber.Ctx) error {
	return c.JSON(h.ledger.BudgetStatus())
}

// ResetUsage clears the ledger and its persisted records.
func (h *UsageHandler) ResetUsage(c *fiber.Ctx) error {
	if err := h.ledger.Reset(c.Context()); err != nil {
		return respondError(c, err)
	}
	fiberlog.Info("usage: ledger reset by admin")
	return c.JSON(fiber.Map{"reset": true})
}
