package middleware

import (
	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"

	"github.com/aiopslab/aiops-gateway/internal/models"
	"github.com/aiopslab/aiops-gateway/internal/services/usage"
)

// UsageRecordLocal is where handlers stash the ledger record they wrote,
// for post-request logging.
const UsageRecordLocal = "usage_record"

// UsageTracker guards spend-incurring routes: requests are rejected up
// front once the budget is exhausted, and recorded usage is logged after
// the handler runs. The ledger itself enforces the ceiling atomically at
// record time.
type UsageTracker struct {
	ledger *usage.Ledger
}

func NewUsageTracker(ledger *usage.Ledger) *UsageTracker {
	return &UsageTracker{ledger: ledger}
}

func (u *UsageTracker) TrackUsage() fiber.Handler {
	return func(c *fiber.Ctx) error {
		status := u.ledger.BudgetStatus()
		if status.Exceeded {
			fiberlog.Warnf("usage: rejecting %s, budget exhausted (spent $%.4f of $%.4f)",
				c.Path(), status.TotalCost, status.Limit)
			return respondError(c, models.NewBudgetExceededError(status.Remaining))
		}

		err := c.Next()

		if record, ok := c.Locals(UsageRecordLocal).(*models.UsageRecord); ok && record != nil {
			fiberlog.Debugf("usage: %s %s - %s/%s input:%d output:%d cost:$%.6f",
				c.Method(), c.Path(), record.Provider, record.Model,
				record.InputTokens, record.OutputTokens, record.TotalCost)
		}

		return err
	}
}
