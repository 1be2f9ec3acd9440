package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"

	"github.com/aiopslab/aiops-gateway/internal/models"
	"github.com/aiopslab/aiops-gateway/internal/services/agents"
	"github.com/aiopslab/aiops-gateway/internal/services/auth"
	"github.com/aiopslab/aiops-gateway/internal/services/middleware"
	"github.com/aiopslab/aiops-gateway/internal/services/usage"
)

// AgentsHandler exposes the analysis agents. Every successful invocation
// is priced and written to the usage ledger before the response goes out.
type AgentsHandler struct {
	agents *agents.Service
	ledger *usage.Ledger
}

func NewAgentsHandler(agentService *agents.Service, ledger *usage.Ledger) *AgentsHandler {
	return &AgentsHandler{agents: agentService, ledger: ledger}
}

// ReviewCode runs the code review agent.
func (h *AgentsHandler) ReviewCode(c *fiber.Ctx) error {
	var req models.CodeReviewRequest
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, models.NewValidationError("invalid request body", err))
	}

	result, inv, err := h.agents.ReviewCode(c.Context(), &req)
	if err != nil {
		return respondError(c, err)
	}

	if err := h.recordUsage(c, "code-reviewer", inv); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"result": result, "meta": inv})
}

// AnalyzeLogs runs the log analysis agent.
func (h *AgentsHandler) AnalyzeLogs(c *fiber.Ctx) error {
	var req models.LogAnalysisRequest
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, models.NewValidationError("invalid request body", err))
	}

	result, inv, err := h.agents.AnalyzeLogs(c.Context(), &req)
	if err != nil {
		return respondError(c, err)
	}

	if err := h.recordUsage(c, "log-analyzer", inv); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"result": result, "meta": inv})
}

// GenerateTests runs the test generation agent.
func (h *AgentsHandler) GenerateTests(c *fiber.Ctx) error {
	var req models.TestGenerationRequest
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, models.NewValidationError("invalid request body", err))
	}

	result, inv, err := h.agents.GenerateTests(c.Context(), &req)
	if err != nil {
		return respondError(c, err)
	}

	if err := h.recordUsage(c, "test-generator", inv); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"result": result, "meta": inv})
}

// recordUsage writes the priced invocation to the ledger. Cached results
// consumed no tokens and are not recorded. A budget rejection surfaces as
// 402 even though the generation already ran; the ledger stays within its
// ceiling either way.
func (h *AgentsHandler) recordUsage(c *fiber.Ctx, agent string, inv *agents.Invocation) error {
	if inv == nil || inv.Cached {
		return nil
	}

	var subject string
	if identity := auth.GetIdentity(c); identity != nil {
		subject = identity.Subject
	}

	record, err := h.ledger.Record(c.Context(), models.RecordUsageParams{
		Provider:     inv.Provider,
		Model:        inv.Model,
		InputTokens:  int(inv.InputTokens),
		OutputTokens: int(inv.OutputTokens),
		Subject:      subject,
		Agent:        agent,
		Operation:    c.Method() + " " + c.Path(),
		RequestID:    middleware.GetRequestID(c),
	})
	if err != nil {
		if errors.Is(err, models.ErrBudgetExceeded) {
			fiberlog.Warnf("agents: %s invocation hit budget ceiling", agent)
		}
		return err
	}

	c.Locals(middleware.UsageRecordLocal, record)
	return nil
}
