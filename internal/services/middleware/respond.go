package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/aiopslab/aiops-gateway/internal/models"
)

// respondError renders a sanitized error body. Internal causes never
// reach the wire.
func respondError(c *fiber.Ctx, err error) error {
	appErr := models.SanitizeError(err)
	return c.Status(appErr.GetStatusCode()).JSON(fiber.Map{"error": appErr})
}
