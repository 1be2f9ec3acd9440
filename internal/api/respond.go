package api

import (
	"github.com/gofiber/fiber/v2"

	"github.com/aiopslab/aiops-gateway/internal/models"
)

func respondError(c *fiber.Ctx, err error) error {
	appErr := models.SanitizeError(err)
	return c.Status(appErr.GetStatusCode()).JSON(fiber.Map{"error": appErr})
}
