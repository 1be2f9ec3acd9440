package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/aiopslab/aiops-gateway/internal/models"
)

// maxBodySize caps request payloads at 10MB.
const maxBodySize = 10 * 1024 * 1024

// ValidationMiddleware rejects oversized bodies and unsupported content
// types before any handler or provider call runs.
type ValidationMiddleware struct {
	skipPaths []string
}

func NewValidationMiddleware(skipPaths []string) *ValidationMiddleware {
	return &ValidationMiddleware{skipPaths: skipPaths}
}

func (m *ValidationMiddleware) Handle() fiber.Handler {
	return func(c *fiber.Ctx) error {
		method := c.Method()
		if method == fiber.MethodGet || method == fiber.MethodHead || method == fiber.MethodDelete {
			return c.Next()
		}
		for _, path := range m.skipPaths {
			if c.Path() == path {
				return c.Next()
			}
		}

		if len(c.Body()) > maxBodySize {
			return respondError(c, &models.AppError{
				Type:       models.ErrorTypeValidation,
				Message:    "request body exceeds maximum size",
				Code:       "PAYLOAD_TOO_LARGE",
				StatusCode: fiber.StatusRequestEntityTooLarge,
			})
		}

		if len(c.Body()) > 0 {
			contentType := c.Get(fiber.HeaderContentType)
			if !strings.HasPrefix(contentType, fiber.MIMEApplicationJSON) {
				return respondError(c, &models.AppError{
					Type:       models.ErrorTypeValidation,
					Message:    "unsupported content type, expected application/json",
					Code:       "UNSUPPORTED_MEDIA_TYPE",
					StatusCode: fiber.StatusUnsupportedMediaType,
				})
			}
		}

		return c.Next()
	}
}
