package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const (
	// RequestIDLocal is the fiber locals key carrying the request ID.
	RequestIDLocal = "request_id"

	maxRequestIDLength = 64
)

// RequestID attaches an identifier to every request, honoring a caller
// supplied X-Request-ID when it is sane and minting a UUID otherwise.
// The ID is echoed back in the response header.
func RequestID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		requestID := strings.TrimSpace(c.Get("X-Request-ID"))
		if requestID == "" || len(requestID) > maxRequestIDLength {
			requestID = uuid.NewString()
		}

		c.Locals(RequestIDLocal, requestID)
		c.Set("X-Request-ID", requestID)
		return c.Next()
	}
}

// GetRequestID returns the request ID set by RequestID, or "".
func GetRequestID(c *fiber.Ctx) string {
	if id, ok := c.Locals(RequestIDLocal).(string); ok {
		return id
	}
	return ""
}
