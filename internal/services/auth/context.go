package auth

import (
	"github.com/aiopslab/aiops-gateway/internal/models"
	"github.com/gofiber/fiber/v2"
)

const identityLocal = "identity"

// SetIdentity stores the resolved identity on the request context for later
// pipeline stages (rate limiting already ran; usage recording reads it).
func SetIdentity(c *fiber.Ctx, identity *models.Identity) {
	c.Locals(identityLocal, identity)
}

// GetIdentity returns the identity resolved by the authentication stage, or
// nil when the request never passed authentication.
func GetIdentity(c *fiber.Ctx) *models.Identity {
	identity, ok := c.Locals(identityLocal).(*models.Identity)
	if !ok {
		return nil
	}
	return identity
}
