package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"

	"github.com/aiopslab/aiops-gateway/internal/models"
	"github.com/aiopslab/aiops-gateway/internal/services/auth"
)

// AuthMiddleware resolves caller identity from a bearer token or API key
// and attaches it to the request. Paths in SkipPaths pass through
// unauthenticated.
type AuthMiddleware struct {
	authService *auth.Service
	skipPaths   []string
}

func NewAuthMiddleware(authService *auth.Service, skipPaths []string) *AuthMiddleware {
	return &AuthMiddleware{
		authService: authService,
		skipPaths:   skipPaths,
	}
}

// Authenticate requires a valid credential on every non-skipped path.
func (m *AuthMiddleware) Authenticate() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if m.shouldSkipPath(c.Path()) {
			return c.Next()
		}

		bearerToken := extractBearerToken(c)
		apiKeyValue := c.Get("X-API-Key")

		identity, err := m.authService.Authenticate(c.Context(), bearerToken, apiKeyValue)
		if err != nil {
			fiberlog.Debugf("auth: request to %s rejected: %v", c.Path(), err)
			return respondError(c, err)
		}

		auth.SetIdentity(c, identity)
		return c.Next()
	}
}

// RequireRole gates a route group on a minimum role. Must run after
// Authenticate.
func (m *AuthMiddleware) RequireRole(minimum models.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		identity := auth.GetIdentity(c)
		if identity == nil {
			return respondError(c, models.NewAuthenticationError(nil))
		}
		if err := auth.Require(identity, minimum); err != nil {
			fiberlog.Debugf("auth: subject %s denied %s (requires %s)",
				identity.Subject, c.Path(), minimum)
			return respondError(c, err)
		}
		return c.Next()
	}
}

func extractBearerToken(c *fiber.Ctx) string {
	header := c.Get(fiber.HeaderAuthorization)
	if after, ok := strings.CutPrefix(header, "Bearer "); ok {
		return strings.TrimSpace(after)
	}
	return ""
}

func (m *AuthMiddleware) shouldSkipPath(path string) bool {
	for _, skipPath := range m.skipPaths {
		if path == skipPath {
			return true
		}
	}
	return false
}
