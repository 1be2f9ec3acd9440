package middleware

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"

	"github.com/aiopslab/aiops-gateway/internal/models"
	"github.com/aiopslab/aiops-gateway/internal/services/auth"
	"github.com/aiopslab/aiops-gateway/internal/services/ratelimit"
)

// RateLimitMiddleware enforces the sliding-window limiter in two stages
// sharing one Limiter. PreAuth runs before credentials are examined and
// throttles by client address, so an invalid-credential flood is rejected
// here instead of burning a registry lookup per attempt. PerIdentity runs
// after authentication and throttles by resolved subject with the per-key
// override; anonymous traffic was already counted by PreAuth and passes
// through.
type RateLimitMiddleware struct {
	limiter *ratelimit.Limiter
	enabled bool
}

func NewRateLimitMiddleware(limiter *ratelimit.Limiter, config models.RateLimitConfig) *RateLimitMiddleware {
	return &RateLimitMiddleware{
		limiter: limiter,
		enabled: config.Enabled,
	}
}

// PreAuth throttles by client address. Address and subject windows are
// separate keys, so this stage never consumes a subject's quota.
func (m *RateLimitMiddleware) PreAuth() fiber.Handler {
	return m.handle(func(c *fiber.Ctx) (string, int) {
		return "ip:" + c.IP(), 0
	})
}

// PerIdentity throttles by authenticated subject, prefixed by auth method
// so token and key traffic for the same subject count separately.
func (m *RateLimitMiddleware) PerIdentity() fiber.Handler {
	return m.handle(func(c *fiber.Ctx) (string, int) {
		if identity := auth.GetIdentity(c); identity != nil {
			return string(identity.Method) + ":" + identity.Subject, identity.RateLimitOverride
		}
		return "", 0
	})
}

func (m *RateLimitMiddleware) handle(keyFn func(*fiber.Ctx) (string, int)) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !m.enabled || m.limiter.Exempt(c.Path()) {
			return c.Next()
		}

		identifier, override := keyFn(c)
		if identifier == "" {
			return c.Next()
		}

		result := m.limiter.Allow(identifier, override)

		c.Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
		c.Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
		c.Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))

		if !result.Allowed {
			retryAfter := int(result.RetryAfter.Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Set("Retry-After", strconv.Itoa(retryAfter))
			fiberlog.Warnf("ratelimit: %s exceeded limit %d, retry after %ds",
				identifier, result.Limit, retryAfter)
			return respondError(c, models.NewRateLimitError())
		}

		return c.Next()
	}
}
