package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/aiopslab/aiops-gateway/internal/models"
	"github.com/aiopslab/aiops-gateway/internal/services/apikey"
	"github.com/aiopslab/aiops-gateway/internal/services/auth"
	"github.com/aiopslab/aiops-gateway/internal/services/ratelimit"
)

func newAuthService(t *testing.T) *auth.Service {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	keys := apikey.NewService(db)
	require.NoError(t, keys.AutoMigrate())

	codec := auth.NewTokenCodec("test-secret-for-middleware-suite")
	return auth.NewService(codec, keys, models.AuthConfig{
		AdminUsername: "admin",
		AdminPassword: "admin-password-for-tests",
	})
}

func okHandler(c *fiber.Ctx) error {
	return c.SendStatus(fiber.StatusOK)
}

func TestAuthenticateRejectsMissingCredentials(t *testing.T) {
	app := fiber.New()
	m := NewAuthMiddleware(newAuthService(t), []string{"/health"})
	app.Use(m.Authenticate())
	app.Get("/v1/usage/stats", okHandler)

	req := httptest.NewRequest(http.MethodGet, "/v1/usage/stats", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestAuthenticateSkipsConfiguredPaths(t *testing.T) {
	app := fiber.New()
	m := NewAuthMiddleware(newAuthService(t), []string{"/health"})
	app.Use(m.Authenticate())
	app.Get("/health", okHandler)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestAuthenticateAcceptsAdminToken(t *testing.T) {
	svc := newAuthService(t)
	token, _, err := svc.Login("admin", "admin-password-for-tests")
	require.NoError(t, err)

	app := fiber.New()
	m := NewAuthMiddleware(svc, nil)
	app.Use(m.Authenticate())
	app.Get("/v1/admin/keys", m.RequireRole(models.RoleAdmin), okHandler)

	req := httptest.NewRequest(http.MethodGet, "/v1/admin/keys", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestRequireRoleDeniesInsufficientRole(t *testing.T) {
	svc := newAuthService(t)

	app := fiber.New()
	m := NewAuthMiddleware(svc, nil)
	app.Get("/v1/admin/keys", func(c *fiber.Ctx) error {
		auth.SetIdentity(c, &models.Identity{
			Subject: "service-account",
			Role:    models.RoleReadonly,
			Method:  models.AuthMethodAPIKey,
		})
		return c.Next()
	}, m.RequireRole(models.RoleAdmin), okHandler)

	req := httptest.NewRequest(http.MethodGet, "/v1/admin/keys", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestRateLimitHeadersAndRejection(t *testing.T) {
	limiter := ratelimit.New(models.RateLimitConfig{
		Enabled:       true,
		DefaultLimit:  2,
		WindowSeconds: 60,
	})
	m := NewRateLimitMiddleware(limiter, models.RateLimitConfig{Enabled: true})

	app := fiber.New()
	app.Use(m.PreAuth())
	app.Get("/v1/usage/stats", okHandler)

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/v1/usage/stats", nil)
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
		assert.Equal(t, "2", resp.Header.Get("X-RateLimit-Limit"))
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/usage/stats", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "0", resp.Header.Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, resp.Header.Get("Retry-After"))
	assert.NotEmpty(t, resp.Header.Get("X-RateLimit-Reset"))
}

func TestRateLimitExemptPath(t *testing.T) {
	limiter := ratelimit.New(models.RateLimitConfig{
		Enabled:       true,
		DefaultLimit:  1,
		WindowSeconds: 60,
		ExemptPaths:   []string{"/health"},
	})
	m := NewRateLimitMiddleware(limiter, models.RateLimitConfig{Enabled: true})

	app := fiber.New()
	app.Use(m.PreAuth())
	app.Get("/health", okHandler)

	for i := 0; i < 5; i++ {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	}
}

func TestBadCredentialFloodIsThrottledBeforeAuth(t *testing.T) {
	limiter := ratelimit.New(models.RateLimitConfig{
		Enabled:       true,
		DefaultLimit:  2,
		WindowSeconds: 60,
	})
	rateLimitMW := NewRateLimitMiddleware(limiter, models.RateLimitConfig{Enabled: true})
	authMW := NewAuthMiddleware(newAuthService(t), nil)

	// Pipeline order as in the gateway: address limiter ahead of auth.
	app := fiber.New()
	app.Use(rateLimitMW.PreAuth())
	app.Use(authMW.Authenticate())
	app.Get("/v1/usage/stats", okHandler)

	statuses := make(map[int]int)
	for i := 0; i < 20; i++ {
		req := httptest.NewRequest(http.MethodGet, "/v1/usage/stats", nil)
		req.Header.Set("X-API-Key", "aiops_invalid-key")
		resp, err := app.Test(req)
		require.NoError(t, err)
		statuses[resp.StatusCode]++
	}

	assert.Equal(t, 2, statuses[fiber.StatusUnauthorized])
	assert.Equal(t, 18, statuses[fiber.StatusTooManyRequests])
}

func TestPerIdentityLimitUsesOverride(t *testing.T) {
	limiter := ratelimit.New(models.RateLimitConfig{
		Enabled:       true,
		DefaultLimit:  100,
		WindowSeconds: 60,
	})
	m := NewRateLimitMiddleware(limiter, models.RateLimitConfig{Enabled: true})

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		auth.SetIdentity(c, &models.Identity{
			Subject:           "capped-key",
			Role:              models.RoleUser,
			Method:            models.AuthMethodAPIKey,
			RateLimitOverride: 1,
		})
		return c.Next()
	})
	app.Use(m.PerIdentity())
	app.Get("/v1/usage/stats", okHandler)

	req := httptest.NewRequest(http.MethodGet, "/v1/usage/stats", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "1", resp.Header.Get("X-RateLimit-Limit"))

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/v1/usage/stats", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)
}

func TestPerIdentityPassesAnonymousTraffic(t *testing.T) {
	limiter := ratelimit.New(models.RateLimitConfig{
		Enabled:       true,
		DefaultLimit:  1,
		WindowSeconds: 60,
	})
	m := NewRateLimitMiddleware(limiter, models.RateLimitConfig{Enabled: true})

	app := fiber.New()
	app.Use(m.PerIdentity())
	app.Get("/v1/auth/token", okHandler)

	// No identity resolved: the address stage owns anonymous throttling,
	// so this stage consumes nothing.
	for i := 0; i < 5; i++ {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/v1/auth/token", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	}
}

func TestValidationRejectsNonJSONBody(t *testing.T) {
	app := fiber.New()
	app.Use(NewValidationMiddleware(nil).Handle())
	app.Post("/v1/agents/code-review", okHandler)

	req := httptest.NewRequest(http.MethodPost, "/v1/agents/code-review",
		strings.NewReader("<xml/>"))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMETextXML)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnsupportedMediaType, resp.StatusCode)
}

func TestValidationAllowsJSONBody(t *testing.T) {
	app := fiber.New()
	app.Use(NewValidationMiddleware(nil).Handle())
	app.Post("/v1/agents/code-review", okHandler)

	req := httptest.NewRequest(http.MethodPost, "/v1/agents/code-review",
		bytes.NewReader([]byte(`{"code": "print(1)"}`)))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestValidationIgnoresGetRequests(t *testing.T) {
	app := fiber.New()
	app.Use(NewValidationMiddleware(nil).Handle())
	app.Get("/v1/usage/stats", okHandler)

	req := httptest.NewRequest(http.MethodGet, "/v1/usage/stats", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestRequestIDMintsAndEchoes(t *testing.T) {
	app := fiber.New()
	app.Use(RequestID())
	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString(GetRequestID(c))
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
}

func TestRequestIDHonorsCallerValue(t *testing.T) {
	app := fiber.New()
	app.Use(RequestID())
	app.Get("/", okHandler)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "trace-abc-123")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, "trace-abc-123", resp.Header.Get("X-Request-ID"))
}

func TestProcessTimeHeaderOnEveryResponse(t *testing.T) {
	app := fiber.New()
	app.Use(ProcessTime())
	app.Get("/", okHandler)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)

	value := resp.Header.Get("X-Process-Time")
	require.NotEmpty(t, value)
	seconds, err := strconv.ParseFloat(value, 64)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, seconds, 0.0)
}

func TestMetricsCollectsPerRouteAggregates(t *testing.T) {
	metrics := NewMetrics()

	app := fiber.New()
	app.Use(metrics.Handle())
	app.Get("/health", okHandler)
	app.Get("/boom", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusInternalServerError)
	})

	for i := 0; i < 3; i++ {
		_, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
		require.NoError(t, err)
	}
	_, err := app.Test(httptest.NewRequest(http.MethodGet, "/boom", nil))
	require.NoError(t, err)

	snapshot := metrics.Snapshot()

	health := snapshot["GET:/health"]
	assert.Equal(t, int64(3), health.Count)
	assert.Equal(t, int64(0), health.Errors)
	assert.GreaterOrEqual(t, health.MaxMs, health.MinMs)

	boom := snapshot["GET:/boom"]
	assert.Equal(t, int64(1), boom.Count)
	assert.Equal(t, int64(1), boom.Errors)
}
