package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfig = `
server:
  port: "9090"
  environment: development
  log_level: debug

auth:
  jwt_secret: ${TEST_JWT_SECRET:-fallback-secret}
  token_ttl_minutes: 30
  admin_username: admin
  admin_password: ${TEST_ADMIN_PASSWORD}

rate_limit:
  enabled: true
  default_limit: 50
  window_seconds: 30
  exempt_paths:
    - /health

budget:
  limit: 25.5

providers:
  OpenAI:
    api_key: sk-test
    model: gpt-4o
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadFromFile(t *testing.T) {
	t.Setenv("TEST_ADMIN_PASSWORD", "hunter2-but-longer")

	cfg, err := LoadFromFile(writeConfig(t, testConfig))
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "hunter2-but-longer", cfg.Auth.AdminPassword)
	assert.Equal(t, 30, cfg.Auth.TokenTTLMinutes)
	assert.Equal(t, 50, cfg.RateLimit.DefaultLimit)
	assert.Equal(t, 25.5, cfg.Budget.Limit)

	// Provider names are normalized to lowercase.
	assert.Equal(t, "sk-test", cfg.GetProviderAPIKey("openai"))
	assert.True(t, cfg.HasAnyProviderKey())
}

func TestEnvSubstitutionDefault(t *testing.T) {
	os.Unsetenv("TEST_JWT_SECRET")

	cfg, err := LoadFromFile(writeConfig(t, testConfig))
	require.NoError(t, err)
	assert.Equal(t, "fallback-secret", cfg.Auth.JWTSecret)
}

func TestEnvSubstitutionOverride(t *testing.T) {
	t.Setenv("TEST_JWT_SECRET", "from-environment")

	cfg, err := LoadFromFile(writeConfig(t, testConfig))
	require.NoError(t, err)
	assert.Equal(t, "from-environment", cfg.Auth.JWTSecret)
}

func TestLoadFromFileMissing(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestRateLimitDefaultsWhenAbsent(t *testing.T) {
	cfg, err := LoadFromFile(writeConfig(t, "server:\n  port: \"8080\"\n"))
	require.NoError(t, err)

	assert.True(t, cfg.RateLimit.Enabled)
	assert.Equal(t, 100, cfg.RateLimit.DefaultLimit)
	assert.Contains(t, cfg.RateLimit.ExemptPaths, "/health")
}

func TestValidate(t *testing.T) {
	cfg, err := LoadFromFile(writeConfig(t, testConfig))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	cfg.Server.Port = "not-a-port"
	assert.Error(t, cfg.Validate())
}
