package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/aiopslab/aiops-gateway/internal/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the complete application configuration
type Config struct {
	Server    models.ServerConfig              `yaml:"server"`
	Auth      models.AuthConfig                `yaml:"auth"`
	RateLimit models.RateLimitConfig           `yaml:"rate_limit"`
	Budget    models.BudgetConfig              `yaml:"budget"`
	Database  *models.DatabaseConfig           `yaml:"database,omitempty"`
	Providers map[string]models.ProviderConfig `yaml:"providers,omitempty"`
	Cache     models.CacheConfig               `yaml:"cache,omitempty"`
}

// LoadFromFile loads configuration from a YAML file with environment variable substitution
func LoadFromFile(configPath string) (*Config, error) {
	cleanPath := filepath.Clean(configPath)

	if strings.Contains(cleanPath, "..") {
		return nil, fmt.Errorf("invalid config path: path traversal not allowed")
	}

	ext := filepath.Ext(cleanPath)
	if ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("invalid config file: only .yaml and .yml files are allowed")
	}

	data, err := os.ReadFile(cleanPath) // #nosec G304 - path is validated above
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", cleanPath, err)
	}

	content := substituteEnvVars(string(data))

	var config Config
	if err := yaml.Unmarshal([]byte(content), &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}

	// Normalize provider map keys to lowercase for case-insensitive lookups
	if config.Providers != nil {
		normalized := make(map[string]models.ProviderConfig, len(config.Providers))
		for key, value := range config.Providers {
			normalized[strings.ToLower(key)] = value
		}
		config.Providers = normalized
	}

	if config.RateLimit.DefaultLimit == 0 && config.RateLimit.WindowSeconds == 0 && len(config.RateLimit.ExemptPaths) == 0 {
		config.RateLimit = models.DefaultRateLimitConfig()
	}

	return &config, nil
}

// LoadEnvFiles loads environment variables from .env files in order of precedence
// Loads files in the order provided (first has highest priority)
func LoadEnvFiles(envFiles []string) {
	for _, envFile := range envFiles {
		if _, err := os.Stat(envFile); err == nil {
			if err := godotenv.Load(envFile); err == nil {
				fmt.Printf("Loaded environment variables from %s\n", envFile)
			}
		}
	}
}

// New creates a new Config instance by loading from the specified config file path
func New(configPath string) (*Config, error) {
	return LoadFromFile(configPath)
}

// substituteEnvVars replaces ${VAR_NAME} and ${VAR_NAME:-default} patterns with environment variables
func substituteEnvVars(content string) string {
	re := regexp.MustCompile(`\$\{([^}:]+)(?::(-[^}]*))?\}`)

	return re.ReplaceAllStringFunc(content, func(match string) string {
		submatches := re.FindStringSubmatch(match)
		if len(submatches) < 2 {
			return match
		}

		varName := submatches[1]
		defaultValue := ""

		if len(submatches) > 2 && submatches[2] != "" {
			defaultValue = strings.TrimPrefix(submatches[2], "-")
		}

		if value := os.Getenv(varName); value != "" {
			return value
		}

		return defaultValue
	})
}

// GetProviderAPIKey returns the API key for a specific provider
func (c *Config) GetProviderAPIKey(provider string) string {
	if c.Providers == nil {
		return ""
	}
	return c.Providers[strings.ToLower(provider)].APIKey
}

// HasAnyProviderKey reports whether at least one downstream provider
// credential is configured.
func (c *Config) HasAnyProviderKey() bool {
	for _, p := range c.Providers {
		if p.APIKey != "" {
			return true
		}
	}
	return false
}

// GetNormalizedLogLevel returns the log level in lowercase
func (c *Config) GetNormalizedLogLevel() string {
	return strings.ToLower(strings.TrimSpace(c.Server.LogLevel))
}

// IsProduction returns true when the environment is set to production
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Server.Environment, "production")
}

// Validate checks structural configuration problems. Security-sensitive
// checks (secret strength, provider credentials) live in the startup guard.
func (c *Config) Validate() error {
	if c.Server.Port != "" {
		for _, r := range c.Server.Port {
			if r < '0' || r > '9' {
				return &ValidationError{Field: "server.port", Message: "must be numeric"}
			}
		}
	}

	if c.RateLimit.DefaultLimit < 0 {
		return &ValidationError{Field: "rate_limit.default_limit", Message: "must not be negative"}
	}

	if c.Budget.Limit < 0 {
		return &ValidationError{Field: "budget.limit", Message: "must not be negative"}
	}

	if c.Database != nil {
		switch c.Database.Type {
		case models.SQLite, models.PostgreSQL, models.MySQL:
		default:
			return &ValidationError{Field: "database.type", Message: fmt.Sprintf("unsupported database type: %s", c.Database.Type)}
		}
	}

	return nil
}

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed for %s: %s", e.Field, e.Message)
}
