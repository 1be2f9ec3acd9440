package models

import "time"

// AuthConfig holds the token signing secret and the administrative login
// credentials. All values come from the environment via config substitution;
// the startup guard refuses to run when they are missing or weak.
type AuthConfig struct {
	JWTSecret       string `yaml:"jwt_secret" json:"-"`
	TokenTTLMinutes int    `yaml:"token_ttl_minutes" json:"token_ttl_minutes"`
	AdminUsername   string `yaml:"admin_username" json:"admin_username"`
	AdminPassword   string `yaml:"admin_password" json:"-"`
}

// TokenTTL returns the configured token lifetime, defaulting to one hour.
func (c AuthConfig) TokenTTL() time.Duration {
	if c.TokenTTLMinutes <= 0 {
		return time.Hour
	}
	return time.Duration(c.TokenTTLMinutes) * time.Minute
}

// RateLimitConfig configures the sliding-window limiter.
type RateLimitConfig struct {
	Enabled       bool     `yaml:"enabled" json:"enabled"`
	DefaultLimit  int      `yaml:"default_limit" json:"default_limit"`
	WindowSeconds int      `yaml:"window_seconds" json:"window_seconds"`
	ExemptPaths   []string `yaml:"exempt_paths,omitempty" json:"exempt_paths,omitempty"`
}

// Window returns the sliding window length, defaulting to one minute.
func (c RateLimitConfig) Window() time.Duration {
	if c.WindowSeconds <= 0 {
		return time.Minute
	}
	return time.Duration(c.WindowSeconds) * time.Second
}

func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		Enabled:       true,
		DefaultLimit:  100,
		WindowSeconds: 60,
		ExemptPaths:   []string{"/health", "/metrics", "/"},
	}
}

// BudgetConfig configures the usage ledger's hard spending ceiling.
// A zero limit disables enforcement; metering still happens.
type BudgetConfig struct {
	Limit       float64 `yaml:"limit" json:"limit"`
	AutoPersist bool    `yaml:"auto_persist" json:"auto_persist"`
}
