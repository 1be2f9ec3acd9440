package models

import "time"

// ProviderConfig holds the credentials and default model for one downstream
// LLM provider.
type ProviderConfig struct {
	APIKey  string `yaml:"api_key" json:"-"`
	Model   string `yaml:"model,omitempty" json:"model,omitempty"`
	BaseURL string `yaml:"base_url,omitempty" json:"base_url,omitempty"`
}

// CacheConfig configures the optional redis-backed agent response cache.
// An empty RedisURL disables caching entirely.
type CacheConfig struct {
	RedisURL   string `yaml:"redis_url,omitempty" json:"redis_url,omitempty"`
	TTLSeconds int    `yaml:"ttl_seconds,omitempty" json:"ttl_seconds,omitempty"`
}

// TTL returns the cache entry lifetime, defaulting to one hour.
func (c CacheConfig) TTL() time.Duration {
	if c.TTLSeconds <= 0 {
		return time.Hour
	}
	return time.Duration(c.TTLSeconds) * time.Second
}
