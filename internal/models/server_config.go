package models

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Port           string `json:"port,omitempty" yaml:"port"`
	AllowedOrigins string `json:"allowed_origins,omitempty" yaml:"allowed_origins"`
	Environment    string `json:"environment,omitempty" yaml:"environment"`
	LogLevel       string `json:"log_level,omitempty" yaml:"log_level"`
}
