package models

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"time"
)

// APIKey is a stored credential record. Only the SHA-256 digest of the raw
// secret is persisted; the raw key is returned exactly once at creation.
// Revocation is a soft delete (Enabled=false) so the audit trail survives.
type APIKey struct {
	KeyHash    string     `gorm:"primaryKey;size:64" json:"-"`
	KeyPrefix  string     `gorm:"index;size:12" json:"key_prefix"`
	Name       string     `gorm:"not null;size:255" json:"name"`
	Role       string     `gorm:"not null;size:20;default:'user'" json:"role"`
	RateLimit  int        `gorm:"default:0" json:"rate_limit,omitempty"`
	Enabled    bool       `gorm:"not null;default:true;index" json:"enabled"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
	CreatedAt  time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (APIKey) TableName() string {
	return "api_keys"
}

type APIKeyCreateRequest struct {
	Name      string `json:"name" validate:"required,min=1,max=255"`
	Role      string `json:"role,omitempty"`
	RateLimit int    `json:"rate_limit,omitempty"`
}

// APIKeyResponse is what key endpoints return. Key is populated only on
// creation and never again.
type APIKeyResponse struct {
	Key        string     `json:"key,omitempty"`
	KeyHash    string     `json:"key_hash"`
	KeyPrefix  string     `json:"key_prefix"`
	Name       string     `json:"name"`
	Role       string     `json:"role"`
	RateLimit  int        `json:"rate_limit,omitempty"`
	Enabled    bool       `json:"enabled"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// GenerateAPIKey mints a new raw secret: a recognizable prefix plus 32 bytes
// of CSPRNG output, base64url encoded.
func GenerateAPIKey() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return "aiops_" + base64.RawURLEncoding.EncodeToString(b), nil
}

// HashAPIKey returns the hex SHA-256 digest under which a key is stored.
func HashAPIKey(key string) string {
	hash := sha256.Sum256([]byte(key))
	return fmt.Sprintf("%x", hash)
}

// ExtractKeyPrefix returns the displayable head of a raw key.
func ExtractKeyPrefix(key string) string {
	if len(key) < 12 {
		return key
	}
	return key[:12]
}
