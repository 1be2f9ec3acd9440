// Package apikey implements the credential registry: hashed API-key records
// with create, validate, revoke, and list operations. Raw secrets are never
// stored; every lookup goes through the SHA-256 digest.
package apikey

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aiopslab/aiops-gateway/internal/models"

	fiberlog "github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"
)

type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

func (s *Service) AutoMigrate() error {
	return s.db.AutoMigrate(&models.APIKey{})
}

// CreateAPIKey mints a new random secret, persists only its digest, and
// returns the raw key exactly once in the response. There is no way to
// retrieve it again.
func (s *Service) CreateAPIKey(ctx context.Context, req *models.APIKeyCreateRequest) (*models.APIKeyResponse, error) {
	role := models.Role(req.Role)
	if req.Role == "" {
		role = models.RoleUser
	}
	if !role.Valid() {
		return nil, fmt.Errorf("invalid role: %q", req.Role)
	}

	key, err := models.GenerateAPIKey()
	if err != nil {
		return nil, fmt.Errorf("failed to generate API key: %w", err)
	}

	apiKey := &models.APIKey{
		KeyHash:   models.HashAPIKey(key),
		KeyPrefix: models.ExtractKeyPrefix(key),
		Name:      req.Name,
		Role:      string(role),
		RateLimit: req.RateLimit,
		Enabled:   true,
	}

	if err := s.db.WithContext(ctx).Create(apiKey).Error; err != nil {
		return nil, fmt.Errorf("failed to create API key: %w", err)
	}

	fiberlog.Infof("Created API key %q (role: %s)", apiKey.Name, apiKey.Role)

	resp := toResponse(apiKey)
	resp.Key = key
	return resp, nil
}

// ValidateAPIKey digests the raw secret and looks up the record. Revoked and
// never-existed keys produce the same ErrKeyNotFound so responses cannot be
// used to probe registry contents. A successful validation bumps LastUsedAt.
func (s *Service) ValidateAPIKey(ctx context.Context, key string) (*models.APIKey, error) {
	if key == "" {
		return nil, models.ErrKeyNotFound
	}

	keyHash := models.HashAPIKey(key)
	var apiKey models.APIKey

	err := s.db.WithContext(ctx).Where("key_hash = ? AND enabled = ?", keyHash, true).First(&apiKey).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.ErrKeyNotFound
		}
		return nil, fmt.Errorf("failed to validate API key: %w", err)
	}

	now := time.Now()
	if err := s.db.WithContext(ctx).Model(&models.APIKey{}).
		Where("key_hash = ?", apiKey.KeyHash).
		Update("last_used_at", now).Error; err != nil {
		fiberlog.Warnf("Failed to update last_used_at for key %q: %v", apiKey.Name, err)
	}
	apiKey.LastUsedAt = &now

	return &apiKey, nil
}

// RevokeAPIKey disables a key by digest. Records are never physically
// removed so the audit trail survives revocation.
func (s *Service) RevokeAPIKey(ctx context.Context, keyHash string) error {
	result := s.db.WithContext(ctx).Model(&models.APIKey{}).
		Where("key_hash = ?", keyHash).
		Update("enabled", false)
	if result.Error != nil {
		return fmt.Errorf("failed to revoke API key: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return models.ErrKeyNotFound
	}
	return nil
}

// ListAPIKeys returns key metadata. Raw secrets are not stored, so they
// cannot appear here.
func (s *Service) ListAPIKeys(ctx context.Context) ([]models.APIKeyResponse, error) {
	var apiKeys []models.APIKey
	if err := s.db.WithContext(ctx).Order("created_at DESC").Find(&apiKeys).Error; err != nil {
		return nil, fmt.Errorf("failed to list API keys: %w", err)
	}

	responses := make([]models.APIKeyResponse, len(apiKeys))
	for i := range apiKeys {
		responses[i] = *toResponse(&apiKeys[i])
	}
	return responses, nil
}

func toResponse(k *models.APIKey) *models.APIKeyResponse {
	return &models.APIKeyResponse{
		KeyHash:    k.KeyHash,
		KeyPrefix:  k.KeyPrefix,
		Name:       k.Name,
		Role:       k.Role,
		RateLimit:  k.RateLimit,
		Enabled:    k.Enabled,
		LastUsedAt: k.LastUsedAt,
		CreatedAt:  k.CreatedAt,
	}
}
