package apikey

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/aiopslab/aiops-gateway/internal/models"
)

func newTestService(t *testing.T) *Service {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	s := NewService(db)
	require.NoError(t, s.AutoMigrate())
	return s
}

func TestCreateAPIKeyReturnsRawSecretOnce(t *testing.T) {
	s := newTestService(t)

	resp, err := s.CreateAPIKey(context.Background(), &models.APIKeyCreateRequest{
		Name: "ci-pipeline",
		Role: "user",
	})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(resp.Key, "aiops_"))
	assert.Equal(t, resp.Key[:12], resp.KeyPrefix)
	assert.Equal(t, models.HashAPIKey(resp.Key), resp.KeyHash)
	assert.True(t, resp.Enabled)

	// Listing never surfaces the raw secret again.
	keys, err := s.ListAPIKeys(context.Background())
	require.NoError(t, err)
	require.Len(t, keys, 1)
	assert.Empty(t, keys[0].Key)
	assert.Equal(t, resp.KeyHash, keys[0].KeyHash)
}

func TestCreateAPIKeyDefaultsToUserRole(t *testing.T) {
	s := newTestService(t)

	resp, err := s.CreateAPIKey(context.Background(), &models.APIKeyCreateRequest{Name: "no-role"})
	require.NoError(t, err)
	assert.Equal(t, "user", resp.Role)
}

func TestCreateAPIKeyRejectsUnknownRole(t *testing.T) {
	s := newTestService(t)

	_, err := s.CreateAPIKey(context.Background(), &models.APIKeyCreateRequest{
		Name: "bad-role",
		Role: "superuser",
	})
	assert.Error(t, err)
}

func TestValidateAPIKey(t *testing.T) {
	s := newTestService(t)

	resp, err := s.CreateAPIKey(context.Background(), &models.APIKeyCreateRequest{
		Name:      "worker",
		Role:      "readonly",
		RateLimit: 10,
	})
	require.NoError(t, err)

	record, err := s.ValidateAPIKey(context.Background(), resp.Key)
	require.NoError(t, err)
	assert.Equal(t, "worker", record.Name)
	assert.Equal(t, "readonly", record.Role)
	assert.Equal(t, 10, record.RateLimit)
	assert.NotNil(t, record.LastUsedAt)
}

func TestValidateAPIKeyUnknown(t *testing.T) {
	s := newTestService(t)

	_, err := s.ValidateAPIKey(context.Background(), "aiops_does-not-exist")
	assert.ErrorIs(t, err, models.ErrKeyNotFound)

	_, err = s.ValidateAPIKey(context.Background(), "")
	assert.ErrorIs(t, err, models.ErrKeyNotFound)
}

func TestRevokeAPIKey(t *testing.T) {
	s := newTestService(t)

	resp, err := s.CreateAPIKey(context.Background(), &models.APIKeyCreateRequest{Name: "doomed"})
	require.NoError(t, err)

	require.NoError(t, s.RevokeAPIKey(context.Background(), resp.KeyHash))

	// Revoked keys validate identically to keys that never existed.
	_, err = s.ValidateAPIKey(context.Background(), resp.Key)
	assert.ErrorIs(t, err, models.ErrKeyNotFound)

	// The record survives for audit.
	keys, err := s.ListAPIKeys(context.Background())
	require.NoError(t, err)
	require.Len(t, keys, 1)
	assert.False(t, keys[0].Enabled)
}

func TestRevokeUnknownKey(t *testing.T) {
	s := newTestService(t)
	err := s.RevokeAPIKey(context.Background(), "deadbeef")
	assert.ErrorIs(t, err, models.ErrKeyNotFound)
}

func TestGeneratedKeysAreUnique(t *testing.T) {
	s := newTestService(t)

	seen := make(map[string]bool)
	for i := 0; i < 20; i++ {
		resp, err := s.CreateAPIKey(context.Background(), &models.APIKeyCreateRequest{Name: "k"})
		require.NoError(t, err)
		assert.False(t, seen[resp.Key])
		seen[resp.Key] = true
	}
}
