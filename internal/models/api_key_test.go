package models

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAPIKey(t *testing.T) {
	key, err := GenerateAPIKey()
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(key, "aiops_"))
	assert.Greater(t, len(key), 30)

	other, err := GenerateAPIKey()
	require.NoError(t, err)
	assert.NotEqual(t, key, other)
}

func TestHashAPIKeyIsStable(t *testing.T) {
	h1 := HashAPIKey("aiops_example")
	h2 := HashAPIKey("aiops_example")
	assert.Equal(t, h1, h2)
	assert.Len(t, h1, 64)
	assert.NotEqual(t, h1, HashAPIKey("aiops_other"))
}

func TestExtractKeyPrefix(t *testing.T) {
	assert.Equal(t, "aiops_abcdef", ExtractKeyPrefix("aiops_abcdefghijkl"))
	assert.Equal(t, "short", ExtractKeyPrefix("short"))
}

func TestAPIKeyResponseOmitsEmptyKey(t *testing.T) {
	data, err := json.Marshal(APIKeyResponse{Name: "metadata-only"})
	require.NoError(t, err)
	assert.NotContains(t, string(data), `"key"`)
}

func TestRoleHierarchy(t *testing.T) {
	assert.True(t, RoleAdmin.AtLeast(RoleUser))
	assert.True(t, RoleUser.AtLeast(RoleReadonly))
	assert.False(t, RoleReadonly.AtLeast(RoleUser))
	assert.True(t, RoleUser.AtLeast(RoleUser))

	// Unknown roles never satisfy any requirement.
	assert.False(t, Role("root").AtLeast(RoleReadonly))
}

func TestParseRole(t *testing.T) {
	role, err := ParseRole("admin")
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, role)

	_, err = ParseRole("superuser")
	assert.Error(t, err)
}
