package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aiopslab/aiops-gateway/internal/models"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestIssueAndParseRoundTrip(t *testing.T) {
	codec := NewTokenCodec(testSecret)

	token, err := codec.Issue("alice", models.RoleUser, time.Hour)
	require.NoError(t, err)

	claims, err := codec.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Subject)
	assert.Equal(t, "user", claims.Role)
}

func TestParseRejectsExpiredToken(t *testing.T) {
	codec := NewTokenCodec(testSecret)

	token, err := codec.Issue("alice", models.RoleUser, -time.Minute)
	require.NoError(t, err)

	_, err = codec.Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseRejectsWrongSecret(t *testing.T) {
	codec := NewTokenCodec(testSecret)
	other := NewTokenCodec("a-completely-different-signing-secret")

	token, err := codec.Issue("alice", models.RoleAdmin, time.Hour)
	require.NoError(t, err)

	_, err = other.Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseRejectsGarbage(t *testing.T) {
	codec := NewTokenCodec(testSecret)

	for _, input := range []string{"", "not-a-token", "a.b.c"} {
		_, err := codec.Parse(input)
		assert.ErrorIs(t, err, ErrInvalidToken, "input %q", input)
	}
}

func TestParseRejectsUnsignedAlgorithm(t *testing.T) {
	codec := NewTokenCodec(testSecret)

	// alg=none tokens must never validate regardless of payload.
	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, TokenClaims{
		Role: "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "mallory",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	tokenString, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = codec.Parse(tokenString)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseRejectsEmptySubjectAndUnknownRole(t *testing.T) {
	codec := NewTokenCodec(testSecret)

	noSubject, err := codec.Issue("", models.RoleUser, time.Hour)
	require.NoError(t, err)
	_, err = codec.Parse(noSubject)
	assert.ErrorIs(t, err, ErrInvalidToken)

	badRole, err := codec.Issue("alice", models.Role("superuser"), time.Hour)
	require.NoError(t, err)
	_, err = codec.Parse(badRole)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
