package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/aiopslab/aiops-gateway/internal/models"
	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken covers every token failure mode: bad signature, malformed
// structure, expiry, wrong algorithm. Callers get no partially-trusted output.
var ErrInvalidToken = errors.New("invalid or expired token")

// TokenClaims is the decoded identity carried by a signed token.
type TokenClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// TokenCodec issues and verifies HS256 tokens against a process-wide secret
// loaded once at startup.
type TokenCodec struct {
	secret []byte
}

func NewTokenCodec(secret string) *TokenCodec {
	return &TokenCodec{secret: []byte(secret)}
}

// Issue produces a signed token embedding subject, role, and an absolute
// expiry of now+ttl.
func (c *TokenCodec) Issue(subject string, role models.Role, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := TokenClaims{
		Role: string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Parse verifies the signature and expiry and returns the embedded claims.
// Any failure yields ErrInvalidToken.
func (c *TokenCodec) Parse(tokenString string) (*TokenClaims, error) {
	claims := &TokenClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return c.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	if claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	if _, err := models.ParseRole(claims.Role); err != nil {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
