// Package auth resolves inbound credentials to an identity and checks role
// requirements against the fixed readonly < user < admin hierarchy.
package auth

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"time"

	"github.com/aiopslab/aiops-gateway/internal/models"
	"github.com/aiopslab/aiops-gateway/internal/services/apikey"

	fiberlog "github.com/gofiber/fiber/v2/log"
)

// ErrLoginFailed is the generic login failure. It never reveals whether the
// username exists.
var ErrLoginFailed = errors.New("invalid username or password")

type Service struct {
	codec   *TokenCodec
	apiKeys *apikey.Service
	config  models.AuthConfig
}

func NewService(codec *TokenCodec, apiKeys *apikey.Service, config models.AuthConfig) *Service {
	return &Service{
		codec:   codec,
		apiKeys: apiKeys,
		config:  config,
	}
}

// Authenticate resolves credential material to an identity. Tokens are tried
// before API keys; this precedence is a policy choice, not a security
// ranking, and both paths are equally trusted once validated.
func (s *Service) Authenticate(ctx context.Context, bearerToken, apiKeyValue string) (*models.Identity, error) {
	if bearerToken != "" {
		claims, err := s.codec.Parse(bearerToken)
		if err == nil {
			role, err := models.ParseRole(claims.Role)
			if err != nil {
				// The codec already validated the role claim; a failure here
				// means the two checks drifted apart.
				fiberlog.Errorf("Token carried a role the codec accepted but the hierarchy rejects: %v", err)
				return nil, models.NewAuthenticationError(err)
			}
			return &models.Identity{
				Subject: claims.Subject,
				Role:    role,
				Method:  models.AuthMethodToken,
			}, nil
		}
		if apiKeyValue == "" {
			fiberlog.Debugf("Bearer token rejected: %v", err)
			return nil, models.NewAuthenticationError(err)
		}
	}

	if apiKeyValue != "" {
		record, err := s.apiKeys.ValidateAPIKey(ctx, apiKeyValue)
		if err != nil {
			fiberlog.Debugf("API key rejected: %v", err)
			return nil, models.NewAuthenticationError(err)
		}

		role, err := models.ParseRole(record.Role)
		if err != nil {
			return nil, models.NewAuthenticationError(err)
		}

		return &models.Identity{
			Subject:           record.Name,
			Role:              role,
			Method:            models.AuthMethodAPIKey,
			RateLimitOverride: record.RateLimit,
		}, nil
	}

	return nil, models.NewAuthenticationError(errors.New("no credentials presented"))
}

// Login checks a username/password pair against the configured administrative
// credentials and issues a signed admin token on success. Comparison is
// constant-time over digests so response timing leaks nothing about either
// field.
func (s *Service) Login(username, password string) (string, time.Duration, error) {
	userMatch := constantTimeEquals(username, s.config.AdminUsername)
	passMatch := constantTimeEquals(password, s.config.AdminPassword)

	if !userMatch || !passMatch {
		fiberlog.Warnf("Failed login attempt for username %q", username)
		return "", 0, ErrLoginFailed
	}

	ttl := s.config.TokenTTL()
	token, err := s.codec.Issue(username, models.RoleAdmin, ttl)
	if err != nil {
		return "", 0, err
	}
	return token, ttl, nil
}

// Require evaluates the role hierarchy. Pure function: no side effects.
func Require(identity *models.Identity, minimum models.Role) error {
	if identity == nil {
		return models.NewAuthenticationError(errors.New("no identity resolved"))
	}
	if !identity.Role.AtLeast(minimum) {
		return models.NewAuthorizationError(minimum)
	}
	return nil
}

func constantTimeEquals(a, b string) bool {
	// Hash both sides first so length differences do not short-circuit.
	ha := sha256.Sum256([]byte(a))
	hb := sha256.Sum256([]byte(b))
	return subtle.ConstantTimeCompare(ha[:], hb[:]) == 1
}
