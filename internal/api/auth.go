package api

import (
	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"

	"github.com/aiopslab/aiops-gateway/internal/models"
	"github.com/aiopslab/aiops-gateway/internal/services/auth"
)

// AuthHandler issues admin tokens for the configured operator account.
type AuthHandler struct {
	authService *auth.Service
}

func NewAuthHandler(authService *auth.Service) *AuthHandler {
	return &AuthHandler{authService: authService}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// Login exchanges operator credentials for a signed bearer token. The
// failure response never says which part of the credential was wrong.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, models.NewValidationError("invalid request body", err))
	}
	if req.Username == "" || req.Password == "" {
		return respondError(c, models.NewValidationError("username and password are required", nil))
	}

	token, ttl, err := h.authService.Login(req.Username, req.Password)
	if err != nil {
		fiberlog.Warnf("auth: failed login attempt for username %q from %s", req.Username, c.IP())
		return respondError(c, models.NewAuthenticationError(err))
	}

	return c.JSON(loginResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int(ttl.Seconds()),
	})
}
