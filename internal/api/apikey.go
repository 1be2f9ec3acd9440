package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"

	"github.com/aiopslab/aiops-gateway/internal/models"
	"github.com/aiopslab/aiops-gateway/internal/services/apikey"
)

// APIKeyHandler exposes the admin API key management endpoints.
type APIKeyHandler struct {
	service *apikey.Service
}

func NewAPIKeyHandler(service *apikey.Service) *APIKeyHandler {
	return &APIKeyHandler{service: service}
}

// CreateAPIKey mints a new key. The raw secret appears in this response
// and nowhere else.
func (h *APIKeyHandler) CreateAPIKey(c *fiber.Ctx) error {
	var req models.APIKeyCreateRequest
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, models.NewValidationError("invalid request body", err))
	}

	resp, err := h.service.CreateAPIKey(c.Context(), &req)
	if err != nil {
		return respondError(c, err)
	}

	fiberlog.Infof("apikey: created key %s (role: %s)", resp.KeyPrefix, resp.Role)
	return c.Status(fiber.StatusCreated).JSON(resp)
}

// ListAPIKeys returns key metadata. Hashes identify keys; raw secrets are
// never stored and cannot be listed.
func (h *APIKeyHandler) ListAPIKeys(c *fiber.Ctx) error {
	keys, err := h.service.ListAPIKeys(c.Context())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"api_keys": keys, "count": len(keys)})
}

// RevokeAPIKey disables a key by its hash. Revocation is immediate and
// soft: the row stays for audit.
func (h *APIKeyHandler) RevokeAPIKey(c *fiber.Ctx) error {
	keyHash := c.Params("keyHash")
	if keyHash == "" {
		return respondError(c, models.NewValidationError("key hash is required", nil))
	}

	if err := h.service.RevokeAPIKey(c.Context(), keyHash); err != nil {
		if errors.Is(err, models.ErrKeyNotFound) {
			return respondError(c, &models.AppError{
				Type:       models.ErrorTypeNotFound,
				Message:    "API key not found",
				StatusCode: fiber.StatusNotFound,
			})
		}
		return respondError(c, err)
	}

	fiberlog.Infof("apikey: revoked key %s", keyHash)
	return c.JSON(fiber.Map{"revoked": true})
}
