package handlers

import (
	"net/http"

	"tablechat/internal/auth"
	"tablechat/internal/repo"
	"tablechat/pkg/models"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// AuthHandler handles Google login
type AuthHandler struct {
	authService *auth.Service
	userRepo    *repo.UserRepository
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *auth.Service, userRepo *repo.UserRepository) *AuthHandler {
	return &AuthHandler{authService: authService, userRepo: userRepo}
}

// GoogleLoginRequest carries the Google ID token obtained by the frontend
type GoogleLoginRequest struct {
	Token string `json:"token" validate:"required"`
}

// GoogleLogin verifies a Google ID token and creates or refreshes the user
func (h *AuthHandler) GoogleLogin(c echo.Context) error {
	var req GoogleLoginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}
	if err := c.Validate(req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	identity, err := h.authService.Verify(c.Request().Context(), req.Token)
	if err != nil {
		log.Warn().Err(err).Msg("Google login failed")
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": err.Error()})
	}

	user, err := h.userRepo.Upsert(&models.User{
		ID:      identity.Subject,
		Email:   identity.Email,
		Name:    identity.Name,
		Picture: identity.Picture,
	})
	if err != nil {
		log.Error().Err(err).Str("subject", identity.Subject).Msg("Failed to persist user")
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to save user"})
	}

	return c.JSON(http.StatusOK, user)
}
