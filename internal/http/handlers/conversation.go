package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"tablechat/internal/repo"
	"tablechat/pkg/models"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// ConversationHandler handles conversation CRUD
type ConversationHandler struct {
	conversations *repo.ConversationRepository
}

// NewConversationHandler creates a new conversation handler
func NewConversationHandler(conversations *repo.ConversationRepository) *ConversationHandler {
	return &ConversationHandler{conversations: conversations}
}

func currentUser(c echo.Context) *models.User {
	return c.Get("user").(*models.User)
}

func conversationID(c echo.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "Invalid conversation id")
	}
	return uint(id), nil
}

// List returns the caller's conversations newest-first
func (h *ConversationHandler) List(c echo.Context) error {
	user := currentUser(c)

	conversations, err := h.conversations.ListByUser(user.ID)
	if err != nil {
		log.Error().Err(err).Str("user_id", user.ID).Msg("Failed to list conversations")
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to list conversations"})
	}

	return c.JSON(http.StatusOK, conversations)
}

// Create starts a new active conversation, deactivating the previous one
func (h *ConversationHandler) Create(c echo.Context) error {
	user := currentUser(c)

	conversation, err := h.conversations.CreateForUser(user.ID)
	if err != nil {
		log.Error().Err(err).Str("user_id", user.ID).Msg("Failed to create conversation")
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to create conversation"})
	}

	return c.JSON(http.StatusOK, conversation)
}

// Get returns one conversation with its messages
func (h *ConversationHandler) Get(c echo.Context) error {
	user := currentUser(c)
	id, err := conversationID(c)
	if err != nil {
		return err
	}

	conversation, err := h.conversations.GetByIDForUser(id, user.ID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Conversation not found"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to load conversation"})
	}

	return c.JSON(http.StatusOK, conversation)
}

// Delete removes a conversation and all of its messages
func (h *ConversationHandler) Delete(c echo.Context) error {
	user := currentUser(c)
	id, err := conversationID(c)
	if err != nil {
		return err
	}

	err = h.conversations.Delete(id, user.ID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Conversation not found"})
	}
	if err != nil {
		log.Error().Err(err).Uint("conversation_id", id).Msg("Failed to delete conversation")
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to delete conversation"})
	}

	return c.JSON(http.StatusOK, map[string]string{"message": "Conversation deleted"})
}

// Activate switches the caller's active conversation
func (h *ConversationHandler) Activate(c echo.Context) error {
	user := currentUser(c)
	id, err := conversationID(c)
	if err != nil {
		return err
	}

	conversation, err := h.conversations.Activate(id, user.ID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Conversation not found"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to activate conversation"})
	}

	return c.JSON(http.StatusOK, conversation)
}
