package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"tablechat/internal/chat"
	"tablechat/internal/repo"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// MessageHandler handles message editing, deletion, and the streaming turn
type MessageHandler struct {
	messages    *repo.MessageRepository
	chatService *chat.Service
}

// NewMessageHandler creates a new message handler
func NewMessageHandler(messages *repo.MessageRepository, chatService *chat.Service) *MessageHandler {
	return &MessageHandler{messages: messages, chatService: chatService}
}

// UpdateMessageRequest carries the replacement content of a user message
type UpdateMessageRequest struct {
	Content string `json:"content" validate:"required"`
}

// StreamRequest starts one streaming chat turn
type StreamRequest struct {
	Content        string `json:"content" validate:"required"`
	ConversationID uint   `json:"conversation_id" validate:"required"`
}

func messageID(c echo.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "Invalid message id")
	}
	return uint(id), nil
}

// Edit updates a user-sent message
func (h *MessageHandler) Edit(c echo.Context) error {
	user := currentUser(c)
	id, err := messageID(c)
	if err != nil {
		return err
	}

	var req UpdateMessageRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}
	if err := c.Validate(req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	message, err := h.messages.Edit(id, user.ID, req.Content)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Message not found"})
	}
	if errors.Is(err, repo.ErrNotUserMessage) {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Only user messages can be edited"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to update message"})
	}

	return c.JSON(http.StatusOK, message)
}

// Delete removes a user-sent message
func (h *MessageHandler) Delete(c echo.Context) error {
	user := currentUser(c)
	id, err := messageID(c)
	if err != nil {
		return err
	}

	err = h.messages.Delete(id, user.ID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Message not found"})
	}
	if errors.Is(err, repo.ErrNotUserMessage) {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Only user messages can be deleted"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to delete message"})
	}

	return c.JSON(http.StatusOK, map[string]string{"message": "Message deleted"})
}

// Stream accepts a user message and streams the assistant's reply as
// server-sent events. Failures before the first frame surface as plain HTTP
// errors; anything after degrades to an in-band error event.
func (h *MessageHandler) Stream(c echo.Context) error {
	user := currentUser(c)

	var req StreamRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}
	if err := c.Validate(req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	turn, err := h.chatService.BeginTurn(user, req.ConversationID, req.Content)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Conversation not found"})
	}
	if err != nil {
		log.Error().Err(err).Uint("conversation_id", req.ConversationID).Msg("Failed to begin streaming turn")
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to start message"})
	}

	response := c.Response()
	response.Header().Set(echo.HeaderContentType, "text/event-stream")
	response.Header().Set("Cache-Control", "no-cache")
	response.Header().Set("Connection", "keep-alive")
	response.WriteHeader(http.StatusOK)

	// Detached context: a client disconnect must not abort the upstream run
	// or skip the final persistence write
	h.chatService.Stream(context.WithoutCancel(c.Request().Context()), newSSEEmitter(response), turn)

	return nil
}
