package repo

import (
	"errors"

	"tablechat/pkg/models"

	"gorm.io/gorm"
)

// ErrNotUserMessage is returned when an edit or delete targets a bot message
var ErrNotUserMessage = errors.New("only user messages can be modified")

// MessageRepository handles message data access
type MessageRepository struct {
	db *gorm.DB
}

// NewMessageRepository creates a new message repository
func NewMessageRepository(db *gorm.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

// CreateTurn creates the user message and its empty bot placeholder in one
// transaction. Both rows exist before any streaming starts, so the client can
// be told their ids up front and a crash mid-stream leaves a repairable pair
// instead of a dangling user message.
func (r *MessageRepository) CreateTurn(conversationID uint, content string) (*models.Message, *models.Message, error) {
	userMessage := &models.Message{
		ConversationID: conversationID,
		Content:        content,
		Sender:         models.SenderUser,
	}
	botMessage := &models.Message{
		ConversationID: conversationID,
		Content:        "",
		Sender:         models.SenderBot,
	}

	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(userMessage).Error; err != nil {
			return err
		}
		return tx.Create(botMessage).Error
	})
	if err != nil {
		return nil, nil, err
	}
	return userMessage, botMessage, nil
}

// getOwned loads a message constrained to the owning user via its conversation
func (r *MessageRepository) getOwned(id uint, userID string) (*models.Message, error) {
	var message models.Message
	err := r.db.Joins("JOIN conversations ON conversations.id = messages.conversation_id").
		Where("messages.id = ? AND conversations.user_id = ?", id, userID).
		First(&message).Error
	if err != nil {
		return nil, err
	}
	return &message, nil
}

// Edit updates the content of a user-sent message and marks it edited.
// Bot messages are immutable and yield ErrNotUserMessage.
func (r *MessageRepository) Edit(id uint, userID, content string) (*models.Message, error) {
	message, err := r.getOwned(id, userID)
	if err != nil {
		return nil, err
	}
	if message.Sender != models.SenderUser {
		return nil, ErrNotUserMessage
	}

	message.Content = content
	message.IsEdited = true
	if err := r.db.Save(message).Error; err != nil {
		return nil, err
	}
	return message, nil
}

// Delete removes a user-sent message. Bot messages yield ErrNotUserMessage.
func (r *MessageRepository) Delete(id uint, userID string) error {
	message, err := r.getOwned(id, userID)
	if err != nil {
		return err
	}
	if message.Sender != models.SenderUser {
		return ErrNotUserMessage
	}
	return r.db.Delete(message).Error
}

// FinalizeBotMessage writes the accumulated assistant output and any captured
// search payload onto the placeholder row. Runs in a fresh short-lived session
// so no connection was held across the streaming window.
func (r *MessageRepository) FinalizeBotMessage(id uint, content string, searchPayload *string) error {
	session := r.db.Session(&gorm.Session{NewDB: true})
	return session.Model(&models.Message{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"content":        content,
			"search_payload": searchPayload,
		}).Error
}
