package repo

import (
	"tablechat/pkg/models"

	"gorm.io/gorm"
)

// ConversationRepository handles conversation data access
type ConversationRepository struct {
	db *gorm.DB
}

// NewConversationRepository creates a new conversation repository
func NewConversationRepository(db *gorm.DB) *ConversationRepository {
	return &ConversationRepository{db: db}
}

// CreateForUser creates a new active conversation for the user. Every other
// conversation owned by the user is deactivated in the same transaction, so
// the two-step update is never partially visible.
func (r *ConversationRepository) CreateForUser(userID string) (*models.Conversation, error) {
	conversation := &models.Conversation{
		Title:    models.DefaultConversationTitle,
		IsActive: true,
		IsNew:    true,
		UserID:   userID,
	}

	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Conversation{}).
			Where("user_id = ?", userID).
			Update("is_active", false).Error; err != nil {
			return err
		}
		return tx.Create(conversation).Error
	})
	if err != nil {
		return nil, err
	}
	return conversation, nil
}

// ListByUser lists the user's conversations newest-first with their messages
// embedded oldest-first
func (r *ConversationRepository) ListByUser(userID string) ([]models.Conversation, error) {
	var conversations []models.Conversation
	err := r.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Preload("Messages", func(db *gorm.DB) *gorm.DB {
			// id breaks ties for pairs created in one transaction, whose
			// timestamps can collide at column precision
			return db.Order("messages.timestamp ASC, messages.id ASC")
		}).
		Find(&conversations).Error
	return conversations, err
}

// GetByIDForUser fetches one conversation with ordered messages, constrained
// to the owning user. Returns gorm.ErrRecordNotFound for absent or foreign
// conversations alike, so guessable ids leak nothing.
func (r *ConversationRepository) GetByIDForUser(id uint, userID string) (*models.Conversation, error) {
	var conversation models.Conversation
	err := r.db.Where("id = ? AND user_id = ?", id, userID).
		Preload("Messages", func(db *gorm.DB) *gorm.DB {
			return db.Order("messages.timestamp ASC, messages.id ASC")
		}).
		First(&conversation).Error
	if err != nil {
		return nil, err
	}
	return &conversation, nil
}

// Delete removes a conversation and all of its messages
func (r *ConversationRepository) Delete(id uint, userID string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var conversation models.Conversation
		if err := tx.Where("id = ? AND user_id = ?", id, userID).First(&conversation).Error; err != nil {
			return err
		}
		if err := tx.Where("conversation_id = ?", conversation.ID).Delete(&models.Message{}).Error; err != nil {
			return err
		}
		return tx.Delete(&conversation).Error
	})
}

// Activate marks the conversation active and deactivates the rest of the
// user's conversations. Concurrent activations are last-write-wins.
func (r *ConversationRepository) Activate(id uint, userID string) (*models.Conversation, error) {
	var conversation models.Conversation
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ? AND user_id = ?", id, userID).First(&conversation).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Conversation{}).
			Where("user_id = ?", userID).
			Update("is_active", false).Error; err != nil {
			return err
		}
		if err := tx.Model(&conversation).Update("is_active", true).Error; err != nil {
			return err
		}
		conversation.IsActive = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &conversation, nil
}

// AssignThreadID persists the external thread id on first bind. The update is
// guarded on the column still being NULL so an already-bound conversation is
// never re-pointed at a different thread.
func (r *ConversationRepository) AssignThreadID(id uint, threadID string) error {
	result := r.db.Model(&models.Conversation{}).
		Where("id = ? AND thread_id IS NULL", id).
		Update("thread_id", threadID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ListTitles returns the titles of the user's other conversations, used when
// computing the next sequential display title
func (r *ConversationRepository) ListTitles(userID string, excludeID uint) ([]string, error) {
	var titles []string
	err := r.db.Model(&models.Conversation{}).
		Where("user_id = ? AND id <> ?", userID, excludeID).
		Pluck("title", &titles).Error
	return titles, err
}

// Rename sets the display title and clears the is_new flag in one update
func (r *ConversationRepository) Rename(id uint, title string) error {
	return r.db.Model(&models.Conversation{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"title": title, "is_new": false}).Error
}
