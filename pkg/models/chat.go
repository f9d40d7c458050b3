package models

import (
	"time"
)

// Message sender values
const (
	SenderUser = "user"
	SenderBot  = "bot"
)

// DefaultConversationTitle is the placeholder title until the first exchange
const DefaultConversationTitle = "New Conversation"

// User represents an authenticated Google account. The primary key is the
// Google subject id, so the same account always maps to the same row.
type User struct {
	ID        string    `gorm:"primaryKey" json:"id"`
	Email     string    `gorm:"unique;not null" json:"email" validate:"required,email"`
	Name      string    `gorm:"not null" json:"name"`
	Picture   string    `json:"picture"`
	CreatedAt time.Time `json:"created_at"`

	// Relations
	Conversations []Conversation `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"conversations,omitempty"`
}

// TableName returns the table name for User
func (User) TableName() string {
	return "users"
}

// Conversation represents one chat thread between a user and the assistant
type Conversation struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Title     string    `gorm:"not null;default:'New Conversation'" json:"title"`
	IsActive  bool      `gorm:"default:false" json:"is_active"`
	IsNew     bool      `gorm:"default:true" json:"is_new"`
	ThreadID  *string   `gorm:"uniqueIndex" json:"thread_id,omitempty"` // external assistant thread, immutable once set
	UserID    string    `gorm:"not null;index" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	User     *User     `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Messages []Message `gorm:"foreignKey:ConversationID;constraint:OnDelete:CASCADE" json:"messages"`
}

// TableName returns the table name for Conversation
func (Conversation) TableName() string {
	return "conversations"
}

// Message represents a single turn entry inside a conversation. Bot messages
// are created empty as placeholders and filled in when the stream finishes.
type Message struct {
	ID             uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	ConversationID uint      `gorm:"not null;index" json:"conversation_id"`
	Content        string    `json:"content"`
	Sender         string    `gorm:"not null" json:"sender"` // user, bot
	Timestamp      time.Time `gorm:"autoCreateTime" json:"timestamp"`
	IsEdited       bool      `gorm:"default:false" json:"is_edited"`
	SearchPayload  *string   `json:"restaurant_search,omitempty"` // serialized search params, nullable

	// Relations
	Conversation *Conversation `gorm:"foreignKey:ConversationID" json:"conversation,omitempty"`
}

// TableName returns the table name for Message
func (Message) TableName() string {
	return "messages"
}

// GetAllModels returns all models for GORM AutoMigrate
func GetAllModels() []interface{} {
	return []interface{}{
		&User{},
		&Conversation{},
		&Message{},
	}
}
