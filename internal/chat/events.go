package chat

import (
	"tablechat/pkg/models"
)

// Emitter receives the ordered client-facing events of one streaming turn.
// The HTTP layer implements it over an SSE response; tests implement it over
// a slice. Emit errors mean the client went away; the orchestrator ignores
// them and finishes the turn regardless.
type Emitter interface {
	// Emit sends one data frame whose body is the JSON encoding of payload
	Emit(payload interface{}) error
	// Done sends the literal terminal sentinel frame
	Done() error
}

// ConversationUpdate announces the one-shot rename of a pristine conversation
type ConversationUpdate struct {
	ID    uint   `json:"id"`
	Title string `json:"title"`
	IsNew bool   `json:"is_new"`
}

type userMessageEvent struct {
	UserMessageID uint `json:"user_message_id"`
}

type botMessageEvent struct {
	BotMessageID uint `json:"bot_message_id"`
}

type conversationUpdateEvent struct {
	ConversationUpdate ConversationUpdate `json:"conversation_update"`
}

type searchEvent struct {
	RestaurantSearch models.SearchParams `json:"restaurant_search"`
}

type contentEvent struct {
	Content string `json:"content"`
}

type errorEvent struct {
	Error string `json:"error"`
}
