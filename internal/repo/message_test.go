package repo

import (
	"testing"
	"time"

	"tablechat/pkg/models"

	"gorm.io/gorm"
)

func TestCreateTurnCreatesPair(t *testing.T) {
	db := openTestDB(t)
	user := createTestUser(t, db, "user1")
	conversations := NewConversationRepository(db)
	messages := NewMessageRepository(db)

	conversation, _ := conversations.CreateForUser(user.ID)

	userMessage, botMessage, err := messages.CreateTurn(conversation.ID, "Hello")
	if err != nil {
		t.Fatalf("CreateTurn failed: %v", err)
	}

	if userMessage.Sender != models.SenderUser || userMessage.Content != "Hello" {
		t.Errorf("user message = %+v, expected sender=user content=Hello", userMessage)
	}
	if botMessage.Sender != models.SenderBot || botMessage.Content != "" {
		t.Errorf("bot placeholder = %+v, expected sender=bot empty content", botMessage)
	}
	if userMessage.ID == 0 || botMessage.ID == 0 {
		t.Error("message ids should be assigned before streaming starts")
	}
}

func TestTurnPairOrderSurvivesEqualTimestamps(t *testing.T) {
	db := openTestDB(t)
	user := createTestUser(t, db, "user1")
	conversations := NewConversationRepository(db)
	messages := NewMessageRepository(db)

	conversation, _ := conversations.CreateForUser(user.ID)
	userMessage, botMessage, err := messages.CreateTurn(conversation.ID, "Hello")
	if err != nil {
		t.Fatalf("CreateTurn failed: %v", err)
	}

	// Force the collision that column precision can produce for rows
	// written in one transaction
	shared := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	for _, id := range []uint{userMessage.ID, botMessage.ID} {
		if err := db.Model(&models.Message{}).Where("id = ?", id).Update("timestamp", shared).Error; err != nil {
			t.Fatalf("failed to backdate message %d: %v", id, err)
		}
	}

	loaded, err := conversations.GetByIDForUser(conversation.ID, user.ID)
	if err != nil {
		t.Fatalf("GetByIDForUser failed: %v", err)
	}
	if len(loaded.Messages) != 2 {
		t.Fatalf("got %d messages, want 2", len(loaded.Messages))
	}
	if loaded.Messages[0].Sender != models.SenderUser || loaded.Messages[1].Sender != models.SenderBot {
		t.Errorf("order = [%s %s], want the user message before its bot reply",
			loaded.Messages[0].Sender, loaded.Messages[1].Sender)
	}
}

func TestEditUserMessage(t *testing.T) {
	db := openTestDB(t)
	user := createTestUser(t, db, "user1")
	conversations := NewConversationRepository(db)
	messages := NewMessageRepository(db)

	conversation, _ := conversations.CreateForUser(user.ID)
	userMessage, _, _ := messages.CreateTurn(conversation.ID, "Original message")

	edited, err := messages.Edit(userMessage.ID, user.ID, "Updated message")
	if err != nil {
		t.Fatalf("Edit failed: %v", err)
	}
	if edited.Content != "Updated message" || !edited.IsEdited {
		t.Errorf("edited message = %+v, expected updated content and is_edited", edited)
	}
}

func TestEditRejectsBotMessage(t *testing.T) {
	db := openTestDB(t)
	user := createTestUser(t, db, "user1")
	conversations := NewConversationRepository(db)
	messages := NewMessageRepository(db)

	conversation, _ := conversations.CreateForUser(user.ID)
	_, botMessage, _ := messages.CreateTurn(conversation.ID, "Hello")

	if _, err := messages.Edit(botMessage.ID, user.ID, "Trying to hack the bot"); err != ErrNotUserMessage {
		t.Errorf("Edit of bot message = %v, expected ErrNotUserMessage", err)
	}
	if err := messages.Delete(botMessage.ID, user.ID); err != ErrNotUserMessage {
		t.Errorf("Delete of bot message = %v, expected ErrNotUserMessage", err)
	}
}

func TestEditScopesToOwner(t *testing.T) {
	db := openTestDB(t)
	owner := createTestUser(t, db, "owner")
	other := createTestUser(t, db, "other")
	conversations := NewConversationRepository(db)
	messages := NewMessageRepository(db)

	conversation, _ := conversations.CreateForUser(owner.ID)
	userMessage, _, _ := messages.CreateTurn(conversation.ID, "Hello")

	if _, err := messages.Edit(userMessage.ID, other.ID, "hijack"); err != gorm.ErrRecordNotFound {
		t.Errorf("Edit by non-owner = %v, expected gorm.ErrRecordNotFound", err)
	}
	if err := messages.Delete(userMessage.ID, other.ID); err != gorm.ErrRecordNotFound {
		t.Errorf("Delete by non-owner = %v, expected gorm.ErrRecordNotFound", err)
	}
}

func TestDeleteUserMessage(t *testing.T) {
	db := openTestDB(t)
	user := createTestUser(t, db, "user1")
	conversations := NewConversationRepository(db)
	messages := NewMessageRepository(db)

	conversation, _ := conversations.CreateForUser(user.ID)
	userMessage, _, _ := messages.CreateTurn(conversation.ID, "Message to delete")

	if err := messages.Delete(userMessage.ID, user.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	var count int64
	db.Model(&models.Message{}).Where("id = ?", userMessage.ID).Count(&count)
	if count != 0 {
		t.Error("deleted message still present")
	}
}

func TestFinalizeBotMessage(t *testing.T) {
	db := openTestDB(t)
	user := createTestUser(t, db, "user1")
	conversations := NewConversationRepository(db)
	messages := NewMessageRepository(db)

	conversation, _ := conversations.CreateForUser(user.ID)
	_, botMessage, _ := messages.CreateTurn(conversation.ID, "find me sushi")

	payload, err := models.EncodeSearchParams(models.SearchParams{"term": "sushi", "location": "NYC"})
	if err != nil {
		t.Fatalf("EncodeSearchParams failed: %v", err)
	}

	if err := messages.FinalizeBotMessage(botMessage.ID, "Here you go", payload); err != nil {
		t.Fatalf("FinalizeBotMessage failed: %v", err)
	}

	var reloaded models.Message
	if err := db.First(&reloaded, botMessage.ID).Error; err != nil {
		t.Fatalf("failed to reload bot message: %v", err)
	}
	if reloaded.Content != "Here you go" {
		t.Errorf("content = %q, expected %q", reloaded.Content, "Here you go")
	}

	decoded := models.DecodeSearchParams(reloaded.SearchPayload)
	if decoded == nil || decoded["term"] != "sushi" || decoded["location"] != "NYC" {
		t.Errorf("persisted payload = %v, expected original params", decoded)
	}
}
