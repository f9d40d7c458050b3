package app

import (
	"context"
	"fmt"
	"os"

	"tablechat/internal/assistant"
	"tablechat/internal/auth"
	"tablechat/internal/chat"
	"tablechat/internal/repo"
	"tablechat/internal/yelp"

	"github.com/sashabaranov/go-openai"
	"gorm.io/gorm"
)

// Services holds all application services
type Services struct {
	DB               *gorm.DB
	AuthService      *auth.Service
	UserRepo         *repo.UserRepository
	ConversationRepo *repo.ConversationRepository
	MessageRepo      *repo.MessageRepository
	AssistantClient  assistant.Client
	ChatService      *chat.Service
	YelpClient       *yelp.Client
}

// NewServices creates a new services container. The assistant is provisioned
// here, once, so every request shares the same read-only assistant id.
func NewServices(ctx context.Context, db *gorm.DB) (*Services, error) {
	userRepo := repo.NewUserRepository(db)
	conversationRepo := repo.NewConversationRepository(db)
	messageRepo := repo.NewMessageRepository(db)

	authService, err := auth.NewService()
	if err != nil {
		return nil, err
	}

	openaiAPIKey := os.Getenv("OPENAI_API_KEY")
	if openaiAPIKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY environment variable is not set")
	}
	openaiClient := openai.NewClient(openaiAPIKey)

	assistantID, err := assistant.EnsureAssistant(ctx, openaiClient)
	if err != nil {
		return nil, fmt.Errorf("failed to provision assistant: %w", err)
	}
	assistantClient := assistant.NewOpenAIClient(openaiClient, assistantID)

	chatService := chat.NewService(conversationRepo, messageRepo, assistantClient, chat.Config{})

	yelpAPIKey := os.Getenv("YELP_API_KEY")
	yelpClient := yelp.NewClient(yelpAPIKey)

	return &Services{
		DB:               db,
		AuthService:      authService,
		UserRepo:         userRepo,
		ConversationRepo: conversationRepo,
		MessageRepo:      messageRepo,
		AssistantClient:  assistantClient,
		ChatService:      chatService,
		YelpClient:       yelpClient,
	}, nil
}
