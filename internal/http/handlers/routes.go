package handlers

import (
	"tablechat/internal/app"
	"tablechat/internal/http/middleware"

	"github.com/labstack/echo/v4"
)

// SetupRoutes sets up all API routes
func SetupRoutes(api *echo.Group, services *app.Services) {
	// Auth routes (no authentication required)
	authHandler := NewAuthHandler(services.AuthService, services.UserRepo)
	auth := api.Group("/auth")
	auth.POST("/google-login", authHandler.GoogleLogin)

	// Protected routes (require a verified Google identity)
	protected := api.Group("")
	protected.Use(middleware.GoogleAuth(services.AuthService, services.UserRepo))

	// Conversation and message routes
	conversationHandler := NewConversationHandler(services.ConversationRepo)
	messageHandler := NewMessageHandler(services.MessageRepo, services.ChatService)
	messages := protected.Group("/messages")
	messages.GET("/conversations", conversationHandler.List)
	messages.POST("/new-conversation", conversationHandler.Create)
	messages.GET("/conversations/:id", conversationHandler.Get)
	messages.DELETE("/conversations/:id", conversationHandler.Delete)
	messages.PUT("/conversations/:id/activate", conversationHandler.Activate)
	messages.POST("/stream", messageHandler.Stream)
	messages.PUT("/:id", messageHandler.Edit)
	messages.DELETE("/:id", messageHandler.Delete)

	// Yelp proxy routes; left open so <img> tags can load proxied images
	// without an Authorization header
	yelpHandler := NewYelpHandler(services.YelpClient)
	yelpGroup := api.Group("/yelp")
	yelpGroup.GET("/businesses/search", yelpHandler.SearchBusinesses)
	yelpGroup.GET("/businesses/:id", yelpHandler.GetBusiness)
	yelpGroup.GET("/businesses/:id/reviews", yelpHandler.GetBusinessReviews)
	yelpGroup.GET("/images/*", yelpHandler.ProxyImage)
}
