package router

import (
	"github.com/labstack/echo/v4"

	"marketchat/internal/adapter/api/handler"
	"marketchat/internal/adapter/api/middleware"
	"marketchat/internal/infrastructure/ratelimit"
)

// SetupChatRouter sets up all chat-related routes (excluding WebSocket)
func SetupChatRouter(e *echo.Echo, authMiddleware *middleware.AuthMiddleware, limiter *ratelimit.RateLimiter) {
	chatHandler := handler.GetChatHandler()

	chatGroup := e.Group("/v1/chats")
	chatGroup.Use(authMiddleware.Authenticate)

	chatGroup.POST("/rooms", chatHandler.OpenRoom)
	chatGroup.GET("", chatHandler.ListRooms)
	chatGroup.GET("/:id/messages", chatHandler.GetMessages)
	chatGroup.POST("/:id/messages", chatHandler.SendMessage, middleware.RateLimit(limiter, ratelimit.ActionSendMessage))
	chatGroup.PUT("/:id/read", chatHandler.MarkRead, middleware.RateLimit(limiter, ratelimit.ActionMarkRead))
	chatGroup.POST("/:id/leave", chatHandler.Leave)

	if fileHandler := handler.GetFileHandler(); fileHandler != nil {
		chatGroup.POST("/images", fileHandler.UploadChatImage)
	}
}
