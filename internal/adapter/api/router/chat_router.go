package router

import (
	"github.com/labstack/echo/v4"

	"woonruil/internal/adapter/api/handler"
	"woonruil/internal/adapter/api/middleware"
)

// SetupChatRouter sets up the chat REST routes. Live updates go over /ws.
func SetupChatRouter(e *echo.Echo, chatHandler *handler.ChatHandler, authMiddleware *middleware.AuthMiddleware) {
	chats := e.Group("/v1/chats")
	chats.Use(authMiddleware.Authenticate)

	chats.POST("", chatHandler.StartConversation)
	chats.GET("", chatHandler.ListInbox)
	chats.GET("/:id", chatHandler.GetConversation)
	chats.DELETE("/:id", chatHandler.DeleteConversation)

	chats.POST("/:id/messages", chatHandler.SendMessage)
	chats.GET("/:id/messages", chatHandler.GetMessages)
}
