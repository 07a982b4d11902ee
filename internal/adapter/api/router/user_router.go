package router

import (
	"github.com/labstack/echo/v4"

	"woonruil/internal/adapter/api/handler"
	"woonruil/internal/adapter/api/middleware"
)

func SetupUserRouter(e *echo.Echo, userHandler *handler.UserHandler, chatHandler *handler.ChatHandler, authMiddleware *middleware.AuthMiddleware) {
	users := e.Group("/v1/users")
	users.Use(authMiddleware.Authenticate)

	users.GET("/me", userHandler.GetProfile)
	users.PUT("/me", userHandler.UpdateProfile)
	users.GET("/me/blocked", chatHandler.ListBlocked)

	users.GET("/:id", userHandler.GetPublicProfile)
	users.POST("/:id/block", chatHandler.BlockUser)
	users.DELETE("/:id/block", chatHandler.UnblockUser)
}
