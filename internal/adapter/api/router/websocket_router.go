package router

import (
	"github.com/labstack/echo/v4"

	"woonruil/internal/adapter/api/handler"
)

// SetupWebSocketRouter mounts /ws. The handler authenticates itself.
func SetupWebSocketRouter(e *echo.Echo, wsHandler *handler.WebSocketHandler) {
	e.GET("/ws", wsHandler.HandleWebSocket)
}
