package router

import (
	"github.com/labstack/echo/v4"

	"woonruil/internal/adapter/api/handler"
	"woonruil/internal/adapter/api/middleware"
)

// Handlers groups everything the routes dispatch to.
type Handlers struct {
	Auth      *handler.AuthHandler
	User      *handler.UserHandler
	Listing   *handler.ListingHandler
	File      *handler.FileHandler
	Chat      *handler.ChatHandler
	Geocode   *handler.GeocodeHandler
	Health    *handler.HealthHandler
	WebSocket *handler.WebSocketHandler
	DevToken  *handler.DevTokenHandler
}

func Setup(e *echo.Echo, h Handlers, authMiddleware *middleware.AuthMiddleware, apiLimiter *middleware.RateLimiter, environment string) {
	SetupAuthRouter(e, h.Auth, h.User, authMiddleware)
	SetupUserRouter(e, h.User, h.Chat, authMiddleware)
	SetupListingRouter(e, h.Listing, authMiddleware)
	SetupFileRouter(e, h.File, authMiddleware)
	SetupChatRouter(e, h.Chat, authMiddleware)
	SetupGeocodeRouter(e, h.Geocode, apiLimiter)
	SetupWebSocketRouter(e, h.WebSocket)
	SetupHealthRouter(e, h.Health)
	SetupDevRouter(e, h.DevToken, environment)
}
