package router

import (
	"github.com/labstack/echo/v4"

	"woonruil/internal/adapter/api/handler"
	"woonruil/internal/adapter/api/middleware"
)

// SetupGeocodeRouter mounts the /api group, which is rate limited per IP.
func SetupGeocodeRouter(e *echo.Echo, geocodeHandler *handler.GeocodeHandler, apiLimiter *middleware.RateLimiter) {
	api := e.Group("/api")
	if apiLimiter != nil {
		api.Use(apiLimiter.RateLimitMiddleware())
	}

	api.GET("/geocode", geocodeHandler.Geocode)
}
