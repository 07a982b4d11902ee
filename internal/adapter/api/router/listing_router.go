package router

import (
	"github.com/labstack/echo/v4"

	"woonruil/internal/adapter/api/handler"
	"woonruil/internal/adapter/api/middleware"
)

func SetupListingRouter(e *echo.Echo, listingHandler *handler.ListingHandler, authMiddleware *middleware.AuthMiddleware) {
	// Public routes
	e.GET("/v1/listings", listingHandler.BrowseListings)
	e.GET("/v1/listings/featured", listingHandler.FeaturedListings)
	e.GET("/v1/listings/map", listingHandler.MapListings)
	e.GET("/v1/listings/:id", listingHandler.GetListing)

	// Protected routes
	listings := e.Group("/v1/listings")
	listings.Use(authMiddleware.Authenticate)

	listings.POST("", listingHandler.CreateListing)
	listings.PUT("/:id", listingHandler.UpdateListing)
	listings.DELETE("/:id", listingHandler.DeleteListing)

	e.GET("/v1/my-listings", listingHandler.MyListings, authMiddleware.Authenticate)
}
