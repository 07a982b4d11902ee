package router

import (
	"github.com/labstack/echo/v4"

	"woonruil/internal/adapter/api/handler"
	"woonruil/internal/adapter/api/middleware"
)

func SetupFileRouter(e *echo.Echo, fileHandler *handler.FileHandler, authMiddleware *middleware.AuthMiddleware) {
	e.POST("/v1/listings/images", fileHandler.UploadListingImages, authMiddleware.Authenticate)
	e.POST("/v1/users/me/photo", fileHandler.UploadProfilePhoto, authMiddleware.Authenticate)
}
