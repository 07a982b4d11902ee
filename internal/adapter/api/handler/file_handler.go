package handler

import (
	"fmt"
	"io"
	"mime/multipart"

	"github.com/labstack/echo/v4"

	"woonruil/internal/domain/entity"
	"woonruil/internal/usecase"
	"woonruil/pkg/errors"
	"woonruil/pkg/logger"
	"woonruil/pkg/response"
)

const defaultMaxFileSize = 10 << 20

// FileHandler takes multipart uploads and hands them to the use cases.
type FileHandler struct {
	listings    ListingService
	users       UserService
	maxFileSize int64
}

func NewFileHandler(listings ListingService, users UserService) *FileHandler {
	return &FileHandler{
		listings:    listings,
		users:       users,
		maxFileSize: defaultMaxFileSize,
	}
}

// UploadListingImages accepts up to ten files in the "images" field and
// returns their public URLs in the order they were sent.
func (h *FileHandler) UploadListingImages(c echo.Context) error {
	uid, err := currentUser(c)
	if err != nil {
		return response.Error(c, err)
	}

	form, err := c.MultipartForm()
	if err != nil {
		return response.Error(c, errors.BadRequest("Failed to parse form", err))
	}

	files := form.File["images"]
	if len(files) == 0 {
		return response.Error(c, errors.BadRequest("No files provided", nil))
	}
	if len(files) > entity.MaxListingImages {
		return response.Error(c, errors.BadRequest(fmt.Sprintf("Too many files. Maximum %d allowed", entity.MaxListingImages), nil))
	}

	uploads := make([]usecase.ImageUpload, 0, len(files))
	for _, fh := range files {
		if fh.Size > h.maxFileSize {
			return response.Error(c, errors.BadRequest(fmt.Sprintf("%s exceeds the maximum size of %dMB", fh.Filename, h.maxFileSize>>20), nil))
		}
		uploads = append(uploads, usecase.ImageUpload{
			Filename:    fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Open:        opener(fh),
		})
	}

	logger.Debug("Uploading %d listing images for %s", len(uploads), uid)

	urls, err := h.listings.UploadImages(c.Request().Context(), uid, uploads)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Created(c, map[string]interface{}{"urls": urls})
}

func (h *FileHandler) UploadProfilePhoto(c echo.Context) error {
	uid, err := currentUser(c)
	if err != nil {
		return response.Error(c, err)
	}

	fh, err := c.FormFile("photo")
	if err != nil {
		return response.Error(c, errors.BadRequest("Missing or invalid file", err))
	}
	if fh.Size > h.maxFileSize {
		return response.Error(c, errors.BadRequest(fmt.Sprintf("File size exceeds maximum allowed (%dMB)", h.maxFileSize>>20), nil))
	}

	src, err := fh.Open()
	if err != nil {
		return response.Error(c, errors.Internal("Unable to read file", err))
	}
	defer src.Close()

	user, err := h.users.UploadPhoto(c.Request().Context(), uid, src, fh.Header.Get("Content-Type"))
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, user)
}

func opener(fh *multipart.FileHeader) func() (io.ReadCloser, error) {
	return func() (io.ReadCloser, error) {
		return fh.Open()
	}
}
