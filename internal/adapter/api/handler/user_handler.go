package handler

import (
	"context"
	"io"

	"github.com/labstack/echo/v4"

	"woonruil/internal/domain/entity"
	"woonruil/internal/usecase"
	"woonruil/pkg/response"
)

type UserService interface {
	SyncProfile(ctx context.Context, userID string) (*entity.User, error)
	GetProfile(ctx context.Context, userID string) (*entity.User, error)
	GetPublicProfile(ctx context.Context, userID string) (entity.PublicProfile, error)
	UpdateProfile(ctx context.Context, userID string, input usecase.UpdateProfileInput) (*entity.User, error)
	UploadPhoto(ctx context.Context, userID string, file io.Reader, contentType string) (*entity.User, error)
}

type UserHandler struct {
	users UserService
}

func NewUserHandler(users UserService) *UserHandler {
	return &UserHandler{
		users: users,
	}
}

// SyncProfile refreshes the caller's mirrored profile after sign-in.
func (h *UserHandler) SyncProfile(c echo.Context) error {
	uid, err := currentUser(c)
	if err != nil {
		return response.Error(c, err)
	}

	user, err := h.users.SyncProfile(c.Request().Context(), uid)
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, user)
}

func (h *UserHandler) GetProfile(c echo.Context) error {
	uid, err := currentUser(c)
	if err != nil {
		return response.Error(c, err)
	}

	user, err := h.users.GetProfile(c.Request().Context(), uid)
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, user)
}

func (h *UserHandler) UpdateProfile(c echo.Context) error {
	uid, err := currentUser(c)
	if err != nil {
		return response.Error(c, err)
	}

	var req usecase.UpdateProfileInput
	if err := bindAndValidate(c, &req); err != nil {
		return response.Error(c, err)
	}

	user, err := h.users.UpdateProfile(c.Request().Context(), uid, req)
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, user)
}

func (h *UserHandler) GetPublicProfile(c echo.Context) error {
	profile, err := h.users.GetPublicProfile(c.Request().Context(), c.Param("id"))
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, profile)
}
