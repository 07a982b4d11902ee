package handler

import (
	"context"

	"github.com/labstack/echo/v4"

	"woonruil/internal/infrastructure/firebase"
	"woonruil/pkg/errors"
	"woonruil/pkg/response"
)

type DevTokenIssuer interface {
	GenerateDevToken(ctx context.Context, uid string) (*firebase.SignInResult, error)
}

// DevTokenHandler hands out ID tokens for arbitrary users. Only routed in
// development.
type DevTokenHandler struct {
	issuer DevTokenIssuer
}

func NewDevTokenHandler(issuer DevTokenIssuer) *DevTokenHandler {
	return &DevTokenHandler{
		issuer: issuer,
	}
}

func (h *DevTokenHandler) GenerateUserToken(c echo.Context) error {
	uid := c.QueryParam("uid")
	if uid == "" {
		return response.Error(c, errors.BadRequest("uid is required", nil))
	}

	result, err := h.issuer.GenerateDevToken(c.Request().Context(), uid)
	if err != nil {
		return response.Error(c, errors.Internal("Failed to generate token", err))
	}

	return response.Success(c, result)
}
