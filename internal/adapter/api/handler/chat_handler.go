package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"woonruil/internal/domain/entity"
	"woonruil/internal/usecase"
	"woonruil/pkg/response"
	"woonruil/pkg/utils"
)

type ChatService interface {
	StartConversation(ctx context.Context, userID, listingID string) (*usecase.StartConversationResult, error)
	SendMessage(ctx context.Context, userID, conversationID, text string) (*entity.Message, error)
	ListInbox(ctx context.Context, userID string) ([]*usecase.InboxItem, error)
	GetConversation(ctx context.Context, userID, conversationID string) (*entity.Conversation, error)
	ListMessages(ctx context.Context, userID, conversationID string) ([]*entity.Message, error)
	DeleteConversation(ctx context.Context, userID, conversationID string) error
	BlockUser(ctx context.Context, userID, targetID string) error
	UnblockUser(ctx context.Context, userID, targetID string) error
	ListBlocked(ctx context.Context, userID string) ([]*entity.Block, error)
}

type ChatHandler struct {
	chat ChatService
}

func NewChatHandler(chat ChatService) *ChatHandler {
	return &ChatHandler{
		chat: chat,
	}
}

type startConversationRequest struct {
	ListingID string `json:"listing_id" validate:"required"`
}

type sendMessageRequest struct {
	Text string `json:"text" validate:"max=5000"`
}

// StartConversation opens (or returns) the caller's conversation with a
// listing's owner. 201 when it was created by this call, 200 otherwise.
func (h *ChatHandler) StartConversation(c echo.Context) error {
	uid, err := currentUser(c)
	if err != nil {
		return response.Error(c, err)
	}

	var req startConversationRequest
	if err := bindAndValidate(c, &req); err != nil {
		return response.Error(c, err)
	}

	result, err := h.chat.StartConversation(c.Request().Context(), uid, req.ListingID)
	if err != nil {
		return response.Error(c, err)
	}

	if result.Created {
		return response.Created(c, result)
	}
	return response.Success(c, result)
}

func (h *ChatHandler) ListInbox(c echo.Context) error {
	uid, err := currentUser(c)
	if err != nil {
		return response.Error(c, err)
	}

	items, err := h.chat.ListInbox(c.Request().Context(), uid)
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, items)
}

func (h *ChatHandler) GetConversation(c echo.Context) error {
	uid, err := currentUser(c)
	if err != nil {
		return response.Error(c, err)
	}

	conv, err := h.chat.GetConversation(c.Request().Context(), uid, c.Param("id"))
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, conv)
}

// SendMessage answers 204 when the text is blank and nothing was stored.
func (h *ChatHandler) SendMessage(c echo.Context) error {
	uid, err := currentUser(c)
	if err != nil {
		return response.Error(c, err)
	}

	var req sendMessageRequest
	if err := bindAndValidate(c, &req); err != nil {
		return response.Error(c, err)
	}

	msg, err := h.chat.SendMessage(c.Request().Context(), uid, c.Param("id"), req.Text)
	if err != nil {
		return response.Error(c, err)
	}
	if msg == nil {
		return c.NoContent(http.StatusNoContent)
	}

	return response.Created(c, msg)
}

// GetMessages returns the history oldest first, paginated.
func (h *ChatHandler) GetMessages(c echo.Context) error {
	uid, err := currentUser(c)
	if err != nil {
		return response.Error(c, err)
	}

	messages, err := h.chat.ListMessages(c.Request().Context(), uid, c.Param("id"))
	if err != nil {
		return response.Error(c, err)
	}

	page := utils.GetPaginationParams(c)
	start, end := page.Window(len(messages))
	return response.Paginated(c, messages[start:end], int64(len(messages)), page.Page, page.PageSize)
}

func (h *ChatHandler) DeleteConversation(c echo.Context) error {
	uid, err := currentUser(c)
	if err != nil {
		return response.Error(c, err)
	}

	if err := h.chat.DeleteConversation(c.Request().Context(), uid, c.Param("id")); err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, map[string]string{"message": "Conversation deleted"})
}

func (h *ChatHandler) BlockUser(c echo.Context) error {
	uid, err := currentUser(c)
	if err != nil {
		return response.Error(c, err)
	}

	if err := h.chat.BlockUser(c.Request().Context(), uid, c.Param("id")); err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, map[string]string{"message": "User blocked"})
}

func (h *ChatHandler) UnblockUser(c echo.Context) error {
	uid, err := currentUser(c)
	if err != nil {
		return response.Error(c, err)
	}

	if err := h.chat.UnblockUser(c.Request().Context(), uid, c.Param("id")); err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, map[string]string{"message": "User unblocked"})
}

func (h *ChatHandler) ListBlocked(c echo.Context) error {
	uid, err := currentUser(c)
	if err != nil {
		return response.Error(c, err)
	}

	blocks, err := h.chat.ListBlocked(c.Request().Context(), uid)
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, blocks)
}
