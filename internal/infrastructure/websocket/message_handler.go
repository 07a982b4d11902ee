package websocket

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"strings"
	"time"

	"woonruil/internal/domain/entity"
	"woonruil/pkg/errors"
	"woonruil/pkg/logger"
)

const requestTimeout = 10 * time.Second

// WebSocket message types
const (
	MessageTypePing          = "ping"
	MessageTypePong          = "pong"
	MessageTypeJoinChatRoom  = "join_chat_room"
	MessageTypeLeaveChatRoom = "leave_chat_room"
	MessageTypeSendMessage   = "send_message"

	MessageTypeHistory      = "history"
	MessageTypeMessage      = "message"
	MessageTypeMessageSent  = "message_sent"
	MessageTypeInboxUpdated = "inbox_updated"
	MessageTypeError        = "error"
)

// WSMessage is the envelope of every frame in both directions.
type WSMessage struct {
	Type      string          `json:"type"`
	ChatID    string          `json:"chat_id,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp string          `json:"timestamp,omitempty"`
}

// outgoing is WSMessage with an arbitrary payload.
type outgoing struct {
	Type      string      `json:"type"`
	ChatID    string      `json:"chat_id,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp string      `json:"timestamp"`
}

type SendMessageData struct {
	TempID  string `json:"temp_id,omitempty"`
	ChatID  string `json:"chat_id"`
	Content string `json:"content"`
}

type MessageSentData struct {
	TempID  string          `json:"temp_id,omitempty"`
	Message *entity.Message `json:"message"`
}

type ErrorData struct {
	Error      string `json:"error"`
	RetryAfter int    `json:"retry_after,omitempty"`
}

func newMessage(typ, chatID string, data interface{}) outgoing {
	return outgoing{
		Type:      typ,
		ChatID:    chatID,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

func encode(msg outgoing) ([]byte, error) {
	return json.Marshal(msg)
}

// HandleClientMessage processes one frame received from a client.
func (m *Manager) HandleClientMessage(client *Client, raw []byte) {
	var msg WSMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		logger.Debug("WebSocket: malformed frame from %s: %v", client.UserID, err)
		m.sendErrorToClient(client, "", "Invalid message format", 0)
		return
	}

	switch msg.Type {
	case MessageTypePing:
		m.sendToClient(client, newMessage(MessageTypePong, "", map[string]string{"status": "alive"}))

	case MessageTypeJoinChatRoom:
		m.handleJoinChatRoom(client, msg)

	case MessageTypeLeaveChatRoom:
		m.handleLeaveChatRoom(client, msg)

	case MessageTypeSendMessage:
		m.handleSendMessage(client, msg)

	default:
		logger.Debug("WebSocket: unknown message type %q from %s", msg.Type, client.UserID)
		m.sendErrorToClient(client, msg.ChatID, "Unknown message type", 0)
	}
}

// chatID accepts the id either on the envelope or inside data.
func chatID(msg WSMessage) string {
	if msg.ChatID != "" {
		return msg.ChatID
	}
	var body struct {
		ChatID string `json:"chat_id"`
	}
	if len(msg.Data) > 0 && json.Unmarshal(msg.Data, &body) == nil {
		return body.ChatID
	}
	return ""
}

func (m *Manager) handleJoinChatRoom(client *Client, msg WSMessage) {
	id := chatID(msg)
	if id == "" {
		m.sendErrorToClient(client, "", "chat_id is required", 0)
		return
	}

	history, sub, err := m.chat.Subscribe(m.ctx, client.UserID, id)
	if err != nil {
		m.sendAppError(client, id, err)
		return
	}

	if !client.join(id, sub) {
		return
	}
	m.sendToClient(client, newMessage(MessageTypeHistory, id, history))

	go func() {
		for message := range sub.Messages() {
			m.sendToClient(client, newMessage(MessageTypeMessage, id, message))
		}
	}()

	logger.Debug("WebSocket: %s joined chat %s", client.UserID, id)
}

func (m *Manager) handleLeaveChatRoom(client *Client, msg WSMessage) {
	id := chatID(msg)
	if client.leave(id) {
		logger.Debug("WebSocket: %s left chat %s", client.UserID, id)
	}
}

func (m *Manager) handleSendMessage(client *Client, msg WSMessage) {
	var data SendMessageData
	if len(msg.Data) > 0 {
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			m.sendErrorToClient(client, msg.ChatID, "Invalid send message format", 0)
			return
		}
	}
	if data.ChatID == "" {
		data.ChatID = msg.ChatID
	}
	if data.ChatID == "" {
		m.sendErrorToClient(client, "", "chat_id is required", 0)
		return
	}
	if strings.TrimSpace(data.Content) == "" {
		return
	}

	ctx, cancel := context.WithTimeout(m.ctx, requestTimeout)
	defer cancel()

	sent, err := m.chat.SendMessage(ctx, client.UserID, data.ChatID, data.Content)
	if err != nil {
		m.sendAppError(client, data.ChatID, err)
		return
	}

	m.sendToClient(client, newMessage(MessageTypeMessageSent, data.ChatID, MessageSentData{TempID: data.TempID, Message: sent}))
}

func (m *Manager) sendToClient(client *Client, msg outgoing) {
	b, err := encode(msg)
	if err != nil {
		logger.Error("WebSocket: failed to encode %s frame for %s: %v", msg.Type, client.UserID, err)
		return
	}
	client.send(b)
}

func (m *Manager) sendErrorToClient(client *Client, chatID, message string, retryAfter time.Duration) {
	data := ErrorData{Error: message}
	if retryAfter > 0 {
		data.RetryAfter = int((retryAfter + time.Second - 1) / time.Second)
	}
	m.sendToClient(client, newMessage(MessageTypeError, chatID, data))
}

// sendAppError reports a use case failure without leaking internals.
func (m *Manager) sendAppError(client *Client, chatID string, err error) {
	var appErr *errors.AppError
	if stderrors.As(err, &appErr) && appErr.Code != errors.CodeInternal {
		m.sendErrorToClient(client, chatID, appErr.Message, appErr.RetryAfter)
		return
	}
	logger.Error("WebSocket: request from %s on chat %s failed: %v", client.UserID, chatID, err)
	m.sendErrorToClient(client, chatID, "Something went wrong", 0)
}
