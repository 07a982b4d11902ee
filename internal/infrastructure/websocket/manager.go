package websocket

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"woonruil/internal/domain/entity"
	"woonruil/internal/infrastructure/metrics"
	"woonruil/internal/usecase"
	"woonruil/pkg/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 16 * 1024
	sendBuffer     = 256
)

// Subscription is a live feed of one conversation's new messages.
type Subscription interface {
	Messages() <-chan *entity.Message
	Close()
}

// ChatService is the part of the chat use case the socket protocol drives.
type ChatService interface {
	Subscribe(ctx context.Context, userID, conversationID string) ([]*entity.Message, Subscription, error)
	SendMessage(ctx context.Context, userID, conversationID, text string) (*entity.Message, error)
}

// ChatUseCaseService adapts the chat use case to ChatService.
type ChatUseCaseService struct {
	UseCase *usecase.ChatUseCase
}

func (s ChatUseCaseService) Subscribe(ctx context.Context, userID, conversationID string) ([]*entity.Message, Subscription, error) {
	stream, err := s.UseCase.Subscribe(ctx, userID, conversationID)
	if err != nil {
		return nil, nil, err
	}
	return stream.History, stream, nil
}

func (s ChatUseCaseService) SendMessage(ctx context.Context, userID, conversationID, text string) (*entity.Message, error) {
	return s.UseCase.SendMessage(ctx, userID, conversationID, text)
}

// Client is one socket. A user may hold several, one per open tab.
type Client struct {
	UserID string
	Conn   *websocket.Conn
	Send   chan []byte

	done      chan struct{}
	closeOnce sync.Once

	mu    sync.Mutex
	rooms map[string]Subscription
}

func NewClient(userID string, conn *websocket.Conn) *Client {
	return &Client{
		UserID: userID,
		Conn:   conn,
		Send:   make(chan []byte, sendBuffer),
		done:   make(chan struct{}),
		rooms:  make(map[string]Subscription),
	}
}

// Manager tracks connected clients and routes chat traffic to them.
type Manager struct {
	chat ChatService

	clients    map[string]map[*Client]struct{}
	Register   chan *Client
	Unregister chan *Client
	mutex      sync.RWMutex

	ctx context.Context
}

func NewManager(chat ChatService) *Manager {
	return &Manager{
		chat:       chat,
		clients:    make(map[string]map[*Client]struct{}),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		ctx:        context.Background(),
	}
}

// Start runs the registration loop until ctx is cancelled, then drops
// every client.
func (m *Manager) Start(ctx context.Context) {
	m.ctx = ctx
	go func() {
		for {
			select {
			case client := <-m.Register:
				m.mutex.Lock()
				if m.clients[client.UserID] == nil {
					m.clients[client.UserID] = make(map[*Client]struct{})
				}
				m.clients[client.UserID][client] = struct{}{}
				m.mutex.Unlock()
				metrics.WebSocketConnections.Inc()
				logger.Debug("WebSocket client registered: %s", client.UserID)

			case client := <-m.Unregister:
				m.remove(client)

			case <-ctx.Done():
				m.mutex.Lock()
				all := m.clients
				m.clients = make(map[string]map[*Client]struct{})
				m.mutex.Unlock()
				for _, set := range all {
					for c := range set {
						c.close()
						metrics.WebSocketConnections.Dec()
					}
				}
				return
			}
		}
	}()
}

func (m *Manager) remove(client *Client) {
	m.mutex.Lock()
	set, ok := m.clients[client.UserID]
	_, registered := set[client]
	if ok && registered {
		delete(set, client)
		if len(set) == 0 {
			delete(m.clients, client.UserID)
		}
	}
	m.mutex.Unlock()

	client.close()
	if registered {
		metrics.WebSocketConnections.Dec()
		logger.Debug("WebSocket client unregistered: %s", client.UserID)
	}
}

// ClientCount returns the number of sockets open for a user.
func (m *Manager) ClientCount(userID string) int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.clients[userID])
}

// SendToUser delivers message to every socket of the user.
func (m *Manager) SendToUser(userID string, message []byte) {
	m.mutex.RLock()
	targets := make([]*Client, 0, len(m.clients[userID]))
	for c := range m.clients[userID] {
		targets = append(targets, c)
	}
	m.mutex.RUnlock()

	for _, c := range targets {
		c.send(message)
	}
}

// NotifyInbox pushes an inbox change to the user's open sockets.
func (m *Manager) NotifyInbox(userID string, entry *entity.InboxEntry) {
	m.mutex.RLock()
	online := len(m.clients[userID]) > 0
	m.mutex.RUnlock()
	if !online {
		return
	}

	b, err := encode(newMessage(MessageTypeInboxUpdated, entry.ConversationID, entry))
	if err != nil {
		logger.Error("WebSocket: failed to encode inbox update for %s: %v", userID, err)
		return
	}
	m.SendToUser(userID, b)
}

// Serve registers the connection and pumps it until it closes.
func (m *Manager) Serve(userID string, conn *websocket.Conn) {
	client := NewClient(userID, conn)
	select {
	case m.Register <- client:
	case <-m.ctx.Done():
		conn.Close()
		return
	}

	go client.WritePump()
	client.ReadPump(m)
}

// send queues a frame. A client that cannot keep up is disconnected.
func (c *Client) send(message []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.Send <- message:
		return true
	case <-c.done:
		return false
	default:
		logger.Warn("WebSocket: client %s send buffer full, closing connection", c.UserID)
		c.close()
		return false
	}
}

func (c *Client) close() {
	c.closeOnce.Do(func() {
		close(c.done)

		c.mu.Lock()
		rooms := c.rooms
		c.rooms = make(map[string]Subscription)
		c.mu.Unlock()

		for _, sub := range rooms {
			sub.Close()
		}
	})
}

// join replaces any earlier subscription to the same conversation. A client
// that is already closed releases sub at once and reports false.
func (c *Client) join(conversationID string, sub Subscription) bool {
	c.mu.Lock()
	select {
	case <-c.done:
		c.mu.Unlock()
		sub.Close()
		return false
	default:
	}
	prev := c.rooms[conversationID]
	c.rooms[conversationID] = sub
	c.mu.Unlock()

	if prev != nil {
		prev.Close()
	}
	return true
}

func (c *Client) leave(conversationID string) bool {
	c.mu.Lock()
	sub, ok := c.rooms[conversationID]
	delete(c.rooms, conversationID)
	c.mu.Unlock()

	if ok {
		sub.Close()
	}
	return ok
}

// ReadPump reads frames from the connection until it fails.
func (c *Client) ReadPump(m *Manager) {
	defer func() {
		select {
		case m.Unregister <- c:
		case <-m.ctx.Done():
			c.close()
		}
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Warn("WebSocket: read from %s failed: %v", c.UserID, err)
			}
			return
		}

		m.HandleClientMessage(c, message)
	}
}

// WritePump writes queued frames and keeps the connection alive with pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message := <-c.Send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				logger.Warn("WebSocket: write to %s failed: %v", c.UserID, err)
				return
			}

		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.Conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}
