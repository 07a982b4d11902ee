package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"woonruil/internal/domain/entity"
	"woonruil/pkg/errors"
)

type fakeSub struct {
	ch     chan *entity.Message
	once   sync.Once
	closed chan struct{}
}

func newFakeSub() *fakeSub {
	return &fakeSub{ch: make(chan *entity.Message, 8), closed: make(chan struct{})}
}

func (s *fakeSub) Messages() <-chan *entity.Message { return s.ch }

func (s *fakeSub) Close() {
	s.once.Do(func() {
		close(s.closed)
		close(s.ch)
	})
}

type fakeChat struct {
	mu   sync.Mutex
	subs map[string]*fakeSub
	sent []string
}

func newFakeChat() *fakeChat {
	return &fakeChat{subs: map[string]*fakeSub{}}
}

func (f *fakeChat) Subscribe(_ context.Context, userID, conversationID string) ([]*entity.Message, Subscription, error) {
	if !strings.Contains(conversationID, userID) {
		return nil, nil, errors.Forbidden("You are not a participant of this conversation", nil)
	}
	sub := newFakeSub()
	f.mu.Lock()
	f.subs[conversationID] = sub
	f.mu.Unlock()
	return []*entity.Message{{ID: "m1", ConversationID: conversationID, Text: "hello"}}, sub, nil
}

func (f *fakeChat) SendMessage(_ context.Context, userID, conversationID, text string) (*entity.Message, error) {
	if text == "slow down" {
		return nil, errors.TooManyRequests("Too many messages", 6*time.Second)
	}
	f.mu.Lock()
	f.sent = append(f.sent, text)
	f.mu.Unlock()
	return &entity.Message{ID: "m2", ConversationID: conversationID, SenderID: userID, Text: text}, nil
}

func (f *fakeChat) sub(id string) *fakeSub {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.subs[id]
}

type frame struct {
	Type   string          `json:"type"`
	ChatID string          `json:"chat_id"`
	Data   json.RawMessage `json:"data"`
}

func setup(t *testing.T) (*Manager, *fakeChat, *websocket.Conn) {
	t.Helper()

	chat := newFakeChat()
	m := NewManager(chat)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	m.Start(ctx)

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		m.Serve(r.URL.Query().Get("uid"), conn)
	}))
	t.Cleanup(srv.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"?uid=alice", nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	require.Eventually(t, func() bool { return m.ClientCount("alice") == 1 }, time.Second, 5*time.Millisecond)
	return m, chat, conn
}

func read(t *testing.T, conn *websocket.Conn) frame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var f frame
	require.NoError(t, conn.ReadJSON(&f))
	return f
}

func TestPingPong(t *testing.T) {
	_, _, conn := setup(t)

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "ping"}))
	assert.Equal(t, MessageTypePong, read(t, conn).Type)
}

func TestJoinSendsHistoryThenLiveMessages(t *testing.T) {
	_, chat, conn := setup(t)

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "join_chat_room", "chat_id": "alice_bob"}))

	f := read(t, conn)
	assert.Equal(t, MessageTypeHistory, f.Type)
	var history []*entity.Message
	require.NoError(t, json.Unmarshal(f.Data, &history))
	require.Len(t, history, 1)
	assert.Equal(t, "hello", history[0].Text)

	chat.sub("alice_bob").ch <- &entity.Message{ID: "m9", Text: "live"}
	f = read(t, conn)
	assert.Equal(t, MessageTypeMessage, f.Type)
	assert.Equal(t, "alice_bob", f.ChatID)

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "leave_chat_room", "chat_id": "alice_bob"}))
	select {
	case <-chat.sub("alice_bob").closed:
	case <-time.After(time.Second):
		t.Fatal("subscription not closed after leave")
	}
}

func TestJoinRejectedForNonParticipant(t *testing.T) {
	_, _, conn := setup(t)

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "join_chat_room", "chat_id": "bob_carol"}))
	f := read(t, conn)
	assert.Equal(t, MessageTypeError, f.Type)
	assert.Contains(t, string(f.Data), "not a participant")
}

func TestSendMessage(t *testing.T) {
	_, chat, conn := setup(t)

	require.NoError(t, conn.WriteJSON(map[string]interface{}{
		"type": "send_message",
		"data": map[string]string{"chat_id": "alice_bob", "content": "is it still free?", "temp_id": "t1"},
	}))
	f := read(t, conn)
	assert.Equal(t, MessageTypeMessageSent, f.Type)

	var ack MessageSentData
	require.NoError(t, json.Unmarshal(f.Data, &ack))
	assert.Equal(t, "t1", ack.TempID)
	assert.Equal(t, "is it still free?", ack.Message.Text)
	assert.Equal(t, []string{"is it still free?"}, chat.sent)

	require.NoError(t, conn.WriteJSON(map[string]interface{}{
		"type": "send_message", "chat_id": "alice_bob",
		"data": map[string]string{"content": "slow down"},
	}))
	f = read(t, conn)
	assert.Equal(t, MessageTypeError, f.Type)
	var e ErrorData
	require.NoError(t, json.Unmarshal(f.Data, &e))
	assert.Equal(t, 6, e.RetryAfter)
}

func TestNotifyInboxReachesEverySocket(t *testing.T) {
	m, _, conn := setup(t)

	m.NotifyInbox("alice", &entity.InboxEntry{ConversationID: "alice_bob", LastMessage: "hi"})
	f := read(t, conn)
	assert.Equal(t, MessageTypeInboxUpdated, f.Type)
	assert.Equal(t, "alice_bob", f.ChatID)

	// offline users are skipped
	m.NotifyInbox("bob", &entity.InboxEntry{ConversationID: "alice_bob"})
}

func TestDisconnectUnregisters(t *testing.T) {
	m, chat, conn := setup(t)

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "join_chat_room", "chat_id": "alice_bob"}))
	read(t, conn)

	conn.Close()
	assert.Eventually(t, func() bool { return m.ClientCount("alice") == 0 }, 2*time.Second, 10*time.Millisecond)
	select {
	case <-chat.sub("alice_bob").closed:
	case <-time.After(time.Second):
		t.Fatal("subscription not closed on disconnect")
	}
}

func TestJoinAfterCloseReleasesSubscription(t *testing.T) {
	client := NewClient("alice", nil)
	client.close()

	sub := newFakeSub()
	assert.False(t, client.join("alice_bob", sub))
	select {
	case <-sub.closed:
	default:
		t.Fatal("subscription kept by a closed client")
	}
}

func TestJoinRacingDisconnectDoesNotLeak(t *testing.T) {
	chat := newFakeChat()
	m := NewManager(chat)
	client := NewClient("alice", nil)

	// the client drops while the subscription is being opened
	client.close()
	m.handleJoinChatRoom(client, WSMessage{Type: MessageTypeJoinChatRoom, ChatID: "alice_bob"})

	sub := chat.sub("alice_bob")
	require.NotNil(t, sub)
	select {
	case <-sub.closed:
	case <-time.After(time.Second):
		t.Fatal("subscription not closed")
	}
	assert.Empty(t, client.Send)
}
