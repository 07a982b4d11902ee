package usecase

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"woonruil/internal/domain/entity"
	"woonruil/internal/domain/repository"
	"woonruil/internal/infrastructure/metrics"
	"woonruil/internal/infrastructure/ratelimit"
	"woonruil/pkg/errors"
	"woonruil/pkg/logger"
)

const MaxMessageLength = 5000

type ChatUseCase struct {
	chatRepo    repository.ChatRepository
	userRepo    repository.UserRepository
	listingRepo repository.ListingRepository
	blockRepo   repository.BlockRepository
	rateLimiter ActionLimiter
	notifier    InboxNotifier
	now         func() time.Time
}

func NewChatUseCase(
	chatRepo repository.ChatRepository,
	userRepo repository.UserRepository,
	listingRepo repository.ListingRepository,
	blockRepo repository.BlockRepository,
	rateLimiter ActionLimiter,
) *ChatUseCase {
	return &ChatUseCase{
		chatRepo:    chatRepo,
		userRepo:    userRepo,
		listingRepo: listingRepo,
		blockRepo:   blockRepo,
		rateLimiter: rateLimiter,
		now:         time.Now,
	}
}

// SetNotifier attaches the realtime hub. It is set after construction
// because the hub itself depends on the use case.
func (uc *ChatUseCase) SetNotifier(n InboxNotifier) {
	uc.notifier = n
}

type StartConversationResult struct {
	Conversation *entity.Conversation `json:"conversation"`
	Created      bool                 `json:"created"`
}

// StartConversation opens the conversation between userID and the owner of
// listingID, creating it with the opening message when it does not exist.
func (uc *ChatUseCase) StartConversation(ctx context.Context, userID, listingID string) (*StartConversationResult, error) {
	listing, err := uc.listingRepo.GetByID(ctx, listingID)
	if err != nil {
		return nil, err
	}

	if listing.OwnerID == userID {
		return nil, errors.BadRequest("This is your own listing", nil)
	}

	convID, err := entity.ConversationID(userID, listing.OwnerID)
	if err != nil {
		return nil, errors.BadRequest("Invalid conversation participants", err)
	}

	existing, err := uc.chatRepo.GetConversation(ctx, convID)
	if err == nil {
		return &StartConversationResult{Conversation: existing, Created: false}, nil
	}
	if !errors.IsNotFound(err) {
		return nil, err
	}

	if err := uc.ensureNotBlocked(ctx, userID, listing.OwnerID); err != nil {
		return nil, err
	}

	if allowed, wait := uc.rateLimiter.Allow(userID, ratelimit.ActionCreateChat); !allowed {
		metrics.RateLimitHits.WithLabelValues(ratelimit.ActionCreateChat).Inc()
		logger.Warn("StartConversation rate limited: user %s must wait %v", userID, wait)
		return nil, errors.TooManyRequests("Rate limit exceeded. Please wait before starting another conversation", wait)
	}

	first, second, _ := entity.ParticipantsFromID(convID)
	conv := &entity.Conversation{
		ID:           convID,
		Participants: []string{first, second},
		ListingID:    listing.ID,
		ListingTitle: listing.Title,
	}
	opening := entity.NewMessage(convID, uc.senderProfile(ctx, userID), userID, entity.InterestMessage(listing.Title), uc.now())

	stored, created, err := uc.chatRepo.CreateConversation(ctx, conv, opening)
	if err != nil {
		return nil, err
	}

	if created {
		metrics.ConversationsCreated.Inc()
		metrics.MessagesSent.Inc()
		uc.notify(stored, opening)
		logger.Info("Conversation %s started by %s on listing %s", convID, userID, listing.ID)
	}

	return &StartConversationResult{Conversation: stored, Created: created}, nil
}

// SendMessage appends text to the conversation. Blank text is ignored and
// yields a nil message.
func (uc *ChatUseCase) SendMessage(ctx context.Context, userID, conversationID, text string) (*entity.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}
	if len([]rune(text)) > MaxMessageLength {
		return nil, errors.BadRequest("Message is too long", nil)
	}

	conv, err := uc.participantConversation(ctx, userID, conversationID)
	if err != nil {
		return nil, err
	}

	if err := uc.ensureNotBlocked(ctx, userID, conv.OtherParticipant(userID)); err != nil {
		return nil, err
	}

	if allowed, wait := uc.rateLimiter.Allow(userID, ratelimit.ActionSendMessage); !allowed {
		metrics.RateLimitHits.WithLabelValues(ratelimit.ActionSendMessage).Inc()
		logger.Warn("SendMessage rate limited: user %s must wait %v", userID, wait)
		return nil, errors.TooManyRequests("Rate limit exceeded. Please slow down", wait)
	}

	msg := entity.NewMessage(conv.ID, uc.senderProfile(ctx, userID), userID, text, uc.now())

	updated, err := uc.chatRepo.AppendMessage(ctx, msg)
	if err != nil {
		return nil, err
	}

	metrics.MessagesSent.Inc()
	uc.notify(updated, msg)

	return msg, nil
}

// MessageStream delivers a conversation's history followed by every message
// appended after it, each message id at most once.
type MessageStream struct {
	ConversationID string
	History        []*entity.Message

	messages chan *entity.Message
	cancel   context.CancelFunc
	done     chan struct{}

	mu  sync.Mutex
	err error
}

// Messages is closed when the stream ends.
func (s *MessageStream) Messages() <-chan *entity.Message {
	return s.messages
}

// Close stops the listener and waits for it to exit.
func (s *MessageStream) Close() {
	s.cancel()
	<-s.done
}

// Err reports why the listener stopped, nil after Close.
func (s *MessageStream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (uc *ChatUseCase) Subscribe(ctx context.Context, userID, conversationID string) (*MessageStream, error) {
	if _, err := uc.participantConversation(ctx, userID, conversationID); err != nil {
		return nil, err
	}

	history, err := uc.chatRepo.ListMessages(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(history))
	for _, m := range history {
		seen[m.ID] = struct{}{}
	}

	watchCtx, cancel := context.WithCancel(ctx)
	stream := &MessageStream{
		ConversationID: conversationID,
		History:        history,
		messages:       make(chan *entity.Message, 64),
		cancel:         cancel,
		done:           make(chan struct{}),
	}

	go func() {
		defer close(stream.done)
		defer close(stream.messages)

		err := uc.chatRepo.WatchMessages(watchCtx, conversationID, func(m *entity.Message) {
			if _, dup := seen[m.ID]; dup {
				return
			}
			seen[m.ID] = struct{}{}

			select {
			case stream.messages <- m:
			case <-watchCtx.Done():
			}
		})
		if err != nil && watchCtx.Err() == nil {
			logger.Error("Message listener for chat %s stopped: %v", conversationID, err)
			stream.mu.Lock()
			stream.err = err
			stream.mu.Unlock()
		}
	}()

	return stream, nil
}

type InboxItem struct {
	*entity.InboxEntry
	OtherUser entity.PublicProfile `json:"other_user"`
}

// ListInbox returns the caller's conversations, most recent first, with the
// counterpart's public profile.
func (uc *ChatUseCase) ListInbox(ctx context.Context, userID string) ([]*InboxItem, error) {
	entries, err := uc.chatRepo.ListInbox(ctx, userID)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Timestamp.After(entries[j].Timestamp)
	})

	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.OtherUserID)
	}

	users, err := uc.userRepo.GetByIDs(ctx, ids)
	if err != nil {
		logger.Warn("Inbox of %s served without profiles: %v", userID, err)
		users = map[string]*entity.User{}
	}

	items := make([]*InboxItem, 0, len(entries))
	for _, e := range entries {
		profile := entity.PublicProfile{
			ID:          e.OtherUserID,
			DisplayName: entity.DefaultDisplayName,
			PhotoURL:    entity.DefaultAvatarURL,
		}
		if u, ok := users[e.OtherUserID]; ok {
			profile = u.Public()
		}
		items = append(items, &InboxItem{InboxEntry: e, OtherUser: profile})
	}

	return items, nil
}

func (uc *ChatUseCase) GetConversation(ctx context.Context, userID, conversationID string) (*entity.Conversation, error) {
	return uc.participantConversation(ctx, userID, conversationID)
}

func (uc *ChatUseCase) ListMessages(ctx context.Context, userID, conversationID string) ([]*entity.Message, error) {
	if _, err := uc.participantConversation(ctx, userID, conversationID); err != nil {
		return nil, err
	}
	return uc.chatRepo.ListMessages(ctx, conversationID)
}

func (uc *ChatUseCase) DeleteConversation(ctx context.Context, userID, conversationID string) error {
	if _, err := uc.participantConversation(ctx, userID, conversationID); err != nil {
		return err
	}

	if err := uc.chatRepo.DeleteConversation(ctx, conversationID); err != nil {
		return err
	}

	logger.Info("Conversation %s deleted by %s", conversationID, userID)
	return nil
}

func (uc *ChatUseCase) BlockUser(ctx context.Context, userID, targetID string) error {
	if targetID == "" || targetID == userID {
		return errors.BadRequest("You cannot block yourself", nil)
	}

	return uc.blockRepo.Block(ctx, &entity.Block{
		BlockerID: userID,
		BlockedID: targetID,
		CreatedAt: uc.now(),
	})
}

func (uc *ChatUseCase) UnblockUser(ctx context.Context, userID, targetID string) error {
	return uc.blockRepo.Unblock(ctx, userID, targetID)
}

func (uc *ChatUseCase) ListBlocked(ctx context.Context, userID string) ([]*entity.Block, error) {
	return uc.blockRepo.ListBlocked(ctx, userID)
}

func (uc *ChatUseCase) participantConversation(ctx context.Context, userID, conversationID string) (*entity.Conversation, error) {
	conv, err := uc.chatRepo.GetConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !conv.HasParticipant(userID) {
		return nil, errors.Forbidden("You are not a participant in this conversation", nil)
	}
	return conv, nil
}

// ensureNotBlocked fails when either user has blocked the other.
func (uc *ChatUseCase) ensureNotBlocked(ctx context.Context, userID, otherID string) error {
	for _, pair := range [][2]string{{otherID, userID}, {userID, otherID}} {
		blocked, err := uc.blockRepo.IsBlocked(ctx, pair[0], pair[1])
		if err != nil {
			return err
		}
		if blocked {
			return errors.Forbidden("You cannot message this user", nil)
		}
	}
	return nil
}

// senderProfile reads the sender's mirror for the message snapshot. A
// missing profile falls back to the defaults.
func (uc *ChatUseCase) senderProfile(ctx context.Context, userID string) *entity.User {
	user, err := uc.userRepo.GetByID(ctx, userID)
	if err != nil {
		if !errors.IsNotFound(err) {
			logger.Warn("Sender profile of %s unavailable: %v", userID, err)
		}
		return nil
	}
	return user
}

func (uc *ChatUseCase) notify(conv *entity.Conversation, msg *entity.Message) {
	if uc.notifier == nil || conv == nil {
		return
	}
	for userID, entry := range entity.InboxEntriesFor(conv, msg) {
		uc.notifier.NotifyInbox(userID, entry)
	}
}
