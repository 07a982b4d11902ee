package repository

import (
	"context"

	"woonruil/internal/domain/entity"
)

// ChatRepository owns conversations, their messages and the per-user inbox
// index. The multi-document writes are atomic: an implementation must
// commit the conversation, message and both inbox entries together or not
// at all.
type ChatRepository interface {
	// CreateConversation creates conv together with its first message and
	// both inbox entries, unless a conversation with conv.ID already exists,
	// in which case the stored one is returned with created=false and
	// nothing is written.
	CreateConversation(ctx context.Context, conv *entity.Conversation, first *entity.Message) (stored *entity.Conversation, created bool, err error)
	GetConversation(ctx context.Context, id string) (*entity.Conversation, error)
	// AppendMessage stores msg, updates the conversation's last-message
	// summary and rewrites both inbox entries.
	AppendMessage(ctx context.Context, msg *entity.Message) (*entity.Conversation, error)
	// ListMessages returns the full history in append order.
	ListMessages(ctx context.Context, conversationID string) ([]*entity.Message, error)
	// WatchMessages calls fn for every message added to the conversation
	// until ctx is cancelled. Messages that already exist when the watch
	// starts may be delivered too; callers de-duplicate by id.
	WatchMessages(ctx context.Context, conversationID string, fn func(*entity.Message)) error
	ListInbox(ctx context.Context, userID string) ([]*entity.InboxEntry, error)
	// DeleteConversation removes the conversation, all its messages and the
	// participants' inbox entries.
	DeleteConversation(ctx context.Context, id string) error
}
