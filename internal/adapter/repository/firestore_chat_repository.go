package repository

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"woonruil/internal/domain/entity"
	"woonruil/internal/domain/repository"
	"woonruil/pkg/errors"
	"woonruil/pkg/logger"
)

type firestoreChatRepository struct {
	client *firestore.Client
}

func NewFirestoreChatRepository(client *firestore.Client) repository.ChatRepository {
	return &firestoreChatRepository{
		client: client,
	}
}

func (r *firestoreChatRepository) conversationRef(id string) *firestore.DocumentRef {
	return r.client.Doc(repository.ConversationPath(id))
}

func (r *firestoreChatRepository) messageRef(conversationID, messageID string) *firestore.DocumentRef {
	return r.client.Doc(repository.MessagePath(conversationID, messageID))
}

func (r *firestoreChatRepository) inboxRef(userID, conversationID string) *firestore.DocumentRef {
	return r.client.Doc(repository.InboxEntryPath(userID, conversationID))
}

// CreateConversation runs the existence check and every write in one
// transaction, so two users initiating at the same moment end up with a
// single conversation and a single opening message.
func (r *firestoreChatRepository) CreateConversation(ctx context.Context, conv *entity.Conversation, first *entity.Message) (*entity.Conversation, bool, error) {
	if first.ID == "" {
		first.ID = uuid.New().String()
	}
	first.ConversationID = conv.ID

	var (
		stored  *entity.Conversation
		created bool
	)

	convRef := r.conversationRef(conv.ID)
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		stored, created = nil, false

		snap, err := tx.Get(convRef)
		if err == nil && snap.Exists() {
			existing, err := decodeConversation(snap)
			if err != nil {
				return err
			}
			stored = existing
			return nil
		}
		if err != nil && status.Code(err) != codes.NotFound {
			return err
		}

		now := time.Now()
		fresh := *conv
		fresh.CreatedAt = now
		fresh.UpdatedAt = now
		fresh.LastMessage = first.Text
		fresh.LastMessageAt = first.Timestamp

		if err := tx.Create(convRef, &fresh); err != nil {
			return err
		}
		if err := tx.Create(r.messageRef(conv.ID, first.ID), first); err != nil {
			return err
		}
		for userID, entry := range entity.InboxEntriesFor(&fresh, first) {
			if err := tx.Set(r.inboxRef(userID, conv.ID), entry); err != nil {
				return err
			}
		}

		stored, created = &fresh, true
		return nil
	})
	if err != nil {
		if errors.Is(err, errors.CodeInternal) {
			return nil, false, err
		}
		logger.Error("Firestore transaction creating conversation %s failed: %v", conv.ID, err)
		return nil, false, errors.Internal("Failed to create conversation", err)
	}

	return stored, created, nil
}

func (r *firestoreChatRepository) GetConversation(ctx context.Context, id string) (*entity.Conversation, error) {
	doc, err := r.conversationRef(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, errors.NotFound("Conversation", err)
		}
		return nil, errors.Internal("Failed to get conversation", err)
	}

	return decodeConversation(doc)
}

func (r *firestoreChatRepository) AppendMessage(ctx context.Context, msg *entity.Message) (*entity.Conversation, error) {
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}

	var updated *entity.Conversation

	convRef := r.conversationRef(msg.ConversationID)
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(convRef)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return errors.NotFound("Conversation", err)
			}
			return err
		}

		conv, err := decodeConversation(snap)
		if err != nil {
			return err
		}

		conv.LastMessage = msg.Text
		conv.LastMessageAt = msg.Timestamp
		conv.UpdatedAt = time.Now()

		if err := tx.Create(r.messageRef(conv.ID, msg.ID), msg); err != nil {
			return err
		}
		if err := tx.Set(convRef, conv); err != nil {
			return err
		}
		for userID, entry := range entity.InboxEntriesFor(conv, msg) {
			if err := tx.Set(r.inboxRef(userID, conv.ID), entry); err != nil {
				return err
			}
		}

		updated = conv
		return nil
	})
	if err != nil {
		if errors.IsNotFound(err) || errors.Is(err, errors.CodeInternal) {
			return nil, err
		}
		logger.Error("Firestore transaction appending to conversation %s failed: %v", msg.ConversationID, err)
		return nil, errors.Internal("Failed to send message", err)
	}

	return updated, nil
}

func (r *firestoreChatRepository) ListMessages(ctx context.Context, conversationID string) ([]*entity.Message, error) {
	iter := r.client.Collection(repository.MessagesPath(conversationID)).OrderBy("timestamp", firestore.Asc).Documents(ctx)
	defer iter.Stop()

	var messages []*entity.Message
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			logger.Error("Firestore error while iterating messages for chat %s: %v", conversationID, err)
			return nil, errors.Internal("Failed to iterate messages", err)
		}

		msg, err := decodeMessage(doc)
		if err != nil {
			logger.Warn("Skipping malformed message %s in chat %s: %v", doc.Ref.ID, conversationID, err)
			continue
		}
		messages = append(messages, msg)
	}

	return messages, nil
}

// WatchMessages listens on the messages subcollection. The first snapshot
// reports every existing message as added.
func (r *firestoreChatRepository) WatchMessages(ctx context.Context, conversationID string, fn func(*entity.Message)) error {
	it := r.client.Collection(repository.MessagesPath(conversationID)).OrderBy("timestamp", firestore.Asc).Snapshots(ctx)
	defer it.Stop()

	for {
		snap, err := it.Next()
		if err != nil {
			if ctx.Err() != nil || err == iterator.Done || status.Code(err) == codes.Canceled {
				return nil
			}
			return errors.Internal("Message listener failed", err)
		}

		for _, change := range snap.Changes {
			if change.Kind != firestore.DocumentAdded {
				continue
			}
			msg, err := decodeMessage(change.Doc)
			if err != nil {
				logger.Warn("Skipping malformed message %s in chat %s: %v", change.Doc.Ref.ID, conversationID, err)
				continue
			}
			fn(msg)
		}
	}
}

func (r *firestoreChatRepository) ListInbox(ctx context.Context, userID string) ([]*entity.InboxEntry, error) {
	docs, err := r.client.Collection(repository.InboxPath(userID)).OrderBy("timestamp", firestore.Desc).Documents(ctx).GetAll()
	if err != nil {
		logger.Error("Firestore error while fetching inbox for user %s: %v", userID, err)
		return nil, errors.Internal("Failed to fetch chats", err)
	}

	entries := make([]*entity.InboxEntry, 0, len(docs))
	for _, doc := range docs {
		var entry entity.InboxEntry
		if err := doc.DataTo(&entry); err != nil {
			logger.Warn("Skipping malformed inbox entry %s for user %s: %v", doc.Ref.ID, userID, err)
			continue
		}
		entry.ConversationID = doc.Ref.ID
		entries = append(entries, &entry)
	}

	return entries, nil
}

// DeleteConversation cascades through the messages with a BulkWriter since
// a long thread can exceed the per-transaction write limit.
func (r *firestoreChatRepository) DeleteConversation(ctx context.Context, id string) error {
	conv, err := r.GetConversation(ctx, id)
	if err != nil {
		return err
	}

	bw := r.client.BulkWriter(ctx)
	var jobs []*firestore.BulkWriterJob

	refs := r.client.Collection(repository.MessagesPath(id)).DocumentRefs(ctx)
	for {
		ref, err := refs.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			bw.End()
			return errors.Internal("Failed to list conversation messages", err)
		}
		job, err := bw.Delete(ref)
		if err != nil {
			bw.End()
			return errors.Internal("Failed to queue message deletion", err)
		}
		jobs = append(jobs, job)
	}

	for _, userID := range conv.Participants {
		job, err := bw.Delete(r.inboxRef(userID, id))
		if err != nil {
			bw.End()
			return errors.Internal("Failed to queue inbox deletion", err)
		}
		jobs = append(jobs, job)
	}

	job, err := bw.Delete(r.conversationRef(id))
	if err != nil {
		bw.End()
		return errors.Internal("Failed to queue conversation deletion", err)
	}
	jobs = append(jobs, job)

	bw.End()

	for _, job := range jobs {
		if _, err := job.Results(); err != nil {
			return errors.Internal("Failed to delete conversation", err)
		}
	}

	return nil
}

func decodeConversation(doc *firestore.DocumentSnapshot) (*entity.Conversation, error) {
	var conv entity.Conversation
	if err := doc.DataTo(&conv); err != nil {
		return nil, errors.Internal("Failed to parse conversation data", err)
	}
	conv.ID = doc.Ref.ID
	return &conv, nil
}

func decodeMessage(doc *firestore.DocumentSnapshot) (*entity.Message, error) {
	var msg entity.Message
	if err := doc.DataTo(&msg); err != nil {
		return nil, err
	}
	msg.ID = doc.Ref.ID
	return &msg, nil
}
