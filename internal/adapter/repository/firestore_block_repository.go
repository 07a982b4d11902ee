package repository

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"woonruil/internal/domain/entity"
	"woonruil/internal/domain/repository"
	"woonruil/pkg/errors"
)

type firestoreBlockRepository struct {
	client *firestore.Client
}

func NewFirestoreBlockRepository(client *firestore.Client) repository.BlockRepository {
	return &firestoreBlockRepository{
		client: client,
	}
}

func (r *firestoreBlockRepository) Block(ctx context.Context, block *entity.Block) error {
	if block.CreatedAt.IsZero() {
		block.CreatedAt = time.Now()
	}

	_, err := r.client.Doc(repository.BlockPath(block.BlockerID, block.BlockedID)).Set(ctx, block)
	if err != nil {
		return errors.Internal("Failed to block user", err)
	}
	return nil
}

func (r *firestoreBlockRepository) Unblock(ctx context.Context, blockerID, blockedID string) error {
	_, err := r.client.Doc(repository.BlockPath(blockerID, blockedID)).Delete(ctx)
	if err != nil {
		return errors.Internal("Failed to unblock user", err)
	}
	return nil
}

func (r *firestoreBlockRepository) IsBlocked(ctx context.Context, blockerID, blockedID string) (bool, error) {
	doc, err := r.client.Doc(repository.BlockPath(blockerID, blockedID)).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return false, nil
		}
		return false, errors.Internal("Failed to check block status", err)
	}
	return doc.Exists(), nil
}

func (r *firestoreBlockRepository) ListBlocked(ctx context.Context, blockerID string) ([]*entity.Block, error) {
	docs, err := r.client.Collection(repository.BlockedPath(blockerID)).OrderBy("createdAt", firestore.Desc).Documents(ctx).GetAll()
	if err != nil {
		return nil, errors.Internal("Failed to list blocked users", err)
	}

	blocks := make([]*entity.Block, 0, len(docs))
	for _, doc := range docs {
		var block entity.Block
		if err := doc.DataTo(&block); err != nil {
			continue
		}
		block.BlockedID = doc.Ref.ID
		block.BlockerID = blockerID
		blocks = append(blocks, &block)
	}
	return blocks, nil
}
