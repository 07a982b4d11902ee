package repository

import (
	"context"

	"woonruil/internal/domain/entity"
)

type BlockRepository interface {
	Block(ctx context.Context, block *entity.Block) error
	Unblock(ctx context.Context, blockerID, blockedID string) error
	IsBlocked(ctx context.Context, blockerID, blockedID string) (bool, error)
	ListBlocked(ctx context.Context, blockerID string) ([]*entity.Block, error)
}
