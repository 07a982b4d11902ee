package repository

import (
	"context"

	"woonruil/internal/domain/entity"
)

type UserRepository interface {
	// Upsert creates the mirror record or merges non-empty fields into it.
	Upsert(ctx context.Context, user *entity.User) error
	GetByID(ctx context.Context, id string) (*entity.User, error)
	GetByIDs(ctx context.Context, ids []string) (map[string]*entity.User, error)
}
