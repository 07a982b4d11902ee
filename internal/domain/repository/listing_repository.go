package repository

import (
	"context"

	"woonruil/internal/domain/entity"
)

type ListingRepository interface {
	Create(ctx context.Context, listing *entity.Listing) error
	GetByID(ctx context.Context, id string) (*entity.Listing, error)
	// List returns every listing, newest first. Filtering happens in memory.
	List(ctx context.Context) ([]*entity.Listing, error)
	ListRecent(ctx context.Context, limit int) ([]*entity.Listing, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*entity.Listing, error)
	ListMissingCoordinates(ctx context.Context, limit int) ([]*entity.Listing, error)
	Update(ctx context.Context, listing *entity.Listing) error
	UpdateCoordinates(ctx context.Context, id string, lat, lng float64) error
	Delete(ctx context.Context, id string) error
}
