package repository

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"woonruil/internal/domain/entity"
	"woonruil/internal/domain/repository"
	"woonruil/pkg/errors"
	"woonruil/pkg/logger"
)

type firestoreListingRepository struct {
	client *firestore.Client
}

func NewFirestoreListingRepository(client *firestore.Client) repository.ListingRepository {
	return &firestoreListingRepository{
		client: client,
	}
}

func (r *firestoreListingRepository) collection() *firestore.CollectionRef {
	return r.client.Collection(repository.ListingsCollection)
}

func (r *firestoreListingRepository) Create(ctx context.Context, listing *entity.Listing) error {
	if listing.ID == "" {
		listing.ID = r.collection().NewDoc().ID
	}

	now := time.Now()
	if listing.CreatedAt.IsZero() {
		listing.CreatedAt = now
	}
	listing.UpdatedAt = now

	if _, err := r.client.Doc(repository.ListingPath(listing.ID)).Create(ctx, listing); err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return errors.Conflict("Listing already exists", err)
		}
		return errors.Internal("Failed to create listing", err)
	}

	return nil
}

func (r *firestoreListingRepository) GetByID(ctx context.Context, id string) (*entity.Listing, error) {
	doc, err := r.client.Doc(repository.ListingPath(id)).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, errors.NotFound("Listing", err)
		}
		return nil, errors.Internal("Failed to get listing", err)
	}

	return decodeListing(doc)
}

func (r *firestoreListingRepository) List(ctx context.Context) ([]*entity.Listing, error) {
	return r.collect(ctx, r.collection().OrderBy("createdAt", firestore.Desc))
}

func (r *firestoreListingRepository) ListRecent(ctx context.Context, limit int) ([]*entity.Listing, error) {
	return r.collect(ctx, r.collection().OrderBy("createdAt", firestore.Desc).Limit(limit))
}

func (r *firestoreListingRepository) ListByOwner(ctx context.Context, ownerID string) ([]*entity.Listing, error) {
	query := r.collection().Where("ownerId", "==", ownerID).OrderBy("createdAt", firestore.Desc)
	return r.collect(ctx, query)
}

// ListMissingCoordinates scans for listings without a latitude. Firestore
// cannot query for an absent field, so the scan happens here.
func (r *firestoreListingRepository) ListMissingCoordinates(ctx context.Context, limit int) ([]*entity.Listing, error) {
	all, err := r.collect(ctx, r.collection().OrderBy("createdAt", firestore.Desc))
	if err != nil {
		return nil, err
	}

	var missing []*entity.Listing
	for _, l := range all {
		if l.HasCoordinates() {
			continue
		}
		missing = append(missing, l)
		if limit > 0 && len(missing) == limit {
			break
		}
	}
	return missing, nil
}

// Update rewrites the listing inside a transaction. Coordinates stored for
// an unchanged address are kept, so a concurrent backfill is not lost; a new
// address drops them.
func (r *firestoreListingRepository) Update(ctx context.Context, listing *entity.Listing) error {
	ref := r.client.Doc(repository.ListingPath(listing.ID))

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return errors.NotFound("Listing", err)
			}
			return err
		}

		stored, err := decodeListing(snap)
		if err != nil {
			return err
		}

		if stored.SameAddress(listing) {
			listing.Latitude, listing.Longitude = stored.Latitude, stored.Longitude
		} else {
			listing.Latitude, listing.Longitude = nil, nil
		}
		listing.UpdatedAt = time.Now()

		return tx.Set(ref, listing)
	})
	if err != nil {
		if errors.IsNotFound(err) {
			return err
		}
		return errors.Internal("Failed to update listing", err)
	}

	return nil
}

func (r *firestoreListingRepository) UpdateCoordinates(ctx context.Context, id string, lat, lng float64) error {
	_, err := r.client.Doc(repository.ListingPath(id)).Update(ctx, []firestore.Update{
		{Path: "latitude", Value: lat},
		{Path: "longitude", Value: lng},
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return errors.NotFound("Listing", err)
		}
		return errors.Internal("Failed to update listing coordinates", err)
	}

	return nil
}

func (r *firestoreListingRepository) Delete(ctx context.Context, id string) error {
	_, err := r.client.Doc(repository.ListingPath(id)).Delete(ctx)
	if err != nil {
		return errors.Internal("Failed to delete listing", err)
	}

	return nil
}

func (r *firestoreListingRepository) collect(ctx context.Context, query firestore.Query) ([]*entity.Listing, error) {
	iter := query.Documents(ctx)
	defer iter.Stop()

	var listings []*entity.Listing
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, errors.Internal("Failed to iterate listings", err)
		}

		listing, err := decodeListing(doc)
		if err != nil {
			logger.Warn("Skipping malformed listing %s: %v", doc.Ref.ID, err)
			continue
		}
		listings = append(listings, listing)
	}

	return listings, nil
}

func decodeListing(doc *firestore.DocumentSnapshot) (*entity.Listing, error) {
	var listing entity.Listing
	if err := doc.DataTo(&listing); err != nil {
		return nil, errors.Internal("Failed to parse listing data", err)
	}
	listing.ID = doc.Ref.ID
	return &listing, nil
}
