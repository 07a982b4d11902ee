package usecase

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"woonruil/internal/domain/entity"
	"woonruil/internal/domain/repository"
	"woonruil/internal/domain/service"
	"woonruil/internal/infrastructure/metrics"
	"woonruil/pkg/errors"
	"woonruil/pkg/logger"
	"woonruil/pkg/utils"
)

const (
	featuredPoolSize = 10
	featuredCount    = 3
	uploadWorkers    = 4
)

// Backfiller resolves missing coordinates in the background.
type Backfiller interface {
	TriggerBackfill(listings []*entity.Listing)
}

type ListingUseCase struct {
	listingRepo repository.ListingRepository
	fileStorage service.FileStorage
	backfiller  Backfiller
	now         func() time.Time
	shuffle     func(n int, swap func(i, j int))
}

func NewListingUseCase(
	listingRepo repository.ListingRepository,
	fileStorage service.FileStorage,
	backfiller Backfiller,
) *ListingUseCase {
	return &ListingUseCase{
		listingRepo: listingRepo,
		fileStorage: fileStorage,
		backfiller:  backfiller,
		now:         time.Now,
		shuffle:     rand.Shuffle,
	}
}

// ListingInput mirrors the listing form.
type ListingInput struct {
	Title           string   `json:"title" validate:"required,min=10"`
	PropertyType    string   `json:"property_type" validate:"required,oneof=apartment house studio other"`
	Bedrooms        int      `json:"bedrooms" validate:"min=1,max=20"`
	Bathrooms       int      `json:"bathrooms" validate:"min=1,max=10"`
	FloorNumber     int      `json:"floor_number" validate:"min=0,max=100"`
	TotalArea       float64  `json:"total_area" validate:"min=1,max=10000"`
	RentPrice       float64  `json:"rent_price" validate:"gt=0"`
	IsRentInclusive bool     `json:"is_rent_inclusive"`
	Description     string   `json:"description" validate:"required,min=50"`
	Address         string   `json:"address" validate:"required,min=5"`
	City            string   `json:"city" validate:"required,min=2"`
	Country         string   `json:"country" validate:"required,min=2"`
	PostalCode      string   `json:"postal_code" validate:"required,min=3"`
	Amenities       []string `json:"amenities" validate:"required,min=1,dive,required"`
	Images          []string `json:"images" validate:"required,min=1,max=10,dive,required"`
	HouseRules      string   `json:"house_rules"`
}

func (in ListingInput) apply(l *entity.Listing) error {
	pt := entity.PropertyType(strings.ToLower(strings.TrimSpace(in.PropertyType)))
	if !pt.Valid() {
		return errors.BadRequest("Invalid property type", nil)
	}
	amenities := entity.NormalizeAmenities(in.Amenities)
	if len(amenities) == 0 {
		return errors.BadRequest("At least one amenity is required", nil)
	}
	if len(in.Images) == 0 || len(in.Images) > entity.MaxListingImages {
		return errors.BadRequest(fmt.Sprintf("A listing needs between 1 and %d images", entity.MaxListingImages), nil)
	}

	addressChanged := l.Address != in.Address || l.City != in.City || l.Country != in.Country || l.PostalCode != in.PostalCode

	l.Title = strings.TrimSpace(in.Title)
	l.PropertyType = pt
	l.Bedrooms = in.Bedrooms
	l.Bathrooms = in.Bathrooms
	l.FloorNumber = in.FloorNumber
	l.TotalArea = in.TotalArea
	l.RentPrice = in.RentPrice
	l.IsRentInclusive = in.IsRentInclusive
	l.Description = strings.TrimSpace(in.Description)
	l.Address = in.Address
	l.City = in.City
	l.Country = in.Country
	l.PostalCode = in.PostalCode
	l.Amenities = amenities
	l.Images = in.Images
	l.HouseRules = in.HouseRules

	// a moved listing is geocoded again
	if addressChanged {
		l.Latitude = nil
		l.Longitude = nil
	}
	return nil
}

func (uc *ListingUseCase) CreateListing(ctx context.Context, ownerID string, input ListingInput) (*entity.Listing, error) {
	listing := &entity.Listing{OwnerID: ownerID}
	if err := input.apply(listing); err != nil {
		return nil, err
	}

	now := uc.now()
	listing.CreatedAt = now
	listing.UpdatedAt = now

	if err := uc.listingRepo.Create(ctx, listing); err != nil {
		return nil, err
	}

	metrics.ListingsCreated.Inc()
	logger.Info("Listing %s created by %s", listing.ID, ownerID)

	if uc.backfiller != nil {
		uc.backfiller.TriggerBackfill([]*entity.Listing{listing})
	}

	return listing, nil
}

func (uc *ListingUseCase) GetListing(ctx context.Context, id string) (*entity.Listing, error) {
	return uc.listingRepo.GetByID(ctx, id)
}

func (uc *ListingUseCase) UpdateListing(ctx context.Context, userID, id string, input ListingInput) (*entity.Listing, error) {
	listing, err := uc.ownedListing(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	previousImages := listing.Images
	if err := input.apply(listing); err != nil {
		return nil, err
	}

	if err := uc.listingRepo.Update(ctx, listing); err != nil {
		return nil, err
	}

	uc.deleteImages(ctx, removedImages(previousImages, listing.Images))

	if !listing.HasCoordinates() && uc.backfiller != nil {
		uc.backfiller.TriggerBackfill([]*entity.Listing{listing})
	}

	return listing, nil
}

// DeleteListing removes the listing. Its images are removed afterwards on a
// best-effort basis.
func (uc *ListingUseCase) DeleteListing(ctx context.Context, userID, id string) error {
	listing, err := uc.ownedListing(ctx, userID, id)
	if err != nil {
		return err
	}

	if err := uc.listingRepo.Delete(ctx, id); err != nil {
		return err
	}

	uc.deleteImages(ctx, listing.Images)
	logger.Info("Listing %s deleted by %s", id, userID)
	return nil
}

// BrowseListings filters every listing, newest first, and returns the
// requested page together with the number of matches.
func (uc *ListingUseCase) BrowseListings(ctx context.Context, filter service.ListingFilter, page utils.PaginationParams) ([]*entity.Listing, int, error) {
	all, err := uc.listingRepo.List(ctx)
	if err != nil {
		return nil, 0, err
	}

	matched := service.FilterListings(all, filter)
	start, end := page.Window(len(matched))
	return matched[start:end], len(matched), nil
}

// FeaturedListings picks a random few of the most recent listings.
func (uc *ListingUseCase) FeaturedListings(ctx context.Context) ([]*entity.Listing, error) {
	recent, err := uc.listingRepo.ListRecent(ctx, featuredPoolSize)
	if err != nil {
		return nil, err
	}

	pool := make([]*entity.Listing, len(recent))
	copy(pool, recent)
	uc.shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })

	if len(pool) > featuredCount {
		pool = pool[:featuredCount]
	}
	return pool, nil
}

func (uc *ListingUseCase) MyListings(ctx context.Context, userID string) ([]*entity.Listing, error) {
	return uc.listingRepo.ListByOwner(ctx, userID)
}

// MapListings returns the listings that can be placed on a map and queues
// the rest for geocoding without waiting for it.
func (uc *ListingUseCase) MapListings(ctx context.Context) ([]*entity.Listing, error) {
	all, err := uc.listingRepo.List(ctx)
	if err != nil {
		return nil, err
	}

	located := make([]*entity.Listing, 0, len(all))
	var missing []*entity.Listing
	for _, l := range all {
		if l.HasCoordinates() {
			located = append(located, l)
		} else {
			missing = append(missing, l)
		}
	}

	if len(missing) > 0 && uc.backfiller != nil {
		uc.backfiller.TriggerBackfill(missing)
	}

	return located, nil
}

type ImageUpload struct {
	Filename    string
	ContentType string
	Open        func() (io.ReadCloser, error)
}

// UploadImages stores the images concurrently and returns their URLs in
// input order.
func (uc *ListingUseCase) UploadImages(ctx context.Context, userID string, images []ImageUpload) ([]string, error) {
	if len(images) == 0 {
		return nil, errors.BadRequest("No images provided", nil)
	}
	if len(images) > entity.MaxListingImages {
		return nil, errors.BadRequest(fmt.Sprintf("At most %d images can be uploaded", entity.MaxListingImages), nil)
	}
	for _, img := range images {
		if !strings.HasPrefix(img.ContentType, "image/") {
			return nil, errors.BadRequest(fmt.Sprintf("%s is not an image", img.Filename), nil)
		}
	}

	millis := uc.now().UnixMilli()
	urls := make([]string, len(images))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(uploadWorkers)
	for i, img := range images {
		g.Go(func() error {
			f, err := img.Open()
			if err != nil {
				return errors.BadRequest("Failed to read uploaded file", err)
			}
			defer f.Close()

			object := repository.ListingImageObject(userID, millis, i, img.Filename)
			url, err := uc.fileStorage.Upload(gctx, object, f, img.ContentType)
			if err != nil {
				return errors.Internal("Failed to upload image", err)
			}
			urls[i] = url
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		// keep the bucket clean of a half finished batch
		uploaded := make([]string, 0, len(urls))
		for _, u := range urls {
			if u != "" {
				uploaded = append(uploaded, u)
			}
		}
		uc.deleteImages(context.WithoutCancel(ctx), uploaded)
		return nil, err
	}

	return urls, nil
}

func (uc *ListingUseCase) ownedListing(ctx context.Context, userID, id string) (*entity.Listing, error) {
	listing, err := uc.listingRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if listing.OwnerID != userID {
		return nil, errors.Forbidden("You can only modify your own listings", nil)
	}
	return listing, nil
}

func (uc *ListingUseCase) deleteImages(ctx context.Context, urls []string) {
	if uc.fileStorage == nil {
		return
	}
	for _, u := range urls {
		if err := uc.fileStorage.DeleteFile(ctx, u); err != nil {
			logger.Warn("Failed to delete image %s: %v", u, err)
		}
	}
}

func removedImages(before, after []string) []string {
	kept := make(map[string]struct{}, len(after))
	for _, u := range after {
		kept[u] = struct{}{}
	}
	var removed []string
	for _, u := range before {
		if _, ok := kept[u]; !ok {
			removed = append(removed, u)
		}
	}
	return removed
}
