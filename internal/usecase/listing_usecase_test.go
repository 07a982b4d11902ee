package usecase

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"woonruil/internal/domain/entity"
	"woonruil/internal/domain/service"
	"woonruil/pkg/errors"
	"woonruil/pkg/utils"
)

type recordingBackfiller struct {
	mu      sync.Mutex
	batches [][]*entity.Listing
}

func (b *recordingBackfiller) TriggerBackfill(listings []*entity.Listing) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.batches = append(b.batches, listings)
}

func validListingInput() ListingInput {
	return ListingInput{
		Title:        "Bright apartment in De Pijp",
		PropertyType: "apartment",
		Bedrooms:     2,
		Bathrooms:    1,
		FloorNumber:  3,
		TotalArea:    65,
		RentPrice:    1450,
		Description:  strings.Repeat("Lovely place close to the market and the canals. ", 2),
		Address:      "Albert Cuypstraat 10",
		City:         "Amsterdam",
		Country:      "Netherlands",
		PostalCode:   "1072 CT",
		Amenities:    []string{"Wi-Fi", "Washer", "Wi-Fi"},
		Images:       []string{"https://files.test/a.jpg", "https://files.test/b.jpg"},
	}
}

func newListingFixture(listings ...*entity.Listing) (*ListingUseCase, *memListingRepo, *memStorage, *recordingBackfiller) {
	repo := newMemListingRepo(listings...)
	storage := newMemStorage()
	backfiller := &recordingBackfiller{}
	uc := NewListingUseCase(repo, storage, backfiller)
	uc.now = func() time.Time { return time.UnixMilli(1700000000000) }
	return uc, repo, storage, backfiller
}

func TestCreateListing(t *testing.T) {
	uc, repo, _, backfiller := newListingFixture()

	l, err := uc.CreateListing(context.Background(), "owner-1", validListingInput())
	require.NoError(t, err)
	assert.NotEmpty(t, l.ID)
	assert.Equal(t, "owner-1", l.OwnerID)
	assert.Equal(t, entity.PropertyTypeApartment, l.PropertyType)
	assert.Equal(t, []string{"Wi-Fi", "Washer"}, l.Amenities)
	assert.False(t, l.HasCoordinates())

	stored, err := repo.GetByID(context.Background(), l.ID)
	require.NoError(t, err)
	assert.Equal(t, l.Title, stored.Title)
	assert.Len(t, backfiller.batches, 1)
}

func TestCreateListing_InvalidPropertyType(t *testing.T) {
	uc, _, _, _ := newListingFixture()
	in := validListingInput()
	in.PropertyType = "castle"

	_, err := uc.CreateListing(context.Background(), "owner-1", in)
	assert.True(t, errors.Is(err, errors.CodeBadRequest))
}

func TestUpdateAndDeleteListing_OwnerOnly(t *testing.T) {
	uc, _, storage, _ := newListingFixture()
	ctx := context.Background()

	l, err := uc.CreateListing(ctx, "owner-1", validListingInput())
	require.NoError(t, err)

	in := validListingInput()
	in.RentPrice = 1600
	in.Images = []string{"https://files.test/a.jpg"}

	_, err = uc.UpdateListing(ctx, "intruder", l.ID, in)
	assert.True(t, errors.Is(err, errors.CodeForbidden))

	updated, err := uc.UpdateListing(ctx, "owner-1", l.ID, in)
	require.NoError(t, err)
	assert.Equal(t, 1600.0, updated.RentPrice)
	assert.Equal(t, []string{"https://files.test/b.jpg"}, storage.deleted)

	err = uc.DeleteListing(ctx, "intruder", l.ID)
	assert.True(t, errors.Is(err, errors.CodeForbidden))

	require.NoError(t, uc.DeleteListing(ctx, "owner-1", l.ID))
	_, err = uc.GetListing(ctx, l.ID)
	assert.True(t, errors.IsNotFound(err))
	assert.Contains(t, storage.deleted, "https://files.test/a.jpg")
}

func TestUpdateListing_AddressChangeClearsCoordinates(t *testing.T) {
	uc, repo, _, _ := newListingFixture()
	ctx := context.Background()

	l, err := uc.CreateListing(ctx, "owner-1", validListingInput())
	require.NoError(t, err)
	require.NoError(t, repo.UpdateCoordinates(ctx, l.ID, 52.35, 4.89))

	in := validListingInput()
	in.Address = "Ferdinand Bolstraat 5"
	updated, err := uc.UpdateListing(ctx, "owner-1", l.ID, in)
	require.NoError(t, err)
	assert.False(t, updated.HasCoordinates())
}

// geocodedAfterRead lands a backfill write right after each read, as a
// background geocode finishing mid-edit would.
type geocodedAfterRead struct {
	*memListingRepo
}

func (r geocodedAfterRead) GetByID(ctx context.Context, id string) (*entity.Listing, error) {
	l, err := r.memListingRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return l, r.memListingRepo.UpdateCoordinates(ctx, id, 52.35, 4.89)
}

func TestUpdateListing_KeepsCoordinatesWrittenDuringEdit(t *testing.T) {
	repo := newMemListingRepo()
	backfiller := &recordingBackfiller{}
	uc := NewListingUseCase(geocodedAfterRead{repo}, newMemStorage(), backfiller)
	ctx := context.Background()

	l, err := uc.CreateListing(ctx, "owner-1", validListingInput())
	require.NoError(t, err)
	require.False(t, l.HasCoordinates())

	in := validListingInput()
	in.Title = "Bright apartment near Sarphatipark"
	updated, err := uc.UpdateListing(ctx, "owner-1", l.ID, in)
	require.NoError(t, err)
	assert.True(t, updated.HasCoordinates())

	stored, err := repo.GetByID(ctx, l.ID)
	require.NoError(t, err)
	assert.Equal(t, "Bright apartment near Sarphatipark", stored.Title)
	require.True(t, stored.HasCoordinates())
	assert.InDelta(t, 52.35, *stored.Latitude, 1e-9)
	assert.Len(t, backfiller.batches, 1)
}

func TestBrowseListings_FilterAndPaginate(t *testing.T) {
	var seed []*entity.Listing
	for i := 0; i < 25; i++ {
		city := "Amsterdam"
		if i%2 == 1 {
			city = "Utrecht"
		}
		seed = append(seed, &entity.Listing{ID: fmt.Sprintf("L%02d", i), City: city, Country: "Netherlands", RentPrice: float64(1000 + i*10)})
	}
	uc, _, _, _ := newListingFixture(seed...)

	filter, err := service.ParseListingFilter("", "", "", "amsterdam")
	require.NoError(t, err)

	page, total, err := uc.BrowseListings(context.Background(), filter, utils.PaginationParams{Page: 1, PageSize: 10, Offset: 0})
	require.NoError(t, err)
	assert.Equal(t, 13, total)
	require.Len(t, page, 10)
	assert.Equal(t, "L24", page[0].ID)

	page, _, err = uc.BrowseListings(context.Background(), filter, utils.PaginationParams{Page: 2, PageSize: 10, Offset: 10})
	require.NoError(t, err)
	assert.Len(t, page, 3)

	page, _, err = uc.BrowseListings(context.Background(), filter, utils.PaginationParams{Page: 5, PageSize: 10, Offset: 40})
	require.NoError(t, err)
	assert.Empty(t, page)
}

func TestFeaturedListings_ThreeOfTheTenNewest(t *testing.T) {
	var seed []*entity.Listing
	for i := 0; i < 15; i++ {
		seed = append(seed, &entity.Listing{ID: fmt.Sprintf("L%02d", i)})
	}
	uc, _, _, _ := newListingFixture(seed...)

	// reverse instead of shuffling so the pick is predictable
	uc.shuffle = func(n int, swap func(i, j int)) {
		for i := 0; i < n/2; i++ {
			swap(i, n-1-i)
		}
	}

	featured, err := uc.FeaturedListings(context.Background())
	require.NoError(t, err)
	require.Len(t, featured, 3)
	// newest ten are L14..L05; reversed that starts at L05
	assert.Equal(t, []string{"L05", "L06", "L07"}, []string{featured[0].ID, featured[1].ID, featured[2].ID})
}

func TestMapListings_ReturnsLocatedAndQueuesTheRest(t *testing.T) {
	located := &entity.Listing{ID: "A"}
	located.SetCoordinates(52.1, 5.1)
	uc, _, _, backfiller := newListingFixture(located, &entity.Listing{ID: "B"})

	out, err := uc.MapListings(context.Background())
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "A", out[0].ID)

	require.Len(t, backfiller.batches, 1)
	assert.Equal(t, "B", backfiller.batches[0][0].ID)
}

func imageUpload(name, body string) ImageUpload {
	return ImageUpload{
		Filename:    name,
		ContentType: "image/jpeg",
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(strings.NewReader(body)), nil
		},
	}
}

func TestUploadImages_KeepsInputOrder(t *testing.T) {
	uc, _, storage, _ := newListingFixture()

	var uploads []ImageUpload
	for i := 0; i < 6; i++ {
		uploads = append(uploads, imageUpload(fmt.Sprintf("room %d.jpg", i), fmt.Sprintf("data-%d", i)))
	}

	urls, err := uc.UploadImages(context.Background(), "u1", uploads)
	require.NoError(t, err)
	require.Len(t, urls, 6)
	for i, u := range urls {
		assert.Equal(t, fmt.Sprintf("https://files.test/listings/u1/1700000000000_%d_room_%d.jpg", i, i), u)
	}
	assert.Equal(t, "data-3", storage.objects["listings/u1/1700000000000_3_room_3.jpg"])
}

func TestUploadImages_Rejections(t *testing.T) {
	uc, _, storage, _ := newListingFixture()
	ctx := context.Background()

	_, err := uc.UploadImages(ctx, "u1", nil)
	assert.True(t, errors.Is(err, errors.CodeBadRequest))

	tooMany := make([]ImageUpload, 11)
	for i := range tooMany {
		tooMany[i] = imageUpload("x.jpg", "x")
	}
	_, err = uc.UploadImages(ctx, "u1", tooMany)
	assert.True(t, errors.Is(err, errors.CodeBadRequest))

	pdf := imageUpload("doc.pdf", "x")
	pdf.ContentType = "application/pdf"
	_, err = uc.UploadImages(ctx, "u1", []ImageUpload{pdf})
	assert.True(t, errors.Is(err, errors.CodeBadRequest))

	storage.failOn = "boom"
	_, err = uc.UploadImages(ctx, "u1", []ImageUpload{imageUpload("a.jpg", "ok"), imageUpload("b.jpg", "boom")})
	assert.True(t, errors.Is(err, errors.CodeInternal))
}
