package handler

import (
	"context"

	"github.com/labstack/echo/v4"

	"woonruil/internal/domain/entity"
	"woonruil/internal/domain/service"
	"woonruil/internal/usecase"
	"woonruil/pkg/errors"
	"woonruil/pkg/response"
	"woonruil/pkg/utils"
)

type ListingService interface {
	CreateListing(ctx context.Context, ownerID string, input usecase.ListingInput) (*entity.Listing, error)
	GetListing(ctx context.Context, id string) (*entity.Listing, error)
	UpdateListing(ctx context.Context, userID, id string, input usecase.ListingInput) (*entity.Listing, error)
	DeleteListing(ctx context.Context, userID, id string) error
	BrowseListings(ctx context.Context, filter service.ListingFilter, page utils.PaginationParams) ([]*entity.Listing, int, error)
	FeaturedListings(ctx context.Context) ([]*entity.Listing, error)
	MyListings(ctx context.Context, userID string) ([]*entity.Listing, error)
	MapListings(ctx context.Context) ([]*entity.Listing, error)
	UploadImages(ctx context.Context, userID string, images []usecase.ImageUpload) ([]string, error)
}

type ListingHandler struct {
	listings ListingService
}

func NewListingHandler(listings ListingService) *ListingHandler {
	return &ListingHandler{
		listings: listings,
	}
}

func (h *ListingHandler) CreateListing(c echo.Context) error {
	uid, err := currentUser(c)
	if err != nil {
		return response.Error(c, err)
	}

	var req usecase.ListingInput
	if err := bindAndValidate(c, &req); err != nil {
		return response.Error(c, err)
	}

	listing, err := h.listings.CreateListing(c.Request().Context(), uid, req)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Created(c, listing)
}

func (h *ListingHandler) GetListing(c echo.Context) error {
	listing, err := h.listings.GetListing(c.Request().Context(), c.Param("id"))
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, listing)
}

func (h *ListingHandler) UpdateListing(c echo.Context) error {
	uid, err := currentUser(c)
	if err != nil {
		return response.Error(c, err)
	}

	var req usecase.ListingInput
	if err := bindAndValidate(c, &req); err != nil {
		return response.Error(c, err)
	}

	listing, err := h.listings.UpdateListing(c.Request().Context(), uid, c.Param("id"), req)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, listing)
}

func (h *ListingHandler) DeleteListing(c echo.Context) error {
	uid, err := currentUser(c)
	if err != nil {
		return response.Error(c, err)
	}

	if err := h.listings.DeleteListing(c.Request().Context(), uid, c.Param("id")); err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, map[string]string{"message": "Listing deleted successfully"})
}

// BrowseListings answers the browse page: filter form values plus page/limit.
func (h *ListingHandler) BrowseListings(c echo.Context) error {
	filter, err := service.ParseListingFilter(
		c.QueryParam("minPrice"),
		c.QueryParam("maxPrice"),
		c.QueryParam("propertyType"),
		c.QueryParam("location"),
	)
	if err != nil {
		return response.Error(c, errors.BadRequest(err.Error(), err))
	}

	page := utils.GetPaginationParams(c)
	listings, total, err := h.listings.BrowseListings(c.Request().Context(), filter, page)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Paginated(c, listings, int64(total), page.Page, page.PageSize)
}

func (h *ListingHandler) FeaturedListings(c echo.Context) error {
	listings, err := h.listings.FeaturedListings(c.Request().Context())
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, listings)
}

func (h *ListingHandler) MyListings(c echo.Context) error {
	uid, err := currentUser(c)
	if err != nil {
		return response.Error(c, err)
	}

	listings, err := h.listings.MyListings(c.Request().Context(), uid)
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, listings)
}

// MapListings returns the listings that have coordinates. Geocoding of the
// others is started in the background.
func (h *ListingHandler) MapListings(c echo.Context) error {
	listings, err := h.listings.MapListings(c.Request().Context())
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, listings)
}
