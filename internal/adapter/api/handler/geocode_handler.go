package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"woonruil/pkg/logger"
)

// GeocodeLookup returns the raw geocoding response for an address.
type GeocodeLookup interface {
	Lookup(ctx context.Context, address string) (json.RawMessage, error)
}

// GeocodeHandler proxies geocoding so the API key stays on the server. Its
// responses use a bare {"error": ...} body rather than the usual envelope.
type GeocodeHandler struct {
	lookup GeocodeLookup
}

func NewGeocodeHandler(lookup GeocodeLookup) *GeocodeHandler {
	return &GeocodeHandler{
		lookup: lookup,
	}
}

func (h *GeocodeHandler) Geocode(c echo.Context) error {
	address := strings.TrimSpace(c.QueryParam("address"))
	if address == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Address is required"})
	}

	body, err := h.lookup.Lookup(c.Request().Context(), address)
	if err != nil {
		logger.Error("Geocode proxy failed for %q: %v", address, err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to fetch geocode data"})
	}

	return c.JSONBlob(http.StatusOK, body)
}
