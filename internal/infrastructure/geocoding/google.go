package geocoding

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"woonruil/internal/domain/service"
)

// GoogleClient calls the Google Geocoding JSON API.
type GoogleClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

func NewGoogleClient(baseURL, apiKey string, httpClient *http.Client) *GoogleClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &GoogleClient{
		httpClient: httpClient,
		baseURL:    baseURL,
		apiKey:     apiKey,
	}
}

// Lookup returns the upstream response body as-is. The body must be valid
// JSON; anything else is reported as an error.
func (g *GoogleClient) Lookup(ctx context.Context, address string) (json.RawMessage, error) {
	q := url.Values{}
	q.Set("address", address)
	q.Set("key", g.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build geocode request: %w", err)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("geocode request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read geocode response: %w", err)
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("geocode response is not JSON (status %d)", resp.StatusCode)
	}

	return json.RawMessage(body), nil
}

type googleResponse struct {
	Status  string `json:"status"`
	Results []struct {
		Geometry struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
}

// Geocode resolves address to the first result's location.
func (g *GoogleClient) Geocode(ctx context.Context, address string) (service.Coordinates, error) {
	raw, err := g.Lookup(ctx, address)
	if err != nil {
		return service.Coordinates{}, err
	}

	var parsed googleResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return service.Coordinates{}, fmt.Errorf("decode geocode response: %w", err)
	}

	switch parsed.Status {
	case "OK":
	case "ZERO_RESULTS":
		return service.Coordinates{}, service.ErrAddressNotFound
	default:
		return service.Coordinates{}, fmt.Errorf("geocode status %s", parsed.Status)
	}
	if len(parsed.Results) == 0 {
		return service.Coordinates{}, service.ErrAddressNotFound
	}

	loc := parsed.Results[0].Geometry.Location
	return service.Coordinates{Latitude: loc.Lat, Longitude: loc.Lng}, nil
}
