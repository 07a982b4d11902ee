package geocoding

import (
	"context"
	"errors"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"woonruil/internal/domain/service"
	"woonruil/internal/infrastructure/metrics"
)

// CachedGeocoder memoises successful lookups of the wrapped geocoder.
// Addresses the geocoder has no match for are remembered for missTTL;
// other errors are not cached so a transient failure can be retried.
type CachedGeocoder struct {
	next   service.Geocoder
	source string
	cache  *lru.Cache[string, service.Coordinates]
	misses *expirable.LRU[string, struct{}]
}

func NewCachedGeocoder(next service.Geocoder, source string, size int, missTTL time.Duration) (*CachedGeocoder, error) {
	if size <= 0 {
		size = 1024
	}
	if missTTL <= 0 {
		missTTL = 30 * time.Minute
	}
	cache, err := lru.New[string, service.Coordinates](size)
	if err != nil {
		return nil, err
	}
	return &CachedGeocoder{
		next:   next,
		source: source,
		cache:  cache,
		misses: expirable.NewLRU[string, struct{}](size, nil, missTTL),
	}, nil
}

func (c *CachedGeocoder) Geocode(ctx context.Context, address string) (service.Coordinates, error) {
	key := cacheKey(address)

	if coords, ok := c.cache.Get(key); ok {
		metrics.GeocodeLookups.WithLabelValues("cache", "hit").Inc()
		return coords, nil
	}
	if _, ok := c.misses.Get(key); ok {
		metrics.GeocodeLookups.WithLabelValues("cache", "not_found").Inc()
		return service.Coordinates{}, service.ErrAddressNotFound
	}
	metrics.GeocodeLookups.WithLabelValues("cache", "miss").Inc()

	coords, err := c.next.Geocode(ctx, address)
	switch {
	case err == nil:
		metrics.GeocodeLookups.WithLabelValues(c.source, "ok").Inc()
		c.cache.Add(key, coords)
	case errors.Is(err, service.ErrAddressNotFound):
		metrics.GeocodeLookups.WithLabelValues(c.source, "not_found").Inc()
		c.misses.Add(key, struct{}{})
	default:
		metrics.GeocodeLookups.WithLabelValues(c.source, "error").Inc()
	}
	return coords, err
}

func (c *CachedGeocoder) Len() int {
	return c.cache.Len()
}

func cacheKey(address string) string {
	return strings.ToLower(strings.Join(strings.Fields(address), " "))
}
