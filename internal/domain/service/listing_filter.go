package service

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"woonruil/internal/domain/entity"
)

// ListingFilter is the browse page's filter set. A zero field matches
// every listing.
type ListingFilter struct {
	MinPrice     *float64
	MaxPrice     *float64
	PropertyType string
	Location     string

	// Set by And when two filters disagree on PropertyType.
	noType bool
	// Further location substrings that must all match, added by And.
	alsoLocated []string
}

// ParseListingFilter builds a filter from raw form values. Blank values
// leave the predicate inactive.
func ParseListingFilter(minPrice, maxPrice, propertyType, location string) (ListingFilter, error) {
	var f ListingFilter

	lo, err := parsePrice(minPrice)
	if err != nil {
		return f, fmt.Errorf("minPrice: %w", err)
	}
	hi, err := parsePrice(maxPrice)
	if err != nil {
		return f, fmt.Errorf("maxPrice: %w", err)
	}

	f.MinPrice = lo
	f.MaxPrice = hi
	f.PropertyType = strings.TrimSpace(propertyType)
	f.Location = strings.TrimSpace(location)
	return f, nil
}

func parsePrice(raw string) (*float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, fmt.Errorf("%q is not a number", raw)
	}
	return &v, nil
}

func (f ListingFilter) IsEmpty() bool {
	return f.MinPrice == nil && f.MaxPrice == nil && f.PropertyType == "" && f.Location == "" &&
		!f.noType && len(f.alsoLocated) == 0
}

// And returns the filter matching exactly the listings both f and other
// match.
func (f ListingFilter) And(other ListingFilter) ListingFilter {
	out := ListingFilter{
		MinPrice:     f.MinPrice,
		MaxPrice:     f.MaxPrice,
		PropertyType: f.PropertyType,
		Location:     f.Location,
		noType:       f.noType || other.noType,
	}

	if other.MinPrice != nil && (out.MinPrice == nil || *other.MinPrice > *out.MinPrice) {
		out.MinPrice = other.MinPrice
	}
	if other.MaxPrice != nil && (out.MaxPrice == nil || *other.MaxPrice < *out.MaxPrice) {
		out.MaxPrice = other.MaxPrice
	}

	switch {
	case other.PropertyType == "":
	case out.PropertyType == "":
		out.PropertyType = other.PropertyType
	case !strings.EqualFold(out.PropertyType, other.PropertyType):
		out.noType = true
	}

	out.alsoLocated = append(out.alsoLocated, f.alsoLocated...)
	if other.Location != "" {
		if out.Location == "" {
			out.Location = other.Location
		} else {
			out.alsoLocated = append(out.alsoLocated, other.Location)
		}
	}
	out.alsoLocated = append(out.alsoLocated, other.alsoLocated...)
	return out
}

// Match reports whether l satisfies every active predicate. Price bounds
// are inclusive; location is a case-insensitive substring of city or country.
func (f ListingFilter) Match(l *entity.Listing) bool {
	if f.MinPrice != nil && l.RentPrice < *f.MinPrice {
		return false
	}
	if f.MaxPrice != nil && l.RentPrice > *f.MaxPrice {
		return false
	}
	if f.PropertyType != "" && !strings.EqualFold(string(l.PropertyType), f.PropertyType) {
		return false
	}
	if f.noType {
		return false
	}
	if f.Location != "" && !locatedIn(l, f.Location) {
		return false
	}
	for _, loc := range f.alsoLocated {
		if !locatedIn(l, loc) {
			return false
		}
	}
	return true
}

func locatedIn(l *entity.Listing, location string) bool {
	needle := strings.ToLower(location)
	return strings.Contains(strings.ToLower(l.City), needle) ||
		strings.Contains(strings.ToLower(l.Country), needle)
}

// FilterListings returns, in input order, the listings matching f.
func FilterListings(listings []*entity.Listing, f ListingFilter) []*entity.Listing {
	if f.IsEmpty() {
		return listings
	}
	out := make([]*entity.Listing, 0, len(listings))
	for _, l := range listings {
		if f.Match(l) {
			out = append(out, l)
		}
	}
	return out
}
