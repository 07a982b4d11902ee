package entity

import (
	"fmt"
	"strings"
	"time"
)

type PropertyType string

const (
	PropertyTypeApartment PropertyType = "apartment"
	PropertyTypeHouse     PropertyType = "house"
	PropertyTypeStudio    PropertyType = "studio"
	PropertyTypeOther     PropertyType = "other"
)

func (p PropertyType) Valid() bool {
	switch p {
	case PropertyTypeApartment, PropertyTypeHouse, PropertyTypeStudio, PropertyTypeOther:
		return true
	}
	return false
}

const MaxListingImages = 10

type Listing struct {
	ID              string       `json:"id" firestore:"id"`
	OwnerID         string       `json:"owner_id" firestore:"ownerId"`
	Title           string       `json:"title" firestore:"title"`
	Description     string       `json:"description" firestore:"description"`
	PropertyType    PropertyType `json:"property_type" firestore:"propertyType"`
	Bedrooms        int          `json:"bedrooms" firestore:"bedrooms"`
	Bathrooms       int          `json:"bathrooms" firestore:"bathrooms"`
	FloorNumber     int          `json:"floor_number" firestore:"floorNumber"`
	TotalArea       float64      `json:"total_area" firestore:"totalArea"`
	RentPrice       float64      `json:"rent_price" firestore:"rentPrice"`
	IsRentInclusive bool         `json:"is_rent_inclusive" firestore:"isRentInclusive"`

	Address    string `json:"address" firestore:"address"`
	City       string `json:"city" firestore:"city"`
	Country    string `json:"country" firestore:"country"`
	PostalCode string `json:"postal_code" firestore:"postalCode"`

	// Populated lazily by the geocoding backfill.
	Latitude  *float64 `json:"latitude,omitempty" firestore:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty" firestore:"longitude,omitempty"`

	Images     []string `json:"images" firestore:"images"`
	Amenities  []string `json:"amenities" firestore:"amenities"`
	HouseRules string   `json:"house_rules,omitempty" firestore:"houseRules,omitempty"`

	CreatedAt time.Time `json:"created_at" firestore:"createdAt"`
	UpdatedAt time.Time `json:"updated_at" firestore:"updatedAt"`
}

func (l *Listing) HasCoordinates() bool {
	return l.Latitude != nil && l.Longitude != nil
}

func (l *Listing) SetCoordinates(lat, lng float64) {
	l.Latitude = &lat
	l.Longitude = &lng
}

// SameAddress reports whether o sits at the same postal address as l.
func (l *Listing) SameAddress(o *Listing) bool {
	return l.Address == o.Address && l.City == o.City && l.Country == o.Country && l.PostalCode == o.PostalCode
}

// PostalAddress is the single line handed to the geocoder.
func (l *Listing) PostalAddress() string {
	parts := make([]string, 0, 3)
	if l.Address != "" {
		parts = append(parts, l.Address)
	}
	if city := strings.TrimSpace(fmt.Sprintf("%s %s", l.PostalCode, l.City)); city != "" {
		parts = append(parts, city)
	}
	if l.Country != "" {
		parts = append(parts, l.Country)
	}
	return strings.Join(parts, ", ")
}

func (l *Listing) CoverImage() string {
	if len(l.Images) == 0 {
		return "/placeholder.jpg"
	}
	return l.Images[0]
}

// NormalizeAmenities trims and de-duplicates amenities, keeping first-seen order.
func NormalizeAmenities(amenities []string) []string {
	seen := make(map[string]struct{}, len(amenities))
	out := make([]string, 0, len(amenities))
	for _, a := range amenities {
		a = strings.TrimSpace(a)
		if a == "" {
			continue
		}
		if _, ok := seen[a]; ok {
			continue
		}
		seen[a] = struct{}{}
		out = append(out, a)
	}
	return out
}
