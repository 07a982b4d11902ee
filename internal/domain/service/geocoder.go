package service

import (
	"context"
	"errors"
)

// ErrAddressNotFound is returned when the geocoder has no match.
var ErrAddressNotFound = errors.New("address not found")

type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Geocoder resolves a postal address into coordinates.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (Coordinates, error)
}
