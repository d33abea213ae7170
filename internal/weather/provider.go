package weather

import (
	"context"
	"errors"
)

var (
	// ErrCityNotFound is returned when the provider answered but does not know the city.
	ErrCityNotFound = errors.New("city not found")

	// ErrMalformedResponse is returned when a provider body cannot be decoded or
	// lacks a required field.
	ErrMalformedResponse = errors.New("malformed provider response")
)

// Provider abstracts a current-conditions source (e.g. OpenWeatherMap, WeatherAPI).
type Provider interface {
	Name() string
	Current(ctx context.Context, city string) (Reading, error)
}

// Cache stores recent readings. Get returns (nil, nil) on a miss.
type Cache interface {
	Get(ctx context.Context, key string) (*Reading, error)
	Set(ctx context.Context, key string, reading Reading) error
}
