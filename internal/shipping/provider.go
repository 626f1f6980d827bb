// Package shipping adapts external courier rate services behind a narrow
// provider contract so order pricing never sees provider payloads.
package shipping

import (
	"context"
	"errors"

	domain "github.com/brp-commerce/api/internal/domain"
)

// ErrCityNotFound is returned when the destination city is unknown to the provider.
var ErrCityNotFound = errors.New("shipping: city not found")

// ErrNoRates is returned when the provider offers no service for the route.
var ErrNoRates = errors.New("shipping: no rates available")

// RateQuery describes a courier quote request.
type RateQuery struct {
	OriginCity      string
	DestinationCity string
	WeightGrams     int
	CourierCode     string
}

// City identifies a deliverable city with its postal code.
type City struct {
	ID         string
	Name       string
	Province   string
	PostalCode string
}

// Provider defines the courier rate contract implemented by adapters.
type Provider interface {
	// Rates returns the courier's service options for the route. Quotes are
	// point-in-time: callers re-quote before trusting a previously shown price.
	Rates(ctx context.Context, query RateQuery) ([]domain.ShippingOption, error)
	// LookupCity resolves a city id to its canonical record.
	LookupCity(ctx context.Context, cityID string) (City, error)
}
