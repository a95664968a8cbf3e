// Package google implements domain.Geocoder with the Google Maps Geocoding API.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"googlemaps.github.io/maps"

	"github.com/couchcryptid/sightings-etl/internal/domain"
)

// ErrEmptyResponse means the API returned no results for the address.
var ErrEmptyResponse = fmt.Errorf("google maps: %w", domain.ErrNoResult)

// APIClient is the subset of *maps.Client used by Client.
type APIClient interface {
	Geocode(ctx context.Context, r *maps.GeocodingRequest) ([]maps.GeocodingResult, error)
}

// Client implements domain.Geocoder.
type Client struct {
	api    APIClient
	logger *slog.Logger
}

// NewClient builds a Google Maps client for apiKey. requestsPerSecond > 0
// enables the library's built-in rate limiter.
func NewClient(apiKey string, requestsPerSecond int, logger *slog.Logger) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("google maps API key is required")
	}

	opts := []maps.ClientOption{maps.WithAPIKey(apiKey)}
	if requestsPerSecond > 0 {
		opts = append(opts, maps.WithRateLimit(requestsPerSecond))
	}

	api, err := maps.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("create google maps client: %w", err)
	}
	return NewClientWithAPI(api, logger), nil
}

// NewClientWithAPI wraps an existing API client.
func NewClientWithAPI(api APIClient, logger *slog.Logger) *Client {
	return &Client{api: api, logger: logger}
}

// Geocode returns the first result's location, longitude first.
func (c *Client) Geocode(ctx context.Context, address string) (domain.Coordinates, error) {
	results, err := c.api.Geocode(ctx, &maps.GeocodingRequest{Address: address})
	if err != nil {
		return domain.Coordinates{}, fmt.Errorf("google geocode: %w", err)
	}
	if len(results) == 0 {
		return domain.Coordinates{}, ErrEmptyResponse
	}

	loc := results[0].Geometry.Location
	c.logger.Debug("google result", "address", address, "formatted", results[0].FormattedAddress)
	return domain.Coordinates{Lon: loc.Lng, Lat: loc.Lat}, nil
}
