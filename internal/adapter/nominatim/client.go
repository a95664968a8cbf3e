// Package nominatim implements domain.Geocoder against an OpenStreetMap
// Nominatim search endpoint.
package nominatim

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/couchcryptid/sightings-etl/internal/domain"
)

const (
	// DefaultBaseURL is the public Nominatim search endpoint.
	DefaultBaseURL = "https://nominatim.openstreetmap.org/search"

	// DefaultUserAgent identifies this tool. The public instance rejects
	// requests without one.
	DefaultUserAgent = "sightings-etl/1.0 (https://github.com/couchcryptid/sightings-etl)"
)

var (
	// ErrEmptyResponse means the search returned no candidates.
	ErrEmptyResponse = fmt.Errorf("nominatim: %w", domain.ErrNoResult)
	// ErrInvalidCoordinates means the first candidate's lat/lon did not parse.
	ErrInvalidCoordinates = errors.New("nominatim returned invalid coordinates")
)

// HTTPClient is the subset of *http.Client used by Client.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client implements domain.Geocoder using the Nominatim search API.
type Client struct {
	httpClient HTTPClient
	baseURL    string
	userAgent  string
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// NewClient creates a Nominatim client. requestsPerSecond <= 0 disables the
// client-side rate limit (only sensible for a self-hosted instance).
func NewClient(baseURL, userAgent string, timeout time.Duration, requestsPerSecond float64, logger *slog.Logger) *Client {
	return newClient(&http.Client{Timeout: timeout}, baseURL, userAgent, requestsPerSecond, logger)
}

func newClient(httpClient HTTPClient, baseURL, userAgent string, requestsPerSecond float64, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	limit := rate.Inf
	if requestsPerSecond > 0 {
		limit = rate.Limit(requestsPerSecond)
	}
	return &Client{
		httpClient: httpClient,
		baseURL:    baseURL,
		userAgent:  userAgent,
		limiter:    rate.NewLimiter(limit, 1),
		logger:     logger,
	}
}

// Geocode returns the first candidate for address, longitude first.
func (c *Client) Geocode(ctx context.Context, address string) (domain.Coordinates, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return domain.Coordinates{}, fmt.Errorf("rate limit wait: %w", err)
	}

	u, err := url.Parse(c.baseURL)
	if err != nil {
		return domain.Coordinates{}, fmt.Errorf("parse base URL: %w", err)
	}
	q := u.Query()
	q.Set("q", address)
	q.Set("format", "json")
	q.Set("limit", "1")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return domain.Coordinates{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.Coordinates{}, fmt.Errorf("nominatim request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return domain.Coordinates{}, fmt.Errorf("nominatim API error: status %d: %s", resp.StatusCode, body)
	}

	var results []place
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return domain.Coordinates{}, fmt.Errorf("decode response: %w", err)
	}
	if len(results) == 0 {
		return domain.Coordinates{}, ErrEmptyResponse
	}

	first := results[0]
	c.logger.Debug("nominatim result", "address", address, "lat", first.Lat, "lon", first.Lon)

	lat, err := strconv.ParseFloat(first.Lat, 64)
	if err != nil {
		return domain.Coordinates{}, fmt.Errorf("%w: latitude %q", ErrInvalidCoordinates, first.Lat)
	}
	lon, err := strconv.ParseFloat(first.Lon, 64)
	if err != nil {
		return domain.Coordinates{}, fmt.Errorf("%w: longitude %q", ErrInvalidCoordinates, first.Lon)
	}
	return domain.Coordinates{Lon: lon, Lat: lat}, nil
}

// Nominatim API response types. Coordinates arrive as strings.

type place struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}
