package geocache

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/couchcryptid/sightings-etl/internal/domain"
	"github.com/couchcryptid/sightings-etl/internal/observability"
)

// Resolver answers location keys from the cache and falls back to the
// geocoder exactly once per unseen key. It implements domain.LocationResolver.
type Resolver struct {
	cache    *Cache
	geocoder domain.Geocoder
	provider string
	logger   *slog.Logger
	metrics  *observability.Metrics

	lookups int
}

// NewResolver creates a resolver. provider labels metrics and log lines.
func NewResolver(cache *Cache, geocoder domain.Geocoder, provider string, logger *slog.Logger, metrics *observability.Metrics) *Resolver {
	metrics.GeocodeCacheSize.Set(float64(cache.Len()))
	return &Resolver{
		cache:    cache,
		geocoder: geocoder,
		provider: provider,
		logger:   logger,
		metrics:  metrics,
	}
}

// Resolve returns the coordinates for key, longitude first. Cached failures
// are returned as absent without calling the provider. Provider errors,
// empty answers and out-of-range coordinates are stored as failures and
// reported as absent; they are never returned to the caller.
func (r *Resolver) Resolve(ctx context.Context, key string) (domain.Coordinates, bool) {
	if e, ok := r.cache.Lookup(key); ok {
		r.metrics.GeocodeCache.WithLabelValues("hit").Inc()
		if e.Failed {
			return domain.Coordinates{}, false
		}
		return e.Coordinates, true
	}
	r.metrics.GeocodeCache.WithLabelValues("miss").Inc()

	r.lookups++
	r.logger.Info("geocoding", "index", r.lookups, "location", key, "provider", r.provider)

	start := time.Now()
	coords, err := r.geocoder.Geocode(ctx, key)
	r.metrics.GeocodeAPIDuration.WithLabelValues(r.provider).Observe(time.Since(start).Seconds())

	if err != nil {
		// A cancelled run says nothing about the address; leave it unattempted.
		if ctx.Err() != nil {
			r.logger.Debug("geocoding cancelled", "location", key)
			return domain.Coordinates{}, false
		}
		outcome := "error"
		if errors.Is(err, domain.ErrNoResult) {
			outcome = "empty"
		}
		r.metrics.GeocodeRequests.WithLabelValues(r.provider, outcome).Inc()
		r.logger.Warn("geocoding failed", "location", key, "outcome", outcome, "error", err)
		r.storeFailure(key)
		return domain.Coordinates{}, false
	}

	if !validCoordinates(coords) {
		r.metrics.GeocodeRequests.WithLabelValues(r.provider, "error").Inc()
		r.logger.Warn("geocoding returned invalid coordinates",
			"location", key,
			"lon", coords.Lon,
			"lat", coords.Lat,
		)
		r.storeFailure(key)
		return domain.Coordinates{}, false
	}

	r.metrics.GeocodeRequests.WithLabelValues(r.provider, "success").Inc()
	r.cache.Store(key, Success(coords))
	r.metrics.GeocodeCacheSize.Set(float64(r.cache.Len()))
	return coords, true
}

// Lookups returns how many keys were sent to the provider by this resolver.
func (r *Resolver) Lookups() int {
	return r.lookups
}

func (r *Resolver) storeFailure(key string) {
	r.cache.Store(key, Failure())
	r.metrics.GeocodeCacheSize.Set(float64(r.cache.Len()))
}

func validCoordinates(c domain.Coordinates) bool {
	return finite(c.Lon) && finite(c.Lat) &&
		c.Lon >= -180 && c.Lon <= 180 &&
		c.Lat >= -90 && c.Lat <= 90
}
