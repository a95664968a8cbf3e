package pipeline

import (
	"context"
	"log/slog"

	"github.com/couchcryptid/sightings-etl/internal/domain"
	"github.com/couchcryptid/sightings-etl/internal/observability"
)

// SightingTransformer implements Transformer using domain transform functions
// with optional geocoding enrichment.
type SightingTransformer struct {
	resolver     domain.LocationResolver
	h3Resolution int
	logger       *slog.Logger
	metrics      *observability.Metrics
}

// NewTransformer creates a SightingTransformer. Pass a nil resolver to
// disable geocoding.
func NewTransformer(resolver domain.LocationResolver, h3Resolution int, logger *slog.Logger, metrics *observability.Metrics) *SightingTransformer {
	return &SightingTransformer{
		resolver:     resolver,
		h3Resolution: h3Resolution,
		logger:       logger,
		metrics:      metrics,
	}
}

func (t *SightingTransformer) Transform(ctx context.Context, raw domain.RawSighting) domain.Sighting {
	s := domain.ParseSighting(raw)
	if s.Start == nil {
		t.logger.Warn("could not parse start time", "id", s.ID, "datestr", raw.DateStr)
		t.metrics.DatesUnparsed.Inc()
	}
	if s.DurationSeconds == nil {
		t.logger.Debug("no duration unit recognized", "id", s.ID, "duration", raw.Duration)
		t.metrics.DurationsUnparsed.Inc()
	}

	s = domain.EnrichSighting(s)
	return domain.EnrichWithGeocoding(ctx, s, t.resolver, t.h3Resolution, t.logger)
}
