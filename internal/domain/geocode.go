package domain

import (
	"context"
	"log/slog"
	"strings"
)

// EnrichWithGeocoding resolves the sighting's location key and attaches the
// coordinates and H3 cell. A nil resolver, a blank key or a failed lookup
// leaves Geo nil (graceful degradation).
func EnrichWithGeocoding(ctx context.Context, s Sighting, resolver LocationResolver, h3Resolution int, logger *slog.Logger) Sighting {
	if resolver == nil {
		return s
	}
	if strings.TrimSpace(s.Location) == "" {
		logger.Debug("no location to geocode", "id", s.ID)
		return s
	}

	coords, ok := resolver.Resolve(ctx, s.Location)
	if !ok {
		return s
	}
	s.Geo = &coords

	cell, err := CellFor(coords, h3Resolution)
	if err != nil {
		logger.Warn("h3 cell lookup failed",
			"id", s.ID,
			"location", s.Location,
			"lon", coords.Lon,
			"lat", coords.Lat,
			"error", err,
		)
		return s
	}
	s.H3Cell = cell
	return s
}
