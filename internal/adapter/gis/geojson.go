// Package gis exports geocoded sightings as GeoJSON and ESRI shapefiles.
// Only sightings with coordinates are exported; points are (lon, lat) in WGS-84.
package gis

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/couchcryptid/sightings-etl/internal/domain"
)

// Point returns the sighting location as a go-geom point.
func Point(c domain.Coordinates) *geom.Point {
	return geom.NewPointFlat(geom.XY, []float64{c.Lon, c.Lat})
}

// Feature converts a geocoded sighting to a GeoJSON feature. ok is false when
// the sighting has no coordinates.
func Feature(s domain.Sighting) (*geojson.Feature, bool) {
	if s.Geo == nil {
		return nil, false
	}
	props := map[string]interface{}{
		"location": s.Location,
		"shape":    s.Shape,
	}
	if s.Start != nil {
		props["start"] = s.Start.Format(domain.StartLayout)
	}
	if s.End != nil {
		props["end"] = s.End.Format(domain.StartLayout)
	}
	if s.DurationSeconds != nil {
		props["duration_secs"] = *s.DurationSeconds
	}
	if s.Season != "" {
		props["season"] = s.Season
	}
	if s.H3Cell != "" {
		props["h3_cell"] = s.H3Cell
	}
	return &geojson.Feature{
		ID:         s.ID,
		Geometry:   Point(*s.Geo),
		Properties: props,
	}, true
}

// FeatureCollection builds a collection of every geocoded sighting.
func FeatureCollection(sightings []domain.Sighting) *geojson.FeatureCollection {
	fc := &geojson.FeatureCollection{Features: []*geojson.Feature{}}
	for _, s := range sightings {
		if f, ok := Feature(s); ok {
			fc.Features = append(fc.Features, f)
		}
	}
	return fc
}

// GeoJSONSink writes a FeatureCollection file.
type GeoJSONSink struct {
	path string
}

// NewGeoJSONSink creates a sink writing to path.
func NewGeoJSONSink(path string) *GeoJSONSink {
	return &GeoJSONSink{path: path}
}

func (s *GeoJSONSink) Name() string { return "geojson" }

// LoadBatch replaces the file with the geocoded sightings.
func (s *GeoJSONSink) LoadBatch(_ context.Context, sightings []domain.Sighting) (int, error) {
	fc := FeatureCollection(sightings)
	data, err := json.Marshal(fc)
	if err != nil {
		return 0, fmt.Errorf("encode geojson: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return 0, fmt.Errorf("write geojson: %w", err)
	}
	return len(fc.Features), nil
}
