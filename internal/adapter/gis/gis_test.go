package gis

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/jonas-p/go-shp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/sightings-etl/internal/domain"
)

func geocoded(city string, lon, lat float64) domain.Sighting {
	s := domain.ParseSighting(domain.RawSighting{
		DateStr:  "2015-06-30 23:50:00",
		City:     city,
		State:    "TX",
		Shape:    "Fireball",
		Duration: "45 minutes",
	})
	s = domain.EnrichSighting(s)
	s.Geo = &domain.Coordinates{Lon: lon, Lat: lat}
	return s
}

func TestFeature_LongitudeFirst(t *testing.T) {
	f, ok := Feature(geocoded("Austin", -97.7431, 30.2672))
	require.True(t, ok)

	data, err := json.Marshal(f)
	require.NoError(t, err)

	var decoded struct {
		Type     string `json:"type"`
		ID       string `json:"id"`
		Geometry struct {
			Type        string    `json:"type"`
			Coordinates []float64 `json:"coordinates"`
		} `json:"geometry"`
		Properties map[string]interface{} `json:"properties"`
	}
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, "Feature", decoded.Type)
	assert.NotEmpty(t, decoded.ID)
	assert.Equal(t, "Point", decoded.Geometry.Type)
	assert.Equal(t, []float64{-97.7431, 30.2672}, decoded.Geometry.Coordinates)
	assert.Equal(t, "fireball", decoded.Properties["shape"])
	assert.Equal(t, "2015-06-30 23:50:00", decoded.Properties["start"])
	assert.InDelta(t, 2700, decoded.Properties["duration_secs"], 0)
	assert.Equal(t, "summer", decoded.Properties["season"])
}

func TestFeature_SkipsUngeocoded(t *testing.T) {
	s := geocoded("Austin", 0, 0)
	s.Geo = nil
	_, ok := Feature(s)
	assert.False(t, ok)
}

func TestGeoJSONSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sightings.geojson")
	missing := geocoded("Nowhere", 0, 0)
	missing.Geo = nil

	n, err := NewGeoJSONSink(path).LoadBatch(context.Background(), []domain.Sighting{
		geocoded("Austin", -97.7431, 30.2672),
		missing,
		geocoded("Dallas", -96.797, 32.7767),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var fc struct {
		Type     string            `json:"type"`
		Features []json.RawMessage `json:"features"`
	}
	require.NoError(t, json.Unmarshal(data, &fc))
	assert.Equal(t, "FeatureCollection", fc.Type)
	assert.Len(t, fc.Features, 2)
}

func TestGeoJSONSink_EmptyIsValidCollection(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.geojson")

	n, err := NewGeoJSONSink(path).LoadBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"FeatureCollection","features":[]}`, string(data))
}

func TestShapefileSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sightings.shp")
	missing := geocoded("Nowhere", 0, 0)
	missing.Geo = nil

	austin := geocoded("Austin", -97.7431, 30.2672)
	n, err := NewShapefileSink(path).LoadBatch(context.Background(), []domain.Sighting{austin, missing})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	r, err := shp.Open(path)
	require.NoError(t, err)
	defer r.Close()

	require.True(t, r.Next())
	row, shape := r.Shape()
	point, ok := shape.(*shp.Point)
	require.True(t, ok)
	assert.InDelta(t, -97.7431, point.X, 1e-9)
	assert.InDelta(t, 30.2672, point.Y, 1e-9)

	assert.Equal(t, austin.ID, r.ReadAttribute(row, fieldID))
	assert.Equal(t, "2015-06-30 23:50:00", r.ReadAttribute(row, fieldStart))
	assert.Equal(t, "2700", r.ReadAttribute(row, fieldSecs))
	assert.Equal(t, "fireball", r.ReadAttribute(row, fieldShape))
	assert.Equal(t, "TX Austin", r.ReadAttribute(row, fieldLocation))

	assert.False(t, r.Next())
}

func TestShapefileSink_WritesSidecarFiles(t *testing.T) {
	tests := []struct {
		name string
		path string
	}{
		{"shp extension", "out.shp"},
		{"upper case extension", "out.SHP"},
		{"base name", "out"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			_, err := NewShapefileSink(filepath.Join(dir, tt.path)).LoadBatch(context.Background(), []domain.Sighting{
				geocoded("Austin", -97.7431, 30.2672),
			})
			require.NoError(t, err)

			for _, ext := range []string{".shp", ".shx", ".dbf"} {
				_, err := os.Stat(filepath.Join(dir, "out"+ext))
				assert.NoError(t, err, ext)
			}
			_, err = os.Stat(filepath.Join(dir, "outdbf"))
			assert.ErrorIs(t, err, os.ErrNotExist)
		})
	}
}

func TestShapefileSink_AttributesReadable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sightings.shp")
	_, err := NewShapefileSink(path).LoadBatch(context.Background(), []domain.Sighting{
		geocoded("Austin", -97.7431, 30.2672),
		geocoded("Dallas", -96.797, 32.7767),
	})
	require.NoError(t, err)

	r, err := shp.Open(path)
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, 2, r.AttributeCount())
	assert.Len(t, r.Fields(), len(shapefileFields))
	assert.Equal(t, "TX Dallas", r.ReadAttribute(1, fieldLocation))
}

func TestShapefileSink_RewritesExistingFiles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sightings.shp")
	sink := NewShapefileSink(path)
	_, err := sink.LoadBatch(context.Background(), []domain.Sighting{
		geocoded("Austin", -97.7431, 30.2672),
		geocoded("Dallas", -96.797, 32.7767),
	})
	require.NoError(t, err)
	_, err = sink.LoadBatch(context.Background(), []domain.Sighting{geocoded("Houston", -95.3698, 29.7604)})
	require.NoError(t, err)

	r, err := shp.Open(path)
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, 1, r.AttributeCount())
	assert.Equal(t, "TX Houston", r.ReadAttribute(0, fieldLocation))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 10))
	assert.Equal(t, "ab", truncate("abc", 2))
	// "é" is two bytes; cutting inside it drops the whole rune.
	assert.Equal(t, "Montr", truncate("Montréal", 6))
}
