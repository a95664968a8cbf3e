package gis

import (
	"context"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/jonas-p/go-shp"

	"github.com/couchcryptid/sightings-etl/internal/domain"
)

// DBF column layout. Names are limited to 10 characters by the format.
var shapefileFields = []shp.Field{
	shp.StringField("ID", 16),
	shp.StringField("START", 19),
	shp.StringField("END", 19),
	shp.NumberField("SECS", 10),
	shp.StringField("SHAPE", 32),
	shp.StringField("SEASON", 6),
	shp.StringField("H3CELL", 15),
	shp.StringField("LOCATION", 80),
}

const (
	fieldID = iota
	fieldStart
	fieldEnd
	fieldSecs
	fieldShape
	fieldSeason
	fieldH3Cell
	fieldLocation
)

// ShapefileSink writes a point shapefile (.shp, .shx, .dbf) of geocoded sightings.
type ShapefileSink struct {
	path string
}

// NewShapefileSink creates a sink. path may name the .shp file or the base name.
func NewShapefileSink(path string) *ShapefileSink {
	return &ShapefileSink{path: path}
}

func (s *ShapefileSink) Name() string { return "shapefile" }

// LoadBatch replaces the shapefile with the geocoded sightings.
func (s *ShapefileSink) LoadBatch(_ context.Context, sightings []domain.Sighting) (n int, err error) {
	base := shapefileBase(s.path)
	w, err := shp.Create(base+".shp", shp.POINT)
	if err != nil {
		return 0, fmt.Errorf("create shapefile: %w", err)
	}
	defer func() {
		w.Close()
		// go-shp names the attribute table "<base>dbf".
		if renameErr := os.Rename(base+"dbf", base+".dbf"); renameErr != nil && err == nil {
			err = fmt.Errorf("rename shapefile attribute table: %w", renameErr)
		}
	}()

	if err := w.SetFields(shapefileFields); err != nil {
		return 0, fmt.Errorf("set shapefile fields: %w", err)
	}

	for _, sighting := range sightings {
		if sighting.Geo == nil {
			continue
		}
		row := int(w.Write(&shp.Point{X: sighting.Geo.Lon, Y: sighting.Geo.Lat}))
		if err := writeAttributes(w, row, sighting); err != nil {
			return n, fmt.Errorf("write shapefile row %d: %w", row, err)
		}
		n++
	}
	return n, nil
}

// shapefileBase strips a trailing .shp, in any case, from path.
func shapefileBase(path string) string {
	if strings.HasSuffix(strings.ToLower(path), ".shp") {
		return path[:len(path)-len(".shp")]
	}
	return path
}

func writeAttributes(w *shp.Writer, row int, s domain.Sighting) error {
	values := map[int]interface{}{
		fieldID:       s.ID,
		fieldShape:    s.Shape,
		fieldSeason:   s.Season,
		fieldH3Cell:   s.H3Cell,
		fieldLocation: s.Location,
	}
	if s.Start != nil {
		values[fieldStart] = s.Start.Format(domain.StartLayout)
	}
	if s.End != nil {
		values[fieldEnd] = s.End.Format(domain.StartLayout)
	}
	if s.DurationSeconds != nil {
		values[fieldSecs] = *s.DurationSeconds
	}

	for field, v := range values {
		if str, ok := v.(string); ok {
			v = truncate(str, int(shapefileFields[field].Size))
		}
		if err := w.WriteAttribute(row, field, v); err != nil {
			return err
		}
	}
	return nil
}

// truncate shortens s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
