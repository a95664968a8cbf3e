// Package csvio reads and writes the sightings tables as CSV.
//
// Three layouts are used:
//
//   - scraped: datestr,city,state,shape,duration_description,secs
//     (the scraper's output and the convert command's input)
//   - processed: every field of a parsed sighting, empty cells for absent values
//   - qgis: start,end,lon,lat,shape, complete rows only
package csvio

import (
	"strconv"
	"time"

	"github.com/couchcryptid/sightings-etl/internal/domain"
)

// ScrapedRow is one line of the scraper's output table.
type ScrapedRow struct {
	DateStr  string `csv:"datestr"`
	City     string `csv:"city"`
	State    string `csv:"state"`
	Shape    string `csv:"shape"`
	Duration string `csv:"duration_description"`
	Secs     *int   `csv:"secs,omitempty"`
}

// NewScrapedRow copies raw and fills Secs from the duration text.
func NewScrapedRow(raw domain.RawSighting) ScrapedRow {
	row := ScrapedRow{
		DateStr:  raw.DateStr,
		City:     raw.City,
		State:    raw.State,
		Shape:    raw.Shape,
		Duration: raw.Duration,
	}
	if secs, ok := domain.ParseDuration(raw.Duration); ok {
		row.Secs = &secs
	}
	return row
}

// ProcessedRow is one line of the processed table.
type ProcessedRow struct {
	ID          string   `csv:"id"`
	DateStr     string   `csv:"datestr"`
	City        string   `csv:"city"`
	State       string   `csv:"state"`
	RawShape    string   `csv:"shape_raw"`
	Duration    string   `csv:"duration_description"`
	Start       string   `csv:"start"`
	End         string   `csv:"end"`
	Secs        *int     `csv:"secs,omitempty"`
	Season      string   `csv:"season"`
	Location    string   `csv:"location"`
	Lon         *float64 `csv:"lon,omitempty"`
	Lat         *float64 `csv:"lat,omitempty"`
	H3Cell      string   `csv:"h3_cell"`
	Shape       string   `csv:"shape"`
	ProcessedAt string   `csv:"processed_at"`
}

// NewProcessedRow flattens a sighting.
func NewProcessedRow(s domain.Sighting) ProcessedRow {
	row := ProcessedRow{
		ID:       s.ID,
		DateStr:  s.DateStr,
		City:     s.City,
		State:    s.State,
		RawShape: s.RawShape,
		Duration: s.Duration,
		Start:    formatTime(s.Start),
		End:      formatTime(s.End),
		Secs:     s.DurationSeconds,
		Season:   s.Season,
		Location: s.Location,
		H3Cell:   s.H3Cell,
		Shape:    s.Shape,
	}
	if s.Geo != nil {
		lon, lat := s.Geo.Lon, s.Geo.Lat
		row.Lon, row.Lat = &lon, &lat
	}
	if !s.ProcessedAt.IsZero() {
		row.ProcessedAt = s.ProcessedAt.Format(time.RFC3339)
	}
	return row
}

// Sighting rebuilds the sighting the row was written from. Cells that do not
// parse are treated as absent.
func (r ProcessedRow) Sighting() domain.Sighting {
	s := domain.Sighting{
		ID:              r.ID,
		DateStr:         r.DateStr,
		City:            r.City,
		State:           r.State,
		RawShape:        r.RawShape,
		Duration:        r.Duration,
		DurationSeconds: r.Secs,
		Season:          r.Season,
		Location:        r.Location,
		H3Cell:          r.H3Cell,
		Shape:           r.Shape,
	}
	if t, ok := domain.ParseStart(r.Start); ok {
		s.Start = &t
	}
	if t, ok := domain.ParseStart(r.End); ok {
		s.End = &t
	}
	if r.Lon != nil && r.Lat != nil {
		s.Geo = &domain.Coordinates{Lon: *r.Lon, Lat: *r.Lat}
	}
	if t, err := time.Parse(time.RFC3339, r.ProcessedAt); err == nil {
		s.ProcessedAt = t
	}
	return s
}

// QGISRow is one line of the GIS-ready table.
type QGISRow struct {
	Start string `csv:"start"`
	End   string `csv:"end"`
	Lon   string `csv:"lon"`
	Lat   string `csv:"lat"`
	Shape string `csv:"shape"`
}

// NewQGISRow returns the GIS row for s, or false when any column would be empty.
func NewQGISRow(s domain.Sighting) (QGISRow, bool) {
	if !s.Complete() {
		return QGISRow{}, false
	}
	return QGISRow{
		Start: formatTime(s.Start),
		End:   formatTime(s.End),
		Lon:   strconv.FormatFloat(s.Geo.Lon, 'f', -1, 64),
		Lat:   strconv.FormatFloat(s.Geo.Lat, 'f', -1, 64),
		Shape: s.Shape,
	}, true
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(domain.StartLayout)
}
