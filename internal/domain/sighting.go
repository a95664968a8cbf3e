package domain

import (
	"context"
	"errors"
	"time"
)

// ErrNoResult is returned (possibly wrapped) by a Geocoder when the provider
// answered but had no candidate for the address.
var ErrNoResult = errors.New("no geocoding result")

// RawSighting is one row of the sightings table as scraped from the report
// pages: every field is the cell text, unparsed.
type RawSighting struct {
	DateStr  string `csv:"datestr"`
	City     string `csv:"city"`
	State    string `csv:"state"`
	Shape    string `csv:"shape"`
	Duration string `csv:"duration,duration_description"`
}

// Coordinates is a WGS-84 point. Longitude always comes first.
type Coordinates struct {
	Lon float64 `json:"lon"`
	Lat float64 `json:"lat"`
}

// Sighting is a report after parsing and enrichment. Pointer fields are nil
// when the corresponding value could not be derived from the raw text.
type Sighting struct {
	ID       string `json:"id"`
	DateStr  string `json:"datestr"`
	City     string `json:"city"`
	State    string `json:"state"`
	RawShape string `json:"raw_shape,omitempty"`
	Duration string `json:"duration"`

	Start           *time.Time `json:"start,omitempty"`
	End             *time.Time `json:"end,omitempty"`
	DurationSeconds *int       `json:"duration_secs,omitempty"`
	Season          string     `json:"season,omitempty"`

	Location string       `json:"location"`
	Geo      *Coordinates `json:"geo,omitempty"`
	H3Cell   string       `json:"h3_cell,omitempty"`

	Shape       string    `json:"shape"`
	ProcessedAt time.Time `json:"processed_at"`
}

// Complete reports whether every column of the GIS export is present.
func (s Sighting) Complete() bool {
	return s.Start != nil && s.End != nil && s.Geo != nil && s.Shape != ""
}

// Geocoder converts a free-text address into coordinates using a remote provider.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (Coordinates, error)
}

// LocationResolver answers a location key from a cache or a provider.
// ok is false when the key could not be geocoded.
type LocationResolver interface {
	Resolve(ctx context.Context, key string) (coords Coordinates, ok bool)
}
