package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

const (
	// StartLayout is how timestamps are written to and read from the sightings table.
	StartLayout = "2006-01-02 15:04:05"

	// UnknownShape replaces empty shape cells before lowercasing.
	UnknownShape = "Unknown"
)

// reportDateLayouts are the date formats used on the monthly report pages,
// e.g. "6/30/15" and "6/30/15 23:50". Tried in order.
var reportDateLayouts = []string{"1/2/06", "1/2/06 15:04"}

// ParseSighting turns a raw table row into a Sighting. Unparseable dates and
// durations leave the corresponding fields nil; the row itself is kept.
func ParseSighting(raw RawSighting) Sighting {
	s := Sighting{
		ID:       generateID(raw),
		DateStr:  raw.DateStr,
		City:     raw.City,
		State:    raw.State,
		RawShape: raw.Shape,
		Duration: raw.Duration,
		Location: LocationKey(raw.State, raw.City),
		Shape:    NormalizeShape(raw.Shape),
	}

	if start, ok := ParseStart(raw.DateStr); ok {
		s.Start = &start
	}
	if secs, ok := ParseDuration(raw.Duration); ok {
		s.DurationSeconds = &secs
	}
	if s.Start != nil && s.DurationSeconds != nil {
		end := s.Start.Add(time.Duration(*s.DurationSeconds) * time.Second)
		s.End = &end
	}
	return s
}

// EnrichSighting derives calendar fields from the parsed start time and
// stamps the processing time.
func EnrichSighting(s Sighting) Sighting {
	if s.Start != nil {
		s.Season = DetermineSeason(s.Start.Month())
	}
	s.ProcessedAt = clock.Now().UTC()
	return s
}

// ParseStart parses a table timestamp ("2006-01-02 15:04:05").
func ParseStart(value string) (time.Time, bool) {
	t, err := time.Parse(StartLayout, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// StandardizeReportDate parses the date cell of a monthly report page.
func StandardizeReportDate(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	for _, layout := range reportDateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// LocationKey builds the geocoding cache key: region, a space, then locality.
// Rows that spell the same place the same way share one cache entry.
func LocationKey(state, city string) string {
	return state + " " + city
}

// NormalizeShape maps empty shapes to "unknown" and lowercases the rest.
func NormalizeShape(shape string) string {
	shape = strings.TrimSpace(shape)
	if shape == "" {
		shape = UnknownShape
	}
	return strings.ToLower(shape)
}

// DetermineSeason returns the northern-hemisphere meteorological season.
func DetermineSeason(m time.Month) string {
	switch m {
	case time.December, time.January, time.February:
		return "winter"
	case time.March, time.April, time.May:
		return "spring"
	case time.June, time.July, time.August:
		return "summer"
	default:
		return "autumn"
	}
}

// Seasons lists season names in calendar order starting with winter.
var Seasons = []string{"winter", "spring", "summer", "autumn"}

// generateID hashes the raw row so the same report always gets the same ID,
// which keeps the Kafka sink idempotent across reruns.
func generateID(raw RawSighting) string {
	input := fmt.Sprintf("%s|%s|%s|%s|%s", raw.DateStr, raw.State, raw.City, raw.Shape, raw.Duration)
	hash := sha256.Sum256([]byte(input))
	return hex.EncodeToString(hash[:8])
}
