package charts

import (
	"sort"
	"time"

	"github.com/couchcryptid/sightings-etl/internal/domain"
)

// HoursPerDay is the length of every hour-of-day series.
const HoursPerDay = 24

// HourCounts is a sighting frequency per hour of day (0-23).
type HourCounts [HoursPerDay]int

// Total returns the number of sightings counted.
func (h HourCounts) Total() int {
	n := 0
	for _, c := range h {
		n += c
	}
	return n
}

// Percentages normalizes the counts so they sum to 100. All zeros when empty.
func (h HourCounts) Percentages() [HoursPerDay]float64 {
	var out [HoursPerDay]float64
	total := h.Total()
	if total == 0 {
		return out
	}
	for i, c := range h {
		out[i] = float64(c) * 100 / float64(total)
	}
	return out
}

// ByHour counts sightings by the hour of their start time. Sightings without
// a start are skipped.
func ByHour(sightings []domain.Sighting) HourCounts {
	var h HourCounts
	for _, s := range sightings {
		if s.Start != nil {
			h[s.Start.Hour()]++
		}
	}
	return h
}

// BySeason splits the hour-of-day counts by meteorological season.
func BySeason(sightings []domain.Sighting) map[string]HourCounts {
	out := make(map[string]HourCounts, len(domain.Seasons))
	for _, s := range sightings {
		if s.Start == nil {
			continue
		}
		season := domain.DetermineSeason(s.Start.Month())
		h := out[season]
		h[s.Start.Hour()]++
		out[season] = h
	}
	return out
}

// ByMonth splits the hour-of-day counts by calendar month.
func ByMonth(sightings []domain.Sighting) map[time.Month]HourCounts {
	out := make(map[time.Month]HourCounts)
	for _, s := range sightings {
		if s.Start == nil {
			continue
		}
		h := out[s.Start.Month()]
		h[s.Start.Hour()]++
		out[s.Start.Month()] = h
	}
	return out
}

// SeasonShares returns each season's percentage of all dated sightings.
func SeasonShares(sightings []domain.Sighting) map[string]float64 {
	bySeason := BySeason(sightings)
	total := 0
	for _, h := range bySeason {
		total += h.Total()
	}
	out := make(map[string]float64, len(bySeason))
	if total == 0 {
		return out
	}
	for season, h := range bySeason {
		out[season] = float64(h.Total()) * 100 / float64(total)
	}
	return out
}

// CellPoint is one H3 cell on the map with the number of sightings in it.
type CellPoint struct {
	Cell   string
	Center domain.Coordinates
	Count  int
}

// ByCell aggregates geocoded sightings into H3 cells at the given resolution.
// Points are ordered by descending count, then by cell.
func ByCell(sightings []domain.Sighting, resolution int) ([]CellPoint, error) {
	index := make(map[string]int)
	var points []CellPoint
	for _, s := range sightings {
		if s.Geo == nil {
			continue
		}
		cell, err := domain.CellFor(*s.Geo, resolution)
		if err != nil {
			return nil, err
		}
		if i, ok := index[cell]; ok {
			points[i].Count++
			continue
		}
		center, err := domain.CellCenter(*s.Geo, resolution)
		if err != nil {
			return nil, err
		}
		index[cell] = len(points)
		points = append(points, CellPoint{Cell: cell, Center: center, Count: 1})
	}
	sort.Slice(points, func(i, j int) bool {
		if points[i].Count != points[j].Count {
			return points[i].Count > points[j].Count
		}
		return points[i].Cell < points[j].Cell
	})
	return points, nil
}
