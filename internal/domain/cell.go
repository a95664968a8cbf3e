package domain

import (
	"fmt"

	"github.com/uber/h3-go/v4"
)

// DefaultH3Resolution groups sightings into cells roughly 12,000 km² in area,
// coarse enough that nearby towns share a cell on the world map.
const DefaultH3Resolution = 3

// CellFor returns the H3 index (hex string) containing the point.
func CellFor(c Coordinates, resolution int) (string, error) {
	cell, err := h3.LatLngToCell(h3.NewLatLng(c.Lat, c.Lon), resolution)
	if err != nil {
		return "", fmt.Errorf("h3 cell at res %d: %w", resolution, err)
	}
	return cell.String(), nil
}

// CellCenter returns the center of the H3 cell containing the point.
func CellCenter(c Coordinates, resolution int) (Coordinates, error) {
	cell, err := h3.LatLngToCell(h3.NewLatLng(c.Lat, c.Lon), resolution)
	if err != nil {
		return Coordinates{}, fmt.Errorf("h3 cell at res %d: %w", resolution, err)
	}
	center, err := h3.CellToLatLng(cell)
	if err != nil {
		return Coordinates{}, fmt.Errorf("h3 cell center: %w", err)
	}
	return Coordinates{Lon: center.Lng, Lat: center.Lat}, nil
}
