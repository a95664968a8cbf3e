package charts

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/sightings-etl/internal/domain"
)

func sightingAt(ts string, geo *domain.Coordinates) domain.Sighting {
	start, err := time.Parse(domain.StartLayout, ts)
	if err != nil {
		panic(err)
	}
	return domain.Sighting{Start: &start, Geo: geo}
}

func fixture() []domain.Sighting {
	austin := &domain.Coordinates{Lon: -97.7431, Lat: 30.2672}
	downtown := &domain.Coordinates{Lon: -97.7441, Lat: 30.2682}
	paris := &domain.Coordinates{Lon: 2.3522, Lat: 48.8566}
	return []domain.Sighting{
		sightingAt("2015-06-30 23:50:00", austin),
		sightingAt("2015-07-04 21:15:00", downtown),
		sightingAt("2015-07-04 21:45:00", paris),
		sightingAt("2015-01-10 06:00:00", nil),
		{Geo: austin}, // undated
	}
}

func TestByHour(t *testing.T) {
	h := ByHour(fixture())

	assert.Equal(t, 4, h.Total())
	assert.Equal(t, 1, h[23])
	assert.Equal(t, 2, h[21])
	assert.Equal(t, 1, h[6])
	assert.Equal(t, 0, h[12])
}

func TestHourCounts_Percentages(t *testing.T) {
	var h HourCounts
	h[0], h[12] = 1, 3

	pct := h.Percentages()
	assert.InDelta(t, 25, pct[0], 1e-9)
	assert.InDelta(t, 75, pct[12], 1e-9)

	var empty HourCounts
	assert.Equal(t, [HoursPerDay]float64{}, empty.Percentages())
}

func TestBySeason(t *testing.T) {
	bySeason := BySeason(fixture())

	assert.Equal(t, 3, bySeason["summer"].Total())
	assert.Equal(t, 1, bySeason["winter"].Total())
	_, ok := bySeason["spring"]
	assert.False(t, ok)
}

func TestSeasonShares(t *testing.T) {
	shares := SeasonShares(fixture())

	assert.InDelta(t, 75, shares["summer"], 1e-9)
	assert.InDelta(t, 25, shares["winter"], 1e-9)
	assert.Empty(t, SeasonShares(nil))
}

func TestByMonth(t *testing.T) {
	byMonth := ByMonth(fixture())

	assert.Len(t, byMonth, 3)
	assert.Equal(t, 2, byMonth[time.July][21])
	assert.Equal(t, 1, byMonth[time.June][23])
	assert.Equal(t, 1, byMonth[time.January][6])
}

func TestByCell_AggregatesNearbyPoints(t *testing.T) {
	points, err := ByCell(fixture(), domain.DefaultH3Resolution)
	require.NoError(t, err)

	// Austin appears twice and the downtown point shares its cell.
	require.Len(t, points, 2)
	assert.Equal(t, 3, points[0].Count)
	assert.Equal(t, 1, points[1].Count)
	assert.InDelta(t, 2.35, points[1].Center.Lon, 1.5)
	assert.InDelta(t, 48.86, points[1].Center.Lat, 1.5)
}

func TestByCell_InvalidResolution(t *testing.T) {
	_, err := ByCell(fixture(), 16)
	require.Error(t, err)
}

func TestSummerColor_Endpoints(t *testing.T) {
	r, g, b, _ := summerColor(0).RGBA()
	assert.Equal(t, []uint32{0, 127, 102}, []uint32{r >> 8, g >> 8, b >> 8})

	r, g, b, _ = summerColor(1).RGBA()
	assert.Equal(t, []uint32{255, 255, 102}, []uint32{r >> 8, g >> 8, b >> 8})
}

func TestRenderAll_WritesPNGs(t *testing.T) {
	dir := t.TempDir()
	r := NewRenderer(dir, domain.DefaultH3Resolution, slog.New(slog.NewTextHandler(io.Discard, nil)))

	paths, err := r.RenderAll(fixture())
	require.NoError(t, err)
	require.Len(t, paths, 4)

	pngMagic := []byte("\x89PNG\r\n\x1a\n")
	for _, name := range []string{HourOfDayFile, BySeasonFile, ByMonthFile, MapFile} {
		data, err := os.ReadFile(filepath.Join(dir, name))
		require.NoError(t, err, name)
		assert.True(t, bytes.HasPrefix(data, pngMagic), name)
	}
}

func TestRenderAll_NoSightings(t *testing.T) {
	r := NewRenderer(t.TempDir(), domain.DefaultH3Resolution, slog.New(slog.NewTextHandler(io.Discard, nil)))

	paths, err := r.RenderAll(nil)
	require.NoError(t, err)
	assert.Len(t, paths, 4)
}
