// Package charts renders PNG summaries of processed sightings: hour-of-day
// frequencies overall, per season and per month, and a world scatter map.
package charts

import (
	"fmt"
	"image/color"
	"log/slog"
	"math"
	"path/filepath"
	"sort"
	"time"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/couchcryptid/sightings-etl/internal/domain"
)

// Output file names, relative to the renderer's directory.
const (
	HourOfDayFile = "hod.png"
	BySeasonFile  = "hod_by_season.png"
	ByMonthFile   = "hod_by_month.png"
	MapFile       = "map.png"
)

const (
	width  = 10 * vg.Inch
	height = 6 * vg.Inch
)

var seasonColors = map[string]color.Color{
	"winter": color.RGBA{B: 255, A: 255},
	"spring": color.RGBA{G: 128, A: 255},
	"summer": color.RGBA{R: 255, A: 255},
	"autumn": color.RGBA{R: 165, G: 42, B: 42, A: 255},
}

// Renderer writes the chart set into a directory.
type Renderer struct {
	dir          string
	h3Resolution int
	logger       *slog.Logger
}

// NewRenderer creates a Renderer writing into dir.
func NewRenderer(dir string, h3Resolution int, logger *slog.Logger) *Renderer {
	return &Renderer{dir: dir, h3Resolution: h3Resolution, logger: logger}
}

// RenderAll writes every chart and returns the paths written.
func (r *Renderer) RenderAll(sightings []domain.Sighting) ([]string, error) {
	shares := SeasonShares(sightings)
	for _, season := range domain.Seasons {
		r.logger.Info("season share", "season", season, "percent", shares[season])
	}

	mapPlot, err := r.mapPlot(sightings)
	if err != nil {
		return nil, err
	}

	charts := []struct {
		file string
		p    *plot.Plot
	}{
		{HourOfDayFile, hourOfDayPlot(ByHour(sightings))},
		{BySeasonFile, seasonPlot(BySeason(sightings))},
		{ByMonthFile, monthPlot(ByMonth(sightings))},
		{MapFile, mapPlot},
	}

	paths := make([]string, 0, len(charts))
	for _, c := range charts {
		path := filepath.Join(r.dir, c.file)
		if err := c.p.Save(width, height, path); err != nil {
			return paths, fmt.Errorf("save %s: %w", c.file, err)
		}
		r.logger.Info("chart written", "path", path)
		paths = append(paths, path)
	}
	return paths, nil
}

func hourOfDayPlot(counts HourCounts) *plot.Plot {
	p := newHourPlot("Sightings by hour of day", "sightings")
	mustAddLine(p, hourXYs(countsAsFloats(counts)), color.Black, "")
	return p
}

func seasonPlot(bySeason map[string]HourCounts) *plot.Plot {
	p := newHourPlot("Sightings by hour of day and season", "% of season")
	for _, season := range domain.Seasons {
		h, ok := bySeason[season]
		if !ok {
			continue
		}
		mustAddLine(p, hourXYs(h.Percentages()), seasonColors[season], season)
	}
	return p
}

func monthPlot(byMonth map[time.Month]HourCounts) *plot.Plot {
	p := newHourPlot("Sightings by hour of day and month", "sightings")
	months := make([]time.Month, 0, len(byMonth))
	for m := range byMonth {
		months = append(months, m)
	}
	sort.Slice(months, func(i, j int) bool { return months[i] < months[j] })

	for i, m := range months {
		t := 0.0
		if len(months) > 1 {
			t = float64(i) / float64(len(months)-1)
		}
		mustAddLine(p, hourXYs(countsAsFloats(byMonth[m])), summerColor(t), m.String())
	}
	return p
}

func (r *Renderer) mapPlot(sightings []domain.Sighting) (*plot.Plot, error) {
	points, err := ByCell(sightings, r.h3Resolution)
	if err != nil {
		return nil, err
	}

	p := plot.New()
	p.Title.Text = "Sighting locations"
	p.X.Label.Text = "longitude"
	p.Y.Label.Text = "latitude"
	p.X.Min, p.X.Max = -180, 180
	p.Y.Min, p.Y.Max = -90, 90
	p.Add(plotter.NewGrid())

	if len(points) == 0 {
		return p, nil
	}

	xys := make(plotter.XYs, len(points))
	for i, pt := range points {
		xys[i].X = pt.Center.Lon
		xys[i].Y = pt.Center.Lat
	}
	scatter, err := plotter.NewScatter(xys)
	if err != nil {
		return nil, fmt.Errorf("map scatter: %w", err)
	}
	scatter.GlyphStyleFunc = func(i int) draw.GlyphStyle {
		return draw.GlyphStyle{
			Color:  color.RGBA{B: 200, A: 160},
			Radius: markerRadius(points[i].Count),
			Shape:  draw.CircleGlyph{},
		}
	}
	p.Add(scatter)
	return p, nil
}

// markerRadius grows with the square root of the count so marker area is
// proportional to it.
func markerRadius(count int) vg.Length {
	r := 1.5 * math.Sqrt(float64(count))
	return vg.Points(math.Min(r, 20))
}

// summerColor follows matplotlib's "summer" colormap, t in [0, 1].
func summerColor(t float64) color.Color {
	return color.RGBA{
		R: uint8(255 * t),
		G: uint8(255 * (0.5 + 0.5*t)),
		B: 102,
		A: 255,
	}
}

func newHourPlot(title, yLabel string) *plot.Plot {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "hour of day"
	p.Y.Label.Text = yLabel
	p.X.Min, p.X.Max = 0, HoursPerDay-1
	p.Legend.Top = true
	p.Legend.Left = true
	p.Add(plotter.NewGrid())
	return p
}

// mustAddLine panics on NaN or Inf values.
func mustAddLine(p *plot.Plot, xys plotter.XYs, c color.Color, label string) {
	line, err := plotter.NewLine(xys)
	if err != nil {
		panic(err)
	}
	line.Color = c
	p.Add(line)
	if label != "" {
		p.Legend.Add(label, line)
	}
}

func hourXYs(values [HoursPerDay]float64) plotter.XYs {
	xys := make(plotter.XYs, HoursPerDay)
	for h, v := range values {
		xys[h].X = float64(h)
		xys[h].Y = v
	}
	return xys
}

func countsAsFloats(h HourCounts) [HoursPerDay]float64 {
	var out [HoursPerDay]float64
	for i, c := range h {
		out[i] = float64(c)
	}
	return out
}
