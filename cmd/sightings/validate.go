package main

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/sightings-etl/internal/adapter/csvio"
	"github.com/couchcryptid/sightings-etl/internal/domain"
)

// maxReported caps how many errors are printed per phase.
const maxReported = 20

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func (a *app) validateCmd() *cobra.Command {
	var processedPath, qgisPath string
	cmd := &cobra.Command{
		Use:   "validate <input.csv>",
		Short: "Check the convert outputs against their input table",
		Long: `validate re-reads the input table and the processed and QGIS tables written by
convert and checks row parity, derived fields, coordinates and the QGIS filter.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raws, err := csvio.ReadSightingsFile(args[0])
			if err != nil {
				return err
			}
			processed, err := csvio.ReadProcessedFile(a.outputPath(processedPath))
			if err != nil {
				return err
			}
			qgis, err := csvio.ReadQGISFile(a.outputPath(qgisPath))
			if err != nil {
				return err
			}

			phases := []*phase{
				validateRowParity(raws, processed),
				validateDerivedFields(processed),
				validateCoordinates(processed, a.cfg.H3Resolution),
				validateQGIS(processed, qgis),
			}
			if !report(cmd.OutOrStdout(), phases, len(raws), len(processed), len(qgis)) {
				return errors.New("validation failed")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&processedPath, "processed", "processed.csv", "processed table, relative to OUTPUT_DIR")
	cmd.Flags().StringVar(&qgisPath, "qgis", "processed_qgis.csv", "QGIS table, relative to OUTPUT_DIR")
	return cmd
}

func report(w io.Writer, phases []*phase, inputRows, processedRows, qgisRows int) bool {
	allPassed := true
	for _, p := range phases {
		status := "PASS"
		if !p.passed() {
			status = fmt.Sprintf("FAIL (%d errors)", len(p.errors))
			allPassed = false
		}
		fmt.Fprintf(w, "  %-24s %s\n", p.name, status)
	}
	fmt.Fprintf(w, "\nRecords: %d input, %d processed, %d qgis\n", inputRows, processedRows, qgisRows)

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Fprintf(w, "\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			if i == maxReported {
				fmt.Fprintf(w, "  ... and %d more\n", len(p.errors)-maxReported)
				break
			}
			fmt.Fprintf(w, "  %s\n", e)
		}
	}
	return allPassed
}

// validateRowParity checks that convert kept every input row, in order.
func validateRowParity(raws []domain.RawSighting, processed []domain.Sighting) *phase {
	p := &phase{name: "Row parity"}
	if len(raws) != len(processed) {
		p.errorf("input has %d rows, processed has %d", len(raws), len(processed))
	}
	for i := range min(len(raws), len(processed)) {
		raw, s := raws[i], processed[i]
		if raw.DateStr != s.DateStr || raw.City != s.City || raw.State != s.State {
			p.errorf("row %d: input (%q, %q, %q) vs processed (%q, %q, %q)",
				i+1, raw.DateStr, raw.City, raw.State, s.DateStr, s.City, s.State)
		}
	}
	return p
}

// validateDerivedFields recomputes every field convert derives from the raw text.
func validateDerivedFields(processed []domain.Sighting) *phase {
	p := &phase{name: "Derived fields"}
	for i, s := range processed {
		row := i + 1
		if want := domain.LocationKey(s.State, s.City); s.Location != want {
			p.errorf("row %d: location %q, want %q", row, s.Location, want)
		}
		if want := domain.NormalizeShape(s.RawShape); s.Shape != want {
			p.errorf("row %d: shape %q, want %q", row, s.Shape, want)
		}

		secs, ok := domain.ParseDuration(s.Duration)
		switch {
		case ok != (s.DurationSeconds != nil):
			p.errorf("row %d: duration %q parsed=%t but secs present=%t", row, s.Duration, ok, s.DurationSeconds != nil)
		case ok && *s.DurationSeconds != secs:
			p.errorf("row %d: secs %d, want %d", row, *s.DurationSeconds, secs)
		}

		if _, ok := domain.ParseStart(s.DateStr); ok != (s.Start != nil) {
			p.errorf("row %d: datestr %q parsed=%t but start present=%t", row, s.DateStr, ok, s.Start != nil)
		}

		wantEnd := s.Start != nil && s.DurationSeconds != nil
		switch {
		case wantEnd != (s.End != nil):
			p.errorf("row %d: end present=%t, want %t", row, s.End != nil, wantEnd)
		case wantEnd && !s.End.Equal(s.Start.Add(time.Duration(*s.DurationSeconds)*time.Second)):
			p.errorf("row %d: end %s is not start + %ds", row, s.End.Format(domain.StartLayout), *s.DurationSeconds)
		}

		if s.Start != nil {
			if want := domain.DetermineSeason(s.Start.Month()); s.Season != want {
				p.errorf("row %d: season %q, want %q", row, s.Season, want)
			}
		}
	}
	return p
}

// validateCoordinates checks ranges and that stored H3 cells contain their point.
func validateCoordinates(processed []domain.Sighting, h3Resolution int) *phase {
	p := &phase{name: "Coordinates"}
	for i, s := range processed {
		row := i + 1
		if s.Geo == nil {
			if s.H3Cell != "" {
				p.errorf("row %d: h3 cell %s without coordinates", row, s.H3Cell)
			}
			continue
		}
		if s.Geo.Lon < -180 || s.Geo.Lon > 180 || s.Geo.Lat < -90 || s.Geo.Lat > 90 {
			p.errorf("row %d: coordinates (%g, %g) out of range", row, s.Geo.Lon, s.Geo.Lat)
			continue
		}
		if s.H3Cell == "" {
			continue
		}
		if want, err := domain.CellFor(*s.Geo, h3Resolution); err != nil || want != s.H3Cell {
			p.errorf("row %d: h3 cell %s, want %s at resolution %d", row, s.H3Cell, want, h3Resolution)
		}
	}
	return p
}

// validateQGIS checks that the QGIS table holds exactly the complete rows.
func validateQGIS(processed []domain.Sighting, qgis []csvio.QGISRow) *phase {
	p := &phase{name: "QGIS export"}
	var want []csvio.QGISRow
	for _, s := range processed {
		if row, ok := csvio.NewQGISRow(s); ok {
			want = append(want, row)
		}
	}
	if len(want) != len(qgis) {
		p.errorf("qgis has %d rows, processed has %d complete rows", len(qgis), len(want))
		return p
	}
	for i := range want {
		if want[i] != qgis[i] {
			p.errorf("qgis row %d: got %+v, want %+v", i+1, qgis[i], want[i])
		}
		for _, cell := range []string{qgis[i].Start, qgis[i].End, qgis[i].Lon, qgis[i].Lat, qgis[i].Shape} {
			if cell == "" {
				p.errorf("qgis row %d: empty cell", i+1)
				break
			}
		}
	}
	return p
}
