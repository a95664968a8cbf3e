package csvio

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/gocarina/gocsv"

	"github.com/couchcryptid/sightings-etl/internal/domain"
)

// newReader tolerates ragged rows: short rows leave the trailing fields empty.
func newReader(in io.Reader) gocsv.CSVReader {
	r := csv.NewReader(in)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	return r
}

func unmarshal[T any](in io.Reader) ([]T, error) {
	var rows []T
	if err := gocsv.UnmarshalCSV(newReader(in), &rows); err != nil {
		if errors.Is(err, gocsv.ErrEmptyCSVFile) {
			return nil, nil
		}
		return nil, err
	}
	return rows, nil
}

// ReadSightings reads a sightings table. The duration column may be named
// "duration" or "duration_description"; extra columns such as "secs" are ignored.
func ReadSightings(in io.Reader) ([]domain.RawSighting, error) {
	rows, err := unmarshal[domain.RawSighting](in)
	if err != nil {
		return nil, fmt.Errorf("read sightings csv: %w", err)
	}
	return rows, nil
}

// ReadSightingsFile opens path and reads it with ReadSightings.
func ReadSightingsFile(path string) ([]domain.RawSighting, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open sightings table: %w", err)
	}
	defer f.Close()
	return ReadSightings(f)
}

// ReadProcessed reads a processed table back into sightings.
func ReadProcessed(in io.Reader) ([]domain.Sighting, error) {
	rows, err := unmarshal[ProcessedRow](in)
	if err != nil {
		return nil, fmt.Errorf("read processed csv: %w", err)
	}
	out := make([]domain.Sighting, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.Sighting())
	}
	return out, nil
}

// ReadProcessedFile opens path and reads it with ReadProcessed.
func ReadProcessedFile(path string) ([]domain.Sighting, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open processed table: %w", err)
	}
	defer f.Close()
	return ReadProcessed(f)
}

// ReadQGISFile reads a GIS-ready table.
func ReadQGISFile(path string) ([]QGISRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open qgis table: %w", err)
	}
	defer f.Close()
	rows, err := unmarshal[QGISRow](f)
	if err != nil {
		return nil, fmt.Errorf("read qgis csv: %w", err)
	}
	return rows, nil
}

// WriteScraped writes the scraper's output table.
func WriteScraped(out io.Writer, raws []domain.RawSighting) error {
	rows := make([]ScrapedRow, 0, len(raws))
	for _, raw := range raws {
		rows = append(rows, NewScrapedRow(raw))
	}
	return gocsv.Marshal(&rows, out)
}

// WriteScrapedFile creates path and writes raws to it.
func WriteScrapedFile(path string, raws []domain.RawSighting) error {
	return writeFile(path, func(w io.Writer) error { return WriteScraped(w, raws) })
}

// WriteProcessed writes every sighting, leaving absent values empty.
func WriteProcessed(out io.Writer, sightings []domain.Sighting) error {
	rows := make([]ProcessedRow, 0, len(sightings))
	for _, s := range sightings {
		rows = append(rows, NewProcessedRow(s))
	}
	return gocsv.Marshal(&rows, out)
}

// WriteQGIS writes the complete sightings only and returns how many were written.
func WriteQGIS(out io.Writer, sightings []domain.Sighting) (int, error) {
	rows := make([]QGISRow, 0, len(sightings))
	for _, s := range sightings {
		if row, ok := NewQGISRow(s); ok {
			rows = append(rows, row)
		}
	}
	return len(rows), gocsv.Marshal(&rows, out)
}

func writeFile(path string, write func(io.Writer) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", path, cerr)
		}
	}()
	if err := write(f); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// ProcessedSink writes the processed table to a file.
type ProcessedSink struct {
	path string
}

// NewProcessedSink creates a sink writing to path.
func NewProcessedSink(path string) *ProcessedSink {
	return &ProcessedSink{path: path}
}

func (s *ProcessedSink) Name() string { return "processed" }

// LoadBatch replaces the file with the given sightings.
func (s *ProcessedSink) LoadBatch(_ context.Context, sightings []domain.Sighting) (int, error) {
	err := writeFile(s.path, func(w io.Writer) error { return WriteProcessed(w, sightings) })
	if err != nil {
		return 0, err
	}
	return len(sightings), nil
}

// QGISSink writes the GIS-ready table to a file.
type QGISSink struct {
	path string
}

// NewQGISSink creates a sink writing to path.
func NewQGISSink(path string) *QGISSink {
	return &QGISSink{path: path}
}

func (s *QGISSink) Name() string { return "qgis" }

// LoadBatch replaces the file with the complete sightings.
func (s *QGISSink) LoadBatch(_ context.Context, sightings []domain.Sighting) (int, error) {
	var n int
	err := writeFile(s.path, func(w io.Writer) error {
		var err error
		n, err = WriteQGIS(w, sightings)
		return err
	})
	return n, err
}

// FileExtractor reads the input sightings table. It implements pipeline.Extractor.
type FileExtractor struct {
	path string
}

// NewFileExtractor creates an extractor for the table at path.
func NewFileExtractor(path string) *FileExtractor {
	return &FileExtractor{path: path}
}

func (e *FileExtractor) Extract(_ context.Context) ([]domain.RawSighting, error) {
	return ReadSightingsFile(e.path)
}
