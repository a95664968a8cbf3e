package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"

	"github.com/couchcryptid/sightings-etl/internal/domain"
	"github.com/couchcryptid/sightings-etl/internal/observability"
)

// Extractor reads every raw sighting from the source.
type Extractor interface {
	Extract(ctx context.Context) ([]domain.RawSighting, error)
}

// Transformer converts a raw sighting into an enriched one. It never fails:
// fields that cannot be derived are left absent.
type Transformer interface {
	Transform(ctx context.Context, raw domain.RawSighting) domain.Sighting
}

// BatchLoader writes the processed sightings to one destination and reports
// how many rows it actually wrote.
type BatchLoader interface {
	Name() string
	LoadBatch(ctx context.Context, sightings []domain.Sighting) (int, error)
}

// Pipeline orchestrates one extract-transform-load run.
type Pipeline struct {
	extractor   Extractor
	transformer Transformer
	loaders     []BatchLoader
	logger      *slog.Logger
	metrics     *observability.Metrics
	ready       atomic.Bool
	total       atomic.Int64
	processed   atomic.Int64
}

// Status is a point-in-time view of a run.
type Status struct {
	Rows      int64 `json:"rows"`
	Processed int64 `json:"processed"`
	Done      bool  `json:"done"`
}

// New creates a Pipeline with the given stages and observability.
func New(e Extractor, t Transformer, loaders []BatchLoader, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	return &Pipeline{
		extractor:   e,
		transformer: t,
		loaders:     loaders,
		logger:      logger,
		metrics:     metrics,
	}
}

// CheckReadiness returns nil once a run has loaded every sink.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("pipeline has not completed a run yet")
	}
	return nil
}

// Status reports progress. Safe to call from another goroutine.
func (p *Pipeline) Status() any {
	return Status{
		Rows:      p.total.Load(),
		Processed: p.processed.Load(),
		Done:      p.ready.Load(),
	}
}

// Run extracts all rows, transforms them one at a time and hands the result
// to every loader in order. Cancelling ctx stops the transform loop; nothing
// is loaded and ctx's error is returned.
func (p *Pipeline) Run(ctx context.Context) error {
	start := time.Now()
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	raws, err := p.extractor.Extract(ctx)
	if err != nil {
		return fmt.Errorf("extract: %w", err)
	}
	p.metrics.RowsRead.Add(float64(len(raws)))
	p.total.Store(int64(len(raws)))
	p.logger.Info("pipeline started", "rows", len(raws), "sinks", len(p.loaders))

	sightings, err := p.transformAll(ctx, raws)
	if err != nil {
		return err
	}

	for _, l := range p.loaders {
		n, err := l.LoadBatch(ctx, sightings)
		if err != nil {
			return fmt.Errorf("load %s: %w", l.Name(), err)
		}
		p.metrics.RowsWritten.WithLabelValues(l.Name()).Add(float64(n))
		p.logger.Info("sink written", "sink", l.Name(), "rows", n)
	}

	p.metrics.RunDuration.Observe(time.Since(start).Seconds())
	p.ready.Store(true)
	p.logger.Info("pipeline finished", "rows", len(sightings), "duration", time.Since(start))
	return nil
}

func (p *Pipeline) transformAll(ctx context.Context, raws []domain.RawSighting) ([]domain.Sighting, error) {
	bar := newProgressBar(len(raws))
	out := make([]domain.Sighting, 0, len(raws))
	for i, raw := range raws {
		if err := ctx.Err(); err != nil {
			p.logger.Info("pipeline stopping", "reason", err, "processed", i)
			return nil, err
		}
		out = append(out, p.transformer.Transform(ctx, raw))
		p.processed.Add(1)
		if bar != nil {
			_ = bar.Add(1)
		}
	}
	if bar != nil {
		_ = bar.Finish()
	}
	return out, nil
}

// newProgressBar returns nil when stderr is not a terminal.
func newProgressBar(n int) *progressbar.ProgressBar {
	if !isatty.IsTerminal(os.Stderr.Fd()) {
		return nil
	}
	return progressbar.NewOptions(n,
		progressbar.OptionSetDescription("Converting sightings"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
}
