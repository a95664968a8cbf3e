package main

import (
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/sightings-etl/internal/adapter/csvio"
	"github.com/couchcryptid/sightings-etl/internal/adapter/gis"
	kafkaadapter "github.com/couchcryptid/sightings-etl/internal/adapter/kafka"
	"github.com/couchcryptid/sightings-etl/internal/geocache"
	"github.com/couchcryptid/sightings-etl/internal/pipeline"
)

type convertOptions struct {
	processed string
	qgis      string
	geojson   string
	shapefile string
}

func (a *app) convertCmd() *cobra.Command {
	opts := &convertOptions{}
	cmd := &cobra.Command{
		Use:   "convert <input.csv>",
		Short: "Parse, geocode and export a sightings table",
		Long: `convert reads a sightings CSV (datestr, city, state, shape, duration), parses
start times and durations, geocodes "state city" through the persistent geocode
cache and writes the processed, QGIS, GeoJSON and shapefile outputs.

The cache is saved on every exit path, including Ctrl-C.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runConvert(cmd, args[0], opts)
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.processed, "processed", "processed.csv", "processed table, relative to OUTPUT_DIR")
	f.StringVar(&opts.qgis, "qgis", "processed_qgis.csv", "QGIS table (complete rows only), relative to OUTPUT_DIR")
	f.StringVar(&opts.geojson, "geojson", "sightings.geojson", "GeoJSON output, relative to OUTPUT_DIR; empty disables")
	f.StringVar(&opts.shapefile, "shapefile", "sightings.shp", "shapefile output, relative to OUTPUT_DIR; empty disables")
	return cmd
}

func (a *app) runConvert(cmd *cobra.Command, input string, opts *convertOptions) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	geocoder, err := a.newGeocoder()
	if err != nil {
		return err
	}

	loaders := []pipeline.BatchLoader{
		csvio.NewProcessedSink(a.outputPath(opts.processed)),
		csvio.NewQGISSink(a.outputPath(opts.qgis)),
	}
	if opts.geojson != "" {
		loaders = append(loaders, gis.NewGeoJSONSink(a.outputPath(opts.geojson)))
	}
	if opts.shapefile != "" {
		loaders = append(loaders, gis.NewShapefileSink(a.outputPath(opts.shapefile)))
	}
	if a.cfg.KafkaEnabled() {
		w := kafkaadapter.NewWriter(a.cfg, a.logger)
		defer func() {
			if err := w.Close(); err != nil {
				a.logger.Error("kafka writer close error", "error", err)
			}
		}()
		loaders = append(loaders, w)
	}

	return geocache.Use(a.cfg.CachePath, a.logger, func(cache *geocache.Cache) error {
		resolver := geocache.NewResolver(cache, geocoder, a.cfg.Provider, a.logger, a.metrics)
		transformer := pipeline.NewTransformer(resolver, a.cfg.H3Resolution, a.logger, a.metrics)
		p := pipeline.New(csvio.NewFileExtractor(input), transformer, loaders, a.logger, a.metrics)

		stopServer := a.startServer(p, p)
		defer stopServer()

		err := p.Run(ctx)
		a.logger.Info("geocoding summary",
			"lookups", resolver.Lookups(),
			"cached_keys", cache.Len(),
			"resolved_keys", cache.Resolved(),
		)
		return err
	})
}

func (a *app) outputPath(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(a.cfg.OutputDir, name)
}
