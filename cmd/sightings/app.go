package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/spf13/cobra"

	"github.com/couchcryptid/sightings-etl/internal/adapter/google"
	"github.com/couchcryptid/sightings-etl/internal/adapter/httpadapter"
	"github.com/couchcryptid/sightings-etl/internal/adapter/nominatim"
	"github.com/couchcryptid/sightings-etl/internal/config"
	"github.com/couchcryptid/sightings-etl/internal/domain"
	"github.com/couchcryptid/sightings-etl/internal/observability"
)

// app carries what every subcommand needs once the root pre-run has loaded it.
type app struct {
	newMetrics func() *observability.Metrics

	cfg     *config.Config
	logger  *slog.Logger
	metrics *observability.Metrics
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "sightings",
		Short: "Scrape, geocode and plot NUFORC UFO sighting reports",
		Long: `sightings turns the NUFORC monthly report pages into GIS-ready tables.

  scrape   fetch the latest monthly pages into a sightings CSV
  convert  parse dates and durations, geocode locations, write the result tables
  plot     render hour-of-day charts and a world map from the processed table
  validate check the convert outputs against their input table

Settings are read from the environment (LOG_LEVEL, GEOCODER_PROVIDER, OUTPUT_DIR, ...).`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			a.cfg = cfg
			a.logger = sharedobs.NewLogger(cfg.LogLevel, cfg.LogFormat)
			a.metrics = a.newMetrics()
			return nil
		},
	}
	root.AddCommand(a.scrapeCmd(), a.convertCmd(), a.plotCmd(), a.validateCmd())
	return root
}

// writeTextfile dumps the metrics for node_exporter when METRICS_TEXTFILE is set.
func (a *app) writeTextfile() {
	if a.cfg == nil || a.cfg.MetricsTextfile == "" {
		return
	}
	if err := observability.WriteTextfile(a.cfg.MetricsTextfile); err != nil {
		a.logger.Error("write metrics textfile", "path", a.cfg.MetricsTextfile, "error", err)
		return
	}
	a.logger.Info("metrics written", "path", a.cfg.MetricsTextfile)
}

// newGeocoder selects the provider named by GEOCODER_PROVIDER.
func (a *app) newGeocoder() (domain.Geocoder, error) {
	switch a.cfg.Provider {
	case config.ProviderGoogle:
		client, err := google.NewClient(a.cfg.GoogleAPIKey, int(math.Ceil(a.cfg.GeocoderRateLimit)), a.logger)
		if err != nil {
			return nil, err
		}
		return client, nil
	case config.ProviderNominatim:
		return nominatim.NewClient(a.cfg.NominatimURL, a.cfg.NominatimUserAgent,
			a.cfg.GeocoderTimeout, a.cfg.GeocoderRateLimit, a.logger), nil
	default:
		return nil, fmt.Errorf("unknown geocoder provider %q", a.cfg.Provider)
	}
}

// startServer serves health, status and metrics while a run is in progress.
// The returned function shuts the server down. It is a no-op when HTTP_ADDR is unset.
func (a *app) startServer(ready sharedobs.ReadinessChecker, status httpadapter.StatusReporter) func() {
	if a.cfg.HTTPAddr == "" {
		return func() {}
	}
	srv := httpadapter.NewServer(a.cfg.HTTPAddr, ready, status, a.logger)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("http server error", "error", err)
		}
	}()
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			a.logger.Error("http server shutdown error", "error", err)
		}
	}
}
