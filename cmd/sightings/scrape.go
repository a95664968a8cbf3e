package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/sightings-etl/internal/adapter/csvio"
	"github.com/couchcryptid/sightings-etl/internal/adapter/nuforc"
	"github.com/couchcryptid/sightings-etl/internal/domain"
)

func (a *app) scrapeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scrape [output.csv]",
		Short: "Fetch the latest monthly report pages into a sightings table",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := a.outputPath("sightings.csv")
			if len(args) == 1 {
				out = args[0]
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			scraper, err := nuforc.NewScraper(nuforc.Config{
				IndexURL: a.cfg.ScrapeIndexURL,
				BaseURL:  a.cfg.ScrapeBaseURL,
				Months:   a.cfg.ScrapeMonths,
				Timeout:  a.cfg.ScrapeTimeout,
			}, a.logger, a.metrics)
			if err != nil {
				return err
			}

			raws, err := scraper.Scrape(ctx)
			if err != nil {
				return err
			}

			withDuration := 0
			for _, raw := range raws {
				if _, ok := domain.ParseDuration(raw.Duration); ok {
					withDuration++
				}
			}
			a.logger.Info("scrape finished", "rows", len(raws), "with_duration", withDuration)

			if err := csvio.WriteScrapedFile(out, raws); err != nil {
				return err
			}
			a.metrics.RowsWritten.WithLabelValues("scraped").Add(float64(len(raws)))
			a.logger.Info("sightings table written", "path", out)
			return nil
		},
	}
}
