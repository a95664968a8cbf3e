package main

import (
	"github.com/spf13/cobra"

	"github.com/couchcryptid/sightings-etl/internal/adapter/csvio"
	"github.com/couchcryptid/sightings-etl/internal/charts"
)

func (a *app) plotCmd() *cobra.Command {
	var outDir string
	cmd := &cobra.Command{
		Use:   "plot [processed.csv]",
		Short: "Render hour-of-day charts and a world map of sightings",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			in := a.outputPath("processed.csv")
			if len(args) == 1 {
				in = args[0]
			}
			if outDir == "" {
				outDir = a.cfg.OutputDir
			}

			sightings, err := csvio.ReadProcessedFile(in)
			if err != nil {
				return err
			}
			a.metrics.RowsRead.Add(float64(len(sightings)))

			_, err = charts.NewRenderer(outDir, a.cfg.H3Resolution, a.logger).RenderAll(sightings)
			return err
		},
	}
	cmd.Flags().StringVar(&outDir, "out", "", "directory for the PNG files (default OUTPUT_DIR)")
	return cmd
}
