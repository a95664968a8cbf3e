// Command sightings scrapes, converts and plots public UFO sighting reports.
package main

import (
	"log/slog"
	"os"

	"github.com/couchcryptid/sightings-etl/internal/observability"
)

func main() {
	a := &app{newMetrics: observability.NewMetrics}
	err := a.rootCmd().Execute()
	a.writeTextfile()
	if err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}
