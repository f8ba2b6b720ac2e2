// satdiag loads a TLE file and prints sub-points, pass predictions and the
// terminator span so the geometry pipeline can be eyeballed without the
// service running.
//
// Usage: satdiag [-lat 39.74 -lon -104.99 -alt 1609] [-n 5] [-hours 24] elements.tle
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/satview/satview/internal/passes"
	"github.com/satview/satview/internal/tle"
	"github.com/satview/satview/internal/track"
	"github.com/satview/satview/internal/transform"
)

func main() {
	lat := flag.Float64("lat", 39.7392, "observer latitude in degrees")
	lon := flag.Float64("lon", -104.9903, "observer longitude in degrees")
	alt := flag.Float64("alt", 1609, "observer altitude in metres")
	count := flag.Int("n", 5, "number of satellites to inspect")
	hours := flag.Float64("hours", 24, "pass prediction horizon in hours")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: satdiag [flags] elements.tle")
		os.Exit(2)
	}

	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))

	f, err := os.Open(flag.Arg(0))
	if err != nil {
		fmt.Fprintln(os.Stderr, "ERROR reading elements:", err)
		os.Exit(1)
	}
	entries, err := tle.Parse(f, logger)
	f.Close()
	if err != nil {
		fmt.Fprintln(os.Stderr, "ERROR parsing elements:", err)
		os.Exit(1)
	}
	fmt.Printf("Loaded %d element sets\n", len(entries))
	if len(entries) == 0 {
		os.Exit(1)
	}

	if *count > len(entries) {
		*count = len(entries)
	}
	subset := entries[:*count]
	now := time.Now().UTC()

	// Sub-points.
	tracker := track.New(slog.New(slog.NewTextHandler(os.Stderr, nil)))
	fmt.Printf("\nSub-points at %s:\n", now.Format(time.RFC3339))
	for _, e := range subset {
		sp := tracker.PositionAt(e.Line1, e.Line2, now)
		geo, _ := track.IsGeostationary(e.Line1, e.Line2)
		tag := ""
		if geo {
			tag = " [GEO]"
		}
		fmt.Printf("  NORAD %5d %-24s lat=%8.3f lon=%9.3f alt=%9.1f km v=%.2f km/s%s\n",
			e.NORADID, e.Name, sp.LatDeg, sp.LonDeg, sp.AltKm, sp.SpeedKmS, tag)
	}

	// Passes.
	fmt.Printf("\nPasses over (%.4f, %.4f) next %.0fh:\n", *lat, *lon, *hours)
	results := passes.Predict(context.Background(), passes.Request{
		Observer:     transform.NewObserverPosition(*lat, *lon, *alt),
		Entries:      subset,
		Start:        now,
		HorizonHours: *hours,
		MinElevation: 1,
		MaxPasses:    10,
	})

	totalPasses := 0
	for _, sat := range results {
		if sat.Error != "" {
			fmt.Printf("  NORAD %d: ERROR %s\n", sat.NORADID, sat.Error)
			continue
		}
		fmt.Printf("  NORAD %d: %d passes\n", sat.NORADID, len(sat.Passes))
		totalPasses += len(sat.Passes)
		for j, p := range sat.Passes {
			fmt.Printf("    pass %d: start=%s maxEl=%.1f° dur=%.0fs\n",
				j, p.StartTime.Format(time.RFC3339), p.MaxElevation, p.DurationSeconds)
		}
	}
	fmt.Printf("Total passes found: %d\n", totalPasses)

	// Terminator span.
	term := track.Terminator(now)
	if len(term) > 0 {
		first, last := term[0], term[len(term)-1]
		fmt.Printf("\nTerminator: %d points, poles at lat %.0f, lon span [%.1f, %.1f]\n",
			len(term), first.Lat, first.Lon, last.Lon)
	}
}
