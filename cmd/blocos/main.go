package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"time"

	"blocosrj/internal/app"
	"blocosrj/internal/config"
	"blocosrj/internal/env"
	"blocosrj/internal/logging"
	"blocosrj/internal/match"
	"blocosrj/internal/models"
	"blocosrj/pkg/graceful"
)

type options struct {
	configPath string
	mode       string
	lat, lon   string
	near       string
	now        string
	asJSON     bool
}

func main() {
	var opts options
	flag.StringVar(&opts.configPath, "config", "", "path to config.yml")
	flag.StringVar(&opts.mode, "mode", models.ModeAll, "nearby, upcoming, all, restore or clear")
	flag.StringVar(&opts.lat, "lat", "", "latitude of the current position")
	flag.StringVar(&opts.lon, "lon", "", "longitude of the current position")
	flag.StringVar(&opts.near, "near", "", "address or place to search around")
	flag.StringVar(&opts.now, "now", "", "reference time in RFC3339, defaults to the current time")
	flag.BoolVar(&opts.asJSON, "json", false, "print results as JSON")
	flag.Parse()

	logging.Init("")
	env.Load()

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, cancel := graceful.Context(context.Background())
	defer cancel()

	a, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize: %v", err)
	}
	defer a.Close()

	if err := run(ctx, a, opts, os.Stdout); err != nil {
		if errors.Is(err, match.ErrLocationRequired) {
			fmt.Fprintln(os.Stderr, "Nearby search needs a location: pass -lat/-lon or -near.")
		} else {
			log.Println(err)
		}
		a.Close()
		os.Exit(1)
	}
}

func run(ctx context.Context, a *app.App, opts options, out io.Writer) error {
	var now func() time.Time
	if opts.now != "" {
		t, err := time.Parse(time.RFC3339, opts.now)
		if err != nil {
			return fmt.Errorf("invalid -now: %w", err)
		}
		now = func() time.Time { return t }
	}
	s := a.NewSession(now)

	switch opts.mode {
	case "restore":
		snap, ok := s.RestoreResults(ctx)
		if !ok {
			return errors.New("no saved results")
		}
		return render(out, snap.Mode, snap.List, opts.asJSON)
	case "clear":
		return s.ClearResults(ctx)
	}

	if err := locate(ctx, s, opts); err != nil {
		return err
	}
	if _, err := a.LoadDataset(ctx, s); err != nil {
		return err
	}
	results, err := s.Query(ctx, opts.mode)
	if err != nil {
		return err
	}
	return render(out, opts.mode, results, opts.asJSON)
}

// locate picks the reference point: explicit coordinates, then a typed place,
// then the last saved location.
func locate(ctx context.Context, s *match.Session, opts options) error {
	switch {
	case opts.lat != "" || opts.lon != "":
		lat, err := strconv.ParseFloat(opts.lat, 64)
		if err != nil {
			return fmt.Errorf("invalid -lat: %w", err)
		}
		lon, err := strconv.ParseFloat(opts.lon, 64)
		if err != nil {
			return fmt.Errorf("invalid -lon: %w", err)
		}
		return s.SetLocation(ctx, models.UserLocation{
			Coordinates: models.Coordinates{Lat: lat, Lon: lon},
			Source:      models.SourceGPS,
		})
	case opts.near != "":
		loc, err := s.LocateManually(ctx, opts.near)
		if err != nil {
			return fmt.Errorf("could not find %q: %w", opts.near, err)
		}
		log.Printf("Using %s (%.5f, %.5f)", loc.Label, loc.Lat, loc.Lon)
		return nil
	default:
		if loc, ok := s.RestoreLocation(ctx); ok {
			log.Printf("Using saved location (%.5f, %.5f)", loc.Lat, loc.Lon)
		}
		return nil
	}
}

func render(out io.Writer, mode string, results []models.MatchResult, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(models.ResultsSnapshot{Mode: mode, List: results})
	}
	if len(results) == 0 {
		_, err := fmt.Fprintf(out, "Nenhum bloco encontrado (%s).\n", mode)
		return err
	}
	for _, r := range results {
		line := fmt.Sprintf("%s %s  %s | %s", r.Date, r.StartTime, r.Name, r.Address)
		if r.Neighborhood != "" {
			line += ", " + r.Neighborhood
		}
		if r.DistanceKm != nil {
			line += fmt.Sprintf(" | %.2f km", *r.DistanceKm)
		}
		if r.ApproximateLocation {
			line += " (aprox.)"
		}
		line += " | " + r.NearestMetro
		if _, err := fmt.Fprintln(out, line); err != nil {
			return err
		}
	}
	return nil
}
