// Package app wires configuration into the stores, resolver and dataset
// sources shared by the binaries.
package app

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"blocosrj/internal/config"
	"blocosrj/internal/dataset"
	"blocosrj/internal/match"
	"blocosrj/internal/models"
	"blocosrj/internal/storage"
	"blocosrj/pkg/location"
)

type App struct {
	Config   *config.Config
	Store    storage.Store
	Cache    *location.StoreCache
	Resolver *location.Resolver
	Fetcher  *dataset.Fetcher
	Stations []models.MetroStation
	Location *time.Location

	closers []func()
}

func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{Config: cfg}

	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	a.Location = loc

	store, closeStore, err := OpenStore(ctx, cfg.Storage)
	if err != nil {
		return nil, err
	}
	a.Store = store
	a.closers = append(a.closers, closeStore)

	var opts []dataset.Option
	if needsS3(cfg) {
		reader, err := dataset.S3FromEnv()
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("dataset s3 source: %w", err)
		}
		opts = append(opts, dataset.WithS3(reader))
	}
	a.Fetcher = dataset.NewFetcher(opts...)

	a.Stations, err = a.Fetcher.LoadStations(ctx, cfg.Stations.Source)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("load stations: %w", err)
	}

	a.Cache = location.LoadStoreCache(ctx, store)
	g := cfg.Geocoder
	a.Resolver = location.NewResolver(
		location.NewNominatim(g.BaseURL, g.UserAgent, g.Timeout),
		a.Cache,
		location.WithCity(g.City),
		location.WithRetry(location.RetryPolicy{Attempts: g.Attempts, InitialBackoff: g.InitialBackoff}),
	)
	return a, nil
}

func needsS3(cfg *config.Config) bool {
	return os.Getenv("MINIO_ENDPOINT") != "" ||
		strings.HasPrefix(cfg.Dataset.Source, "s3://") ||
		strings.HasPrefix(cfg.Stations.Source, "s3://")
}

// OpenStore opens the configured backend. The returned func releases it.
func OpenStore(ctx context.Context, cfg config.Storage) (storage.Store, func(), error) {
	noop := func() {}
	switch cfg.Backend {
	case "memory":
		return storage.NewMemoryStore(), noop, nil
	case "file":
		s, err := storage.NewFileStore(cfg.Dir)
		return s, noop, err
	case "s3":
		s, err := storage.NewS3Store(ctx, storage.S3ConfigFromEnv(cfg.Bucket, cfg.Prefix))
		return s, noop, err
	case "postgres":
		pool, err := storage.NewPostgresPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, noop, err
		}
		s, err := storage.NewPostgresStore(ctx, pool)
		if err != nil {
			pool.Close()
			return nil, noop, err
		}
		return s, pool.Close, nil
	default:
		return nil, noop, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

// NewSession starts a session over the shared store and resolver. A nil now
// uses the wall clock.
func (a *App) NewSession(now func() time.Time) *match.Session {
	return match.NewSession(a.Store, a.Resolver, a.Stations, match.Options{
		RadiusKm: a.Config.Matching.RadiusKm,
		Window:   a.Config.Matching.Window,
		Location: a.Location,
		Now:      now,
	})
}

// LoadDataset fetches the configured dataset into s.
func (a *App) LoadDataset(ctx context.Context, s *match.Session) (int, error) {
	raw, err := a.Fetcher.Fetch(ctx, a.Config.Dataset.Source)
	if err != nil {
		return 0, err
	}
	n := s.Load(string(raw))
	if n == 0 {
		log.Printf("Dataset %s has no usable blocos", a.Config.Dataset.Source)
	}
	return n, nil
}

func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
