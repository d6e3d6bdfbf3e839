package location

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"strconv"
	"strings"
	"time"

	"blocosrj/internal/keys"
	"blocosrj/internal/metrics"
	"blocosrj/internal/models"
)

var (
	// ErrNoMatch means the geocoder answered but had no usable candidate.
	ErrNoMatch = errors.New("location: no match")
	// ErrUnavailable means every attempt against the geocoder failed.
	ErrUnavailable = errors.New("location: geocoder unavailable")
)

// RetryPolicy bounds the attempts against the geocoder. The wait before attempt
// n+1 is InitialBackoff * 2^(n-1).
type RetryPolicy struct {
	Attempts       int
	InitialBackoff time.Duration
}

var DefaultRetry = RetryPolicy{Attempts: 3, InitialBackoff: time.Second}

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Resolver turns free-text addresses into coordinates, cache first.
type Resolver struct {
	geocoder Geocoder
	cache    Cache
	retry    RetryPolicy
	sleep    SleepFunc
	city     string
}

type Option func(*Resolver)

func WithRetry(p RetryPolicy) Option {
	return func(r *Resolver) {
		if p.Attempts > 0 {
			r.retry = p
		}
	}
}

func WithSleep(fn SleepFunc) Option {
	return func(r *Resolver) { r.sleep = fn }
}

// WithCity sets the suffix appended to bloco address queries.
func WithCity(city string) Option {
	return func(r *Resolver) { r.city = city }
}

func NewResolver(g Geocoder, c Cache, opts ...Option) *Resolver {
	r := &Resolver{
		geocoder: g,
		cache:    c,
		retry:    DefaultRetry,
		sleep:    sleepContext,
		city:     "Rio de Janeiro",
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ResolveQuery geocodes a location typed by the user.
func (r *Resolver) ResolveQuery(ctx context.Context, query string) (models.Place, error) {
	return r.resolve(ctx, keys.Query(query), query)
}

// ResolveBloco geocodes the concentration point of a bloco.
func (r *Resolver) ResolveBloco(ctx context.Context, address, neighborhood string) (models.Place, error) {
	q := r.BlocoQuery(address, neighborhood)
	return r.resolve(ctx, keys.Bloco(q), q)
}

// BlocoQuery builds "address, neighborhood, city", skipping empty parts.
func (r *Resolver) BlocoQuery(address, neighborhood string) string {
	parts := make([]string, 0, 3)
	for _, p := range []string{address, neighborhood, r.city} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

func (r *Resolver) resolve(ctx context.Context, key, query string) (models.Place, error) {
	if place, ok := r.cache.Get(key); ok {
		metrics.GeocodeLookups.WithLabelValues("cache_hit").Inc()
		return place, nil
	}

	candidates, err := r.search(ctx, query)
	if err != nil {
		metrics.GeocodeLookups.WithLabelValues("unavailable").Inc()
		return models.Place{}, err
	}

	place, ok := firstValid(candidates)
	if !ok {
		metrics.GeocodeLookups.WithLabelValues("no_match").Inc()
		return models.Place{}, fmt.Errorf("%w: %q", ErrNoMatch, query)
	}

	r.cache.Set(key, place)
	if err := r.cache.Persist(ctx); err != nil {
		log.Printf("Failed to persist geocode cache: %v", err)
	}
	metrics.GeocodeLookups.WithLabelValues("resolved").Inc()
	return place, nil
}

// search runs the bounded retry loop. Only request failures are retried.
func (r *Resolver) search(ctx context.Context, query string) ([]Candidate, error) {
	delay := r.retry.InitialBackoff
	var lastErr error
	for attempt := 1; attempt <= r.retry.Attempts; attempt++ {
		start := time.Now()
		candidates, err := r.geocoder.Search(ctx, query)
		metrics.GeocodeDuration.Observe(time.Since(start).Seconds())
		if err == nil {
			return candidates, nil
		}
		lastErr = err
		log.Printf("Geocode attempt %d/%d for %q failed: %v", attempt, r.retry.Attempts, query, err)
		if attempt == r.retry.Attempts {
			break
		}
		metrics.GeocodeRetries.Inc()
		if err := r.sleep(ctx, delay); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		delay *= 2
	}
	return nil, fmt.Errorf("%w: %q after %d attempts: %v", ErrUnavailable, query, r.retry.Attempts, lastErr)
}

// firstValid takes the first candidate; it is a miss unless both coordinates
// parse as finite numbers.
func firstValid(candidates []Candidate) (models.Place, bool) {
	if len(candidates) == 0 {
		return models.Place{}, false
	}
	c := candidates[0]
	lat, err := strconv.ParseFloat(strings.TrimSpace(c.Lat), 64)
	if err != nil || math.IsNaN(lat) || math.IsInf(lat, 0) {
		return models.Place{}, false
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(c.Lon), 64)
	if err != nil || math.IsNaN(lon) || math.IsInf(lon, 0) {
		return models.Place{}, false
	}
	return models.Place{Coordinates: models.Coordinates{Lat: lat, Lon: lon}, Label: c.Label}, true
}
