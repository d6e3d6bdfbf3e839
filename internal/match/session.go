// Package match owns the session state (dataset, user location, persisted
// results) and answers the nearby, upcoming and all queries.
package match

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"blocosrj/internal/enrich"
	"blocosrj/internal/keys"
	"blocosrj/internal/metrics"
	"blocosrj/internal/models"
	"blocosrj/internal/storage"
	"blocosrj/pkg/geo"
	"blocosrj/pkg/tabular"
	"blocosrj/pkg/temporal"
)

const (
	DefaultNearbyRadiusKm = 2.0
	DefaultUpcomingWindow = 3 * time.Hour
)

var ErrLocationRequired = errors.New("match: an active user location is required for nearby search")

// Resolver is the geocoding capability used for enrichment and manual locations.
type Resolver interface {
	ResolveQuery(ctx context.Context, query string) (models.Place, error)
	ResolveBloco(ctx context.Context, address, neighborhood string) (models.Place, error)
}

type Options struct {
	RadiusKm float64
	Window   time.Duration
	Location *time.Location
	Now      func() time.Time
}

// Session is the explicit state of one user session. It is not safe for
// concurrent use; callers serialize operations.
type Session struct {
	ID string

	store    storage.Store
	resolver Resolver
	stations *StationFinder

	radiusKm float64
	window   time.Duration
	loc      *time.Location
	now      func() time.Time

	blocos   []models.Bloco
	enriched bool
	user     *models.UserLocation
}

// NewSession creates a session. resolver may be nil, in which case enrichment
// and manual location lookup are unavailable.
func NewSession(store storage.Store, resolver Resolver, stations []models.MetroStation, opts Options) *Session {
	s := &Session{
		ID:       uuid.NewString(),
		store:    store,
		resolver: resolver,
		stations: NewStationFinder(stations),
		radiusKm: opts.RadiusKm,
		window:   opts.Window,
		loc:      opts.Location,
		now:      opts.Now,
	}
	if s.radiusKm <= 0 {
		s.radiusKm = DefaultNearbyRadiusKm
	}
	if s.window <= 0 {
		s.window = DefaultUpcomingWindow
	}
	if s.loc == nil {
		s.loc = time.Local
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Load parses raw dataset text and replaces the session dataset. Records are
// de-duplicated by ID, first occurrence wins. It returns the number kept.
func (s *Session) Load(raw string) int {
	parsed, stats := tabular.ParseWithStats(raw)
	metrics.DatasetRows.WithLabelValues("blank").Add(float64(stats.Blank))
	metrics.DatasetRows.WithLabelValues("invalid").Add(float64(stats.Invalid))

	s.SetBlocos(parsed)
	if stats.Invalid > 0 {
		log.Printf("Dropped %d rows missing name, address or start time", stats.Invalid)
	}
	return len(s.blocos)
}

// SetBlocos replaces the dataset with already parsed records.
func (s *Session) SetBlocos(blocos []models.Bloco) {
	seen := make(map[string]struct{}, len(blocos))
	kept := make([]models.Bloco, 0, len(blocos))
	for _, b := range blocos {
		if b.ID == "" {
			b.ID = models.BlocoID(b.Name, b.Date, b.StartTime, b.Address)
		}
		if _, dup := seen[b.ID]; dup {
			log.Printf("Skipping duplicate bloco %q (%s %s)", b.Name, b.Date, b.StartTime)
			metrics.DatasetRows.WithLabelValues("duplicate").Inc()
			continue
		}
		seen[b.ID] = struct{}{}
		kept = append(kept, b)
	}
	metrics.DatasetRows.WithLabelValues("kept").Add(float64(len(kept)))
	s.blocos = kept
	s.enriched = false
}

// Blocos returns a copy of the current dataset.
func (s *Session) Blocos() []models.Bloco {
	out := make([]models.Bloco, len(s.blocos))
	copy(out, s.blocos)
	return out
}

// Enrich fills missing coordinates through the resolver, one record at a time.
// Records that already carry coordinates are left untouched. A record that
// cannot be resolved is kept with ApproximateLocation set.
//
// A run cut short by ctx is not remembered: the next query enriches again and
// only retries the records still missing coordinates.
func (s *Session) Enrich(ctx context.Context) enrich.Report {
	if s.resolver == nil {
		s.enriched = true
		return enrich.Report{Items: len(s.blocos)}
	}
	p := enrich.NewPipeline(enrich.NewStage[models.Bloco]("geocode", s.geocodeStep))
	rep := p.Run(ctx, s.blocos)
	if ctx.Err() != nil {
		log.Printf("Enrichment interrupted: %v", ctx.Err())
		return rep
	}
	s.enriched = true
	if rep.Failures > 0 {
		log.Printf("Enrichment finished: %d blocos, %d without coordinates", rep.Items, rep.Failures)
	}
	return rep
}

func (s *Session) geocodeStep(ctx context.Context, b *models.Bloco) error {
	if b.HasCoordinates() {
		return nil
	}
	b.ApproximateLocation = true
	place, err := s.resolver.ResolveBloco(ctx, b.Address, b.Neighborhood)
	if err != nil {
		b.Latitude, b.Longitude = nil, nil
		return fmt.Errorf("geocode %q: %w", b.Name, err)
	}
	b.SetCoordinates(place.Coordinates)
	return nil
}

func (s *Session) ensureEnriched(ctx context.Context) {
	if !s.enriched {
		s.Enrich(ctx)
	}
}

// SetLocation makes loc the active reference point and persists it.
func (s *Session) SetLocation(ctx context.Context, loc models.UserLocation) error {
	if !finite(loc.Lat) || !finite(loc.Lon) {
		return fmt.Errorf("match: invalid coordinates %v,%v", loc.Lat, loc.Lon)
	}
	loc.SessionID = s.ID
	loc.UpdatedAt = s.now()
	s.user = &loc
	if err := storage.SetJSON(ctx, s.store, keys.Location, loc); err != nil {
		log.Printf("Failed to persist user location: %v", err)
	}
	return nil
}

// RestoreLocation activates the last persisted location, tagged as saved.
func (s *Session) RestoreLocation(ctx context.Context) (models.UserLocation, bool) {
	var loc models.UserLocation
	if err := storage.GetJSON(ctx, s.store, keys.Location, &loc); err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			log.Printf("Failed to restore user location: %v", err)
		}
		return models.UserLocation{}, false
	}
	if !finite(loc.Lat) || !finite(loc.Lon) {
		return models.UserLocation{}, false
	}
	loc.Source = models.SourceSaved
	s.user = &loc
	return loc, true
}

// LocateManually geocodes a typed query and makes it the active location.
func (s *Session) LocateManually(ctx context.Context, query string) (models.UserLocation, error) {
	if s.resolver == nil {
		return models.UserLocation{}, errors.New("match: no geocoder configured")
	}
	place, err := s.resolver.ResolveQuery(ctx, query)
	if err != nil {
		return models.UserLocation{}, err
	}
	loc := models.UserLocation{
		Coordinates: place.Coordinates,
		Source:      models.ManualSource(query),
		Label:       place.Label,
	}
	if err := s.SetLocation(ctx, loc); err != nil {
		return models.UserLocation{}, err
	}
	return *s.user, nil
}

// Location returns the active user location, if any.
func (s *Session) Location() (models.UserLocation, bool) {
	if s.user == nil {
		return models.UserLocation{}, false
	}
	return *s.user, true
}

// Query dispatches on a mode name.
func (s *Session) Query(ctx context.Context, mode string) ([]models.MatchResult, error) {
	switch mode {
	case models.ModeNearby:
		return s.Nearby(ctx)
	case models.ModeUpcoming:
		return s.Upcoming(ctx), nil
	case models.ModeAll:
		return s.All(ctx), nil
	default:
		return nil, fmt.Errorf("match: unknown mode %q", mode)
	}
}

// Nearby lists blocos within the radius of the user location, closest first.
func (s *Session) Nearby(ctx context.Context) ([]models.MatchResult, error) {
	if s.user == nil {
		return nil, ErrLocationRequired
	}
	s.ensureEnriched(ctx)

	results := make([]models.MatchResult, 0)
	for i := range s.blocos {
		c, ok := s.blocos[i].Coordinates()
		if !ok {
			continue
		}
		d := geo.Between(s.user.Coordinates, c)
		if d > s.radiusKm {
			continue
		}
		r := s.annotate(&s.blocos[i])
		r.DistanceKm = &d
		results = append(results, r)
	}
	sort.SliceStable(results, func(i, j int) bool {
		return *results[i].DistanceKm < *results[j].DistanceKm
	})
	s.saveResults(ctx, models.ModeNearby, results)
	return results, nil
}

// Upcoming lists blocos starting within the window from now, earliest first.
func (s *Session) Upcoming(ctx context.Context) []models.MatchResult {
	s.ensureEnriched(ctx)

	start := s.now().In(s.loc)
	end := start.Add(s.window)
	var picked []timed
	for i := range s.blocos {
		t, ok := s.instant(&s.blocos[i])
		if !temporal.InWindow(t, ok, start, end) {
			continue
		}
		picked = append(picked, timed{at: t, result: s.annotate(&s.blocos[i])})
	}
	results := byStart(picked)
	s.saveResults(ctx, models.ModeUpcoming, results)
	return results
}

// All lists every bloco, earliest first. Unparseable start times are ranked at
// the Unix epoch, ahead of every carnival date.
func (s *Session) All(ctx context.Context) []models.MatchResult {
	s.ensureEnriched(ctx)

	picked := make([]timed, 0, len(s.blocos))
	for i := range s.blocos {
		t, ok := s.instant(&s.blocos[i])
		if !ok {
			t = unknownStart
		}
		picked = append(picked, timed{at: t, result: s.annotate(&s.blocos[i])})
	}
	results := byStart(picked)
	s.saveResults(ctx, models.ModeAll, results)
	return results
}

var unknownStart = time.Unix(0, 0)

type timed struct {
	at     time.Time
	result models.MatchResult
}

// byStart sorts stably by instant, keeping file order among equal instants.
func byStart(items []timed) []models.MatchResult {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].at.Before(items[j].at)
	})
	out := make([]models.MatchResult, len(items))
	for i, it := range items {
		out[i] = it.result
	}
	return out
}

func (s *Session) instant(b *models.Bloco) (time.Time, bool) {
	t, ok := temporal.ParseInstant(b.Date, b.StartTime, s.loc)
	if !ok {
		return time.Time{}, false
	}
	return t, true
}

func (s *Session) annotate(b *models.Bloco) models.MatchResult {
	r := models.MatchResult{Bloco: *b, NearestMetro: s.stations.Describe(b)}
	if s.user == nil {
		return r
	}
	if c, ok := b.Coordinates(); ok {
		d := geo.Between(s.user.Coordinates, c)
		r.DistanceKm = &d
	}
	return r
}

func (s *Session) saveResults(ctx context.Context, mode string, list []models.MatchResult) {
	metrics.Results.WithLabelValues(mode).Set(float64(len(list)))
	snap := models.ResultsSnapshot{Mode: mode, List: list, Timestamp: s.now(), SessionID: s.ID}
	if err := storage.SetJSON(ctx, s.store, keys.Results, snap); err != nil {
		log.Printf("Failed to persist %s results: %v", mode, err)
	}
}

// RestoreResults returns the last persisted result list.
func (s *Session) RestoreResults(ctx context.Context) (models.ResultsSnapshot, bool) {
	var snap models.ResultsSnapshot
	if err := storage.GetJSON(ctx, s.store, keys.Results, &snap); err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			log.Printf("Failed to restore results: %v", err)
		}
		return models.ResultsSnapshot{}, false
	}
	return snap, true
}

func (s *Session) ClearResults(ctx context.Context) error {
	return s.store.Remove(ctx, keys.Results)
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
