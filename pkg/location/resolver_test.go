package location_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"blocosrj/internal/keys"
	"blocosrj/internal/models"
	"blocosrj/internal/storage"
	"blocosrj/pkg/location"
)

type fakeGeocoder struct {
	answers []fakeAnswer
	calls   []string
}

type fakeAnswer struct {
	candidates []location.Candidate
	err        error
}

func (f *fakeGeocoder) Search(_ context.Context, q string) ([]location.Candidate, error) {
	f.calls = append(f.calls, q)
	if len(f.answers) == 0 {
		return nil, errors.New("no scripted answer")
	}
	a := f.answers[0]
	if len(f.answers) > 1 {
		f.answers = f.answers[1:]
	}
	return a.candidates, a.err
}

type memCache struct {
	entries  map[string]models.Place
	sets     int
	persists int
}

func newMemCache() *memCache { return &memCache{entries: map[string]models.Place{}} }

func (m *memCache) Get(key string) (models.Place, bool) {
	p, ok := m.entries[key]
	return p, ok
}

func (m *memCache) Set(key string, p models.Place) {
	m.sets++
	m.entries[key] = p
}

func (m *memCache) Persist(context.Context) error {
	m.persists++
	return nil
}

type sleepRecorder struct{ waits []time.Duration }

func (s *sleepRecorder) sleep(_ context.Context, d time.Duration) error {
	s.waits = append(s.waits, d)
	return nil
}

var copacabana = location.Candidate{Lat: "-22.9711", Lon: "-43.1822", Label: "Copacabana"}

func TestResolver_RetriesThenGivesUp(t *testing.T) {
	geo := &fakeGeocoder{answers: []fakeAnswer{{err: errors.New("timeout")}}}
	cache := newMemCache()
	rec := &sleepRecorder{}
	r := location.NewResolver(geo, cache, location.WithSleep(rec.sleep))

	_, err := r.ResolveQuery(context.Background(), "Copacabana")
	if !errors.Is(err, location.ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
	if len(geo.calls) != 3 {
		t.Errorf("attempts = %d, want 3", len(geo.calls))
	}
	want := []time.Duration{time.Second, 2 * time.Second}
	if len(rec.waits) != len(want) {
		t.Fatalf("waits = %v, want %v", rec.waits, want)
	}
	for i := range want {
		if rec.waits[i] != want[i] {
			t.Errorf("wait[%d] = %v, want %v", i, rec.waits[i], want[i])
		}
	}
	if cache.sets != 0 || cache.persists != 0 {
		t.Errorf("cache written on failure: sets=%d persists=%d", cache.sets, cache.persists)
	}
}

func TestResolver_CacheHitSkipsNetwork(t *testing.T) {
	geo := &fakeGeocoder{answers: []fakeAnswer{{candidates: []location.Candidate{copacabana}}}}
	cache := newMemCache()
	rec := &sleepRecorder{}
	r := location.NewResolver(geo, cache, location.WithSleep(rec.sleep))

	first, err := r.ResolveQuery(context.Background(), "Copacabana")
	if err != nil {
		t.Fatalf("first resolve: %v", err)
	}
	second, err := r.ResolveQuery(context.Background(), "  COPACABANA ")
	if err != nil {
		t.Fatalf("second resolve: %v", err)
	}
	if len(geo.calls) != 1 {
		t.Errorf("geocoder calls = %d, want 1", len(geo.calls))
	}
	if len(rec.waits) != 0 {
		t.Errorf("unexpected backoff %v", rec.waits)
	}
	if first != second {
		t.Errorf("cached place = %+v, want %+v", second, first)
	}
	if cache.persists != 1 {
		t.Errorf("persists = %d, want 1", cache.persists)
	}
}

func TestResolver_RecoversOnSecondAttempt(t *testing.T) {
	geo := &fakeGeocoder{answers: []fakeAnswer{
		{err: errors.New("502")},
		{candidates: []location.Candidate{copacabana}},
	}}
	rec := &sleepRecorder{}
	r := location.NewResolver(geo, newMemCache(), location.WithSleep(rec.sleep))

	p, err := r.ResolveQuery(context.Background(), "Copacabana")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if p.Lat != -22.9711 || p.Lon != -43.1822 {
		t.Errorf("place = %+v", p)
	}
	if len(rec.waits) != 1 || rec.waits[0] != time.Second {
		t.Errorf("waits = %v, want [1s]", rec.waits)
	}
}

func TestResolver_InvalidCandidatesAreMisses(t *testing.T) {
	tests := []struct {
		name       string
		candidates []location.Candidate
	}{
		{name: "no candidates"},
		{name: "non numeric", candidates: []location.Candidate{{Lat: "abc", Lon: "-43.1"}}},
		{name: "nan", candidates: []location.Candidate{{Lat: "NaN", Lon: "-43.1"}}},
		{name: "infinite", candidates: []location.Candidate{{Lat: "-22.9", Lon: "Inf"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			geo := &fakeGeocoder{answers: []fakeAnswer{{candidates: tt.candidates}}}
			cache := newMemCache()
			rec := &sleepRecorder{}
			r := location.NewResolver(geo, cache, location.WithSleep(rec.sleep))

			_, err := r.ResolveQuery(context.Background(), "Lapa")
			if !errors.Is(err, location.ErrNoMatch) {
				t.Fatalf("err = %v, want ErrNoMatch", err)
			}
			if len(geo.calls) != 1 || len(rec.waits) != 0 {
				t.Errorf("calls=%d waits=%v, want a single attempt", len(geo.calls), rec.waits)
			}
			if cache.sets != 0 {
				t.Errorf("miss was cached")
			}
		})
	}
}

func TestResolver_BlocoQueryAndNamespace(t *testing.T) {
	geo := &fakeGeocoder{answers: []fakeAnswer{{candidates: []location.Candidate{copacabana}}}}
	cache := newMemCache()
	r := location.NewResolver(geo, cache, location.WithCity("Rio de Janeiro"))

	if _, err := r.ResolveBloco(context.Background(), "Av. Atlântica", "Copacabana"); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if geo.calls[0] != "Av. Atlântica, Copacabana, Rio de Janeiro" {
		t.Errorf("query = %q", geo.calls[0])
	}
	if _, ok := cache.entries[keys.Bloco("Av. Atlântica, Copacabana, Rio de Janeiro")]; !ok {
		t.Errorf("bloco entry missing, have %v", cache.entries)
	}
	if got := r.BlocoQuery("Rua X", ""); got != "Rua X, Rio de Janeiro" {
		t.Errorf("BlocoQuery without neighborhood = %q", got)
	}
}

func TestResolver_ContextCancelledDuringBackoff(t *testing.T) {
	geo := &fakeGeocoder{answers: []fakeAnswer{{err: errors.New("down")}}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := location.NewResolver(geo, newMemCache(), location.WithRetry(location.RetryPolicy{Attempts: 3, InitialBackoff: time.Hour}))

	_, err := r.ResolveQuery(ctx, "Centro")
	if !errors.Is(err, location.ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
	if len(geo.calls) != 1 {
		t.Errorf("calls = %d, want 1", len(geo.calls))
	}
}

func TestStoreCache_PersistsAndRestores(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()

	c := location.LoadStoreCache(ctx, store)
	if c.Len() != 0 {
		t.Fatalf("fresh cache len = %d", c.Len())
	}
	place := models.Place{Coordinates: models.Coordinates{Lat: -22.9, Lon: -43.2}, Label: "Centro"}
	c.Set(keys.Query("Centro"), place)
	if err := c.Persist(ctx); err != nil {
		t.Fatalf("persist: %v", err)
	}

	restored := location.LoadStoreCache(ctx, store)
	got, ok := restored.Get(keys.Query("centro"))
	if !ok || got != place {
		t.Errorf("restored = %+v, %v; want %+v", got, ok, place)
	}
}

func TestStoreCache_UnreadableSnapshotStartsEmpty(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	if err := store.Set(ctx, keys.GeocodeSnapshot, []byte("not json")); err != nil {
		t.Fatal(err)
	}
	if c := location.LoadStoreCache(ctx, store); c.Len() != 0 {
		t.Errorf("len = %d, want 0", c.Len())
	}
}
