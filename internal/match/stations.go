package match

import (
	"strconv"

	"github.com/bluele/gcache"

	"blocosrj/internal/models"
	"blocosrj/pkg/geo"
)

const (
	metroPrefix       = "Descer no metrô: "
	metroUnknown      = "Descer no metrô: Indefinido"
	metroMissingPoint = "Metrô: coordenadas do bloco ausentes"
)

// StationFinder answers nearest-station lookups over a static station list and
// memoizes them per exact coordinate pair.
type StationFinder struct {
	stations []models.MetroStation
	memo     gcache.Cache
}

func NewStationFinder(stations []models.MetroStation) *StationFinder {
	return &StationFinder{
		stations: stations,
		memo:     gcache.New(4096).LRU().Build(),
	}
}

func (f *StationFinder) Len() int { return len(f.stations) }

func (f *StationFinder) Nearest(c models.Coordinates) (geo.Nearest, bool) {
	key := strconv.FormatFloat(c.Lat, 'g', -1, 64) + "," + strconv.FormatFloat(c.Lon, 'g', -1, 64)
	if v, err := f.memo.Get(key); err == nil {
		return v.(geo.Nearest), true
	}
	n, ok := geo.NearestStation(c, f.stations)
	if !ok {
		return geo.Nearest{}, false
	}
	_ = f.memo.Set(key, n)
	return n, true
}

// Describe renders the nearest-station hint shown next to a bloco.
func (f *StationFinder) Describe(b *models.Bloco) string {
	c, ok := b.Coordinates()
	if !ok {
		return metroMissingPoint
	}
	n, ok := f.Nearest(c)
	if !ok {
		return metroUnknown
	}
	return metroPrefix + n.Name
}
