package geo

import "blocosrj/internal/models"

type Nearest struct {
	Name       string
	DistanceKm float64
}

// NearestStation scans stations linearly. ok is false when stations is empty or
// the point is not finite.
func NearestStation(point models.Coordinates, stations []models.MetroStation) (Nearest, bool) {
	if len(stations) == 0 || !finite(point) {
		return Nearest{}, false
	}
	var best Nearest
	for i, s := range stations {
		d := DistanceKm(point.Lat, point.Lon, s.Latitude, s.Longitude)
		if i == 0 || d < best.DistanceKm {
			best = Nearest{Name: s.Name, DistanceKm: d}
		}
	}
	return best, true
}
