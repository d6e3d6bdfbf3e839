package match

import (
	"testing"

	"blocosrj/internal/models"
)

func TestStationFinder_Describe(t *testing.T) {
	lat, lon := -22.9072, -43.1779
	withCoords := models.Bloco{Latitude: &lat, Longitude: &lon}

	tests := []struct {
		name     string
		stations []models.MetroStation
		bloco    models.Bloco
		want     string
	}{
		{name: "nearest", stations: stations, bloco: withCoords, want: "Descer no metrô: Carioca"},
		{name: "no coordinates", stations: stations, bloco: models.Bloco{}, want: "Metrô: coordenadas do bloco ausentes"},
		{name: "no stations", bloco: withCoords, want: "Descer no metrô: Indefinido"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewStationFinder(tt.stations)
			if got := f.Describe(&tt.bloco); got != tt.want {
				t.Errorf("Describe = %q, want %q", got, tt.want)
			}
			// memoized path
			if got := f.Describe(&tt.bloco); got != tt.want {
				t.Errorf("second Describe = %q, want %q", got, tt.want)
			}
		})
	}
}
