package models

import (
	"math"
	"strings"
)

// Bloco is a single Carnival street party read from the dataset.
type Bloco struct {
	ID           string   `json:"id"`
	Name         string   `json:"nome_bloco"`
	Address      string   `json:"endereco_concentracao"`
	Neighborhood string   `json:"bairro,omitempty"`
	Date         string   `json:"data"`
	StartTime    string   `json:"hora_concentracao"`
	Latitude     *float64 `json:"latitude"`
	Longitude    *float64 `json:"longitude"`
	// ApproximateLocation is set when coordinates were geocoded, or geocoding was
	// attempted and failed.
	ApproximateLocation bool `json:"approximate_location,omitempty"`
}

// BlocoID derives the de-duplication key of a bloco.
func BlocoID(name, date, startTime, address string) string {
	return strings.ToLower(strings.Join([]string{name, date, startTime, address}, "|"))
}

// HasCoordinates reports whether both coordinates are present and finite.
func (b *Bloco) HasCoordinates() bool {
	return b.Latitude != nil && b.Longitude != nil && isFinite(*b.Latitude) && isFinite(*b.Longitude)
}

// Coordinates returns the bloco position. ok is false when HasCoordinates is false.
func (b *Bloco) Coordinates() (c Coordinates, ok bool) {
	if !b.HasCoordinates() {
		return Coordinates{}, false
	}
	return Coordinates{Lat: *b.Latitude, Lon: *b.Longitude}, true
}

// SetCoordinates replaces the coordinates in place.
func (b *Bloco) SetCoordinates(c Coordinates) {
	lat, lon := c.Lat, c.Lon
	b.Latitude = &lat
	b.Longitude = &lon
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
