package dataset

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"

	"blocosrj/internal/models"
)

//go:embed stations_rio.json
var rioStations []byte

// DefaultStations returns the embedded Rio de Janeiro metro station list.
func DefaultStations() []models.MetroStation {
	stations, err := DecodeStations(rioStations)
	if err != nil {
		panic(fmt.Sprintf("embedded station list: %v", err))
	}
	return stations
}

// DecodeStations reads a JSON array of {name, latitude, longitude}.
func DecodeStations(data []byte) ([]models.MetroStation, error) {
	var stations []models.MetroStation
	if err := json.Unmarshal(data, &stations); err != nil {
		return nil, fmt.Errorf("decode stations: %w", err)
	}
	return stations, nil
}

// LoadStations fetches source, or falls back to the embedded list when source
// is empty.
func (f *Fetcher) LoadStations(ctx context.Context, source string) ([]models.MetroStation, error) {
	if source == "" {
		return DefaultStations(), nil
	}
	data, err := f.Fetch(ctx, source)
	if err != nil {
		return nil, err
	}
	return DecodeStations(data)
}
