package models

import "time"

type Coordinates struct {
	Lat float64 `json:"latitude"`
	Lon float64 `json:"longitude"`
}

// Place is a geocoded position, the value of a geocode cache entry.
type Place struct {
	Coordinates
	Label string `json:"label,omitempty"` // e.g., Nominatim display_name
}

type MetroStation struct {
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Location sources.
const (
	SourceGPS    = "GPS"
	SourceSaved  = "saved"
	manualPrefix = "manual: "
)

// ManualSource builds the source tag of a location typed by the user.
func ManualSource(query string) string {
	return manualPrefix + query
}

// UserLocation is the single active reference point for distance computations.
type UserLocation struct {
	Coordinates
	Source    string    `json:"source"`
	Label     string    `json:"label,omitempty"`
	SessionID string    `json:"session_id,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}
