package models

import "time"

// Query modes.
const (
	ModeNearby   = "nearby"
	ModeUpcoming = "upcoming"
	ModeAll      = "all"
)

// MatchResult is a bloco annotated for presentation. DistanceKm is nil when either
// the user location or the bloco coordinates are unknown.
type MatchResult struct {
	Bloco
	DistanceKm   *float64 `json:"distance_km"`
	NearestMetro string   `json:"metro"`
}

// ResultsSnapshot is the last rendered list, persisted for fast restore.
type ResultsSnapshot struct {
	Mode      string        `json:"mode"`
	List      []MatchResult `json:"list"`
	Timestamp time.Time     `json:"timestamp"`
	SessionID string        `json:"session_id,omitempty"`
}
