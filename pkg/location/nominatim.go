package location

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const DefaultNominatimURL = "https://nominatim.openstreetmap.org"

// Candidate is one geocoding answer. Coordinates stay textual until validated.
type Candidate struct {
	Lat   string
	Lon   string
	Label string
}

// Geocoder looks up a free-text query and returns candidates best first.
type Geocoder interface {
	Search(ctx context.Context, query string) ([]Candidate, error)
}

// NominatimResponse is shaped for the /search API response
type NominatimResponse []struct {
	PlaceID     int64   `json:"place_id"`
	OsmType     string  `json:"osm_type"`
	OsmID       int64   `json:"osm_id"`
	Lat         string  `json:"lat"`
	Lon         string  `json:"lon"`
	Class       string  `json:"class"`
	Type        string  `json:"type"`
	Importance  float64 `json:"importance"`
	Name        string  `json:"name"`
	DisplayName string  `json:"display_name"`
}

// Nominatim is a Geocoder backed by the OpenStreetMap Nominatim search API.
type Nominatim struct {
	httpClient     *http.Client
	baseURL        string
	userAgent      string
	acceptLanguage string
	countryCodes   string
}

type NominatimOption func(*Nominatim)

func WithHTTPClient(c *http.Client) NominatimOption {
	return func(n *Nominatim) { n.httpClient = c }
}

func NewNominatim(baseURL, userAgent string, timeout time.Duration, opts ...NominatimOption) *Nominatim {
	if baseURL == "" {
		baseURL = DefaultNominatimURL
	}
	n := &Nominatim{
		httpClient:     &http.Client{Timeout: timeout},
		baseURL:        strings.TrimRight(baseURL, "/"),
		userAgent:      userAgent,
		acceptLanguage: "pt-BR",
		countryCodes:   "br",
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Search issues one request. Transport failures and non-2xx answers are errors;
// an empty candidate list is not.
func (n *Nominatim) Search(ctx context.Context, query string) ([]Candidate, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "json")
	params.Set("limit", "1")
	params.Set("accept-language", n.acceptLanguage)
	if n.countryCodes != "" {
		params.Set("countrycodes", n.countryCodes)
	}

	u := fmt.Sprintf("%s/search?%s", n.baseURL, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if n.userAgent != "" {
		req.Header.Set("User-Agent", n.userAgent)
	}

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("nominatim: unexpected status: %s", resp.Status)
	}

	var results NominatimResponse
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, fmt.Errorf("nominatim: decode response: %w", err)
	}

	candidates := make([]Candidate, 0, len(results))
	for _, r := range results {
		candidates = append(candidates, Candidate{Lat: r.Lat, Lon: r.Lon, Label: r.DisplayName})
	}
	return candidates, nil
}
