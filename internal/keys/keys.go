package keys

import "blocosrj/pkg/textnorm"

// Durable store keys.
const (
	Location        = "blocosrj.location"
	GeocodeSnapshot = "blocosrj.geocode"
	Results         = "blocosrj.results"
)

// Geocode cache namespaces. User queries and bloco addresses never share a key.
const (
	queryPrefix = "query:"
	blocoPrefix = "bloco:"
)

func normalize(s string) string {
	return textnorm.Fold(s, " ")
}

// Query returns the geocode cache key for a query typed by the user.
func Query(q string) string {
	return queryPrefix + normalize(q)
}

// Bloco returns the geocode cache key for a bloco-derived address query.
func Bloco(address string) string {
	return blocoPrefix + normalize(address)
}
