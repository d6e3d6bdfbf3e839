package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "blocosrj"

// Registry holds every collector of the module. It is private so tests and
// binaries never collide with the global default registry.
var Registry = prometheus.NewRegistry()

var (
	// GeocodeLookups counts resolver outcomes: cache_hit, resolved, no_match, unavailable.
	GeocodeLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "geocode_lookups_total",
		Help:      "Geocoding lookups by outcome",
	}, []string{"outcome"})

	GeocodeRetries = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "geocode_retries_total",
		Help:      "Backoff waits between failed geocoding attempts",
	})

	GeocodeDuration = prometheus.NewSummary(prometheus.SummaryOpts{
		Namespace:  namespace,
		Name:       "geocode_request_seconds",
		Help:       "Duration of single geocoding requests",
		Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
	})

	// DatasetRows counts parsed rows by status: kept, blank, invalid, duplicate.
	DatasetRows = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "dataset_rows_total",
		Help:      "Dataset rows by parse status",
	}, []string{"status"})

	DatasetReloads = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "dataset_reloads_total",
		Help:      "Dataset reloads by outcome",
	}, []string{"outcome"})

	Results = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "match_results",
		Help:      "Number of results of the last query per mode",
	}, []string{"mode"})
)

func init() {
	Registry.MustRegister(
		GeocodeLookups,
		GeocodeRetries,
		GeocodeDuration,
		DatasetRows,
		DatasetReloads,
		Results,
	)
}

// Handler serves the module registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
