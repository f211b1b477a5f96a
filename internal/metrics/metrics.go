// Package metrics exposes the Prometheus instrumentation for the HTTP
// API. Counters for registry writes live here too so services increment
// them without knowing about the collector types.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTPRequestsTotal counts requests by route pattern, method and
	// response status class.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "citizenly_http_requests_total",
		Help: "Total HTTP requests handled, by route, method and status.",
	}, []string{"route", "method", "status"})

	// HTTPRequestDuration measures request latency by route pattern.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "citizenly_http_request_duration_seconds",
		Help:    "HTTP request latency, by route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})

	// ResidentsCreated counts successful resident registrations.
	ResidentsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "citizenly_residents_created_total",
		Help: "The total number of residents registered.",
	})

	// HouseholdsCreated counts successful household registrations.
	HouseholdsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "citizenly_households_created_total",
		Help: "The total number of households registered.",
	})

	// GeoResolutions counts ancestry resolutions by outcome
	// (ok, unknown, broken_chain).
	GeoResolutions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "citizenly_geo_resolutions_total",
		Help: "Barangay ancestry resolutions, by outcome.",
	}, []string{"outcome"})
)

// Handler serves the /metrics endpoint from the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
