package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "musicsearch",
		Name:      "http_requests_total",
		Help:      "Total HTTP requests by method, path and status code.",
	}, []string{"method", "path", "status"})

	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "musicsearch",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration in seconds.",
		Buckets:   []float64{0.05, 0.1, 0.3, 0.5, 1, 2, 5, 10},
	}, []string{"method", "path"})

	ProviderRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "musicsearch",
		Name:      "provider_requests_total",
		Help:      "Total requests to catalog providers by provider name and result status.",
	}, []string{"provider", "status"})

	ProviderRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "musicsearch",
		Name:      "provider_request_duration_seconds",
		Help:      "Catalog provider request duration in seconds.",
		Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 20},
	}, []string{"provider"})

	ProviderAvailable = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "musicsearch",
		Name:      "provider_available",
		Help:      "Whether a catalog provider is available (1) or cooling down after repeated failures (0).",
	}, []string{"provider"})

	CacheHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "musicsearch",
		Name:      "cache_hits_total",
		Help:      "Total number of result cache hits.",
	})

	CacheMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "musicsearch",
		Name:      "cache_misses_total",
		Help:      "Total number of result cache misses.",
	})

	MetadataRowsInserted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "musicsearch",
		Name:      "metadata_rows_inserted_total",
		Help:      "Rows inserted into the persistent metadata cache by entity kind.",
	}, []string{"entity"})
)

func Register(reg prometheus.Registerer) {
	reg.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		ProviderRequestsTotal,
		ProviderRequestDuration,
		ProviderAvailable,
		CacheHitsTotal,
		CacheMissesTotal,
		MetadataRowsInserted,
	)
}
