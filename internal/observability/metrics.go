package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "showcase"

// Metrics owns a private registry so tests can build as many as they like.
type Metrics struct {
	registry *prometheus.Registry

	requests      *prometheus.HistogramVec
	loads         *prometheus.CounterVec
	discarded     *prometheus.CounterVec
	cacheLookups  *prometheus.CounterVec
	providerCalls *prometheus.CounterVec
}

// NewMetrics registers the application collectors plus Go and process collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route and status.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		loads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "collection_loads_total",
			Help:      "Collection loads by outcome.",
		}, []string{"collection", "outcome"}),
		discarded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "collection_loads_discarded_total",
			Help:      "Loads superseded by a newer load before they completed.",
		}, []string{"collection"}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "collection_cache_lookups_total",
			Help:      "Collection cache lookups by result.",
		}, []string{"collection", "result"}),
		providerCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_calls_total",
			Help:      "Outbound provider calls by outcome.",
		}, []string{"provider", "outcome"}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requests, m.loads, m.discarded, m.cacheLookups, m.providerCalls,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// ObserveRequest records one HTTP request.
func (m *Metrics) ObserveRequest(method, route string, status int, latency time.Duration) {
	m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Observe(latency.Seconds())
}

// LoadFinished implements listing.Recorder.
func (m *Metrics) LoadFinished(collection, outcome string) {
	m.loads.WithLabelValues(collection, outcome).Inc()
}

// LoadDiscarded implements listing.Recorder.
func (m *Metrics) LoadDiscarded(collection string) {
	m.discarded.WithLabelValues(collection).Inc()
}

// CacheLookup implements listing.CacheRecorder.
func (m *Metrics) CacheLookup(collection string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(collection, result).Inc()
}

// ProviderCall counts an outbound call to weather or station providers.
func (m *Metrics) ProviderCall(provider string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.providerCalls.WithLabelValues(provider, outcome).Inc()
}
