// Package metrics provides Prometheus metrics for the party statistics service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every collector exported by the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Ranking key cache
	cacheHits          *prometheus.CounterVec
	cacheMisses        *prometheus.CounterVec
	cacheErrors        *prometheus.CounterVec
	cacheCoalesced     *prometheus.CounterVec
	rankingRecompute   *prometheus.HistogramVec
	rankingKeyListSize *prometheus.GaugeVec
	cachedKeyLists     prometheus.Gauge

	// Fact store
	storeQueryLatency *prometheus.HistogramVec
	storeErrors       *prometheus.CounterVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Warm-up
	warmJobs      *prometheus.CounterVec
	warmInFlight  prometheus.Gauge
	lineageLoaded prometheus.Gauge
}

var globalManager *Manager //nolint:gochecknoglobals // singleton used by package-level recorders

var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // avoids default Go collectors

func init() { //nolint:gochecknoinits // global metrics setup
	customRegistry.MustRegister(collectors.NewGoCollector())
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "partystats",
		subsystem:        "",
		histogramBuckets: []float64{1, 2.5, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	auto := promauto.With(m.registry)

	m.cacheHits = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "ranking_cache_hits_total",
		Help:      "Ranking key list lookups served from cache",
	}, []string{"unit"})

	m.cacheMisses = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "ranking_cache_misses_total",
		Help:      "Ranking key list lookups that required recomputation",
	}, []string{"unit"})

	m.cacheErrors = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "ranking_cache_errors_total",
		Help:      "Ranking cache backend failures by operation",
	}, []string{"op"})

	m.cacheCoalesced = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "ranking_cache_coalesced_total",
		Help:      "Cache misses that waited on an in-flight recomputation instead of running their own",
	}, []string{"unit"})

	m.rankingRecompute = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "ranking_recompute_duration_milliseconds",
		Help:      "Time spent computing a full ranking key list",
		Buckets:   m.histogramBuckets,
	}, []string{"unit"})

	m.rankingKeyListSize = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "ranking_key_list_size",
		Help:      "Length of the most recently computed ranking key list",
	}, []string{"unit"})

	m.cachedKeyLists = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "ranking_cache_entries",
		Help:      "Live entries in the ranking cache backend",
	})

	m.storeQueryLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "store_query_duration_milliseconds",
		Help:      "Fact store query latency by operation",
		Buckets:   m.histogramBuckets,
	}, []string{"op"})

	m.storeErrors = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "store_errors_total",
		Help:      "Fact store query failures by operation",
	}, []string{"op"})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_requests_total",
		Help:      "HTTP requests by endpoint, method and status",
	}, []string{"endpoint", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_request_duration_milliseconds",
		Help:      "HTTP request duration in milliseconds",
		Buckets:   m.histogramBuckets,
	}, []string{"endpoint", "method", "status_code"})

	m.warmJobs = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "warm_jobs_total",
		Help:      "Cache warm-up jobs by outcome",
	}, []string{"outcome"})

	m.warmInFlight = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "warm_jobs_in_flight",
		Help:      "Cache warm-up jobs currently executing",
	})

	m.lineageLoaded = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "lineage_municipalities",
		Help:      "Municipalities known to the identity resolver",
	})
}

// RecordCacheHit counts a ranking cache hit.
func RecordCacheHit(unit string) { globalManager.cacheHits.WithLabelValues(unit).Inc() }

// RecordCacheMiss counts a ranking cache miss.
func RecordCacheMiss(unit string) { globalManager.cacheMisses.WithLabelValues(unit).Inc() }

// RecordCacheError counts a cache backend failure for op ("get" or "set").
func RecordCacheError(op string) { globalManager.cacheErrors.WithLabelValues(op).Inc() }

// RecordCacheCoalesced counts a miss that joined an in-flight computation.
func RecordCacheCoalesced(unit string) { globalManager.cacheCoalesced.WithLabelValues(unit).Inc() }

// RecordRankingRecompute records the time and size of a fresh key list.
func RecordRankingRecompute(unit string, durationMs float64, size int) {
	globalManager.rankingRecompute.WithLabelValues(unit).Observe(durationMs)
	globalManager.rankingKeyListSize.WithLabelValues(unit).Set(float64(size))
}

// UpdateCachedKeyLists sets the number of live ranking cache entries.
func UpdateCachedKeyLists(n int) { globalManager.cachedKeyLists.Set(float64(n)) }

// RecordStoreQuery records fact store latency for op.
func RecordStoreQuery(op string, durationMs float64) {
	globalManager.storeQueryLatency.WithLabelValues(op).Observe(durationMs)
}

// RecordStoreError counts a fact store failure for op.
func RecordStoreError(op string) { globalManager.storeErrors.WithLabelValues(op).Inc() }

// RecordHTTPRequest increments the request counter.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records request latency.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, durationMs float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// RecordWarmJob counts a finished warm-up job; outcome is "ok" or "error".
func RecordWarmJob(outcome string) { globalManager.warmJobs.WithLabelValues(outcome).Inc() }

// AddWarmInFlight adjusts the in-flight warm-up gauge.
func AddWarmInFlight(delta int) { globalManager.warmInFlight.Add(float64(delta)) }

// UpdateLineageSize sets the number of municipalities loaded into the resolver.
func UpdateLineageSize(n int) { globalManager.lineageLoaded.Set(float64(n)) }

// GetRegistry returns the registry that backs /metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
