package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SearchRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "search_request_duration_seconds",
			Help:    "Search request duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"kind", "source", "status"},
	)

	SearchRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "search_requests_total",
			Help: "Total number of search requests",
		},
		[]string{"kind", "status"},
	)

	CacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "redis_cache_hits_total",
			Help: "Total number of Redis cache hits",
		},
	)

	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "redis_cache_misses_total",
			Help: "Total number of Redis cache misses",
		},
	)

	CatalogRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "catalog_request_duration_seconds",
			Help:    "Media catalog request duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"endpoint", "status"},
	)

	LLMRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "llm_request_duration_seconds",
			Help:    "Language model request duration in seconds",
			Buckets: []float64{0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"operation", "status"},
	)

	ClassificationFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "classification_failures_total",
			Help: "Total number of failed intent classifications",
		},
	)

	KeywordResolutions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "keyword_resolutions_total",
			Help: "Keyword resolutions by lookup tier",
		},
		[]string{"tier"},
	)

	FanoutBranchFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fanout_branch_failures_total",
			Help: "Failed branches of concurrent catalog fan-outs",
		},
		[]string{"branch"},
	)

	BroadFallbacksTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "discover_broad_fallbacks_total",
			Help: "Strict discover calls that starved and were widened",
		},
	)

	RerankFallbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rerank_fallbacks_total",
			Help: "Rerank calls that fell back to original candidate order",
		},
		[]string{"reason"},
	)

	CHQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ch_query_duration_seconds",
			Help:    "ClickHouse query duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5},
		},
		[]string{"query_type", "status"},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	SlowSearchCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "slow_search_total",
			Help: "Total number of slow searches",
		},
		[]string{"severity", "kind"},
	)

	ActiveConnections = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "active_connections",
			Help: "Number of active connections to backend systems",
		},
		[]string{"backend"},
	)
)
