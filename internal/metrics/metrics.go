// Package metrics exposes Prometheus collectors for the request pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "porsa"

// Metrics records pipeline activity. All methods are safe for concurrent use.
type Metrics struct {
	requests       *prometheus.CounterVec
	stageDuration  *prometheus.HistogramVec
	cacheLookups   *prometheus.CounterVec
	stageFallbacks *prometheus.CounterVec
	breakerOpens   *prometheus.CounterVec
}

// NewUnregistered returns collectors backed by a throwaway registry, for
// callers that were not handed a real one.
func NewUnregistered() *Metrics {
	return New(prometheus.NewRegistry())
}

// New registers the pipeline collectors with the given registerer. A nil
// registerer uses the Prometheus default, which is what the /metrics
// endpoint serves.
func New(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}

	return &Metrics{
		requests: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "requests_total",
				Help:      "Total chat requests by detected intent and cache status",
			},
			[]string{"intent", "cache"},
		),
		stageDuration: promauto.With(registry).NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "stage_duration_seconds",
				Help:      "Time spent in each pipeline stage",
				Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10), // 0.01s to ~10s
			},
			[]string{"stage"},
		),
		cacheLookups: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_lookups_total",
				Help:      "Response cache lookups by result",
			},
			[]string{"result"},
		),
		stageFallbacks: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "stage_fallbacks_total",
				Help:      "Stage failures absorbed by a degraded continuation",
			},
			[]string{"stage"},
		),
		breakerOpens: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "breaker_opens_total",
				Help:      "Circuit breaker transitions to the open state",
			},
			[]string{"service"},
		),
	}
}

// RecordRequest counts a finished chat request.
func (m *Metrics) RecordRequest(intent string, cached bool) {
	cache := "miss"
	if cached {
		cache = "hit"
	}
	m.requests.WithLabelValues(intent, cache).Inc()
}

// ObserveStage records how long a pipeline stage took.
func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	m.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// RecordCacheLookup counts a response cache hit or miss.
func (m *Metrics) RecordCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

// RecordFallback counts a stage that failed and was degraded around.
func (m *Metrics) RecordFallback(stage string) {
	m.stageFallbacks.WithLabelValues(stage).Inc()
}

// RecordBreakerOpen counts a circuit breaker opening for a service.
func (m *Metrics) RecordBreakerOpen(service string) {
	m.breakerOpens.WithLabelValues(service).Inc()
}
