package datatable

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// cache outcomes
const (
	cacheHit      = "hit"
	cacheMiss     = "miss"
	cacheFallback = "fallback" // store unreachable, served uncached
	cacheBypass   = "bypass"   // caching disabled for the request
)

type metrics struct {
	requests *prometheus.CounterVec
	cache    *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// newMetrics creates the engine collectors, registering them on reg unless it is nil.
func newMetrics(reg prometheus.Registerer) *metrics {
	factory := promauto.With(reg)
	return &metrics{
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "masomo",
			Subsystem: "datatable",
			Name:      "requests_total",
			Help:      "Table requests by dataset and result.",
		}, []string{"dataset", "result"}),
		cache: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "masomo",
			Subsystem: "datatable",
			Name:      "cache_total",
			Help:      "Table response cache lookups by dataset and outcome.",
		}, []string{"dataset", "outcome"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "masomo",
			Subsystem: "datatable",
			Name:      "duration_seconds",
			Help:      "Table request duration in seconds, cache lookups included.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~2s
		}, []string{"dataset"}),
	}
}
