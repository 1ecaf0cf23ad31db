package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DefaultRegistry is exposed on /metrics.
var DefaultRegistry = prometheus.NewRegistry()

func init() {
	DefaultRegistry.MustRegister(
		ResolveTotal, ResolveSkipped, CacheEntries,
		KeysScanned, ListDuration,
	)
}

// ResolveTotal counts job resolutions by where the record came from.
var ResolveTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "arqmon_resolve_total",
		Help: "Job record resolutions.",
	},
	[]string{"source", "outcome"}, // cache | store; ok | error
)

// ResolveSkipped counts records dropped from a listing instead of failing it.
var ResolveSkipped = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "arqmon_resolve_skipped_total",
		Help: "Job records skipped during aggregation.",
	},
	[]string{"reason"}, // vanished | error
)

var CacheEntries = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Name: "arqmon_cache_entries",
		Help: "Terminal job records held in the cache.",
	},
)

var KeysScanned = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Name: "arqmon_keys_scanned",
		Help: "Job keys found by the last store scan.",
	},
)

// ListDuration is the wall time of one full aggregation, in seconds.
var ListDuration = prometheus.NewHistogram(
	prometheus.HistogramOpts{
		Name:    "arqmon_list_duration_seconds",
		Help:    "Duration of a full job aggregation.",
		Buckets: prometheus.DefBuckets,
	},
)

func Handler() http.Handler {
	return promhttp.HandlerFor(DefaultRegistry, promhttp.HandlerOpts{})
}
