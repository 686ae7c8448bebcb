package telemetry

import "github.com/prometheus/client_golang/prometheus"

// HTTPRequestDuration records /call (and health/metrics) latency by route,
// method, and status — the Metrics middleware observes every request here.
var HTTPRequestDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "bridge",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request duration in seconds.",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
	},
	[]string{"method", "route", "status"},
)

// CallRequestsTotal counts /call invocations by route kind (db/logics/storage)
// and outcome: "ok", the bridgeerr taxon of a Bridge error (BAD_REQUEST,
// UNAUTHORIZED, FORBIDDEN, NOT_FOUND, TOO_MANY_REQUESTS, INTERNAL_ERROR), or
// "internal" for any other error.
var CallRequestsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "bridge",
		Subsystem: "call",
		Name:      "requests_total",
		Help:      "Total number of /call requests by route kind and outcome.",
	},
	[]string{"route_kind", "outcome"},
)

// RateLimitRejectedTotal counts requests rejected by the Request Gate.
var RateLimitRejectedTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Namespace: "bridge",
		Subsystem: "ratelimit",
		Name:      "rejected_total",
		Help:      "Total number of requests rejected by the fixed-window rate limiter.",
	},
)

// ReleaseCacheHitsTotal / ReleaseCacheMissesTotal track Release Cache
// effectiveness across both the in-process map and the optional Redis L2.
var ReleaseCacheHitsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "bridge",
		Subsystem: "release_cache",
		Name:      "hits_total",
		Help:      "Total number of release cache hits by tier (l1/l2).",
	},
	[]string{"tier"},
)

var ReleaseCacheMissesTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Namespace: "bridge",
		Subsystem: "release_cache",
		Name:      "misses_total",
		Help:      "Total number of release cache misses that fetched from the Hub.",
	},
)

// StorageDeleteFailuresTotal counts best-effort cascade storage deletes that
// errored (and were swallowed per the cascade-delete invariant).
var StorageDeleteFailuresTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Namespace: "bridge",
		Subsystem: "storage",
		Name:      "delete_failures_total",
		Help:      "Total number of best-effort object storage deletes that failed.",
	},
)

// All returns every Bridge-specific metric collector for registration.
func All() []prometheus.Collector {
	return []prometheus.Collector{
		HTTPRequestDuration,
		CallRequestsTotal,
		RateLimitRejectedTotal,
		ReleaseCacheHitsTotal,
		ReleaseCacheMissesTotal,
		StorageDeleteFailuresTotal,
	}
}
