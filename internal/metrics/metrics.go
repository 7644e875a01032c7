package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	mcerrors "github.com/rcourtman/mission-control/internal/errors"
)

var (
	// Fetch cache metrics
	FetchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mission_control_fetch_total",
			Help: "Total number of backend fetches by resource and outcome",
		},
		[]string{"resource", "outcome"}, // success, retryable_error, error
	)

	FetchDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mission_control_fetch_duration_seconds",
			Help:    "Duration of backend fetches by resource",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"resource"},
	)

	FetchStaleDiscardedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mission_control_fetch_stale_discarded_total",
			Help: "Fetch results dropped because a newer request already resolved",
		},
		[]string{"resource"},
	)

	CacheEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mission_control_cache_entries",
			Help: "Number of keys held by the fetch cache",
		},
	)

	// Manual sync metrics
	SyncTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mission_control_sync_total",
			Help: "Total number of manual inventory syncs by outcome",
		},
		[]string{"outcome"}, // success, error, rejected
	)

	// View server metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mission_control_http_requests_total",
			Help: "Requests served by the local view server by route and status code",
		},
		[]string{"route", "code"},
	)
)

// RecordFetch records the outcome of one backend fetch
func RecordFetch(resource string, err error, duration time.Duration) {
	outcome := "success"
	switch {
	case err == nil:
	case mcerrors.IsRetryableError(err):
		outcome = "retryable_error"
	default:
		outcome = "error"
	}
	FetchTotal.WithLabelValues(resource, outcome).Inc()
	FetchDurationSeconds.WithLabelValues(resource).Observe(duration.Seconds())
}

// RecordStaleDiscarded records a resolution dropped by generation fencing
func RecordStaleDiscarded(resource string) {
	FetchStaleDiscardedTotal.WithLabelValues(resource).Inc()
}

// SetCacheEntries records the current number of cache keys
func SetCacheEntries(n int) {
	CacheEntries.Set(float64(n))
}

// RecordSync records a manual sync attempt
func RecordSync(outcome string) {
	SyncTotal.WithLabelValues(outcome).Inc()
}

// RecordHTTPRequest records a request served by the view server
func RecordHTTPRequest(route string, code string) {
	HTTPRequestsTotal.WithLabelValues(route, code).Inc()
}
