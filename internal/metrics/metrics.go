// Package metrics provides Prometheus metrics for the bloggera client.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// APIRequestsTotal counts backend calls by endpoint and outcome.
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bloggera",
			Name:      "api_requests_total",
			Help:      "Total number of Bloggera API requests",
		},
		[]string{"endpoint", "status"},
	)

	// APIRequestDuration measures backend call latency.
	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "bloggera",
			Name:      "api_request_duration_seconds",
			Help:      "Duration of Bloggera API requests in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	// BreakerState tracks the API circuit breaker (0 closed, 1 open, 2 half-open).
	BreakerState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "bloggera",
			Name:      "api_breaker_state",
			Help:      "API circuit breaker state (0 = closed, 1 = open, 2 = half-open)",
		},
	)

	// FeedPageSize observes how many new posts each page contributed.
	FeedPageSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "bloggera",
			Name:      "feed_page_size",
			Help:      "Number of new posts appended per feed page",
			Buckets:   []float64{0, 1, 5, 10, 20, 30, 50, 100},
		},
		[]string{"feed"},
	)

	// FeedExhaustedTotal counts feeds that stopped offering more pages.
	FeedExhaustedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bloggera",
			Name:      "feed_exhausted_total",
			Help:      "Total number of feeds marked exhausted",
		},
		[]string{"feed"},
	)

	// TogglesTotal counts optimistic toggles by kind and result.
	TogglesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bloggera",
			Name:      "toggles_total",
			Help:      "Total number of optimistic toggles",
		},
		[]string{"kind", "result"},
	)

	// SessionEventsTotal counts session transitions.
	SessionEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bloggera",
			Name:      "session_events_total",
			Help:      "Total number of session events",
		},
		[]string{"event"},
	)
)

// RecordAPIRequest records one backend call.
func RecordAPIRequest(endpoint, status string, duration float64) {
	APIRequestsTotal.WithLabelValues(endpoint, status).Inc()
	APIRequestDuration.WithLabelValues(endpoint).Observe(duration)
}

// SetBreakerState publishes the breaker state as a number.
func SetBreakerState(state int) {
	BreakerState.Set(float64(state))
}

// RecordFeedPage records a page appended to a feed.
func RecordFeedPage(feed string, added int) {
	FeedPageSize.WithLabelValues(feed).Observe(float64(added))
}

// RecordFeedExhausted records that a feed stopped offering more pages.
func RecordFeedExhausted(feed string) {
	FeedExhaustedTotal.WithLabelValues(feed).Inc()
}

// RecordToggle records a settled toggle. result is committed or rolled_back.
func RecordToggle(kind, result string) {
	TogglesTotal.WithLabelValues(kind, result).Inc()
}

// RecordSessionEvent records login, register, logout or external_change.
func RecordSessionEvent(event string) {
	SessionEventsTotal.WithLabelValues(event).Inc()
}
