// Package metrics defines the Prometheus instruments exported on /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequestsTotal counts handled requests.
	// Labels: method, route (chi route pattern), status.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "folio_http_requests_total",
			Help: "Total number of HTTP requests handled",
		},
		[]string{"method", "route", "status"},
	)

	// HTTPRequestDuration measures request latency.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "folio_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"method", "route"},
	)

	// LoginAttempts counts admin login attempts.
	// Labels: outcome ("success", "failure", "error").
	LoginAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "folio_login_attempts_total",
			Help: "Total number of admin login attempts",
		},
		[]string{"outcome"},
	)

	// AnalyticsEvents counts tracked events by what happened to them.
	// Labels: outcome ("queued", "dropped", "disabled", "persisted", "failed").
	AnalyticsEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "folio_analytics_events_total",
			Help: "Analytics events by ingestion outcome",
		},
		[]string{"outcome"},
	)

	// AnalyticsQueueDepth is the number of events waiting to be written.
	AnalyticsQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "folio_analytics_queue_depth",
			Help: "Analytics events waiting in the ingestion queue",
		},
	)

	// AnalyticsBreakerState is 0 when closed, 1 half-open and 2 open.
	AnalyticsBreakerState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "folio_analytics_breaker_state",
			Help: "State of the analytics writer circuit breaker (0 closed, 1 half-open, 2 open)",
		},
	)

	// StatsCacheLookups counts stats cache hits and misses.
	StatsCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "folio_stats_cache_lookups_total",
			Help: "Analytics stats cache lookups by result",
		},
		[]string{"result"},
	)

	// StatsDuration measures how long computing an aggregate takes.
	StatsDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "folio_stats_compute_duration_seconds",
			Help:    "Time spent aggregating analytics events",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"range"},
	)

	// ContactMessages counts contact form submissions by outcome.
	// Labels: outcome ("stored", "rejected", "captcha_failed", "disabled").
	ContactMessages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "folio_contact_messages_total",
			Help: "Contact form submissions by outcome",
		},
		[]string{"outcome"},
	)

	// ContentWrites counts admin content mutations.
	// Labels: kind, op ("create", "update", "delete").
	ContentWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "folio_content_writes_total",
			Help: "Admin content mutations by entity kind and operation",
		},
		[]string{"kind", "op"},
	)
)

// ObserveRequest records one handled HTTP request.
func ObserveRequest(method, route string, status int, elapsed time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	HTTPRequestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}
