// Table - Anti-Fraud Detection and Alerting for Online Card Games
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/elevow/table-sub009

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Repository Metrics
	RepositoryQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "alert_repository_query_duration_seconds",
			Help:    "Duration of alert repository operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"backend", "operation"},
	)

	RepositoryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alert_repository_errors_total",
			Help: "Total number of failed alert repository operations",
		},
		[]string{"backend", "operation"},
	)

	// Alert Store Metrics
	AlertsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "admin_alerts_created_total",
			Help: "Total number of admin alerts created",
		},
		[]string{"source", "severity"},
	)

	AlertStatusUpdates = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "admin_alert_status_updates_total",
			Help: "Total number of admin alert status changes",
		},
		[]string{"status"},
	)

	AlertsCached = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "admin_alerts_cached",
			Help: "Current number of alerts held in the in-process cache",
		},
	)

	AlertPersistFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "admin_alert_persist_failures_total",
			Help: "Total number of background alert writes that failed",
		},
		[]string{"operation"}, // "create", "update_status", "outbox"
	)

	AlertReadSource = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "admin_alert_reads_total",
			Help: "Alert list reads by the source that served them",
		},
		[]string{"source"}, // "repository", "cache"
	)

	// Analyzer Metrics
	AnalyzerDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fraud_analyzer_duration_seconds",
			Help:    "Duration of one analyzer pass in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"analyzer"},
	)

	AnalyzerInputs = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fraud_analyzer_inputs_total",
			Help: "Total number of events fed to the analyzers",
		},
		[]string{"analyzer"},
	)

	MultiAccountConfidence = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "multi_account_confidence",
			Help:    "Distribution of multi-account linkage confidence",
			Buckets: []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1},
		},
	)

	// Scheduler Metrics
	SchedulerRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "security_scheduler_runs_total",
			Help: "Total number of security scheduler runs by outcome",
		},
		[]string{"result"}, // "success", "empty", "error", "panic"
	)

	SchedulerSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "security_scheduler_skipped_total",
			Help: "Total number of ticks skipped",
		},
		[]string{"reason"}, // "in_progress", "lock_held"
	)

	SchedulerRunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "security_scheduler_run_duration_seconds",
			Help:    "Duration of security scheduler runs in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	SchedulerLastRun = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "security_scheduler_last_run_timestamp",
			Help: "Unix timestamp of the last run that analyzed a non-empty batch",
		},
	)

	// Event Bus Metrics
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alert_events_published_total",
			Help: "Total number of alert events published",
		},
		[]string{"event_type", "result"},
	)

	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}, // Optimized for API latency
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	APIRateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_rate_limit_hits_total",
			Help: "Total number of rate limit rejections",
		},
		[]string{"endpoint"},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // result: "success", "failure", "rejected"
	)

	CircuitBreakerConsecutiveFailures = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_consecutive_failures",
			Help: "Current number of consecutive failures",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)
)

// RecordRepositoryQuery records one repository operation.
func RecordRepositoryQuery(backend, operation string, duration time.Duration, err error) {
	RepositoryQueryDuration.WithLabelValues(backend, operation).Observe(duration.Seconds())
	if err != nil {
		RepositoryErrors.WithLabelValues(backend, operation).Inc()
	}
}

// RecordAlertCreated counts a new alert.
func RecordAlertCreated(source, severity string) {
	AlertsCreated.WithLabelValues(source, severity).Inc()
}

// RecordAlertStatusUpdate counts a status change.
func RecordAlertStatusUpdate(status string) {
	AlertStatusUpdates.WithLabelValues(status).Inc()
}

// RecordPersistFailure counts a failed background write.
func RecordPersistFailure(operation string) {
	AlertPersistFailures.WithLabelValues(operation).Inc()
}

// RecordAnalyzerRun records one analyzer pass over n inputs.
func RecordAnalyzerRun(analyzer string, n int, duration time.Duration) {
	AnalyzerDuration.WithLabelValues(analyzer).Observe(duration.Seconds())
	AnalyzerInputs.WithLabelValues(analyzer).Add(float64(n))
}

// RecordSchedulerRun records the outcome of a scheduler run.
func RecordSchedulerRun(result string, duration time.Duration) {
	SchedulerRuns.WithLabelValues(result).Inc()
	SchedulerRunDuration.Observe(duration.Seconds())
	if result == "success" {
		SchedulerLastRun.Set(float64(time.Now().Unix()))
	}
}

// RecordSchedulerSkip counts a skipped tick.
func RecordSchedulerSkip(reason string) {
	SchedulerSkipped.WithLabelValues(reason).Inc()
}

// RecordEventPublished counts a published alert event.
func RecordEventPublished(eventType string, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	EventsPublished.WithLabelValues(eventType, result).Inc()
}

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks active API requests
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}
