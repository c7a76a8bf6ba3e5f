// Table - Anti-Fraud Detection and Alerting for Online Card Games
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/elevow/table-sub009

package metrics

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordRepositoryQuery(t *testing.T) {
	before := testutil.ToFloat64(RepositoryErrors.WithLabelValues("duckdb", "create"))

	RecordRepositoryQuery("duckdb", "create", 2*time.Millisecond, nil)
	RecordRepositoryQuery("duckdb", "create", 3*time.Millisecond, errors.New("connection refused"))

	if got := testutil.ToFloat64(RepositoryErrors.WithLabelValues("duckdb", "create")); got != before+1 {
		t.Errorf("errors = %v, want %v", got, before+1)
	}
}

func TestRecordAlertCreated(t *testing.T) {
	c := AlertsCreated.WithLabelValues("collusion", "high")
	before := testutil.ToFloat64(c)
	RecordAlertCreated("collusion", "high")
	RecordAlertCreated("collusion", "high")
	if got := testutil.ToFloat64(c); got != before+2 {
		t.Errorf("created = %v, want %v", got, before+2)
	}
}

func TestRecordSchedulerRun(t *testing.T) {
	tests := []struct {
		result      string
		setsLastRun bool
	}{
		{"success", true},
		{"empty", false},
		{"error", false},
		{"panic", false},
	}
	for _, tt := range tests {
		t.Run(tt.result, func(t *testing.T) {
			SchedulerLastRun.Set(0)
			before := testutil.ToFloat64(SchedulerRuns.WithLabelValues(tt.result))

			RecordSchedulerRun(tt.result, 10*time.Millisecond)

			if got := testutil.ToFloat64(SchedulerRuns.WithLabelValues(tt.result)); got != before+1 {
				t.Errorf("runs = %v, want %v", got, before+1)
			}
			if last := testutil.ToFloat64(SchedulerLastRun); (last > 0) != tt.setsLastRun {
				t.Errorf("last run = %v, setsLastRun = %v", last, tt.setsLastRun)
			}
		})
	}
}

func TestRecordEventPublished(t *testing.T) {
	ok := EventsPublished.WithLabelValues("alert.created", "success")
	failed := EventsPublished.WithLabelValues("alert.created", "failure")
	okBefore, failedBefore := testutil.ToFloat64(ok), testutil.ToFloat64(failed)

	RecordEventPublished("alert.created", nil)
	RecordEventPublished("alert.created", errors.New("nats: no responders"))

	if testutil.ToFloat64(ok) != okBefore+1 || testutil.ToFloat64(failed) != failedBefore+1 {
		t.Error("publish outcome not counted under the right label")
	}
}

// TestTrackActiveRequest_RequestLifecycle tests a full request lifecycle
func TestTrackActiveRequest_RequestLifecycle(t *testing.T) {
	start := testutil.ToFloat64(APIActiveRequests)

	TrackActiveRequest(true)
	TrackActiveRequest(true)
	if got := testutil.ToFloat64(APIActiveRequests); got != start+2 {
		t.Errorf("active = %v, want %v", got, start+2)
	}
	TrackActiveRequest(false)
	TrackActiveRequest(false)
	if got := testutil.ToFloat64(APIActiveRequests); got != start {
		t.Errorf("active = %v, want %v", got, start)
	}
}

// TestConcurrentMetricRecording tests thread safety of metric recording
func TestConcurrentMetricRecording(t *testing.T) {
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				RecordAPIRequest("GET", "/api/v1/alerts", "200", time.Duration(j)*time.Millisecond)
				RecordAnalyzerRun("multi_account", j, time.Millisecond)
				RecordSchedulerSkip("in_progress")
				RecordPersistFailure("create")
			}
		}()
	}
	wg.Wait()
}

func TestCircuitBreakerMetrics(t *testing.T) {
	cbName := "test-breaker"

	CircuitBreakerState.WithLabelValues(cbName).Set(2) // open
	if got := testutil.ToFloat64(CircuitBreakerState.WithLabelValues(cbName)); got != 2 {
		t.Errorf("state = %v, want 2", got)
	}

	CircuitBreakerRequests.WithLabelValues(cbName, "rejected").Inc()
	CircuitBreakerTransitions.WithLabelValues(cbName, "closed", "open").Inc()
	CircuitBreakerConsecutiveFailures.WithLabelValues(cbName).Set(5)
}

// TestMetricsRegistration verifies every collector is registered on the
// default registry.
func TestMetricsRegistration(t *testing.T) {
	collectors := []prometheus.Collector{
		RepositoryQueryDuration,
		RepositoryErrors,
		AlertsCreated,
		AlertStatusUpdates,
		AlertsCached,
		AlertPersistFailures,
		AlertReadSource,
		AnalyzerDuration,
		AnalyzerInputs,
		MultiAccountConfidence,
		SchedulerRuns,
		SchedulerSkipped,
		SchedulerRunDuration,
		SchedulerLastRun,
		EventsPublished,
		APIRequestsTotal,
		APIRequestDuration,
		APIActiveRequests,
		APIRateLimitHits,
		CircuitBreakerState,
		CircuitBreakerRequests,
		CircuitBreakerConsecutiveFailures,
		CircuitBreakerTransitions,
	}

	for _, c := range collectors {
		err := prometheus.DefaultRegisterer.Register(c)
		var already prometheus.AlreadyRegisteredError
		if !errors.As(err, &already) {
			t.Errorf("collector %T not registered on the default registry (err=%v)", c, err)
		}
	}
}
