// Table - Anti-Fraud Detection and Alerting for Online Card Games
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/elevow/table-sub009

/*
Package metrics provides Prometheus metrics for the anti-fraud service.

Collectors are registered on the default registry through promauto and are
exposed at /metrics by the API server:

	curl http://localhost:8088/metrics

# Available Metrics

Alert store:
  - admin_alerts_created_total: Alerts created (counter)
    Labels: source, severity
  - admin_alert_status_updates_total: Status changes (counter)
    Labels: status
  - admin_alerts_cached: Alerts held in memory (gauge)
  - admin_alert_persist_failures_total: Failed background writes (counter)
    Labels: operation
  - admin_alert_reads_total: List reads by serving source (counter)
    Labels: source (repository, cache)

Repository:
  - alert_repository_query_duration_seconds (histogram)
    Labels: backend, operation
  - alert_repository_errors_total (counter)
    Labels: backend, operation

Analyzers and scheduler:
  - fraud_analyzer_duration_seconds (histogram), fraud_analyzer_inputs_total
    Labels: analyzer (collusion, multi_account)
  - multi_account_confidence (histogram)
  - security_scheduler_runs_total: Labels: result (success, empty, error, panic)
  - security_scheduler_skipped_total: Labels: reason (in_progress, lock_held)
  - security_scheduler_run_duration_seconds (histogram)
  - security_scheduler_last_run_timestamp (gauge)

Circuit breaker:
  - circuit_breaker_state: 0=closed, 1=half-open, 2=open
  - circuit_breaker_requests_total: Labels: name, result
  - circuit_breaker_consecutive_failures
  - circuit_breaker_state_transitions_total

The alert outbox registers its own alert_outbox_* collectors in package wal.

# Example Alert Rules

	groups:
	  - name: table
	    rules:
	      - alert: AlertPersistenceFailing
	        expr: rate(admin_alert_persist_failures_total[5m]) > 0
	        for: 10m
	      - alert: CircuitBreakerOpen
	        expr: circuit_breaker_state == 2
	        for: 5m
	      - alert: SecurityScanStalled
	        expr: time() - security_scheduler_last_run_timestamp > 3600
*/
package metrics
