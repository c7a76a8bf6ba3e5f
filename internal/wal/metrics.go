// Table - Anti-Fraud Detection and Alerting for Online Card Games
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/elevow/table-sub009

package wal

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for outbox operations
var (
	walWritesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "alert_outbox_writes_total",
		Help: "Total number of outbox write operations",
	})

	walConfirmsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "alert_outbox_confirms_total",
		Help: "Total number of outbox entries confirmed after reaching the repository",
	})

	walRetriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "alert_outbox_retries_total",
		Help: "Total number of failed replay attempts recorded on outbox entries",
	})

	walPendingEntries = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "alert_outbox_pending_entries",
		Help: "Current number of pending outbox entries",
	})

	walConfirmedEntries = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "alert_outbox_confirmed_entries",
		Help: "Current number of confirmed outbox entries awaiting compaction",
	})

	walWriteLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "alert_outbox_write_latency_seconds",
		Help:    "Outbox write latency in seconds",
		Buckets: prometheus.DefBuckets,
	})

	walDBSizeBytes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "alert_outbox_db_size_bytes",
		Help: "BadgerDB outbox size in bytes",
	})

	walCompactionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "alert_outbox_compactions_total",
		Help: "Total number of outbox compaction runs",
	})

	walEntriesCompacted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "alert_outbox_entries_compacted_total",
		Help: "Total number of entries removed during compaction",
	})

	walRecoveredEntries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "alert_outbox_recovered_entries_total",
		Help: "Total number of pending entries found by startup recovery",
	})

	walWriteFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "alert_outbox_write_failures_total",
		Help: "Total number of failed outbox writes",
	})

	walReplayFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "alert_outbox_replay_failures_total",
		Help: "Total number of failed replays against the alert repository",
	})

	walMaxRetriesExceeded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "alert_outbox_max_retries_exceeded_total",
		Help: "Total number of entries dropped after exceeding maximum retry attempts",
	})

	walExpiredEntries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "alert_outbox_expired_entries_total",
		Help: "Total number of entries that expired before confirmation",
	})

	walCompactionLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "alert_outbox_compaction_latency_seconds",
		Help:    "Outbox compaction latency in seconds",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 10), // 0.1s to ~100s
	})

	walGCLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "alert_outbox_gc_latency_seconds",
		Help:    "BadgerDB value log GC latency in seconds",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 0.01s to ~40s
	})
)

// RecordWALWrite increments the write counter.
func RecordWALWrite() {
	walWritesTotal.Inc()
}

// RecordWALConfirm increments the confirm counter.
func RecordWALConfirm() {
	walConfirmsTotal.Inc()
}

// RecordWALRetry increments the retry counter.
func RecordWALRetry() {
	walRetriesTotal.Inc()
}

// UpdateWALPendingEntries sets the pending entries gauge.
func UpdateWALPendingEntries(count int64) {
	walPendingEntries.Set(float64(count))
}

// UpdateWALConfirmedEntries sets the confirmed entries gauge.
func UpdateWALConfirmedEntries(count int64) {
	walConfirmedEntries.Set(float64(count))
}

// RecordWALWriteLatency records a write latency observation.
func RecordWALWriteLatency(seconds float64) {
	walWriteLatency.Observe(seconds)
}

// UpdateWALDBSize sets the database size gauge.
func UpdateWALDBSize(bytes int64) {
	walDBSizeBytes.Set(float64(bytes))
}

// RecordWALCompaction increments the compaction counter.
func RecordWALCompaction() {
	walCompactionsTotal.Inc()
}

// RecordWALEntriesCompacted adds to the compacted entries counter.
func RecordWALEntriesCompacted(count int64) {
	walEntriesCompacted.Add(float64(count))
}

// RecordWALRecoveredEntries adds to the recovered entries counter.
func RecordWALRecoveredEntries(count int64) {
	walRecoveredEntries.Add(float64(count))
}

// RecordWALWriteFailure increments the write failure counter.
func RecordWALWriteFailure() {
	walWriteFailures.Inc()
}

// RecordWALReplayFailure increments the replay failure counter.
func RecordWALReplayFailure() {
	walReplayFailures.Inc()
}

// RecordWALMaxRetriesExceeded increments the max retries exceeded counter.
func RecordWALMaxRetriesExceeded() {
	walMaxRetriesExceeded.Inc()
}

// RecordWALExpiredEntry increments the expired entries counter.
func RecordWALExpiredEntry() {
	walExpiredEntries.Inc()
}

// RecordWALCompactionLatency records a compaction latency observation.
func RecordWALCompactionLatency(seconds float64) {
	walCompactionLatency.Observe(seconds)
}

// RecordWALGCLatency records a GC latency observation.
func RecordWALGCLatency(seconds float64) {
	walGCLatency.Observe(seconds)
}
