// Table - Anti-Fraud Detection and Alerting for Online Card Games
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/elevow/table-sub009

// Package detection holds the batch analyzers that look for fraud in play and
// login activity.
//
// Detection Architecture:
//
//	EventSource -> Analyzer (pure) -> CollusionDetection / AccountLinkage -> alerts.Store
//
// Both analyzers are pure functions of their input: they keep no state between
// calls, do no I/O and never return an error. Degenerate batches (empty, a
// single player, a single account) produce empty results.
//
// Supported analyses:
//   - Grouping: accounts that sit together far more often than chance allows
//   - Chip dumping: one account repeatedly committing chips to pots another
//     account wins
//   - Multi-accounting: weighted device, network, temporal and behavioral
//     signals that several accounts are run by one person
//
// The DuckDB event source reads the batches the scheduler feeds to the
// analyzers.
package detection
