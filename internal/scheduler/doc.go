// Table - Anti-Fraud Detection and Alerting for Online Card Games
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/elevow/table-sub009

/*
Package scheduler runs the periodic security scan.

Each tick fetches the login events (and, when enabled, completed hands) that
fall inside the configured lookback window, runs the multi-account and
collusion analyzers, and forwards the verdicts to the alert store.

Overlap handling:

A run that starts while another is still in progress is skipped, logged and
counted in security_scheduler_skipped_total. With a Locker configured the same
rule applies across instances sharing one Redis.

Failure isolation:

Fetch errors and panics end the current run only; the timer keeps firing.

Configuration:

The interval is read once at Start. Lookback, analyzer thresholds and the
collusion toggle are read from config.Provider on every run, so a reloaded
config file takes effect on the next tick.
*/
package scheduler
