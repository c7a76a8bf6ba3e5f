// Table - Anti-Fraud Detection and Alerting for Online Card Games
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/elevow/table-sub009

/*
Package middleware provides the HTTP middleware shared by the admin API.

Key Components:

  - RequestID: propagates or generates X-Request-ID and binds it to the
    logging context
  - AccessLog: one structured log line per request
  - PrometheusMetrics: request counters and latency histograms labelled by
    the chi route pattern
  - SecurityHeaders: static hardening headers for JSON responses

All middleware has the chi signature func(http.Handler) http.Handler.
*/
package middleware
