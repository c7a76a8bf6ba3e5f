// Table - Anti-Fraud Detection and Alerting for Online Card Games
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/elevow/table-sub009

/*
Package api serves the admin HTTP surface over the alert store and the
security scheduler.

Routes:

	GET   /api/v1/health            liveness, cache size, last scan (public)
	GET   /api/v1/alerts            list alerts, newest first
	GET   /api/v1/alerts/{id}       fetch one alert
	PATCH /api/v1/alerts/{id}       change an alert's status
	POST  /api/v1/scan              run one detection pass now
	POST  /api/v1/events/logins     append login events for later scans
	POST  /api/v1/events/hands      append completed hands for later scans
	GET   /metrics                  Prometheus exposition (public)

Everything under /api/v1 except health requires a bearer token whose role
claim matches security.admin_role, unless security.auth_mode is "none".

Alert reads go to the repository first and fall back to the in-process
cache; the X-Alert-Source header and metadata.source say which one answered.
*/
package api
