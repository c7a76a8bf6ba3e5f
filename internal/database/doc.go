// Table - Anti-Fraud Detection and Alerting for Online Card Games
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/elevow/table-sub009

/*
Package database opens the storage backends used by the alert repository and
the gameplay event source.

DuckDB is the default embedded store:

	db, err := database.OpenDuckDB(cfg.Database)

Postgres is used when several instances share one alert table:

	pool, err := database.OpenPostgres(ctx, cfg.Database)

Schemas are owned by the packages that query them (alerts.DuckDBRepository,
alerts.PostgresRepository, detection.DuckDBEventSource). This package only
manages connections.
*/
package database
