// Table - Anti-Fraud Detection and Alerting for Online Card Games
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/elevow/table-sub009

// Package testinfra starts disposable Postgres and Redis containers for the
// integration tests of the alert repository and the scheduler lock.
//
// Tests call the Start helpers directly; they skip when Docker is not
// available or when running with -short:
//
//	func TestPostgresRepository_Contract(t *testing.T) {
//	    pg := testinfra.StartPostgres(t)
//	    pool, err := pgxpool.New(ctx, pg.DSN)
//	    // ...
//	}
//
// First runs pull the images; later runs use the local cache.
package testinfra
