// Table - Anti-Fraud Detection and Alerting for Online Card Games
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/elevow/table-sub009

/*
Package alerts keeps the admin alert registry.

Store is the in-process cache that turns analyzer results into alerts. Every
mutation is visible to List and Get as soon as the call returns; the durable
write to a Repository happens in the background and never fails the caller.

# Persistence

With an Outbox configured, Add and UpdateStatus append an outbox record
before the cache write is committed. A background goroutine applies the
record to the repository and confirms it; anything left unconfirmed (the
repository was down, the process died) is replayed later by the outbox
retry loop through Replayer. Without an outbox, writes are attempted once
and failures are logged and counted.

# Repositories

  - DuckDBRepository: database/sql over duckdb-go, JSON columns
  - PostgresRepository: pgx connection pool, JSONB columns
  - MemoryRepository: tests and local development
  - BreakerRepository: circuit breaker and query timeout around any of them

Reads that should see alerts written by other instances go through
ListWithFallback, which asks the repository first and serves the cache
snapshot when the repository fails.
*/
package alerts
