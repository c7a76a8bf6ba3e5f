// Table - Anti-Fraud Detection and Alerting for Online Card Games
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/elevow/table-sub009

// Package wal provides a durable outbox for alert writes, backed by BadgerDB.
//
// The alert store appends every create and status change to the outbox before
// its in-memory write is final. Durable storage is then updated in the
// background and the entry confirmed. Anything left pending by a failed write
// or a crash is replayed by the RetryLoop until it succeeds, expires or runs
// out of attempts.
//
//	Store.Add → Outbox Write (fsync) → memory → Repository.Create → Outbox Confirm
//	                                                   ↓ (on failure)
//	                                            entry kept for replay
//
// # Components
//
//   - BadgerWAL: the outbox itself
//   - RetryLoop: background replay of pending entries
//   - Compactor: periodic removal of confirmed entries and value log GC
//
// # Usage
//
//	w, err := wal.Open(&cfg)
//	if err != nil {
//	    return err
//	}
//	defer w.Close()
//
//	id, err := w.Write(ctx, record)
//	// ... persist record ...
//	err = w.Confirm(ctx, id)
//
// On startup call RecoverPending with the same Replayer the RetryLoop uses.
package wal
