// Table - Anti-Fraud Detection and Alerting for Online Card Games
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/elevow/table-sub009

package wal

import (
	"context"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/elevow/table-sub009/internal/logging"
)

// Compactor periodically removes confirmed entries and runs value log GC.
// Unconfirmed entries expire through their BadgerDB TTL.
type Compactor struct {
	wal    *BadgerWAL
	config Config
}

// NewCompactor creates a compactor for w.
func NewCompactor(w *BadgerWAL) *Compactor {
	return &Compactor{wal: w, config: w.GetConfig()}
}

// Serve runs compaction every CompactInterval until ctx is canceled.
func (c *Compactor) Serve(ctx context.Context) error {
	ticker := time.NewTicker(c.config.CompactInterval)
	defer ticker.Stop()

	logging.Info().Dur("interval", c.config.CompactInterval).Msg("Outbox compactor started")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			c.RunNow()
		}
	}
}

// RunNow compacts immediately and returns the number of entries removed.
func (c *Compactor) RunNow() int64 {
	start := time.Now()

	deleted, err := c.deleteConfirmedEntries()
	if err != nil {
		logging.Error().Err(err).Msg("Outbox compaction failed to delete confirmed entries")
	}

	if err := c.wal.RunGC(); err != nil {
		logging.Error().Err(err).Msg("Outbox compaction GC error")
	}

	c.wal.mu.Lock()
	c.wal.lastCompaction = time.Now()
	c.wal.mu.Unlock()

	duration := time.Since(start)
	RecordWALCompaction()
	RecordWALCompactionLatency(duration.Seconds())
	if deleted > 0 {
		RecordWALEntriesCompacted(deleted)
		logging.Info().
			Int64("confirmed", deleted).
			Dur("duration", duration).
			Msg("Outbox compaction removed entries")
	}
	return deleted
}

func (c *Compactor) deleteConfirmedEntries() (int64, error) {
	var count int64

	err := c.wal.db.Update(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)

		// Collect keys to delete (can't delete while iterating)
		var keysToDelete [][]byte
		prefix := []byte(prefixConfirmed)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			keysToDelete = append(keysToDelete, it.Item().KeyCopy(nil))
		}
		it.Close()

		for _, key := range keysToDelete {
			if err := txn.Delete(key); err != nil {
				return err
			}
			count++
		}
		return nil
	})

	return count, err
}
