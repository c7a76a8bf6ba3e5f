// Table - Anti-Fraud Detection and Alerting for Online Card Games
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/elevow/table-sub009

package alerts

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync"

	"github.com/elevow/table-sub009/internal/models"
	"github.com/elevow/table-sub009/internal/wal"
)

// Outbox is the durable write-ahead step of the store. *wal.BadgerWAL
// implements it.
type Outbox interface {
	Write(ctx context.Context, record interface{}) (entryID string, err error)
	Apply(ctx context.Context, entryID string, replayer wal.Replayer) error
}

type writeOp string

const (
	opCreate       writeOp = "create"
	opUpdateStatus writeOp = "update_status"
)

// writeRecord is the outbox payload. It carries the full alert snapshot so
// an update can be replayed even if the create never reached the repository.
type writeRecord struct {
	Op    writeOp           `json:"op"`
	Alert models.AdminAlert `json:"alert"`
}

// Replayer applies outbox records to a Repository. It is the wal.Replayer
// handed to the outbox retry loop and to startup recovery; sharing one
// Replayer with the Store serializes writes for the same alert.
type Replayer struct {
	repo  Repository
	locks [64]sync.Mutex
}

// NewReplayer creates a replayer that writes to repo.
func NewReplayer(repo Repository) *Replayer {
	return &Replayer{repo: repo}
}

// Replay implements wal.Replayer.
func (r *Replayer) Replay(ctx context.Context, entry *wal.Entry) error {
	var rec writeRecord
	if err := entry.UnmarshalPayload(&rec); err != nil {
		return fmt.Errorf("decode outbox entry %s: %w", entry.ID, err)
	}
	return r.apply(ctx, rec)
}

func (r *Replayer) lockFor(id string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(id))
	return &r.locks[h.Sum32()%uint32(len(r.locks))]
}

// apply is idempotent. A create of an existing id is ignored by the
// repository; an update is skipped when the stored copy is already at least
// as new, and becomes a create when the alert never made it to storage.
func (r *Replayer) apply(ctx context.Context, rec writeRecord) error {
	mu := r.lockFor(rec.Alert.ID)
	mu.Lock()
	defer mu.Unlock()

	switch rec.Op {
	case opCreate:
		return r.repo.Create(ctx, rec.Alert)

	case opUpdateStatus:
		stored, err := r.repo.Get(ctx, rec.Alert.ID)
		if err != nil {
			return err
		}
		if stored == nil {
			return r.repo.Create(ctx, rec.Alert)
		}
		if stored.UpdatedAt >= rec.Alert.UpdatedAt {
			return nil
		}
		updated, err := r.repo.UpdateStatus(ctx, rec.Alert.ID, rec.Alert.Status, rec.Alert.UpdatedAt)
		if err != nil {
			return err
		}
		if updated == nil {
			return fmt.Errorf("alert %s disappeared during update", rec.Alert.ID)
		}
		return nil

	default:
		return fmt.Errorf("unknown outbox operation %q", rec.Op)
	}
}
