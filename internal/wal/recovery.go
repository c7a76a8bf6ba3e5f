// Table - Anti-Fraud Detection and Alerting for Online Card Games
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/elevow/table-sub009

package wal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/elevow/table-sub009/internal/logging"
)

// Replayer applies an outbox entry to its destination. Replay must be
// idempotent: an entry may be applied more than once if the process dies
// between Replay and Confirm.
type Replayer interface {
	Replay(ctx context.Context, entry *Entry) error
}

// ReplayerFunc adapts a function to Replayer.
type ReplayerFunc func(ctx context.Context, entry *Entry) error

// Replay implements Replayer.
func (f ReplayerFunc) Replay(ctx context.Context, entry *Entry) error {
	return f(ctx, entry)
}

// RecoveryResult summarizes a RecoverPending pass.
type RecoveryResult struct {
	TotalPending int
	Recovered    int
	Failed       int
	Expired      int
	Skipped      int
	Errors       []error
	Duration     time.Duration
}

// RecoverPending replays everything left pending by a previous run. It is
// safe to call more than once.
func (w *BadgerWAL) RecoverPending(ctx context.Context, replayer Replayer) (*RecoveryResult, error) {
	if replayer == nil {
		return nil, errors.New("replayer cannot be nil")
	}

	start := time.Now()
	result := &RecoveryResult{}

	entries, err := w.GetPending(ctx)
	if err != nil {
		return nil, fmt.Errorf("get pending entries: %w", err)
	}

	result.TotalPending = len(entries)
	if result.TotalPending == 0 {
		logging.Info().Msg("Outbox recovery: no pending entries found")
		result.Duration = time.Since(start)
		return result, nil
	}

	logging.Info().Int("pending_entries", result.TotalPending).Msg("Outbox recovery found pending entries")
	RecordWALRecoveredEntries(int64(result.TotalPending))

	for _, entry := range entries {
		select {
		case <-ctx.Done():
			result.Errors = append(result.Errors, ctx.Err())
			result.Duration = time.Since(start)
			return result, ctx.Err()
		default:
		}

		if !w.TryClaimEntry(entry.ID) {
			result.Skipped++
			continue
		}
		if current, err := w.getPending(entry.ID); err == nil {
			w.recoverEntry(ctx, current, replayer, result)
		} else {
			result.Skipped++
		}
		w.ReleaseEntry(entry.ID)
	}

	result.Duration = time.Since(start)
	logging.Info().
		Int("recovered", result.Recovered).
		Int("failed", result.Failed).
		Int("expired", result.Expired).
		Int("skipped", result.Skipped).
		Dur("duration", result.Duration).
		Msg("Outbox recovery complete")

	return result, nil
}

func (w *BadgerWAL) recoverEntry(ctx context.Context, entry *Entry, replayer Replayer, result *RecoveryResult) {
	if time.Since(entry.CreatedAt) > w.config.EntryTTL {
		if err := w.DeleteEntry(ctx, entry.ID); err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("delete expired entry %s: %w", entry.ID, err))
		}
		result.Expired++
		RecordWALExpiredEntry()
		return
	}

	if entry.Attempts >= w.config.MaxRetries {
		if err := w.DeleteEntry(ctx, entry.ID); err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("delete max-retried entry %s: %w", entry.ID, err))
		}
		result.Failed++
		RecordWALMaxRetriesExceeded()
		return
	}

	if err := replayAndConfirm(ctx, w, replayer, entry); err != nil {
		result.Failed++
		result.Errors = append(result.Errors, err)
		return
	}
	result.Recovered++
}

// replayAndConfirm applies entry and confirms it. A failed replay is
// recorded on the entry so backoff applies to the next attempt.
func replayAndConfirm(ctx context.Context, w *BadgerWAL, replayer Replayer, entry *Entry) error {
	replayCtx := ctx
	if w.config.ReplayTimeout > 0 {
		var cancel context.CancelFunc
		replayCtx, cancel = context.WithTimeout(ctx, w.config.ReplayTimeout)
		defer cancel()
	}

	if err := replayer.Replay(replayCtx, entry); err != nil {
		RecordWALReplayFailure()
		if updateErr := w.UpdateAttempt(ctx, entry.ID, err.Error()); updateErr != nil && !errors.Is(updateErr, ErrEntryNotFound) {
			logging.Error().Err(updateErr).Str("entry_id", entry.ID).Msg("Outbox: failed to record attempt")
		}
		return fmt.Errorf("replay entry %s: %w", entry.ID, err)
	}

	if err := w.Confirm(ctx, entry.ID); err != nil {
		if errors.Is(err, ErrEntryNotFound) {
			logging.Debug().Str("entry_id", entry.ID).Msg("Outbox: entry already confirmed")
			return nil
		}
		return fmt.Errorf("confirm entry %s: %w", entry.ID, err)
	}
	return nil
}

// Apply replays the entry now, for callers that already hold the record and
// want it persisted without waiting for the retry loop. It does nothing if
// another goroutine is already applying the entry.
func (w *BadgerWAL) Apply(ctx context.Context, entryID string, replayer Replayer) error {
	if !w.TryClaimEntry(entryID) {
		return nil
	}
	defer w.ReleaseEntry(entryID)

	entry, err := w.getPending(entryID)
	if errors.Is(err, ErrEntryNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return replayAndConfirm(ctx, w, replayer, entry)
}
