// Table - Anti-Fraud Detection and Alerting for Online Card Games
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/elevow/table-sub009

package wal

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"github.com/elevow/table-sub009/internal/logging"
)

// RetryLoop periodically replays pending outbox entries.
type RetryLoop struct {
	wal      *BadgerWAL
	replayer Replayer
	config   Config

	ctx    context.Context
	cancel context.CancelFunc

	// all protected by mu
	mu       sync.Mutex
	running  bool
	stopping bool
	stopDone chan struct{}
}

// NewRetryLoop creates a retry loop that hands pending entries to replayer.
func NewRetryLoop(wal *BadgerWAL, replayer Replayer) *RetryLoop {
	return &RetryLoop{
		wal:      wal,
		replayer: replayer,
		config:   wal.GetConfig(),
	}
}

// Start begins the background loop. It runs until Stop is called or ctx is
// canceled. Starting a running loop is a no-op.
func (r *RetryLoop) Start(ctx context.Context) error {
	r.mu.Lock()

	// Wait for any in-progress Stop() to complete
	for r.stopping {
		stopDone := r.stopDone
		r.mu.Unlock()
		<-stopDone
		r.mu.Lock()
	}

	if r.running {
		r.mu.Unlock()
		return nil
	}

	r.ctx, r.cancel = context.WithCancel(ctx)
	r.running = true
	r.stopDone = make(chan struct{})

	loopCtx := r.ctx
	done := r.stopDone

	r.mu.Unlock()

	go r.runWithContext(loopCtx, done)

	logging.Info().
		Dur("interval", r.config.RetryInterval).
		Int("max_retries", r.config.MaxRetries).
		Msg("Outbox retry loop started")
	return nil
}

// Stop stops the loop and waits for the goroutine to exit.
func (r *RetryLoop) Stop() {
	r.mu.Lock()
	if !r.running || r.stopping {
		r.mu.Unlock()
		return
	}

	r.cancel()
	r.running = false
	r.stopping = true
	stopDone := r.stopDone
	r.mu.Unlock()

	<-stopDone

	r.mu.Lock()
	r.stopping = false
	r.mu.Unlock()

	logging.Info().Msg("Outbox retry loop stopped")
}

// IsRunning returns whether the loop is active.
func (r *RetryLoop) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// Serve runs the loop until ctx is canceled. It lets a supervisor own the
// loop's lifetime.
func (r *RetryLoop) Serve(ctx context.Context) error {
	if err := r.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	r.Stop()
	return ctx.Err()
}

func (r *RetryLoop) runWithContext(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(r.config.RetryInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.RetryPending(ctx)
		}
	}
}

type retryResult int

const (
	retryResultSuccess retryResult = iota
	retryResultFailed
	retryResultExpired
	retryResultMaxRetried
	retryResultSkipped
)

// RetryPending runs one replay pass over the pending entries.
func (r *RetryLoop) RetryPending(ctx context.Context) {
	entries, err := r.wal.GetPending(ctx)
	if err != nil {
		logging.Error().Err(err).Msg("Outbox retry: failed to get pending entries")
		return
	}
	if len(entries) == 0 {
		return
	}

	var success, failed, expired, maxRetried int
	for _, entry := range entries {
		select {
		case <-ctx.Done():
			return
		default:
		}

		switch r.processEntry(ctx, entry) {
		case retryResultSuccess:
			success++
		case retryResultFailed:
			failed++
		case retryResultExpired:
			expired++
		case retryResultMaxRetried:
			maxRetried++
		}
	}

	if success > 0 || failed > 0 || expired > 0 || maxRetried > 0 {
		logging.Info().
			Int("succeeded", success).
			Int("failed", failed).
			Int("expired", expired).
			Int("max_retried", maxRetried).
			Msg("Outbox retry complete")
	}
}

func (r *RetryLoop) processEntry(ctx context.Context, entry *Entry) retryResult {
	if !r.wal.TryClaimEntry(entry.ID) {
		return retryResultSkipped
	}
	defer r.wal.ReleaseEntry(entry.ID)

	// The snapshot may be stale: another goroutine can have applied the entry
	// between GetPending and the claim.
	current, err := r.wal.getPending(entry.ID)
	if err != nil {
		return retryResultSkipped
	}
	entry = current

	if time.Since(entry.CreatedAt) > r.config.EntryTTL {
		logging.Warn().Str("entry_id", entry.ID).Msg("Outbox retry: entry expired, removing")
		r.drop(ctx, entry)
		RecordWALExpiredEntry()
		return retryResultExpired
	}

	if entry.Attempts >= r.config.MaxRetries {
		logging.Error().
			Str("entry_id", entry.ID).
			Int("attempts", entry.Attempts).
			Str("last_error", entry.LastError).
			Msg("Outbox retry: entry exceeded max retries, removing")
		r.drop(ctx, entry)
		RecordWALMaxRetriesExceeded()
		return retryResultMaxRetried
	}

	if !r.isReadyForRetry(entry) {
		return retryResultSkipped
	}

	return r.attemptReplay(ctx, entry)
}

func (r *RetryLoop) drop(ctx context.Context, entry *Entry) {
	if err := r.wal.DeleteEntry(ctx, entry.ID); err != nil && !errors.Is(err, ErrEntryNotFound) {
		logging.Error().Err(err).Str("entry_id", entry.ID).Msg("Outbox retry: failed to delete entry")
	}
}

func (r *RetryLoop) isReadyForRetry(entry *Entry) bool {
	if entry.LastAttemptAt.IsZero() {
		return true
	}
	return time.Since(entry.LastAttemptAt) >= r.calculateBackoff(entry.Attempts)
}

func (r *RetryLoop) attemptReplay(ctx context.Context, entry *Entry) retryResult {
	if err := replayAndConfirm(ctx, r.wal, r.replayer, entry); err != nil {
		logging.Warn().
			Err(err).
			Str("entry_id", entry.ID).
			Int("attempt", entry.Attempts+1).
			Msg("Outbox retry: replay failed")
		return retryResultFailed
	}
	return retryResultSuccess
}

// calculateBackoff returns base * 2^attempts, capped at 5 minutes.
func (r *RetryLoop) calculateBackoff(attempts int) time.Duration {
	base := r.config.RetryBackoff
	maxBackoff := 5 * time.Minute

	if attempts > 50 {
		return maxBackoff
	}

	backoff := time.Duration(float64(base) * math.Pow(2, float64(attempts)))
	if backoff < 0 || backoff > maxBackoff {
		backoff = maxBackoff
	}
	return backoff
}
