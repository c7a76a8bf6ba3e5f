// Table - Anti-Fraud Detection and Alerting for Online Card Games
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/elevow/table-sub009

package services

import (
	"context"
	"fmt"
)

// OutboxStartStopper is satisfied by *wal.RetryLoop.
type OutboxStartStopper interface {
	Start(ctx context.Context) error
	Stop()
	IsRunning() bool
}

// OutboxRetryService replays unconfirmed alert writes in the background.
type OutboxRetryService struct {
	retryLoop OutboxStartStopper
	name      string
}

// NewOutboxRetryService wraps retryLoop.
func NewOutboxRetryService(retryLoop OutboxStartStopper) *OutboxRetryService {
	return &OutboxRetryService{retryLoop: retryLoop, name: "outbox-retry-loop"}
}

// Serve implements suture.Service. Stop blocks until the loop goroutine has
// exited.
func (s *OutboxRetryService) Serve(ctx context.Context) error {
	if err := s.retryLoop.Start(ctx); err != nil {
		return fmt.Errorf("outbox retry loop start failed: %w", err)
	}
	<-ctx.Done()
	s.retryLoop.Stop()
	return ctx.Err()
}

// String implements fmt.Stringer.
func (s *OutboxRetryService) String() string {
	return s.name
}

// Serving is satisfied by *wal.Compactor.
type Serving interface {
	Serve(ctx context.Context) error
}

// OutboxCompactorService removes confirmed and expired outbox entries.
type OutboxCompactorService struct {
	compactor Serving
	name      string
}

// NewOutboxCompactorService wraps compactor.
func NewOutboxCompactorService(compactor Serving) *OutboxCompactorService {
	return &OutboxCompactorService{compactor: compactor, name: "outbox-compactor"}
}

// Serve implements suture.Service.
func (s *OutboxCompactorService) Serve(ctx context.Context) error {
	return s.compactor.Serve(ctx)
}

// String implements fmt.Stringer.
func (s *OutboxCompactorService) String() string {
	return s.name
}
