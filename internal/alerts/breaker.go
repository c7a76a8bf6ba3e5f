// Table - Anti-Fraud Detection and Alerting for Online Card Games
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/elevow/table-sub009

package alerts

import (
	"context"
	"errors"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/elevow/table-sub009/internal/logging"
	"github.com/elevow/table-sub009/internal/metrics"
	"github.com/elevow/table-sub009/internal/models"
)

// BreakerConfig configures BreakerRepository.
type BreakerConfig struct {
	// Name labels log lines and metrics, usually the backend name.
	Name string

	// MaxFailures is the number of consecutive failures that opens the circuit.
	MaxFailures uint32

	// OpenTimeout is how long the circuit stays open before a trial request.
	OpenTimeout time.Duration

	// QueryTimeout bounds each call. Zero means no timeout.
	QueryTimeout time.Duration
}

// BreakerRepository guards a Repository with a circuit breaker. While the
// circuit is open calls fail immediately with gobreaker.ErrOpenState, so the
// read path falls back to the cache without waiting on a dead database.
type BreakerRepository struct {
	next    Repository
	name    string
	timeout time.Duration
	cb      *gobreaker.CircuitBreaker[any]
}

// NewBreakerRepository wraps next.
func NewBreakerRepository(next Repository, cfg BreakerConfig) *BreakerRepository {
	if cfg.Name == "" {
		cfg.Name = "alert-repository"
	}
	if cfg.MaxFailures == 0 {
		cfg.MaxFailures = 5
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = 30 * time.Second
	}

	metrics.CircuitBreakerState.WithLabelValues(cfg.Name).Set(0)
	metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(cfg.Name).Set(0)

	maxFailures := cfg.MaxFailures
	cb := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("[CIRCUIT BREAKER] State transition")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, from.String(), to.String()).Inc()
			if to == gobreaker.StateClosed {
				metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(name).Set(0)
			}
		},
		// A canceled caller says nothing about the database.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	})

	return &BreakerRepository{
		next:    next,
		name:    cfg.Name,
		timeout: cfg.QueryTimeout,
		cb:      cb,
	}
}

// State returns the breaker state: closed, half-open or open.
func (b *BreakerRepository) State() string {
	return b.cb.State().String()
}

func (b *BreakerRepository) execute(ctx context.Context, op string, fn func(ctx context.Context) (any, error)) (any, error) {
	if b.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.timeout)
		defer cancel()
	}

	start := time.Now()
	result, err := b.cb.Execute(func() (any, error) {
		return fn(ctx)
	})

	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.CircuitBreakerRequests.WithLabelValues(b.name, "rejected").Inc()
	case err != nil:
		metrics.CircuitBreakerRequests.WithLabelValues(b.name, "failure").Inc()
		metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(b.name).Set(float64(b.cb.Counts().ConsecutiveFailures))
		metrics.RecordRepositoryQuery(b.name, op, time.Since(start), err)
	default:
		metrics.CircuitBreakerRequests.WithLabelValues(b.name, "success").Inc()
		metrics.RecordRepositoryQuery(b.name, op, time.Since(start), nil)
	}
	return result, err
}

func (b *BreakerRepository) Create(ctx context.Context, a models.AdminAlert) error {
	_, err := b.execute(ctx, "create", func(ctx context.Context) (any, error) {
		return nil, b.next.Create(ctx, a)
	})
	return err
}

func (b *BreakerRepository) List(ctx context.Context) ([]models.AdminAlert, error) {
	result, err := b.execute(ctx, "list", func(ctx context.Context) (any, error) {
		return b.next.List(ctx)
	})
	if err != nil {
		return nil, err
	}
	return result.([]models.AdminAlert), nil
}

func (b *BreakerRepository) Get(ctx context.Context, id string) (*models.AdminAlert, error) {
	result, err := b.execute(ctx, "get", func(ctx context.Context) (any, error) {
		return b.next.Get(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	return result.(*models.AdminAlert), nil
}

func (b *BreakerRepository) UpdateStatus(ctx context.Context, id string, status models.Status, updatedAt int64) (*models.AdminAlert, error) {
	result, err := b.execute(ctx, "update_status", func(ctx context.Context) (any, error) {
		return b.next.UpdateStatus(ctx, id, status, updatedAt)
	})
	if err != nil {
		return nil, err
	}
	return result.(*models.AdminAlert), nil
}

// stateToFloat converts circuit breaker state to numeric value for metrics
func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}
