// Table - Anti-Fraud Detection and Alerting for Online Card Games
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/elevow/table-sub009

package scheduler

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/elevow/table-sub009/internal/config"
	"github.com/elevow/table-sub009/internal/detection"
	"github.com/elevow/table-sub009/internal/logging"
	"github.com/elevow/table-sub009/internal/metrics"
	"github.com/elevow/table-sub009/internal/models"
)

var (
	// ErrAlreadyRunning is returned by Start when the loop is already armed.
	ErrAlreadyRunning = errors.New("security scheduler already running")

	// ErrRunInProgress is returned by RunOnce when another run has not
	// finished yet.
	ErrRunInProgress = errors.New("security scan already in progress")
)

// AlertSink receives analyzer verdicts. *alerts.Store implements it.
type AlertSink interface {
	AddFromMultiAccount(linkage detection.AccountLinkage) models.AdminAlert
	AddFromCollusion(d detection.CollusionDetection) []models.AdminAlert
}

// RunResult describes one completed scan.
type RunResult struct {
	RunID      string        `json:"run_id"`
	StartedAt  time.Time     `json:"started_at"`
	Duration   time.Duration `json:"duration"`
	SinceMs    int64         `json:"since_ms"`
	Logins     int           `json:"logins"`
	Hands      int           `json:"hands"`
	Confidence float64       `json:"confidence"`

	// AlertIDs lists every alert the run created.
	AlertIDs []string `json:"alert_ids"`
}

// Option configures a SecurityScheduler.
type Option func(*SecurityScheduler)

// WithHandSource enables the collusion pass when scheduler.collusion_enabled
// is set.
func WithHandSource(h detection.HandSource) Option {
	return func(s *SecurityScheduler) { s.hands = h }
}

// WithLocker guards each run with a lock shared across instances.
func WithLocker(l Locker, key string, ttl time.Duration) Option {
	return func(s *SecurityScheduler) {
		s.locker = l
		s.lockKey = key
		s.lockTTL = ttl
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *SecurityScheduler) { s.now = now }
}

// SecurityScheduler periodically scans recent logins (and optionally hands)
// and forwards the verdicts to the alert store.
type SecurityScheduler struct {
	provider *config.Provider
	logins   detection.LoginSource
	hands    detection.HandSource
	sink     AlertSink
	analyzer *detection.MultiAccountAnalyzer
	locker   Locker
	lockKey  string
	lockTTL  time.Duration
	now      func() time.Time
	logger   zerolog.Logger

	inProgress atomic.Bool
	lastRun    atomic.Int64
	runs       sync.WaitGroup

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// New creates a scheduler. Configuration is read from provider at Start
// (interval) and at every run (everything else).
func New(provider *config.Provider, logins detection.LoginSource, sink AlertSink, opts ...Option) *SecurityScheduler {
	s := &SecurityScheduler{
		provider: provider,
		logins:   logins,
		sink:     sink,
		analyzer: detection.NewMultiAccountAnalyzer(),
		now:      time.Now,
		logger:   logging.WithComponent("security-scheduler"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start arms the repeating timer. It is a no-op when the scheduler is
// disabled. The interval is fixed until the next Stop/Start cycle.
func (s *SecurityScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return ErrAlreadyRunning
	}

	cfg := s.provider.Current().Scheduler
	if !cfg.Enabled {
		s.logger.Info().Msg("Security scheduler disabled")
		return nil
	}
	interval := cfg.Interval()
	if interval <= 0 {
		return fmt.Errorf("invalid scheduler interval %v", interval)
	}

	s.running = true
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})

	s.logger.Info().
		Dur("interval", interval).
		Int64("lookback_ms", cfg.LookbackMs).
		Bool("collusion", cfg.CollusionEnabled && s.hands != nil).
		Msg("Starting security scheduler")

	go s.loop(ctx, interval, s.stopCh, s.doneCh)
	return nil
}

// Stop prevents future ticks and waits for the timer loop to exit. A run
// already in flight keeps going; use Wait to block on it.
func (s *SecurityScheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	stopCh, doneCh := s.stopCh, s.doneCh
	s.running = false
	s.mu.Unlock()

	close(stopCh)
	<-doneCh
	s.logger.Info().Msg("Security scheduler stopped")
	return nil
}

// IsRunning reports whether the timer is armed.
func (s *SecurityScheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Wait blocks until every run started by the timer has returned.
func (s *SecurityScheduler) Wait() {
	s.runs.Wait()
}

// LastRun returns the completion time of the last run that analyzed a
// non-empty batch. It is the zero time before the first such run.
func (s *SecurityScheduler) LastRun() time.Time {
	ms := s.lastRun.Load()
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}

func (s *SecurityScheduler) loop(ctx context.Context, interval time.Duration, stopCh, doneCh chan struct{}) {
	defer close(doneCh)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.runs.Add(1)
			go func() {
				defer s.runs.Done()
				s.tick(ctx)
			}()
		case <-stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

// tick runs one scan on behalf of the timer. Errors are logged, never
// propagated, so the loop keeps running.
func (s *SecurityScheduler) tick(ctx context.Context) {
	timeout := s.provider.Current().Scheduler.RunTimeout

	// Stopping the timer must not cancel a run in flight.
	runCtx := context.WithoutCancel(ctx)
	if timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(runCtx, timeout)
		defer cancel()
	}

	result, err := s.RunOnce(runCtx)
	switch {
	case errors.Is(err, ErrRunInProgress), errors.Is(err, ErrLockHeld):
		s.logger.Warn().Err(err).Msg("Skipping security scan tick")
	case err != nil:
		s.logger.Error().Err(err).Msg("Security scan failed")
	default:
		s.logger.Debug().
			Str("run_id", result.RunID).
			Int("logins", result.Logins).
			Int("hands", result.Hands).
			Int("alerts", len(result.AlertIDs)).
			Dur("duration", result.Duration).
			Msg("Security scan completed")
	}
}

// RunOnce performs a single scan using the current configuration. It returns
// ErrRunInProgress when another run is active in this process and
// ErrLockHeld when another instance holds the distributed lock.
func (s *SecurityScheduler) RunOnce(ctx context.Context) (result RunResult, err error) {
	if !s.inProgress.CompareAndSwap(false, true) {
		metrics.RecordSchedulerSkip("in_progress")
		return RunResult{}, ErrRunInProgress
	}
	defer s.inProgress.Store(false)

	if s.locker != nil {
		unlock, lockErr := s.locker.Acquire(ctx, s.lockKey, s.lockTTL)
		if errors.Is(lockErr, ErrLockHeld) {
			metrics.RecordSchedulerSkip("lock_held")
			return RunResult{}, lockErr
		}
		if lockErr != nil {
			metrics.RecordSchedulerRun("error", 0)
			return RunResult{}, fmt.Errorf("acquire scheduler lock: %w", lockErr)
		}
		defer unlock()
	}

	start := s.now()
	result = RunResult{RunID: logging.GenerateRunID(), StartedAt: start}
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().
				Str("run_id", result.RunID).
				Interface("panic", r).
				Str("stack", string(debug.Stack())).
				Msg("Security scan panicked")
			err = fmt.Errorf("security scan panicked: %v", r)
		}
		result.Duration = s.now().Sub(start)
		switch {
		case err != nil:
			metrics.RecordSchedulerRun("error", result.Duration)
		case result.Logins+result.Hands == 0:
			metrics.RecordSchedulerRun("empty", result.Duration)
		default:
			metrics.RecordSchedulerRun("success", result.Duration)
		}
	}()

	err = s.scan(logging.ContextWithRunID(ctx, result.RunID), &result)
	return result, err
}

func (s *SecurityScheduler) scan(ctx context.Context, result *RunResult) error {
	cfg := s.provider.Current()
	result.SinceMs = result.StartedAt.UnixMilli() - cfg.Scheduler.LookbackMs
	collusion := cfg.Scheduler.CollusionEnabled && s.hands != nil

	var (
		logins []detection.LoginEvent
		hands  []detection.HandRecord
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(guarded("fetch logins", func() error {
		var err error
		logins, err = s.logins.FetchLoginsSince(gctx, result.SinceMs)
		if err != nil {
			return fmt.Errorf("fetch logins: %w", err)
		}
		return nil
	}))
	if collusion {
		g.Go(guarded("fetch hands", func() error {
			var err error
			hands, err = s.hands.FetchHandsSince(gctx, result.SinceMs)
			if err != nil {
				return fmt.Errorf("fetch hands: %w", err)
			}
			return nil
		}))
	}
	if err := g.Wait(); err != nil {
		return err
	}

	result.Logins = len(logins)
	result.Hands = len(hands)
	if len(logins) == 0 && len(hands) == 0 {
		return nil
	}

	if len(logins) > 0 {
		began := time.Now()
		linkage := s.analyzer.Analyze(logins, cfg.MultiAccount)
		metrics.RecordAnalyzerRun("multi_account", len(logins), time.Since(began))

		alert := s.sink.AddFromMultiAccount(linkage)
		result.Confidence = linkage.Confidence
		result.AlertIDs = append(result.AlertIDs, alert.ID)
	}

	if len(hands) > 0 {
		began := time.Now()
		d := detection.NewCollusionAnalyzer(cfg.Collusion).Analyze(hands)
		metrics.RecordAnalyzerRun("collusion", len(hands), time.Since(began))

		for _, a := range s.sink.AddFromCollusion(d) {
			result.AlertIDs = append(result.AlertIDs, a.ID)
		}
	}

	s.lastRun.Store(s.now().UnixMilli())
	return nil
}

// guarded turns a panic in fn into an error. errgroup goroutines run outside
// the recover in RunOnce.
func guarded(name string, fn func() error) func() error {
	return func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("%s panicked: %v", name, r)
			}
		}()
		return fn()
	}
}
