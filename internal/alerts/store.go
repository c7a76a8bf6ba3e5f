// Table - Anti-Fraud Detection and Alerting for Online Card Games
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/elevow/table-sub009

package alerts

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/elevow/table-sub009/internal/detection"
	"github.com/elevow/table-sub009/internal/logging"
	"github.com/elevow/table-sub009/internal/metrics"
	"github.com/elevow/table-sub009/internal/models"
)

// Notifier is told about alerts after they are committed to the cache.
// Errors are logged and otherwise ignored.
type Notifier interface {
	AlertCreated(ctx context.Context, a models.AdminAlert) error
	AlertStatusChanged(ctx context.Context, a models.AdminAlert) error
}

// Option configures a Store.
type Option func(*Store)

// WithOutbox makes every mutation durable in o before it is committed to the
// cache.
func WithOutbox(o Outbox) Option {
	return func(s *Store) { s.outbox = o }
}

// WithNotifier registers n for created and updated alerts.
func WithNotifier(n Notifier) Option {
	return func(s *Store) { s.notifier = n }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator replaces the UUID generator used for alerts without an id.
func WithIDGenerator(fn func() string) Option {
	return func(s *Store) { s.newID = fn }
}

// WithPersistTimeout bounds each background repository write.
func WithPersistTimeout(d time.Duration) Option {
	return func(s *Store) { s.persistTimeout = d }
}

// Store is the authoritative in-process alert cache. All methods are safe for
// concurrent use; mutations are serialized.
type Store struct {
	repo     Repository
	replayer *Replayer
	outbox   Outbox
	notifier Notifier

	now            func() time.Time
	newID          func() string
	persistTimeout time.Duration

	mu     sync.RWMutex
	alerts map[string]models.AdminAlert

	background sync.WaitGroup
}

// NewStore creates a store that persists to repo. A nil repo keeps alerts in
// memory only.
func NewStore(repo Repository, opts ...Option) *Store {
	s := &Store{
		repo:           repo,
		now:            time.Now,
		newID:          uuid.NewString,
		persistTimeout: 10 * time.Second,
		alerts:         make(map[string]models.AdminAlert),
	}
	if repo != nil {
		s.replayer = NewReplayer(repo)
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Add creates an alert from draft and returns it. Missing id, At and Status
// default to a new UUID, now and StatusNew. CreatedAt and UpdatedAt are both
// set to now. Adding an id that is already cached returns the cached alert
// unchanged.
func (s *Store) Add(draft models.AlertDraft) models.AdminAlert {
	s.mu.Lock()
	if draft.ID != "" {
		if existing, ok := s.alerts[draft.ID]; ok {
			s.mu.Unlock()
			logging.Debug().Str("alert_id", draft.ID).Msg("Alert already exists, ignoring duplicate add")
			return existing.Clone()
		}
	}

	now := s.now().UnixMilli()
	a := models.AdminAlert{
		ID:        draft.ID,
		Type:      draft.Type,
		Severity:  draft.Severity,
		Message:   draft.Message,
		At:        draft.At,
		Involved:  append([]string{}, draft.Involved...),
		Source:    draft.Source,
		Status:    draft.Status,
		Evidence:  make([]models.Evidence, len(draft.Evidence)),
		CreatedAt: now,
		UpdatedAt: now,
	}
	for i := range draft.Evidence {
		a.Evidence[i] = draft.Evidence[i].Clone()
	}
	if a.ID == "" {
		a.ID = s.newID()
	}
	if a.At == 0 {
		a.At = now
	}
	if a.Status == "" {
		a.Status = models.StatusNew
	}

	rec := writeRecord{Op: opCreate, Alert: a.Clone()}
	entryID := s.writeAhead(rec)
	s.alerts[a.ID] = a
	cached := len(s.alerts)
	s.mu.Unlock()

	metrics.RecordAlertCreated(string(a.Source), string(a.Severity))
	metrics.AlertsCached.Set(float64(cached))

	s.persist(rec, entryID)
	return a.Clone()
}

// UpdateStatus sets the status of a cached alert and bumps UpdatedAt. It
// returns nil, and records nothing, when id is not cached.
func (s *Store) UpdateStatus(id string, status models.Status) *models.AdminAlert {
	s.mu.Lock()
	a, ok := s.alerts[id]
	if !ok {
		s.mu.Unlock()
		return nil
	}

	a.Status = status
	// UpdatedAt strictly increases per alert so replays can tell old
	// snapshots from new ones.
	a.UpdatedAt = max(s.now().UnixMilli(), a.UpdatedAt+1)

	rec := writeRecord{Op: opUpdateStatus, Alert: a.Clone()}
	entryID := s.writeAhead(rec)
	s.alerts[id] = a
	s.mu.Unlock()

	metrics.RecordAlertStatusUpdate(string(status))

	s.persist(rec, entryID)
	out := a.Clone()
	return &out
}

// List returns a snapshot of the cache ordered by CreatedAt descending, ties
// broken by id. It never consults the repository.
func (s *Store) List() []models.AdminAlert {
	s.mu.RLock()
	list := make([]models.AdminAlert, 0, len(s.alerts))
	for _, a := range s.alerts {
		list = append(list, a.Clone())
	}
	s.mu.RUnlock()

	sortNewestFirst(list)
	return list
}

// Get returns a copy of the cached alert, or nil.
func (s *Store) Get(id string) *models.AdminAlert {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.alerts[id]
	if !ok {
		return nil
	}
	c := a.Clone()
	return &c
}

// Len returns the number of cached alerts.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.alerts)
}

// AddFromCollusion stores one alert per draft of d. Every alert carries the
// whole evidence list of the batch.
func (s *Store) AddFromCollusion(d detection.CollusionDetection) []models.AdminAlert {
	created := make([]models.AdminAlert, 0, len(d.Alerts))
	for _, draft := range d.Alerts {
		draft.Source = models.SourceCollusion
		draft.Status = models.StatusNew
		draft.Evidence = d.Evidence
		created = append(created, s.Add(draft))
	}
	return created
}

// AddFromMultiAccount stores one aggregate alert for l. Its evidence is a
// single record bundling every signal of the linkage.
func (s *Store) AddFromMultiAccount(l detection.AccountLinkage) models.AdminAlert {
	accounts := "none"
	if len(l.LinkedAccounts) > 0 {
		accounts = strings.Join(l.LinkedAccounts, ", ")
	}
	return s.Add(models.AlertDraft{
		Type:     models.AlertTypeMultiAccount,
		Severity: severityForConfidence(l.Confidence),
		Message: fmt.Sprintf("Possible multi-account linkage (%d%% confidence): %s",
			int(math.Round(l.Confidence*100)), accounts),
		Involved: l.LinkedAccounts,
		Source:   models.SourceMultiAccount,
		Status:   models.StatusNew,
		Evidence: []models.Evidence{models.NewSignalsEvidence(l.Signals)},
	})
}

func severityForConfidence(c float64) models.Severity {
	switch {
	case c >= 0.7:
		return models.SeverityHigh
	case c >= 0.4:
		return models.SeverityMedium
	default:
		return models.SeverityLow
	}
}

// Replayer returns the replayer the store persists through, or nil for a
// memory-only store. Hand it to the outbox retry loop so both paths share
// per-alert ordering.
func (s *Store) Replayer() *Replayer {
	return s.replayer
}

// Wait blocks until every background write started so far has finished.
func (s *Store) Wait() {
	s.background.Wait()
}

// writeAhead appends rec to the outbox. It returns "" when there is no outbox
// or the write failed; the mutation then falls back to a best-effort write.
// Called with s.mu held.
func (s *Store) writeAhead(rec writeRecord) string {
	if s.outbox == nil {
		return ""
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.persistTimeout)
	defer cancel()

	entryID, err := s.outbox.Write(ctx, rec)
	if err != nil {
		metrics.RecordPersistFailure("outbox")
		logging.Error().Err(err).
			Str("alert_id", rec.Alert.ID).
			Str("op", string(rec.Op)).
			Msg("Outbox write failed, falling back to best-effort persistence")
		return ""
	}
	return entryID
}

// persist applies rec to the repository in the background and then notifies.
func (s *Store) persist(rec writeRecord, entryID string) {
	if s.replayer == nil && s.notifier == nil {
		return
	}

	s.background.Add(1)
	go func() {
		defer s.background.Done()
		ctx, cancel := context.WithTimeout(context.Background(), s.persistTimeout)
		defer cancel()

		var err error
		switch {
		case s.replayer == nil:
		case entryID != "":
			err = s.outbox.Apply(ctx, entryID, s.replayer)
		default:
			err = s.replayer.apply(ctx, rec)
		}
		if err != nil {
			metrics.RecordPersistFailure(string(rec.Op))
			event := logging.Warn().Err(err).
				Str("alert_id", rec.Alert.ID).
				Str("op", string(rec.Op))
			if entryID != "" {
				event.Str("entry_id", entryID).Msg("Alert write failed, left in outbox for retry")
			} else {
				event.Msg("Alert write failed")
			}
		}

		if s.notifier == nil {
			return
		}
		if rec.Op == opCreate {
			err = s.notifier.AlertCreated(ctx, rec.Alert)
		} else {
			err = s.notifier.AlertStatusChanged(ctx, rec.Alert)
		}
		if err != nil {
			logging.Warn().Err(err).Str("alert_id", rec.Alert.ID).Msg("Alert notification failed")
		}
	}()
}
