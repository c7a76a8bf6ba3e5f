// Table - Anti-Fraud Detection and Alerting for Online Card Games
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/elevow/table-sub009

package alerts

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/elevow/table-sub009/internal/detection"
	"github.com/elevow/table-sub009/internal/models"
)

// =============================================================================
// Test Helpers
// =============================================================================

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.UnixMilli(1_700_000_000_000)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func sequentialIDs() func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("alert-%03d", n)
	}
}

// setupTestStore creates a store over a memory repository with a fixed clock.
func setupTestStore(t *testing.T, opts ...Option) (*Store, *MemoryRepository, *testClock) {
	t.Helper()
	repo := NewMemoryRepository()
	clock := newTestClock()
	opts = append([]Option{WithClock(clock.Now), WithIDGenerator(sequentialIDs())}, opts...)
	store := NewStore(repo, opts...)
	t.Cleanup(store.Wait)
	return store, repo, clock
}

func groupingDraft() models.AlertDraft {
	return models.AlertDraft{
		Type:     models.AlertTypeGrouping,
		Severity: models.SeverityMedium,
		Message:  "Accounts a, b frequently share tables",
		Involved: []string{"a", "b"},
		Source:   models.SourceCollusion,
	}
}

type recordingNotifier struct {
	mu      sync.Mutex
	created []string
	updated []models.Status
}

func (n *recordingNotifier) AlertCreated(_ context.Context, a models.AdminAlert) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.created = append(n.created, a.ID)
	return nil
}

func (n *recordingNotifier) AlertStatusChanged(_ context.Context, a models.AdminAlert) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.updated = append(n.updated, a.Status)
	return errors.New("bus down")
}

// =============================================================================
// Add
// =============================================================================

func TestStore_AddDefaults(t *testing.T) {
	store, _, clock := setupTestStore(t)
	now := clock.Now().UnixMilli()

	a := store.Add(models.AlertDraft{Type: models.AlertTypeSlowQueries, Severity: models.SeverityLow, Source: models.SourceDBMonitor})

	if a.ID != "alert-001" {
		t.Errorf("ID = %q, want generated id", a.ID)
	}
	if a.CreatedAt != now || a.UpdatedAt != now {
		t.Errorf("CreatedAt=%d UpdatedAt=%d, want both %d", a.CreatedAt, a.UpdatedAt, now)
	}
	if a.At != now {
		t.Errorf("At = %d, want %d", a.At, now)
	}
	if a.Status != models.StatusNew {
		t.Errorf("Status = %q, want new", a.Status)
	}
	if a.Involved == nil || len(a.Involved) != 0 {
		t.Errorf("Involved = %#v, want empty slice", a.Involved)
	}
	if a.Evidence == nil || len(a.Evidence) != 0 {
		t.Errorf("Evidence = %#v, want empty slice", a.Evidence)
	}
}

func TestStore_AddKeepsSuppliedFields(t *testing.T) {
	store, _, clock := setupTestStore(t)

	a := store.Add(models.AlertDraft{
		ID:     "waf-42",
		Type:   models.AlertTypeSecurityIncident,
		At:     1_600_000_000_000,
		Status: models.StatusOpen,
		Source: models.SourceWAF,
	})

	if a.ID != "waf-42" || a.At != 1_600_000_000_000 || a.Status != models.StatusOpen {
		t.Errorf("supplied fields not kept: %+v", a)
	}
	if a.CreatedAt != clock.Now().UnixMilli() || a.CreatedAt != a.UpdatedAt {
		t.Errorf("CreatedAt=%d UpdatedAt=%d", a.CreatedAt, a.UpdatedAt)
	}
}

func TestStore_AddDuplicateIDReturnsExisting(t *testing.T) {
	store, _, clock := setupTestStore(t)

	first := store.Add(models.AlertDraft{ID: "dup", Message: "first"})
	clock.Advance(time.Second)
	second := store.Add(models.AlertDraft{ID: "dup", Message: "second"})

	if second.Message != "first" || second.CreatedAt != first.CreatedAt {
		t.Errorf("duplicate add changed the alert: %+v", second)
	}
	if store.Len() != 1 {
		t.Errorf("Len = %d, want 1", store.Len())
	}
}

func TestStore_AddVisibleWhenRepositoryFails(t *testing.T) {
	store, repo, _ := setupTestStore(t)
	repo.Fail(errors.New("connection refused"))

	a := store.Add(groupingDraft())
	store.Wait()

	if got := store.Get(a.ID); got == nil {
		t.Fatal("alert should stay visible after a failed write")
	}
	if repo.Calls("create") != 1 {
		t.Errorf("create calls = %d, want 1", repo.Calls("create"))
	}
	if repo.Len() != 0 {
		t.Errorf("repository should be empty, has %d", repo.Len())
	}
}

func TestStore_AddPersists(t *testing.T) {
	store, repo, _ := setupTestStore(t)

	a := store.Add(groupingDraft())
	store.Wait()

	stored, err := repo.Get(context.Background(), a.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !reflect.DeepEqual(*stored, a) {
		t.Errorf("stored = %+v\nwant     %+v", *stored, a)
	}
}

func TestStore_ReturnedAlertsAreCopies(t *testing.T) {
	store, _, _ := setupTestStore(t)
	draft := groupingDraft()
	a := store.Add(draft)

	draft.Involved[0] = "mutated-draft"
	a.Involved[0] = "mutated-result"
	store.List()[0].Involved[1] = "mutated-list"

	got := store.Get(a.ID)
	if !reflect.DeepEqual(got.Involved, []string{"a", "b"}) {
		t.Errorf("cached Involved = %v, want [a b]", got.Involved)
	}
}

// =============================================================================
// UpdateStatus
// =============================================================================

func TestStore_UpdateStatus(t *testing.T) {
	store, repo, clock := setupTestStore(t)
	a := store.Add(groupingDraft())

	clock.Advance(5 * time.Second)
	updated := store.UpdateStatus(a.ID, models.StatusAck)
	if updated == nil {
		t.Fatal("UpdateStatus returned nil for an existing alert")
	}
	if updated.Status != models.StatusAck {
		t.Errorf("Status = %q, want ack", updated.Status)
	}
	if updated.CreatedAt != a.CreatedAt {
		t.Errorf("CreatedAt changed: %d -> %d", a.CreatedAt, updated.CreatedAt)
	}
	if updated.UpdatedAt != clock.Now().UnixMilli() {
		t.Errorf("UpdatedAt = %d, want %d", updated.UpdatedAt, clock.Now().UnixMilli())
	}

	store.Wait()
	stored, _ := repo.Get(context.Background(), a.ID)
	if stored.Status != models.StatusAck || stored.UpdatedAt != updated.UpdatedAt {
		t.Errorf("repository copy = %+v", stored)
	}
}

func TestStore_UpdateStatusAlwaysBumpsUpdatedAt(t *testing.T) {
	store, _, _ := setupTestStore(t)
	a := store.Add(groupingDraft())

	// The clock does not move between calls.
	first := store.UpdateStatus(a.ID, models.StatusOpen)
	second := store.UpdateStatus(a.ID, models.StatusClosed)

	if !(a.UpdatedAt < first.UpdatedAt && first.UpdatedAt < second.UpdatedAt) {
		t.Errorf("UpdatedAt not increasing: %d, %d, %d", a.UpdatedAt, first.UpdatedAt, second.UpdatedAt)
	}
}

func TestStore_UpdateStatusAnyTransition(t *testing.T) {
	store, _, _ := setupTestStore(t)
	a := store.Add(groupingDraft())

	for _, status := range []models.Status{models.StatusClosed, models.StatusNew, models.StatusAck, models.StatusOpen} {
		if got := store.UpdateStatus(a.ID, status); got == nil || got.Status != status {
			t.Fatalf("UpdateStatus(%s) = %+v", status, got)
		}
	}
}

func TestStore_UpdateStatusMissing(t *testing.T) {
	store, repo, _ := setupTestStore(t)

	if got := store.UpdateStatus("missing", models.StatusAck); got != nil {
		t.Errorf("UpdateStatus(missing) = %+v, want nil", got)
	}
	store.Wait()

	if store.Len() != 0 {
		t.Errorf("Len = %d, want 0", store.Len())
	}
	if repo.Calls("create")+repo.Calls("update_status") != 0 {
		t.Error("repository should not be touched for a missing id")
	}
}

// =============================================================================
// List
// =============================================================================

func TestStore_ListNewestFirst(t *testing.T) {
	store, _, clock := setupTestStore(t)

	var ids []string
	for i := 0; i < 5; i++ {
		ids = append(ids, store.Add(groupingDraft()).ID)
		clock.Advance(time.Millisecond)
	}

	list := store.List()
	if len(list) != 5 {
		t.Fatalf("len = %d, want 5", len(list))
	}
	for i := range list {
		if list[i].ID != ids[len(ids)-1-i] {
			t.Errorf("list[%d] = %s, want %s", i, list[i].ID, ids[len(ids)-1-i])
		}
		if i > 0 && list[i-1].CreatedAt <= list[i].CreatedAt {
			t.Errorf("not strictly descending at %d", i)
		}
	}
}

func TestStore_ListTiesAreStable(t *testing.T) {
	store, _, _ := setupTestStore(t)
	for i := 0; i < 10; i++ {
		store.Add(groupingDraft())
	}

	first := store.List()
	for i := 0; i < 5; i++ {
		if !reflect.DeepEqual(first, store.List()) {
			t.Fatal("repeated List calls returned different orders")
		}
	}
	if first[0].ID != "alert-001" {
		t.Errorf("ties should be ordered by id, first = %s", first[0].ID)
	}
}

func TestStore_ListEmpty(t *testing.T) {
	store, _, _ := setupTestStore(t)
	if list := store.List(); list == nil || len(list) != 0 {
		t.Errorf("List() = %#v, want empty slice", list)
	}
}

// =============================================================================
// Analyzer adapters
// =============================================================================

func TestStore_AddFromCollusion(t *testing.T) {
	store, _, _ := setupTestStore(t)

	evidence := []models.Evidence{
		models.NewGroupingEvidence(models.GroupingEvidence{Accounts: []string{"a", "b"}, CoOccurrences: 12, Confidence: 1}),
		models.NewChipDumpEvidence(models.ChipDumpEvidence{Source: "x", Destination: "y", Amount: 1600, Occurrences: 4}),
	}
	d := detection.CollusionDetection{
		Alerts: []models.AlertDraft{
			{Type: models.AlertTypeGrouping, Severity: models.SeverityMedium, Message: "grouping", Involved: []string{"a", "b"}},
			{Type: models.AlertTypeChipDump, Severity: models.SeverityHigh, Message: "chip dump", Involved: []string{"x", "y"}, Status: models.StatusClosed},
		},
		Evidence: evidence,
	}

	created := store.AddFromCollusion(d)
	if len(created) != 2 {
		t.Fatalf("created %d alerts, want 2", len(created))
	}
	for _, a := range created {
		if a.Source != models.SourceCollusion || a.Status != models.StatusNew {
			t.Errorf("alert %s: source=%s status=%s", a.ID, a.Source, a.Status)
		}
		if !reflect.DeepEqual(a.Evidence, evidence) {
			t.Errorf("alert %s evidence = %+v, want batch evidence", a.ID, a.Evidence)
		}
	}
	if created[1].Type != models.AlertTypeChipDump || !reflect.DeepEqual(created[1].Involved, []string{"x", "y"}) {
		t.Errorf("draft fields not carried over: %+v", created[1])
	}
}

func TestStore_AddFromCollusionNoDrafts(t *testing.T) {
	store, _, _ := setupTestStore(t)
	if created := store.AddFromCollusion(detection.CollusionDetection{}); len(created) != 0 {
		t.Errorf("created %d alerts from an empty detection", len(created))
	}
	if store.Len() != 0 {
		t.Errorf("Len = %d, want 0", store.Len())
	}
}

func TestStore_AddFromMultiAccount(t *testing.T) {
	tests := []struct {
		confidence float64
		severity   models.Severity
		percent    string
	}{
		{1, models.SeverityHigh, "100%"},
		{0.75, models.SeverityHigh, "75%"},
		{0.7, models.SeverityHigh, "70%"},
		{0.69, models.SeverityMedium, "69%"},
		{0.5, models.SeverityMedium, "50%"},
		{0.4, models.SeverityMedium, "40%"},
		{0.1, models.SeverityLow, "10%"},
		{0, models.SeverityLow, "0%"},
	}

	for _, tt := range tests {
		t.Run(tt.percent, func(t *testing.T) {
			store, _, _ := setupTestStore(t)
			signals := []models.Evidence{
				models.NewSignalEvidence(models.EvidenceSharedDevice, models.SignalEvidence{Score: tt.confidence, Weight: 1, Accounts: []string{"u1", "u2"}}),
			}

			a := store.AddFromMultiAccount(detection.AccountLinkage{
				LinkedAccounts: []string{"u1", "u2"},
				Confidence:     tt.confidence,
				Signals:        signals,
			})

			if a.Severity != tt.severity {
				t.Errorf("Severity = %s, want %s", a.Severity, tt.severity)
			}
			if !strings.Contains(a.Message, tt.percent) || !strings.Contains(a.Message, "u1, u2") {
				t.Errorf("Message = %q, want percentage %s and accounts", a.Message, tt.percent)
			}
			if a.Type != models.AlertTypeMultiAccount || a.Source != models.SourceMultiAccount || a.Status != models.StatusNew {
				t.Errorf("alert = %+v", a)
			}
			if !reflect.DeepEqual(a.Involved, []string{"u1", "u2"}) {
				t.Errorf("Involved = %v", a.Involved)
			}
			if len(a.Evidence) != 1 {
				t.Fatalf("Evidence = %d records, want 1", len(a.Evidence))
			}
			if ev := a.Evidence[0]; ev.Kind != models.EvidenceMultiAccountSignals || !reflect.DeepEqual(ev.Signals, signals) {
				t.Errorf("Evidence[0] = %+v, want the signals bundle", ev)
			}
			if store.Len() != 1 {
				t.Errorf("Len = %d, want exactly one alert", store.Len())
			}
		})
	}
}

// =============================================================================
// Concurrency and notification
// =============================================================================

func TestStore_ConcurrentAccess(t *testing.T) {
	store, _, _ := setupTestStore(t)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				a := store.Add(groupingDraft())
				store.UpdateStatus(a.ID, models.StatusAck)
				_ = store.List()
			}
		}()
	}
	wg.Wait()

	if store.Len() != 400 {
		t.Errorf("Len = %d, want 400", store.Len())
	}
	for _, a := range store.List() {
		if a.Status != models.StatusAck || a.CreatedAt > a.UpdatedAt {
			t.Fatalf("inconsistent alert %+v", a)
		}
	}
}

func TestStore_Notifier(t *testing.T) {
	n := &recordingNotifier{}
	store, _, _ := setupTestStore(t, WithNotifier(n))

	a := store.Add(groupingDraft())
	store.UpdateStatus(a.ID, models.StatusClosed)
	store.Wait()

	n.mu.Lock()
	defer n.mu.Unlock()
	if !reflect.DeepEqual(n.created, []string{a.ID}) {
		t.Errorf("created = %v", n.created)
	}
	if !reflect.DeepEqual(n.updated, []models.Status{models.StatusClosed}) {
		t.Errorf("updated = %v", n.updated)
	}
}

func TestStore_MemoryOnly(t *testing.T) {
	store := NewStore(nil)
	a := store.Add(groupingDraft())
	store.Wait()

	if store.Get(a.ID) == nil {
		t.Error("memory-only store lost the alert")
	}
}
