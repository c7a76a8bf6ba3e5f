// Table - Anti-Fraud Detection and Alerting for Online Card Games
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/elevow/table-sub009

package alerts

import (
	"context"
	"errors"
	"testing"

	"github.com/elevow/table-sub009/internal/models"
)

func TestListWithFallback(t *testing.T) {
	ctx := context.Background()
	store, repo, _ := setupTestStore(t)

	local := store.Add(groupingDraft())
	store.Wait()

	// Written by another instance, so only the repository has it.
	remote := sampleAlert("remote-1", local.CreatedAt+10)
	if err := repo.Create(ctx, remote); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	list, source := ListWithFallback(ctx, repo, store)
	if source != ReadSourceRepository {
		t.Errorf("source = %s, want repository", source)
	}
	if len(list) != 2 || list[0].ID != remote.ID {
		t.Errorf("list = %v, want remote alert first", alertIDs(list))
	}

	repo.Fail(errors.New("connection refused"))
	list, source = ListWithFallback(ctx, repo, store)
	if source != ReadSourceCache {
		t.Errorf("source = %s, want cache", source)
	}
	if len(list) != 1 || list[0].ID != local.ID {
		t.Errorf("list = %v, want only the cached alert", alertIDs(list))
	}
}

func TestListWithFallback_NoRepository(t *testing.T) {
	store := NewStore(nil)
	store.Add(groupingDraft())

	list, source := ListWithFallback(context.Background(), nil, store)
	if source != ReadSourceCache || len(list) != 1 {
		t.Errorf("list = %d alerts from %s", len(list), source)
	}
}

func TestGetWithFallback(t *testing.T) {
	ctx := context.Background()
	store, repo, _ := setupTestStore(t)

	persisted := store.Add(groupingDraft())
	store.Wait()

	got, source := GetWithFallback(ctx, repo, store, persisted.ID)
	if got == nil || source != ReadSourceRepository {
		t.Errorf("persisted alert: %v from %s", got, source)
	}

	repo.Fail(errors.New("connection refused"))
	pending := store.Add(groupingDraft())
	store.Wait()
	repo.Fail(nil)

	got, source = GetWithFallback(ctx, repo, store, pending.ID)
	if got == nil || got.ID != pending.ID || source != ReadSourceCache {
		t.Errorf("unpersisted alert: %v from %s, want cache hit", got, source)
	}

	repo.Fail(errors.New("connection refused"))
	if got, source = GetWithFallback(ctx, repo, store, persisted.ID); got == nil || source != ReadSourceCache {
		t.Errorf("repository down: %v from %s, want cache hit", got, source)
	}

	if got, _ = GetWithFallback(ctx, repo, store, "missing"); got != nil {
		t.Errorf("missing id returned %+v", got)
	}
}

func TestListWithFallback_SeesPersistedUpdates(t *testing.T) {
	ctx := context.Background()
	store, repo, _ := setupTestStore(t)

	a := store.Add(groupingDraft())
	store.UpdateStatus(a.ID, models.StatusClosed)
	store.Wait()

	list, _ := ListWithFallback(ctx, repo, store)
	if len(list) != 1 || list[0].Status != models.StatusClosed {
		t.Errorf("repository view = %+v", list)
	}
}
