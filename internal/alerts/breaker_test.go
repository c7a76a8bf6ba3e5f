// Table - Anti-Fraud Detection and Alerting for Online Card Games
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/elevow/table-sub009

package alerts

import (
	"context"
	"errors"
	"testing"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/elevow/table-sub009/internal/models"
)

// slowRepository blocks List until the context ends.
type slowRepository struct {
	*MemoryRepository
}

func (s slowRepository) List(ctx context.Context) ([]models.AdminAlert, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestBreakerRepository_OpensAfterFailures(t *testing.T) {
	ctx := context.Background()
	mem := NewMemoryRepository()
	mem.Fail(errors.New("connection refused"))
	repo := NewBreakerRepository(mem, BreakerConfig{Name: "test-open", MaxFailures: 2, OpenTimeout: time.Hour})

	for i := 0; i < 2; i++ {
		if _, err := repo.List(ctx); err == nil {
			t.Fatal("expected the underlying error")
		}
	}
	if repo.State() != "open" {
		t.Fatalf("State = %s, want open", repo.State())
	}

	_, err := repo.List(ctx)
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Errorf("List with open circuit = %v, want ErrOpenState", err)
	}
	if mem.Calls("list") != 2 {
		t.Errorf("underlying calls = %d, want 2 (open circuit must not call through)", mem.Calls("list"))
	}
}

func TestBreakerRepository_Recovers(t *testing.T) {
	ctx := context.Background()
	mem := NewMemoryRepository()
	mem.Fail(errors.New("connection refused"))
	repo := NewBreakerRepository(mem, BreakerConfig{Name: "test-recover", MaxFailures: 1, OpenTimeout: 20 * time.Millisecond})

	_ = repo.Create(ctx, models.AdminAlert{ID: "a1"})
	if repo.State() != "open" {
		t.Fatalf("State = %s, want open", repo.State())
	}

	mem.Fail(nil)
	time.Sleep(40 * time.Millisecond)

	if err := repo.Create(ctx, models.AdminAlert{ID: "a1"}); err != nil {
		t.Fatalf("trial request failed: %v", err)
	}
	if repo.State() != "closed" {
		t.Errorf("State = %s, want closed", repo.State())
	}
}

func TestBreakerRepository_PassesThroughAbsence(t *testing.T) {
	ctx := context.Background()
	repo := NewBreakerRepository(NewMemoryRepository(), BreakerConfig{Name: "test-absent"})

	got, err := repo.Get(ctx, "missing")
	if err != nil || got != nil {
		t.Errorf("Get(missing) = %v, %v; want nil, nil", got, err)
	}
	updated, err := repo.UpdateStatus(ctx, "missing", models.StatusAck, 1)
	if err != nil || updated != nil {
		t.Errorf("UpdateStatus(missing) = %v, %v; want nil, nil", updated, err)
	}
}

func TestBreakerRepository_Contract(t *testing.T) {
	testRepositoryContract(t, NewBreakerRepository(NewMemoryRepository(), BreakerConfig{Name: "test-contract"}))
}

func TestBreakerRepository_QueryTimeout(t *testing.T) {
	repo := NewBreakerRepository(slowRepository{NewMemoryRepository()}, BreakerConfig{
		Name:         "test-timeout",
		QueryTimeout: 10 * time.Millisecond,
	})

	start := time.Now()
	_, err := repo.List(context.Background())
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("List = %v, want DeadlineExceeded", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("List took %v, timeout not applied", elapsed)
	}
}
