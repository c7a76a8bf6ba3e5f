// Table - Anti-Fraud Detection and Alerting for Online Card Games
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/elevow/table-sub009

package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/elevow/table-sub009/internal/config"
	"github.com/elevow/table-sub009/internal/testinfra"
)

// setupRedis dials a disposable Redis container.
func setupRedis(t *testing.T) *redis.Client {
	t.Helper()
	rc := testinfra.StartRedis(t)

	rdb, err := DialRedis(context.Background(), config.RedisConfig{Enabled: true, Addr: rc.Addr})
	if err != nil {
		t.Fatalf("DialRedis failed: %v", err)
	}
	t.Cleanup(func() { rdb.Close() })
	return rdb
}

func TestRedisLocker(t *testing.T) {
	ctx := context.Background()
	locker := NewRedisLocker(setupRedis(t))
	key := "test-" + uuid.NewString()

	unlock, err := locker.Acquire(ctx, key, time.Minute)
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	if _, err := locker.Acquire(ctx, key, time.Minute); !errors.Is(err, ErrLockHeld) {
		t.Errorf("second Acquire = %v, want ErrLockHeld", err)
	}

	unlock()
	unlock()

	again, err := locker.Acquire(ctx, key, time.Minute)
	if err != nil {
		t.Fatalf("Acquire after unlock failed: %v", err)
	}
	again()
}

func TestRedisLocker_ExpiredHolderCannotUnlock(t *testing.T) {
	ctx := context.Background()
	locker := NewRedisLocker(setupRedis(t))
	key := "test-" + uuid.NewString()

	stale, err := locker.Acquire(ctx, key, 50*time.Millisecond)
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	time.Sleep(100 * time.Millisecond)

	current, err := locker.Acquire(ctx, key, time.Minute)
	if err != nil {
		t.Fatalf("Acquire after expiry failed: %v", err)
	}
	defer current()

	stale()
	if _, err := locker.Acquire(ctx, key, time.Minute); !errors.Is(err, ErrLockHeld) {
		t.Errorf("stale unlock released the current holder's lock: %v", err)
	}
}

func TestDialRedis_Unreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := DialRedis(ctx, config.RedisConfig{Enabled: true, Addr: "127.0.0.1:1"}); err == nil {
		t.Error("expected a connection error")
	}
}
