// Table - Anti-Fraud Detection and Alerting for Online Card Games
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/elevow/table-sub009

package detection

import (
	"context"
	"database/sql"
	"reflect"
	"testing"

	_ "github.com/duckdb/duckdb-go/v2"
)

// setupEventSource creates an in-memory DuckDB event source with its schema.
func setupEventSource(t *testing.T) *DuckDBEventSource {
	t.Helper()
	db, err := sql.Open("duckdb", "")
	if err != nil {
		t.Fatalf("failed to open duckdb: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	src := NewDuckDBEventSource(db)
	if err := src.InitSchema(context.Background()); err != nil {
		t.Fatalf("InitSchema failed: %v", err)
	}
	return src
}

func TestDuckDBEventSource_Logins(t *testing.T) {
	ctx := context.Background()
	src := setupEventSource(t)

	logins := []LoginEvent{
		{AccountID: "b", DeviceFingerprint: "d1", NetworkOrigin: "10.0.0.1", Timestamp: 2_000},
		{AccountID: "a", DeviceFingerprint: "d1", NetworkOrigin: "", Timestamp: 1_000},
		{AccountID: "c", DeviceFingerprint: "d2", NetworkOrigin: "10.0.0.2", Timestamp: 500},
	}
	for _, l := range logins {
		if err := src.RecordLogin(ctx, l); err != nil {
			t.Fatalf("RecordLogin failed: %v", err)
		}
	}

	got, err := src.FetchLoginsSince(ctx, 1_000)
	if err != nil {
		t.Fatalf("FetchLoginsSince failed: %v", err)
	}
	want := []LoginEvent{logins[1], logins[0]}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("FetchLoginsSince = %+v, want %+v", got, want)
	}

	none, err := src.FetchLoginsSince(ctx, 10_000)
	if err != nil {
		t.Fatalf("FetchLoginsSince failed: %v", err)
	}
	if none == nil || len(none) != 0 {
		t.Errorf("expected empty non-nil batch, got %#v", none)
	}
}

func TestDuckDBEventSource_Hands(t *testing.T) {
	ctx := context.Background()
	src := setupEventSource(t)

	hand := HandRecord{
		ID:      "h1",
		Players: []string{"x", "y"},
		Actions: []ActionEvent{
			{Kind: ActionRaise, AccountID: "x", TableID: "t1", Amount: amount(400.5), Timestamp: 10},
			{Kind: ActionFold, AccountID: "y", TableID: "t1", Timestamp: 11},
		},
		Winners: []string{"x"},
		Pot:     400.5,
	}
	if err := src.RecordHand(ctx, hand, 5_000); err != nil {
		t.Fatalf("RecordHand failed: %v", err)
	}
	if err := src.RecordHand(ctx, hand, 6_000); err != nil {
		t.Fatalf("RecordHand (duplicate) failed: %v", err)
	}
	old := HandRecord{ID: "h0", Players: []string{"x"}, Actions: []ActionEvent{}, Winners: []string{}}
	if err := src.RecordHand(ctx, old, 1_000); err != nil {
		t.Fatalf("RecordHand failed: %v", err)
	}

	got, err := src.FetchHandsSince(ctx, 2_000)
	if err != nil {
		t.Fatalf("FetchHandsSince failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 hand, got %d", len(got))
	}
	if !reflect.DeepEqual(got[0], hand) {
		t.Errorf("hand round trip mismatch:\n got %+v\nwant %+v", got[0], hand)
	}
}

func TestDuckDBEventSource_FeedsAnalyzer(t *testing.T) {
	ctx := context.Background()
	src := setupEventSource(t)

	for i, h := range dumpHands(4) {
		if err := src.RecordHand(ctx, h, int64(1_000+i)); err != nil {
			t.Fatalf("RecordHand failed: %v", err)
		}
	}

	hands, err := src.FetchHandsSince(ctx, 0)
	if err != nil {
		t.Fatalf("FetchHandsSince failed: %v", err)
	}
	det := NewCollusionAnalyzer(DefaultCollusionConfig()).Analyze(hands)
	if len(det.Patterns.ChipDumping) != 1 {
		t.Errorf("expected the stored hands to reproduce the chip-dump pattern, got %+v", det.Patterns)
	}
}
