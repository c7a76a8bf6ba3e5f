// Table - Anti-Fraud Detection and Alerting for Online Card Games
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/elevow/table-sub009

package api

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/elevow/table-sub009/internal/alerts"
	"github.com/elevow/table-sub009/internal/detection"

	_ "github.com/duckdb/duckdb-go/v2"
)

type recordingEvents struct {
	mu     sync.Mutex
	logins []detection.LoginEvent
	hands  map[string]int64
	err    error
}

func (r *recordingEvents) RecordLogin(_ context.Context, e detection.LoginEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.logins = append(r.logins, e)
	return nil
}

func (r *recordingEvents) RecordHand(_ context.Context, h detection.HandRecord, endedAt int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	if r.hands == nil {
		r.hands = make(map[string]int64)
	}
	r.hands[h.ID] = endedAt
	return nil
}

func setupIngestRouter(events EventRecorder) http.Handler {
	sec := testSecurity()
	sec.AuthMode = "none"
	h := NewHandler(alerts.NewStore(nil), nil, nil)
	if events != nil {
		h = h.WithEventRecorder(events)
	}
	return NewRouter(RouterConfig{Handler: h, Security: sec})
}

func post(router http.Handler, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("POST", path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestIngestLogins(t *testing.T) {
	events := &recordingEvents{}
	router := setupIngestRouter(events)

	rec := post(router, "/api/v1/events/logins", `{"events":[
		{"accountId":"a","deviceFingerprint":"fp-1","networkOrigin":"10.0.0.1","timestamp":1000},
		{"accountId":"b","deviceFingerprint":"fp-1","networkOrigin":"10.0.0.2","timestamp":2000}]}`)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if len(events.logins) != 2 || events.logins[1].AccountID != "b" {
		t.Errorf("recorded = %+v", events.logins)
	}
}

func TestIngestHands(t *testing.T) {
	events := &recordingEvents{}
	router := setupIngestRouter(events)

	rec := post(router, "/api/v1/events/hands", `{"hands":[{
		"id":"h1","players":["a","b"],"winners":["b"],"pot":40,"endedAt":5000,
		"actions":[{"kind":"bet","accountId":"a","tableId":"t1","amount":20,"timestamp":4000}]}]}`)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if events.hands["h1"] != 5000 {
		t.Errorf("recorded hands = %v", events.hands)
	}
}

func TestIngest_Rejects(t *testing.T) {
	router := setupIngestRouter(&recordingEvents{})

	tests := []struct {
		name string
		path string
		body string
	}{
		{"empty login batch", "/api/v1/events/logins", `{"events":[]}`},
		{"login without account", "/api/v1/events/logins", `{"events":[{"timestamp":1}]}`},
		{"login without timestamp", "/api/v1/events/logins", `{"events":[{"accountId":"a"}]}`},
		{"unknown field", "/api/v1/events/logins", `{"events":[{"accountId":"a","timestamp":1,"extra":true}]}`},
		{"hand without id", "/api/v1/events/hands", `{"hands":[{"players":["a"],"endedAt":1}]}`},
		{"hand without players", "/api/v1/events/hands", `{"hands":[{"id":"h1","endedAt":1}]}`},
		{"negative pot", "/api/v1/events/hands", `{"hands":[{"id":"h1","players":["a"],"pot":-1,"endedAt":1}]}`},
		{"not json", "/api/v1/events/hands", `hands`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rec := post(router, tt.path, tt.body); rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400: %s", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestIngest_Unavailable(t *testing.T) {
	if rec := post(setupIngestRouter(nil), "/api/v1/events/logins", `{"events":[{"accountId":"a","timestamp":1}]}`); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("without recorder: status = %d, want 503", rec.Code)
	}

	failing := setupIngestRouter(&recordingEvents{err: errors.New("disk full")})
	if rec := post(failing, "/api/v1/events/logins", `{"events":[{"accountId":"a","timestamp":1}]}`); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("failing store: status = %d, want 503", rec.Code)
	}
}

func TestIngest_DuckDBRoundTrip(t *testing.T) {
	db, err := sql.Open("duckdb", "")
	if err != nil {
		t.Fatalf("failed to open duckdb: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	src := detection.NewDuckDBEventSource(db)
	if err := src.InitSchema(context.Background()); err != nil {
		t.Fatalf("InitSchema failed: %v", err)
	}
	router := setupIngestRouter(src)

	body := `{"hands":[{"id":"h1","players":["a","b"],"winners":["a"],"pot":10,"endedAt":5000}]}`
	for i := 0; i < 2; i++ {
		if rec := post(router, "/api/v1/events/hands", body); rec.Code != http.StatusAccepted {
			t.Fatalf("attempt %d: status = %d: %s", i, rec.Code, rec.Body.String())
		}
	}

	hands, err := src.FetchHandsSince(context.Background(), 0)
	if err != nil {
		t.Fatalf("FetchHandsSince failed: %v", err)
	}
	if len(hands) != 1 || hands[0].ID != "h1" {
		t.Errorf("hands = %+v, want one copy of h1", hands)
	}
}
