// Table - Anti-Fraud Detection and Alerting for Online Card Games
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/elevow/table-sub009

package jsoncol

import (
	"reflect"
	"testing"

	"github.com/goccy/go-json"
)

func TestUnmarshal_NullLeavesDestination(t *testing.T) {
	dst := []string{"keep"}
	if err := Unmarshal(nil, &dst); err != nil {
		t.Fatalf("Unmarshal(nil) failed: %v", err)
	}
	if !reflect.DeepEqual(dst, []string{"keep"}) {
		t.Errorf("dst = %v, want untouched", dst)
	}
}

func TestRoundTrip_PreservesRawText(t *testing.T) {
	raw := json.RawMessage(`{"requestId":9007199254740993,"path":"/x"}`)

	text, err := Marshal(raw)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var got json.RawMessage
	if err := Unmarshal([]byte(text), &got); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if string(got) != string(raw) {
		t.Errorf("got %s, want %s", got, raw)
	}
}

func TestUnmarshal_RejectsInvalidJSON(t *testing.T) {
	var dst []string
	if err := Unmarshal([]byte(`[1,`), &dst); err == nil {
		t.Error("expected an error for truncated JSON")
	}
}
