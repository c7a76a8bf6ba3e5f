// Table - Anti-Fraud Detection and Alerting for Online Card Games
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/elevow/table-sub009

package models

import (
	"strings"
	"testing"

	"github.com/goccy/go-json"
)

func TestAdminAlert_WireShape(t *testing.T) {
	t.Parallel()

	a := AdminAlert{
		ID:        "a1",
		Type:      AlertTypeChipDump,
		Severity:  SeverityHigh,
		Message:   "m",
		At:        1700000000123,
		Source:    SourceCollusion,
		Status:    StatusNew,
		CreatedAt: 1700000000123,
		UpdatedAt: 1700000000456,
	}
	a.Normalize()

	data, err := json.Marshal(a)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	want := []string{"id", "type", "severity", "message", "at", "involved", "source", "status", "evidence", "createdAt", "updatedAt"}
	if len(m) != len(want) {
		t.Errorf("got %d keys, want %d: %s", len(m), len(want), data)
	}
	for _, k := range want {
		if _, ok := m[k]; !ok {
			t.Errorf("missing key %q in %s", k, data)
		}
	}
	if !strings.Contains(string(data), `"involved":[]`) || !strings.Contains(string(data), `"evidence":[]`) {
		t.Errorf("normalized slices should encode as [], got %s", data)
	}
}

func TestEvidence_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		ev      Evidence
		wantErr bool
	}{
		{"grouping", NewGroupingEvidence(GroupingEvidence{Accounts: []string{"a", "b"}}), false},
		{"chip dump", NewChipDumpEvidence(ChipDumpEvidence{Source: "x", Destination: "y"}), false},
		{"signal", NewSignalEvidence(EvidenceSharedDevice, SignalEvidence{Score: 1}), false},
		{"raw", NewRawEvidence(json.RawMessage(`{"rule":"sqli"}`)), false},
		{"signals bundle", NewSignalsEvidence([]Evidence{NewSignalEvidence(EvidenceSharedDevice, SignalEvidence{Score: 1})}), false},
		{"empty signals bundle", NewSignalsEvidence(nil), false},
		{"bundle of non-signals", NewSignalsEvidence([]Evidence{NewChipDumpEvidence(ChipDumpEvidence{Source: "x"})}), true},
		{"kind mismatch", Evidence{Kind: EvidenceGrouping, ChipDump: &ChipDumpEvidence{}}, true},
		{"two payloads", Evidence{Kind: EvidenceGrouping, Grouping: &GroupingEvidence{}, ChipDump: &ChipDumpEvidence{}}, true},
		{"unknown kind", Evidence{Kind: "mystery", Raw: json.RawMessage(`1`)}, true},
		{"empty", Evidence{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if err := tt.ev.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestEvidence_SignalsBundleRoundTrip(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		signals []Evidence
	}{
		{"four signals", []Evidence{
			NewSignalEvidence(EvidenceSharedDevice, SignalEvidence{Score: 0.5, Weight: 0.4, Triggered: true, Accounts: []string{"a", "b"}}),
			NewSignalEvidence(EvidenceSharedNetwork, SignalEvidence{Accounts: []string{}}),
			NewSignalEvidence(EvidenceTemporal, SignalEvidence{Accounts: []string{}}),
			NewSignalEvidence(EvidenceBehavioral, SignalEvidence{Accounts: []string{}}),
		}},
		{"no signals", []Evidence{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			bundle := NewSignalsEvidence(tt.signals)

			data, err := json.Marshal([]Evidence{bundle})
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			var got []Evidence
			if err := json.Unmarshal(data, &got); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if len(got) != 1 || got[0].Kind != EvidenceMultiAccountSignals {
				t.Fatalf("decoded %s as %+v", data, got)
			}
			if len(got[0].Signals) != len(tt.signals) {
				t.Errorf("signals = %d, want %d", len(got[0].Signals), len(tt.signals))
			}
			if err := got[0].Validate(); err != nil {
				t.Errorf("decoded bundle invalid: %v", err)
			}
		})
	}
}

func TestEvidence_UnmarshalUntaggedKeepsRaw(t *testing.T) {
	t.Parallel()

	var evs []Evidence
	input := `[{"kind":"chip_dump","chipDump":{"source":"x","destination":"y","amount":10,"occurrences":3,"confidence":0.5,"handIds":["h1"]}},{"query":"SELECT 1","ms":900},"free text"]`
	if err := json.Unmarshal([]byte(input), &evs); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(evs) != 3 {
		t.Fatalf("got %d records, want 3", len(evs))
	}
	if evs[0].Kind != EvidenceChipDump || evs[0].ChipDump.Destination != "y" {
		t.Errorf("tagged record decoded as %+v", evs[0])
	}
	if evs[1].Kind != EvidenceRaw || !strings.Contains(string(evs[1].Raw), `"SELECT 1"`) {
		t.Errorf("untagged object should be raw, got %+v", evs[1])
	}
	if evs[2].Kind != EvidenceRaw || string(evs[2].Raw) != `"free text"` {
		t.Errorf("scalar should be raw, got %+v", evs[2])
	}
}

func TestAdminAlert_CloneIsDeep(t *testing.T) {
	t.Parallel()

	a := AdminAlert{
		Involved: []string{"a"},
		Evidence: []Evidence{NewGroupingEvidence(GroupingEvidence{Accounts: []string{"a", "b"}})},
	}
	c := a.Clone()
	c.Involved[0] = "z"
	c.Evidence[0].Grouping.Accounts[0] = "z"

	if a.Involved[0] != "a" || a.Evidence[0].Grouping.Accounts[0] != "a" {
		t.Error("Clone shares memory with the original")
	}
}

func TestStatusAndSeverity_Valid(t *testing.T) {
	t.Parallel()

	for _, s := range []Status{StatusNew, StatusOpen, StatusAck, StatusClosed} {
		if !s.Valid() {
			t.Errorf("%q should be valid", s)
		}
	}
	if Status("deleted").Valid() {
		t.Error("unknown status reported valid")
	}
	if !SeverityCritical.Valid() || Severity("urgent").Valid() {
		t.Error("severity validity wrong")
	}
}
