// Table - Anti-Fraud Detection and Alerting for Online Card Games
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/elevow/table-sub009

package models

import (
	"bytes"
	"fmt"

	"github.com/goccy/go-json"
)

// EvidenceKind tags the payload carried by an Evidence record.
type EvidenceKind string

const (
	EvidenceGrouping      EvidenceKind = "grouping"
	EvidenceChipDump      EvidenceKind = "chip_dump"
	EvidenceSharedDevice  EvidenceKind = "shared_device"
	EvidenceSharedNetwork EvidenceKind = "shared_network"
	EvidenceTemporal      EvidenceKind = "temporal_correlation"
	EvidenceBehavioral    EvidenceKind = "behavioral_similarity"
	EvidenceRaw           EvidenceKind = "raw"

	// EvidenceMultiAccountSignals bundles every signal of one linkage.
	EvidenceMultiAccountSignals EvidenceKind = "multi_account_signals"
)

// Evidence is a tagged union. Grouping is set for EvidenceGrouping, ChipDump
// for EvidenceChipDump, Signal for the four multi-account kinds, Signals for
// EvidenceMultiAccountSignals and Raw for EvidenceRaw.
type Evidence struct {
	Kind     EvidenceKind      `json:"kind"`
	Grouping *GroupingEvidence `json:"grouping,omitempty"`
	ChipDump *ChipDumpEvidence `json:"chipDump,omitempty"`
	Signal   *SignalEvidence   `json:"signal,omitempty"`
	Signals  []Evidence        `json:"signals,omitempty"`
	Raw      json.RawMessage   `json:"raw,omitempty"`
}

// GroupingEvidence backs a grouping alert.
type GroupingEvidence struct {
	Accounts       []string `json:"accounts"`
	CoOccurrences  int      `json:"coOccurrences"`
	Confidence     float64  `json:"confidence"`
	FoldsToPartner int      `json:"foldsToPartner"`
	SoftPlayRate   float64  `json:"softPlayRate"`
	HandIDs        []string `json:"handIds"`
}

// ChipDumpEvidence backs a chip-dump alert. Source lost chips to Destination.
type ChipDumpEvidence struct {
	Source      string   `json:"source"`
	Destination string   `json:"destination"`
	Amount      float64  `json:"amount"`
	Occurrences int      `json:"occurrences"`
	Confidence  float64  `json:"confidence"`
	HandIDs     []string `json:"handIds"`
}

// SignalEvidence is one weighted multi-account signal.
type SignalEvidence struct {
	Score     float64           `json:"score"`
	Weight    float64           `json:"weight"`
	Floor     float64           `json:"floor"`
	Triggered bool              `json:"triggered"`
	Accounts  []string          `json:"accounts"`
	Shared    []SharedAttribute `json:"shared,omitempty"`
	Pairs     []AccountPair     `json:"pairs,omitempty"`
}

// SharedAttribute is a device fingerprint or network origin seen on more than
// one account.
type SharedAttribute struct {
	Value    string   `json:"value"`
	Accounts []string `json:"accounts"`
}

// AccountPair relates two accounts for the temporal and behavioral signals.
type AccountPair struct {
	A          string  `json:"a"`
	B          string  `json:"b"`
	Count      int     `json:"count,omitempty"`
	Similarity float64 `json:"similarity,omitempty"`
}

// NewGroupingEvidence wraps g.
func NewGroupingEvidence(g GroupingEvidence) Evidence {
	return Evidence{Kind: EvidenceGrouping, Grouping: &g}
}

// NewChipDumpEvidence wraps c.
func NewChipDumpEvidence(c ChipDumpEvidence) Evidence {
	return Evidence{Kind: EvidenceChipDump, ChipDump: &c}
}

// NewSignalEvidence wraps s under one of the multi-account kinds.
func NewSignalEvidence(kind EvidenceKind, s SignalEvidence) Evidence {
	return Evidence{Kind: kind, Signal: &s}
}

// NewSignalsEvidence bundles the per-signal records of a linkage into one
// record.
func NewSignalsEvidence(signals []Evidence) Evidence {
	bundle := make([]Evidence, 0, len(signals))
	for _, s := range signals {
		bundle = append(bundle, s.Clone())
	}
	return Evidence{Kind: EvidenceMultiAccountSignals, Signals: bundle}
}

// NewRawEvidence wraps an arbitrary JSON document.
func NewRawEvidence(raw json.RawMessage) Evidence {
	return Evidence{Kind: EvidenceRaw, Raw: append(json.RawMessage{}, raw...)}
}

// Validate checks that exactly the payload matching Kind is present.
func (e Evidence) Validate() error {
	set := 0
	for _, present := range []bool{e.Grouping != nil, e.ChipDump != nil, e.Signal != nil, e.Signals != nil, len(e.Raw) > 0} {
		if present {
			set++
		}
	}
	if set != 1 {
		return fmt.Errorf("evidence %q: expected exactly one payload, found %d", e.Kind, set)
	}

	var ok bool
	switch e.Kind {
	case EvidenceGrouping:
		ok = e.Grouping != nil
	case EvidenceChipDump:
		ok = e.ChipDump != nil
	case EvidenceSharedDevice, EvidenceSharedNetwork, EvidenceTemporal, EvidenceBehavioral:
		ok = e.Signal != nil
	case EvidenceMultiAccountSignals:
		ok = e.Signals != nil
		for i, s := range e.Signals {
			if s.Signal == nil {
				return fmt.Errorf("evidence %q: signals[%d] is %q, not a signal", e.Kind, i, s.Kind)
			}
			if err := s.Validate(); err != nil {
				return fmt.Errorf("evidence %q: signals[%d]: %w", e.Kind, i, err)
			}
		}
	case EvidenceRaw:
		ok = len(e.Raw) > 0
	default:
		return fmt.Errorf("unknown evidence kind %q", e.Kind)
	}
	if !ok {
		return fmt.Errorf("evidence %q: payload does not match kind", e.Kind)
	}
	return nil
}

// UnmarshalJSON accepts both tagged records and arbitrary JSON. Anything that
// does not decode into a valid tagged record is kept verbatim as EvidenceRaw.
func (e *Evidence) UnmarshalJSON(data []byte) error {
	type tagged Evidence
	var t tagged
	if err := json.Unmarshal(data, &t); err == nil {
		candidate := Evidence(t)
		// An empty bundle is dropped by omitempty on the way out.
		if candidate.Kind == EvidenceMultiAccountSignals && candidate.Signals == nil {
			candidate.Signals = []Evidence{}
		}
		if candidate.Validate() == nil {
			*e = candidate
			return nil
		}
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*e = Evidence{}
		return nil
	}
	*e = NewRawEvidence(trimmed)
	return nil
}

// Clone returns a deep copy of e. Nil and empty slices are preserved as such.
func (e Evidence) Clone() Evidence {
	c := Evidence{Kind: e.Kind}
	if e.Grouping != nil {
		g := *e.Grouping
		g.Accounts = cloneStrings(g.Accounts)
		g.HandIDs = cloneStrings(g.HandIDs)
		c.Grouping = &g
	}
	if e.ChipDump != nil {
		d := *e.ChipDump
		d.HandIDs = cloneStrings(d.HandIDs)
		c.ChipDump = &d
	}
	if e.Signal != nil {
		s := *e.Signal
		s.Accounts = cloneStrings(s.Accounts)
		if e.Signal.Shared != nil {
			s.Shared = make([]SharedAttribute, len(e.Signal.Shared))
			for i, sh := range e.Signal.Shared {
				s.Shared[i] = SharedAttribute{Value: sh.Value, Accounts: cloneStrings(sh.Accounts)}
			}
		}
		if e.Signal.Pairs != nil {
			s.Pairs = append([]AccountPair{}, e.Signal.Pairs...)
		}
		c.Signal = &s
	}
	if e.Signals != nil {
		c.Signals = make([]Evidence, len(e.Signals))
		for i, s := range e.Signals {
			c.Signals[i] = s.Clone()
		}
	}
	if e.Raw != nil {
		c.Raw = append(json.RawMessage{}, e.Raw...)
	}
	return c
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	return append([]string{}, s...)
}
