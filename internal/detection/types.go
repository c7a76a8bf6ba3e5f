// Table - Anti-Fraud Detection and Alerting for Online Card Games
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/elevow/table-sub009

package detection

import (
	"context"

	"github.com/elevow/table-sub009/internal/models"
)

// ActionKind is the type of a betting action.
type ActionKind string

const (
	ActionBlind ActionKind = "blind"
	ActionBet   ActionKind = "bet"
	ActionCall  ActionKind = "call"
	ActionRaise ActionKind = "raise"
	ActionAllIn ActionKind = "all_in"
	ActionCheck ActionKind = "check"
	ActionFold  ActionKind = "fold"
)

// commits reports whether the action puts chips into the pot.
func (k ActionKind) commits() bool {
	switch k {
	case ActionBlind, ActionBet, ActionCall, ActionRaise, ActionAllIn:
		return true
	}
	return false
}

// aggressive reports whether the action is a bet or raise another player must answer.
func (k ActionKind) aggressive() bool {
	return k == ActionBet || k == ActionRaise || k == ActionAllIn
}

// ActionEvent is one action inside a hand.
type ActionEvent struct {
	Kind      ActionKind `json:"kind"`
	AccountID string     `json:"accountId"`
	TableID   string     `json:"tableId"`
	Amount    *float64   `json:"amount,omitempty"`
	Timestamp int64      `json:"timestamp"`
}

// HandRecord is a completed hand.
type HandRecord struct {
	ID      string        `json:"id"`
	Players []string      `json:"players"`
	Actions []ActionEvent `json:"actions"`
	Winners []string      `json:"winners"`
	Pot     float64       `json:"pot"`
}

// LoginEvent is one successful login.
type LoginEvent struct {
	AccountID         string `json:"accountId"`
	DeviceFingerprint string `json:"deviceFingerprint"`
	NetworkOrigin     string `json:"networkOrigin"`
	Timestamp         int64  `json:"timestamp"`
}

// GroupingPattern is a set of accounts in which every pair co-occurs
// unusually often. CoOccurrences is the smallest pair count in the set.
// FoldsToPartner and SoftPlayRate describe the pair with the highest rate of
// folds facing the other's bet.
type GroupingPattern struct {
	Accounts       []string `json:"accounts"`
	CoOccurrences  int      `json:"coOccurrences"`
	Confidence     float64  `json:"confidence"`
	FoldsToPartner int      `json:"foldsToPartner"`
	SoftPlayRate   float64  `json:"softPlayRate"`
	HandIDs        []string `json:"handIds"`
}

// Key identifies the pattern independently of account order.
func (g GroupingPattern) Key() string {
	return groupKey(g.Accounts)
}

// ChipDumpingPattern is a directed transfer from Source to Destination.
type ChipDumpingPattern struct {
	Source      string   `json:"source"`
	Destination string   `json:"destination"`
	Amount      float64  `json:"amount"`
	Occurrences int      `json:"occurrences"`
	Confidence  float64  `json:"confidence"`
	HandIDs     []string `json:"handIds"`
}

// Key identifies the directed pair; x->y and y->x differ.
func (c ChipDumpingPattern) Key() string {
	return c.Source + "->" + c.Destination
}

// Patterns groups the flagged patterns of one analysis.
type Patterns struct {
	Grouping    []GroupingPattern    `json:"grouping"`
	ChipDumping []ChipDumpingPattern `json:"chipDumping"`
}

// CollusionDetection is the result of CollusionAnalyzer.Analyze.
type CollusionDetection struct {
	Patterns Patterns            `json:"patterns"`
	Alerts   []models.AlertDraft `json:"alerts"`
	Evidence []models.Evidence   `json:"evidence"`
}

// AccountLinkage is the result of MultiAccountAnalyzer.Analyze.
type AccountLinkage struct {
	LinkedAccounts []string          `json:"linkedAccounts"`
	Confidence     float64           `json:"confidence"`
	Signals        []models.Evidence `json:"signals"`
}

// CollusionConfig holds the collusion thresholds.
type CollusionConfig struct {
	// GroupingCoOccurrenceThreshold is the number of shared hands a pair of
	// accounts must exceed to link them in a grouping pattern.
	GroupingCoOccurrenceThreshold int `koanf:"grouping_co_occurrence_threshold" validate:"gte=1"`

	// ChipDumpAmountThreshold is the cumulative transfer a pair must exceed.
	ChipDumpAmountThreshold float64 `koanf:"chip_dump_amount_threshold" validate:"gt=0"`

	// ChipDumpOccurrenceThreshold is the number of hands showing the transfer
	// that a pair must exceed.
	ChipDumpOccurrenceThreshold int `koanf:"chip_dump_occurrence_threshold" validate:"gte=1"`

	// MaxEvidenceHands caps the hand ids recorded per pattern.
	MaxEvidenceHands int `koanf:"max_evidence_hands" validate:"gte=0"`
}

// DefaultCollusionConfig returns the default collusion thresholds.
func DefaultCollusionConfig() CollusionConfig {
	return CollusionConfig{
		GroupingCoOccurrenceThreshold: 10,
		ChipDumpAmountThreshold:       1000,
		ChipDumpOccurrenceThreshold:   3,
		MaxEvidenceHands:              20,
	}
}

// SignalConfig weighs one multi-account signal. A signal whose score reaches
// Floor implicates its accounts.
type SignalConfig struct {
	Weight float64 `koanf:"weight" validate:"gte=0"`
	Floor  float64 `koanf:"floor" validate:"gte=0,lte=1"`
}

// MultiAccountConfig holds every weight and threshold of the multi-account
// analysis.
type MultiAccountConfig struct {
	Device     SignalConfig `koanf:"device"`
	Network    SignalConfig `koanf:"network"`
	Temporal   SignalConfig `koanf:"temporal"`
	Behavioral SignalConfig `koanf:"behavioral"`

	// TemporalWindowMs is the gap under which logins of two different
	// accounts count as correlated.
	TemporalWindowMs int64 `koanf:"temporal_window_ms" validate:"gte=0"`

	// BehavioralMinLogins is the number of logins an account needs before its
	// login-hour profile is compared.
	BehavioralMinLogins int `koanf:"behavioral_min_logins" validate:"gte=1"`
}

// DefaultMultiAccountConfig returns the default signal weights.
func DefaultMultiAccountConfig() MultiAccountConfig {
	return MultiAccountConfig{
		Device:              SignalConfig{Weight: 0.4, Floor: 0.2},
		Network:             SignalConfig{Weight: 0.3, Floor: 0.2},
		Temporal:            SignalConfig{Weight: 0.2, Floor: 0.3},
		Behavioral:          SignalConfig{Weight: 0.1, Floor: 0.9},
		TemporalWindowMs:    60_000,
		BehavioralMinLogins: 3,
	}
}

// LoginSource fetches login events.
type LoginSource interface {
	FetchLoginsSince(ctx context.Context, sinceMs int64) ([]LoginEvent, error)
}

// HandSource fetches completed hands.
type HandSource interface {
	FetchHandsSince(ctx context.Context, sinceMs int64) ([]HandRecord, error)
}
