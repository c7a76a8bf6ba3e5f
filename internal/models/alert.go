// Table - Anti-Fraud Detection and Alerting for Online Card Games
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/elevow/table-sub009

package models

// AlertType classifies what an alert is about. The set is open: other
// producers may use their own values.
type AlertType string

const (
	AlertTypeGrouping         AlertType = "grouping"
	AlertTypeChipDump         AlertType = "chip-dump"
	AlertTypeMultiAccount     AlertType = "multi-account"
	AlertTypeSecurityIncident AlertType = "security_incident"
	AlertTypeSlowQueries      AlertType = "slow_queries"
)

// Severity indicates how urgently an operator should look at an alert.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Valid reports whether s is one of the known severities.
func (s Severity) Valid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

// Source names the producer of an alert.
type Source string

const (
	SourceCollusion    Source = "collusion"
	SourceMultiAccount Source = "multi-account"
	SourceDBMonitor    Source = "db-monitor"
	SourceWAF          Source = "waf"
)

// Status is the triage state of an alert. Any status may follow any other.
type Status string

const (
	StatusNew    Status = "new"
	StatusOpen   Status = "open"
	StatusAck    Status = "ack"
	StatusClosed Status = "closed"
)

// Valid reports whether s is one of the four triage states.
func (s Status) Valid() bool {
	switch s {
	case StatusNew, StatusOpen, StatusAck, StatusClosed:
		return true
	}
	return false
}

// AdminAlert is the persisted alert. ID and CreatedAt never change after
// creation and CreatedAt <= UpdatedAt always holds.
type AdminAlert struct {
	ID        string     `json:"id"`
	Type      AlertType  `json:"type"`
	Severity  Severity   `json:"severity"`
	Message   string     `json:"message"`
	At        int64      `json:"at"`
	Involved  []string   `json:"involved"`
	Source    Source     `json:"source"`
	Status    Status     `json:"status"`
	Evidence  []Evidence `json:"evidence"`
	CreatedAt int64      `json:"createdAt"`
	UpdatedAt int64      `json:"updatedAt"`
}

// Normalize replaces nil Involved and Evidence with empty slices so the wire
// form never carries null.
func (a *AdminAlert) Normalize() {
	if a.Involved == nil {
		a.Involved = []string{}
	}
	if a.Evidence == nil {
		a.Evidence = []Evidence{}
	}
}

// Clone returns a deep copy that shares no slices with a.
func (a *AdminAlert) Clone() AdminAlert {
	c := *a
	c.Involved = append([]string{}, a.Involved...)
	c.Evidence = make([]Evidence, len(a.Evidence))
	for i := range a.Evidence {
		c.Evidence[i] = a.Evidence[i].Clone()
	}
	return c
}

// AlertDraft is an alert before the store assigns identity and timestamps.
// Zero-valued fields are filled with defaults by the store.
type AlertDraft struct {
	ID       string
	Type     AlertType
	Severity Severity
	Message  string
	At       int64
	Involved []string
	Source   Source
	Status   Status
	Evidence []Evidence
}
