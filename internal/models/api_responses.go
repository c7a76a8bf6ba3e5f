// Table - Anti-Fraud Detection and Alerting for Online Card Games
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/elevow/table-sub009

package models

import "time"

// APIResponse is the envelope returned by every handler.
//
//	{"status": "success", "data": [...], "metadata": {"timestamp": "...", "source": "repository"}}
type APIResponse struct {
	Status   string      `json:"status"`
	Data     interface{} `json:"data"`
	Metadata Metadata    `json:"metadata"`
	Error    *APIError   `json:"error,omitempty"`
}

// Metadata describes how a response was produced.
type Metadata struct {
	Timestamp   time.Time `json:"timestamp"`
	QueryTimeMS int64     `json:"query_time_ms,omitempty"`
	// Source is "repository" or "cache" for alert reads.
	Source string `json:"source,omitempty"`
	Count  int    `json:"count,omitempty"`
}

// APIError is the error body of a failed request.
type APIError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// UpdateAlertStatusRequest is the PATCH /api/v1/alerts/{id} body.
type UpdateAlertStatusRequest struct {
	Status Status `json:"status" validate:"required,oneof=new open ack closed"`
}

// ListAlertsRequest holds the optional GET /api/v1/alerts filters.
type ListAlertsRequest struct {
	Status   Status   `validate:"omitempty,oneof=new open ack closed"`
	Severity Severity `validate:"omitempty,oneof=low medium high critical"`
	Limit    int      `validate:"gte=0,lte=1000"`
}

// HealthResponse is the GET /api/v1/health payload.
type HealthResponse struct {
	Status           string     `json:"status"`
	CachedAlerts     int        `json:"cached_alerts"`
	SchedulerRunning bool       `json:"scheduler_running"`
	LastScan         *time.Time `json:"last_scan,omitempty"`
	RepositoryState  string     `json:"repository_state,omitempty"`
}
