// Table - Anti-Fraud Detection and Alerting for Online Card Games
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/elevow/table-sub009

package api

import (
	"context"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/elevow/table-sub009/internal/detection"
	"github.com/elevow/table-sub009/internal/logging"
	"github.com/elevow/table-sub009/internal/models"
)

// EventRecorder stores raw inputs for later scans.
// *detection.DuckDBEventSource implements it.
type EventRecorder interface {
	RecordLogin(ctx context.Context, e detection.LoginEvent) error
	RecordHand(ctx context.Context, h detection.HandRecord, endedAt int64) error
}

// maxIngestBodyBytes caps ingest batches.
const maxIngestBodyBytes = 4 << 20

type loginEventRequest struct {
	AccountID         string `json:"accountId" validate:"required,max=128"`
	DeviceFingerprint string `json:"deviceFingerprint" validate:"max=512"`
	NetworkOrigin     string `json:"networkOrigin" validate:"max=512"`
	Timestamp         int64  `json:"timestamp" validate:"gt=0"`
}

type ingestLoginsRequest struct {
	Events []loginEventRequest `json:"events" validate:"required,min=1,max=1000,dive"`
}

type handRequest struct {
	ID      string                  `json:"id" validate:"required,max=128"`
	Players []string                `json:"players" validate:"required,min=1,dive,required"`
	Actions []detection.ActionEvent `json:"actions"`
	Winners []string                `json:"winners"`
	Pot     float64                 `json:"pot" validate:"gte=0"`
	EndedAt int64                   `json:"endedAt" validate:"gt=0"`
}

type ingestHandsRequest struct {
	Hands []handRequest `json:"hands" validate:"required,min=1,max=500,dive"`
}

type ingestResult struct {
	Accepted int `json:"accepted"`
}

// decodeBody decodes a JSON body, rejecting unknown fields. It writes the
// 400 itself and returns false on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, limit int64, v interface{}) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, limit))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		respondError(w, http.StatusBadRequest, codeValidation, "Request body is not valid JSON for this endpoint", nil)
		return false
	}
	if apiErr := validateRequest(v); apiErr != nil {
		respondValidationError(w, apiErr)
		return false
	}
	return true
}

// IngestLogins handles POST /api/v1/events/logins.
func (h *Handler) IngestLogins(w http.ResponseWriter, r *http.Request) {
	if h.events == nil {
		respondError(w, http.StatusServiceUnavailable, codeUnavailable, "Event ingestion not configured", nil)
		return
	}

	var req ingestLoginsRequest
	if !decodeBody(w, r, maxIngestBodyBytes, &req) {
		return
	}

	for i, e := range req.Events {
		err := h.events.RecordLogin(r.Context(), detection.LoginEvent{
			AccountID:         e.AccountID,
			DeviceFingerprint: e.DeviceFingerprint,
			NetworkOrigin:     e.NetworkOrigin,
			Timestamp:         e.Timestamp,
		})
		if err != nil {
			logging.Ctx(r.Context()).Error().Err(err).Int("accepted", i).Msg("Login ingest aborted")
			respondError(w, http.StatusServiceUnavailable, codeUnavailable, "Event store unavailable", nil)
			return
		}
	}

	respondSuccess(w, http.StatusAccepted, ingestResult{Accepted: len(req.Events)}, models.Metadata{Count: len(req.Events)})
}

// IngestHands handles POST /api/v1/events/hands. Re-sending a hand id is a
// no-op, so clients may retry whole batches.
func (h *Handler) IngestHands(w http.ResponseWriter, r *http.Request) {
	if h.events == nil {
		respondError(w, http.StatusServiceUnavailable, codeUnavailable, "Event ingestion not configured", nil)
		return
	}

	var req ingestHandsRequest
	if !decodeBody(w, r, maxIngestBodyBytes, &req) {
		return
	}

	for i, hr := range req.Hands {
		hand := detection.HandRecord{
			ID:      hr.ID,
			Players: hr.Players,
			Actions: hr.Actions,
			Winners: hr.Winners,
			Pot:     hr.Pot,
		}
		if err := h.events.RecordHand(r.Context(), hand, hr.EndedAt); err != nil {
			logging.Ctx(r.Context()).Error().Err(err).Int("accepted", i).Msg("Hand ingest aborted")
			respondError(w, http.StatusServiceUnavailable, codeUnavailable, "Event store unavailable", nil)
			return
		}
	}

	respondSuccess(w, http.StatusAccepted, ingestResult{Accepted: len(req.Hands)}, models.Metadata{Count: len(req.Hands)})
}
