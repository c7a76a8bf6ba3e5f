// Table - Anti-Fraud Detection and Alerting for Online Card Games
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/elevow/table-sub009

package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/elevow/table-sub009/internal/alerts"
	"github.com/elevow/table-sub009/internal/logging"
	"github.com/elevow/table-sub009/internal/models"
	"github.com/elevow/table-sub009/internal/scheduler"
)

// Scanner runs detection passes. *scheduler.SecurityScheduler implements it.
type Scanner interface {
	RunOnce(ctx context.Context) (scheduler.RunResult, error)
	IsRunning() bool
	LastRun() time.Time
}

// stateReporter is implemented by repositories that expose a breaker state.
type stateReporter interface {
	State() string
}

// Handler serves the admin endpoints.
type Handler struct {
	store   *alerts.Store
	repo    alerts.Repository
	scanner Scanner
	events  EventRecorder
	now     func() time.Time
}

// NewHandler creates a handler. repo and scanner may be nil: reads are then
// served from the cache and POST /scan answers 503.
func NewHandler(store *alerts.Store, repo alerts.Repository, scanner Scanner) *Handler {
	return &Handler{store: store, repo: repo, scanner: scanner, now: time.Now}
}

// WithEventRecorder enables the ingest endpoints.
func (h *Handler) WithEventRecorder(events EventRecorder) *Handler {
	h.events = events
	return h
}

// Health reports liveness. It never touches the repository.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	resp := models.HealthResponse{
		Status:       "healthy",
		CachedAlerts: h.store.Len(),
	}
	if h.scanner != nil {
		resp.SchedulerRunning = h.scanner.IsRunning()
		if last := h.scanner.LastRun(); !last.IsZero() {
			resp.LastScan = &last
		}
	}
	if sr, ok := h.repo.(stateReporter); ok {
		resp.RepositoryState = sr.State()
		if resp.RepositoryState == "open" {
			resp.Status = "degraded"
		}
	}

	respondSuccess(w, http.StatusOK, resp, models.Metadata{})
}

// ListAlerts handles GET /api/v1/alerts?status=&severity=&limit=.
func (h *Handler) ListAlerts(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	q := r.URL.Query()

	req := models.ListAlertsRequest{
		Status:   models.Status(q.Get("status")),
		Severity: models.Severity(q.Get("severity")),
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, codeValidation, "limit must be an integer", nil)
			return
		}
		req.Limit = limit
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondValidationError(w, apiErr)
		return
	}

	list, source := alerts.ListWithFallback(r.Context(), h.repo, h.store)
	list = filterAlerts(list, req)

	w.Header().Set("X-Alert-Source", string(source))
	respondSuccess(w, http.StatusOK, list, models.Metadata{
		QueryTimeMS: time.Since(start).Milliseconds(),
		Source:      string(source),
		Count:       len(list),
	})
}

// filterAlerts applies the optional filters without reordering.
func filterAlerts(list []models.AdminAlert, req models.ListAlertsRequest) []models.AdminAlert {
	out := make([]models.AdminAlert, 0, len(list))
	for _, a := range list {
		if req.Status != "" && a.Status != req.Status {
			continue
		}
		if req.Severity != "" && a.Severity != req.Severity {
			continue
		}
		out = append(out, a)
		if req.Limit > 0 && len(out) == req.Limit {
			break
		}
	}
	return out
}

// GetAlert handles GET /api/v1/alerts/{id}.
func (h *Handler) GetAlert(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	id := chi.URLParam(r, "id")

	alert, source := alerts.GetWithFallback(r.Context(), h.repo, h.store, id)
	if alert == nil {
		respondError(w, http.StatusNotFound, codeNotFound, "Alert not found", nil)
		return
	}

	w.Header().Set("X-Alert-Source", string(source))
	respondSuccess(w, http.StatusOK, alert, models.Metadata{
		QueryTimeMS: time.Since(start).Milliseconds(),
		Source:      string(source),
	})
}

// UpdateAlertStatus handles PATCH /api/v1/alerts/{id}.
//
// Alerts cached by this instance go through the store so the change is
// outboxed. An alert another instance created is updated in the repository
// directly.
func (h *Handler) UpdateAlertStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req models.UpdateAlertStatusRequest
	if !decodeBody(w, r, maxBodyBytes, &req) {
		return
	}

	if updated := h.store.UpdateStatus(id, req.Status); updated != nil {
		h.logStatusChange(r, id, req.Status)
		respondSuccess(w, http.StatusOK, updated, models.Metadata{Source: string(alerts.ReadSourceCache)})
		return
	}

	if h.repo == nil {
		respondError(w, http.StatusNotFound, codeNotFound, "Alert not found", nil)
		return
	}
	updated, err := h.repo.UpdateStatus(r.Context(), id, req.Status, h.now().UnixMilli())
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, codeUnavailable, "Alert repository unavailable", err)
		return
	}
	if updated == nil {
		respondError(w, http.StatusNotFound, codeNotFound, "Alert not found", nil)
		return
	}
	h.logStatusChange(r, id, req.Status)
	respondSuccess(w, http.StatusOK, updated, models.Metadata{Source: string(alerts.ReadSourceRepository)})
}

func (h *Handler) logStatusChange(r *http.Request, id string, status models.Status) {
	logging.Ctx(r.Context()).Info().
		Str("alert_id", sanitizeLogValue(id)).
		Str("status", string(status)).
		Str("actor", actorFromRequest(r)).
		Msg("Alert status updated")
}

// TriggerScan handles POST /api/v1/scan. It blocks until the pass finishes.
func (h *Handler) TriggerScan(w http.ResponseWriter, r *http.Request) {
	if h.scanner == nil {
		respondError(w, http.StatusServiceUnavailable, codeUnavailable, "Security scheduler not configured", nil)
		return
	}

	result, err := h.scanner.RunOnce(r.Context())
	switch {
	case errors.Is(err, scheduler.ErrRunInProgress), errors.Is(err, scheduler.ErrLockHeld):
		respondError(w, http.StatusConflict, codeConflict, err.Error(), nil)
		return
	case err != nil:
		respondError(w, http.StatusInternalServerError, codeInternal, "Security scan failed", err)
		return
	}

	logging.Ctx(r.Context()).Info().
		Str("run_id", result.RunID).
		Int("alerts", len(result.AlertIDs)).
		Str("actor", actorFromRequest(r)).
		Msg("Manual security scan completed")

	respondSuccess(w, http.StatusOK, result, models.Metadata{
		QueryTimeMS: result.Duration.Milliseconds(),
		Count:       len(result.AlertIDs),
	})
}
