// Table - Anti-Fraud Detection and Alerting for Online Card Games
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/elevow/table-sub009

package alerts

import (
	"context"

	"github.com/elevow/table-sub009/internal/logging"
	"github.com/elevow/table-sub009/internal/metrics"
	"github.com/elevow/table-sub009/internal/models"
)

// ReadSource names where a read was served from.
type ReadSource string

const (
	ReadSourceRepository ReadSource = "repository"
	ReadSourceCache      ReadSource = "cache"
)

// ListWithFallback lists alerts from repo so that alerts written by other
// instances are included. When repo is nil or fails, the store snapshot is
// served instead. It always returns a list.
func ListWithFallback(ctx context.Context, repo Repository, store *Store) ([]models.AdminAlert, ReadSource) {
	if repo != nil {
		list, err := repo.List(ctx)
		if err == nil {
			metrics.AlertReadSource.WithLabelValues(string(ReadSourceRepository)).Inc()
			return list, ReadSourceRepository
		}
		logging.Warn().Err(err).Msg("Alert repository unavailable, serving cached alerts")
	}
	metrics.AlertReadSource.WithLabelValues(string(ReadSourceCache)).Inc()
	return store.List(), ReadSourceCache
}

// GetWithFallback looks id up in repo first, then in the store. The store
// also answers when repo does not have the alert yet because its write is
// still pending. A nil alert means neither knows the id.
func GetWithFallback(ctx context.Context, repo Repository, store *Store, id string) (*models.AdminAlert, ReadSource) {
	if repo != nil {
		a, err := repo.Get(ctx, id)
		switch {
		case err != nil:
			logging.Warn().Err(err).Str("alert_id", id).Msg("Alert repository unavailable, serving cached alert")
		case a != nil:
			return a, ReadSourceRepository
		}
	}
	return store.Get(id), ReadSourceCache
}
