// Table - Anti-Fraud Detection and Alerting for Online Card Games
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/elevow/table-sub009

package detection

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/elevow/table-sub009/internal/database/jsoncol"
	"github.com/elevow/table-sub009/internal/logging"
)

// DuckDBEventSource reads hands and logins recorded by the game servers. It
// implements both LoginSource and HandSource.
type DuckDBEventSource struct {
	db *sql.DB
}

// NewDuckDBEventSource creates an event source over an open DuckDB handle.
func NewDuckDBEventSource(db *sql.DB) *DuckDBEventSource {
	return &DuckDBEventSource{db: db}
}

// InitSchema creates the event tables if they don't exist.
func (s *DuckDBEventSource) InitSchema(ctx context.Context) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS login_events (
			account_id TEXT NOT NULL,
			device_fingerprint TEXT,
			network_origin TEXT,
			ts BIGINT NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS hands (
			id TEXT PRIMARY KEY,
			players TEXT,
			actions TEXT,
			winners TEXT,
			pot DOUBLE DEFAULT 0,
			ended_at BIGINT NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_login_events_ts ON login_events(ts)`,
		`CREATE INDEX IF NOT EXISTS idx_hands_ended_at ON hands(ended_at)`,
	}

	for _, query := range queries {
		if _, err := s.db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute event schema query: %w", err)
		}
	}

	if _, err := s.db.ExecContext(ctx, "CHECKPOINT"); err != nil {
		logging.Warn().Err(err).Msg("Failed to checkpoint after event schema initialization")
	}
	return nil
}

// RecordLogin appends a login event.
func (s *DuckDBEventSource) RecordLogin(ctx context.Context, e LoginEvent) error {
	query := `INSERT INTO login_events (account_id, device_fingerprint, network_origin, ts)
		VALUES (?, ?, ?, ?)`
	if _, err := s.db.ExecContext(ctx, query, e.AccountID, e.DeviceFingerprint, e.NetworkOrigin, e.Timestamp); err != nil {
		return fmt.Errorf("failed to insert login event: %w", err)
	}
	return nil
}

// RecordHand stores a completed hand. Recording the same hand id twice keeps
// the first copy.
func (s *DuckDBEventSource) RecordHand(ctx context.Context, h HandRecord, endedAt int64) error {
	players, err := jsoncol.Marshal(h.Players)
	if err != nil {
		return fmt.Errorf("failed to marshal players for hand %s: %w", h.ID, err)
	}
	actions, err := jsoncol.Marshal(h.Actions)
	if err != nil {
		return fmt.Errorf("failed to marshal actions for hand %s: %w", h.ID, err)
	}
	winners, err := jsoncol.Marshal(h.Winners)
	if err != nil {
		return fmt.Errorf("failed to marshal winners for hand %s: %w", h.ID, err)
	}

	query := `INSERT INTO hands (id, players, actions, winners, pot, ended_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO NOTHING`
	if _, err := s.db.ExecContext(ctx, query, h.ID, players, actions, winners, h.Pot, endedAt); err != nil {
		return fmt.Errorf("failed to insert hand %s: %w", h.ID, err)
	}
	return nil
}

// FetchLoginsSince returns logins at or after sinceMs, oldest first.
func (s *DuckDBEventSource) FetchLoginsSince(ctx context.Context, sinceMs int64) ([]LoginEvent, error) {
	query := `SELECT account_id, COALESCE(device_fingerprint, ''), COALESCE(network_origin, ''), ts
		FROM login_events WHERE ts >= ?
		ORDER BY ts, account_id`

	rows, err := s.db.QueryContext(ctx, query, sinceMs)
	if err != nil {
		return nil, fmt.Errorf("failed to query login events: %w", err)
	}
	defer rows.Close()

	logins := []LoginEvent{}
	for rows.Next() {
		var e LoginEvent
		if err := rows.Scan(&e.AccountID, &e.DeviceFingerprint, &e.NetworkOrigin, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan login event: %w", err)
		}
		logins = append(logins, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating login events: %w", err)
	}
	return logins, nil
}

// FetchHandsSince returns hands that ended at or after sinceMs, oldest first.
func (s *DuckDBEventSource) FetchHandsSince(ctx context.Context, sinceMs int64) ([]HandRecord, error) {
	query := `SELECT id, CAST(players AS VARCHAR), CAST(actions AS VARCHAR), CAST(winners AS VARCHAR), COALESCE(pot, 0)
		FROM hands WHERE ended_at >= ?
		ORDER BY ended_at, id`

	rows, err := s.db.QueryContext(ctx, query, sinceMs)
	if err != nil {
		return nil, fmt.Errorf("failed to query hands: %w", err)
	}
	defer rows.Close()

	hands := []HandRecord{}
	for rows.Next() {
		var h HandRecord
		if err := scanHandRow(rows, &h); err != nil {
			return nil, fmt.Errorf("failed to scan hand: %w", err)
		}
		hands = append(hands, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating hands: %w", err)
	}
	return hands, nil
}

// scanHandRow scans a single hand row with its JSON columns read as text.
func scanHandRow(scanner interface {
	Scan(dest ...interface{}) error
}, h *HandRecord) error {
	var players, actions, winners []byte

	if err := scanner.Scan(&h.ID, &players, &actions, &winners, &h.Pot); err != nil {
		return err
	}
	if err := jsoncol.Unmarshal(players, &h.Players); err != nil {
		return fmt.Errorf("players: %w", err)
	}
	if err := jsoncol.Unmarshal(actions, &h.Actions); err != nil {
		return fmt.Errorf("actions: %w", err)
	}
	if err := jsoncol.Unmarshal(winners, &h.Winners); err != nil {
		return fmt.Errorf("winners: %w", err)
	}
	return nil
}
