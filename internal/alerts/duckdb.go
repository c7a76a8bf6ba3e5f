// Table - Anti-Fraud Detection and Alerting for Online Card Games
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/elevow/table-sub009

package alerts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/elevow/table-sub009/internal/database/jsoncol"
	"github.com/elevow/table-sub009/internal/logging"
	"github.com/elevow/table-sub009/internal/models"
)

// DuckDBRepository implements Repository on DuckDB.
type DuckDBRepository struct {
	db *sql.DB
}

// NewDuckDBRepository creates a repository over an open DuckDB handle.
func NewDuckDBRepository(db *sql.DB) *DuckDBRepository {
	return &DuckDBRepository{db: db}
}

const alertColumns = `id, type, severity, message, occurred_at, involved, source, status, evidence, created_at, updated_at`

// alertSelectColumns reads the JSON columns back as text.
const alertSelectColumns = `id, type, severity, message, occurred_at, CAST(involved AS VARCHAR), source, status, CAST(evidence AS VARCHAR), created_at, updated_at`

// InitSchema creates the admin_alerts table if it doesn't exist.
func (r *DuckDBRepository) InitSchema(ctx context.Context) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS admin_alerts (
			id TEXT PRIMARY KEY,
			type TEXT NOT NULL,
			severity TEXT NOT NULL,
			message TEXT NOT NULL,
			occurred_at BIGINT NOT NULL,
			involved TEXT,
			source TEXT NOT NULL,
			status TEXT NOT NULL,
			evidence TEXT,
			created_at BIGINT NOT NULL,
			updated_at BIGINT NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_admin_alerts_created_at ON admin_alerts(created_at)`,
	}

	for _, query := range queries {
		if _, err := r.db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute alert schema query: %w", err)
		}
	}

	if _, err := r.db.ExecContext(ctx, "CHECKPOINT"); err != nil {
		logging.Warn().Err(err).Msg("Failed to checkpoint after alert schema initialization")
	}
	return nil
}

func (r *DuckDBRepository) Create(ctx context.Context, a models.AdminAlert) error {
	involved, evidence, err := encodeAlertColumns(&a)
	if err != nil {
		return err
	}

	query := `INSERT INTO admin_alerts (` + alertColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO NOTHING`
	_, err = r.db.ExecContext(ctx, query,
		a.ID, string(a.Type), string(a.Severity), a.Message, a.At,
		involved, string(a.Source), string(a.Status), evidence,
		a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert alert %s: %w", a.ID, err)
	}
	return nil
}

func (r *DuckDBRepository) List(ctx context.Context) ([]models.AdminAlert, error) {
	query := `SELECT ` + alertSelectColumns + ` FROM admin_alerts ORDER BY created_at DESC, id ASC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query alerts: %w", err)
	}
	defer rows.Close()

	list := []models.AdminAlert{}
	for rows.Next() {
		var a models.AdminAlert
		if err := scanDuckDBAlert(rows, &a); err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		list = append(list, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate alerts: %w", err)
	}
	return list, nil
}

func (r *DuckDBRepository) Get(ctx context.Context, id string) (*models.AdminAlert, error) {
	query := `SELECT ` + alertSelectColumns + ` FROM admin_alerts WHERE id = ?`
	var a models.AdminAlert
	if err := scanDuckDBAlert(r.db.QueryRowContext(ctx, query, id), &a); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get alert %s: %w", id, err)
	}
	return &a, nil
}

func (r *DuckDBRepository) UpdateStatus(ctx context.Context, id string, status models.Status, updatedAt int64) (*models.AdminAlert, error) {
	query := `UPDATE admin_alerts SET status = ?, updated_at = GREATEST(CAST(? AS BIGINT), created_at) WHERE id = ?`
	result, err := r.db.ExecContext(ctx, query, string(status), updatedAt, id)
	if err != nil {
		return nil, fmt.Errorf("failed to update alert %s: %w", id, err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return nil, nil
	}
	return r.Get(ctx, id)
}

// scanDuckDBAlert scans a single alert row selected with alertSelectColumns.
func scanDuckDBAlert(scanner interface {
	Scan(dest ...interface{}) error
}, a *models.AdminAlert) error {
	var involved, evidence []byte

	if err := scanner.Scan(
		&a.ID,
		&a.Type,
		&a.Severity,
		&a.Message,
		&a.At,
		&involved,
		&a.Source,
		&a.Status,
		&evidence,
		&a.CreatedAt,
		&a.UpdatedAt,
	); err != nil {
		return err
	}

	if err := jsoncol.Unmarshal(involved, &a.Involved); err != nil {
		return fmt.Errorf("involved: %w", err)
	}
	if err := jsoncol.Unmarshal(evidence, &a.Evidence); err != nil {
		return fmt.Errorf("evidence: %w", err)
	}
	a.Normalize()
	return nil
}

// encodeAlertColumns marshals the JSON columns of a. Nil slices are stored as
// empty arrays.
func encodeAlertColumns(a *models.AdminAlert) (involved, evidence string, err error) {
	c := a.Clone()
	if involved, err = jsoncol.Marshal(c.Involved); err != nil {
		return "", "", fmt.Errorf("failed to marshal involved for alert %s: %w", a.ID, err)
	}
	if evidence, err = jsoncol.Marshal(c.Evidence); err != nil {
		return "", "", fmt.Errorf("failed to marshal evidence for alert %s: %w", a.ID, err)
	}
	return involved, evidence, nil
}
