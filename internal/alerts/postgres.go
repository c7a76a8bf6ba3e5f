// Table - Anti-Fraud Detection and Alerting for Online Card Games
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/elevow/table-sub009

package alerts

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/elevow/table-sub009/internal/database/jsoncol"
	"github.com/elevow/table-sub009/internal/models"
)

// PostgresRepository implements Repository on PostgreSQL. Involved and
// Evidence are stored as JSON, not JSONB, so the text comes back as written.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a repository backed by the given pool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// InitSchema creates the admin_alerts table if it doesn't exist.
func (r *PostgresRepository) InitSchema(ctx context.Context) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS admin_alerts (
			id TEXT PRIMARY KEY,
			type TEXT NOT NULL,
			severity TEXT NOT NULL,
			message TEXT NOT NULL,
			occurred_at BIGINT NOT NULL,
			involved JSON,
			source TEXT NOT NULL,
			status TEXT NOT NULL,
			evidence JSON,
			created_at BIGINT NOT NULL,
			updated_at BIGINT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_admin_alerts_created_at ON admin_alerts (created_at DESC)`,
	}
	for _, q := range queries {
		if _, err := r.pool.Exec(ctx, q); err != nil {
			return fmt.Errorf("postgres: init alert schema: %w", err)
		}
	}
	return nil
}

func (r *PostgresRepository) Create(ctx context.Context, a models.AdminAlert) error {
	involved, evidence, err := encodeAlertColumns(&a)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}

	const query = `INSERT INTO admin_alerts (` + alertColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO NOTHING`
	_, err = r.pool.Exec(ctx, query,
		a.ID, string(a.Type), string(a.Severity), a.Message, a.At,
		involved, string(a.Source), string(a.Status), evidence,
		a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: create alert %s: %w", a.ID, err)
	}
	return nil
}

func (r *PostgresRepository) List(ctx context.Context) ([]models.AdminAlert, error) {
	const query = `SELECT ` + alertSelectColumns + ` FROM admin_alerts ORDER BY created_at DESC, id ASC`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("postgres: list alerts: %w", err)
	}
	defer rows.Close()

	list := []models.AdminAlert{}
	for rows.Next() {
		var a models.AdminAlert
		if err := scanPostgresAlert(rows, &a); err != nil {
			return nil, fmt.Errorf("postgres: scan alert: %w", err)
		}
		list = append(list, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list alerts rows: %w", err)
	}
	return list, nil
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*models.AdminAlert, error) {
	const query = `SELECT ` + alertSelectColumns + ` FROM admin_alerts WHERE id = $1`
	var a models.AdminAlert
	if err := scanPostgresAlert(r.pool.QueryRow(ctx, query, id), &a); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("postgres: get alert %s: %w", id, err)
	}
	return &a, nil
}

func (r *PostgresRepository) UpdateStatus(ctx context.Context, id string, status models.Status, updatedAt int64) (*models.AdminAlert, error) {
	const query = `UPDATE admin_alerts
		SET status = $2, updated_at = GREATEST($3::BIGINT, created_at)
		WHERE id = $1
		RETURNING ` + alertSelectColumns
	var a models.AdminAlert
	if err := scanPostgresAlert(r.pool.QueryRow(ctx, query, id, string(status), updatedAt), &a); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("postgres: update alert %s: %w", id, err)
	}
	return &a, nil
}

func scanPostgresAlert(row pgx.Row, a *models.AdminAlert) error {
	var involved, evidence []byte
	if err := row.Scan(
		&a.ID, &a.Type, &a.Severity, &a.Message, &a.At,
		&involved, &a.Source, &a.Status, &evidence,
		&a.CreatedAt, &a.UpdatedAt,
	); err != nil {
		return err
	}

	if err := jsoncol.Unmarshal(involved, &a.Involved); err != nil {
		return fmt.Errorf("unmarshal involved: %w", err)
	}
	if err := jsoncol.Unmarshal(evidence, &a.Evidence); err != nil {
		return fmt.Errorf("unmarshal evidence: %w", err)
	}
	a.Normalize()
	return nil
}
