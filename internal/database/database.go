// Table - Anti-Fraud Detection and Alerting for Online Card Games
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/elevow/table-sub009

package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/elevow/table-sub009/internal/config"
	"github.com/elevow/table-sub009/internal/logging"
)

// memoryConnStr opens a private in-memory database. Extension autoloading is
// disabled to prevent hangs in restricted network environments.
const memoryConnStr = ":memory:?autoinstall_known_extensions=false&autoload_known_extensions=false"

// OpenDuckDB opens the DuckDB database described by cfg. An empty Path opens
// an in-memory database, which does not survive a restart.
func OpenDuckDB(cfg config.DatabaseConfig) (*sql.DB, error) {
	connStr := memoryConnStr
	if cfg.Path != "" {
		// Use 0750 permissions (owner: rwx, group: rx, other: none) per gosec G301
		dbDir := filepath.Dir(cfg.Path)
		if dbDir != "" && dbDir != "." {
			if err := os.MkdirAll(dbDir, 0o750); err != nil {
				return nil, fmt.Errorf("failed to create database directory %s: %w", dbDir, err)
			}
		}
		connStr = fmt.Sprintf("%s?access_mode=read_write&threads=%d&autoinstall_known_extensions=false&autoload_known_extensions=false",
			cfg.Path, runtime.NumCPU())
	}

	conn, err := sql.Open("duckdb", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	maxConns := cfg.MaxConns
	if maxConns <= 0 {
		maxConns = runtime.NumCPU()
	}
	conn.SetMaxOpenConns(maxConns)
	conn.SetMaxIdleConns(2)
	conn.SetConnMaxIdleTime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := conn.PingContext(ctx); err != nil {
		closeQuietly(conn)
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	path := cfg.Path
	if path == "" {
		path = ":memory:"
	}
	logging.Info().Str("path", path).Int("max_conns", maxConns).Msg("DuckDB opened")
	return conn, nil
}

func closeQuietly(conn *sql.DB) {
	if err := conn.Close(); err != nil {
		logging.Warn().Err(err).Msg("Failed to close database connection")
	}
}
