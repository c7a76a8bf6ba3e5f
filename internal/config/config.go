// Table - Anti-Fraud Detection and Alerting for Online Card Games
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/elevow/table-sub009

// Package config loads the service configuration.
//
// Values are layered: built-in defaults, then an optional YAML file, then
// environment variables. The detection thresholds and the scheduler lookback
// may be changed while the process runs; see Provider.
package config

import (
	"time"

	"github.com/elevow/table-sub009/internal/detection"
	"github.com/elevow/table-sub009/internal/wal"
)

// Config is the root configuration.
type Config struct {
	Server       ServerConfig                 `koanf:"server"`
	Security     SecurityConfig               `koanf:"security"`
	Logging      LoggingConfig                `koanf:"logging"`
	Database     DatabaseConfig               `koanf:"database"`
	Outbox       wal.Config                   `koanf:"outbox"`
	Redis        RedisConfig                  `koanf:"redis"`
	NATS         NATSConfig                   `koanf:"nats"`
	Scheduler    SchedulerConfig              `koanf:"scheduler"`
	MultiAccount detection.MultiAccountConfig `koanf:"multi_account"`
	Collusion    detection.CollusionConfig    `koanf:"collusion"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// SecurityConfig holds the admin API gates.
type SecurityConfig struct {
	AuthMode          string        `koanf:"auth_mode" validate:"oneof=jwt none"`
	JWTSecret         string        `koanf:"jwt_secret"`
	AdminRole         string        `koanf:"admin_role"`
	RateLimitRequests int           `koanf:"rate_limit_requests" validate:"gte=1"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
	CORSOrigins       []string      `koanf:"cors_origins"`
}

// LoggingConfig configures the global logger.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}

// DatabaseConfig selects and configures the alert repository and event source.
type DatabaseConfig struct {
	// Driver is duckdb or postgres.
	Driver string `koanf:"driver" validate:"oneof=duckdb postgres"`

	// Path is the DuckDB file. Empty means an in-memory database.
	Path string `koanf:"path"`

	// DSN is the Postgres connection string.
	DSN      string `koanf:"dsn" validate:"required_if=Driver postgres"`
	MaxConns int    `koanf:"max_conns"`
	MinConns int    `koanf:"min_conns"`

	// Breaker settings for the repository circuit breaker.
	BreakerFailures uint32        `koanf:"breaker_failures" validate:"gte=1"`
	BreakerTimeout  time.Duration `koanf:"breaker_timeout"`
	QueryTimeout    time.Duration `koanf:"query_timeout"`
}

// RedisConfig enables the cross-instance scheduler lock.
type RedisConfig struct {
	Enabled  bool          `koanf:"enabled"`
	Addr     string        `koanf:"addr" validate:"required_if=Enabled true"`
	Password string        `koanf:"password"`
	DB       int           `koanf:"db"`
	LockKey  string        `koanf:"lock_key"`
	LockTTL  time.Duration `koanf:"lock_ttl"`
}

// NATSConfig enables publishing alert events to NATS JetStream.
type NATSConfig struct {
	Enabled       bool   `koanf:"enabled"`
	URL           string `koanf:"url" validate:"required_if=Enabled true"`
	Topic         string `koanf:"topic"`
	MaxReconnects int    `koanf:"max_reconnects"`
}

// SchedulerConfig drives the periodic security scan. IntervalMs only takes
// effect on the next Start; LookbackMs is re-read on every tick.
type SchedulerConfig struct {
	Enabled          bool          `koanf:"enabled"`
	IntervalMs       int64         `koanf:"interval_ms" validate:"gte=1000"`
	LookbackMs       int64         `koanf:"lookback_ms" validate:"gte=1"`
	CollusionEnabled bool          `koanf:"collusion_enabled"`
	RunTimeout       time.Duration `koanf:"run_timeout"`
}

// Interval returns IntervalMs as a duration.
func (s SchedulerConfig) Interval() time.Duration {
	return time.Duration(s.IntervalMs) * time.Millisecond
}
