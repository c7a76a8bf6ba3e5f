// Table - Anti-Fraud Detection and Alerting for Online Card Games
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/elevow/table-sub009

package wal

import "time"

// Config holds the outbox configuration. It is embedded in the application
// config under the "outbox" key.
//
// Environment Variables:
//   - OUTBOX_ENABLED: Enable the durable outbox (default: true)
//   - OUTBOX_PATH: Directory for BadgerDB storage (default: /data/outbox)
//   - OUTBOX_IN_MEMORY: Keep the outbox in memory only (default: false)
//   - OUTBOX_SYNC_WRITES: Force fsync on every write (default: true)
//   - OUTBOX_RETRY_INTERVAL: Interval between replay passes (default: 30s)
//   - OUTBOX_RETRY_BACKOFF: Initial backoff between attempts (default: 5s)
//   - OUTBOX_MAX_RETRIES: Attempts before an entry is dropped (default: 100)
//   - OUTBOX_ENTRY_TTL: Lifetime of an unconfirmed entry (default: 168h)
type Config struct {
	// Enabled controls whether alert writes go through the outbox.
	// When disabled, the store persists alerts best-effort.
	Enabled bool `koanf:"enabled"`

	// Path is the directory where BadgerDB stores its files.
	Path string `koanf:"path"`

	// InMemory keeps BadgerDB in memory. Pending entries do not survive a
	// restart; only useful for development.
	InMemory bool `koanf:"in_memory"`

	// SyncWrites forces fsync after every write.
	SyncWrites bool `koanf:"sync_writes"`

	// RetryInterval is the time between retry loop passes.
	RetryInterval time.Duration `koanf:"retry_interval"`

	// RetryBackoff is the initial backoff for exponential backoff.
	RetryBackoff time.Duration `koanf:"retry_backoff"`

	// MaxRetries is the number of replay attempts before an entry is
	// dropped and logged as permanently failed.
	MaxRetries int `koanf:"max_retries"`

	// EntryTTL is the lifetime of an unconfirmed entry.
	EntryTTL time.Duration `koanf:"entry_ttl"`

	// CompactInterval is the time between compaction runs.
	CompactInterval time.Duration `koanf:"compact_interval"`

	// ReplayTimeout bounds a single replay against the repository.
	ReplayTimeout time.Duration `koanf:"replay_timeout"`

	// BadgerDB tuning.
	MemTableSize     int64   `koanf:"memtable_size"`
	ValueLogFileSize int64   `koanf:"vlog_size"`
	NumCompactors    int     `koanf:"num_compactors"`
	Compression      bool    `koanf:"compression"`
	GCRatio          float64 `koanf:"gc_ratio"`

	// CloseTimeout is the maximum time Close waits for BadgerDB.
	CloseTimeout time.Duration `koanf:"close_timeout"`
}

// DefaultConfig returns a Config that prioritizes durability.
func DefaultConfig() Config {
	return Config{
		Enabled:          true,
		Path:             "/data/outbox",
		SyncWrites:       true,
		RetryInterval:    30 * time.Second,
		RetryBackoff:     5 * time.Second,
		MaxRetries:       100,
		EntryTTL:         168 * time.Hour, // 7 days
		CompactInterval:  time.Hour,
		ReplayTimeout:    10 * time.Second,
		MemTableSize:     16 * 1024 * 1024,
		ValueLogFileSize: 64 * 1024 * 1024,
		NumCompactors:    2,
		Compression:      true,
		GCRatio:          0.5,
		CloseTimeout:     30 * time.Second,
	}
}

// Validate checks that the configuration is usable by Open.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}

	if c.Path == "" && !c.InMemory {
		return &ConfigError{Field: "Path", Message: "outbox path is required"}
	}

	if c.RetryInterval < time.Second {
		return &ConfigError{Field: "RetryInterval", Message: "must be at least 1 second"}
	}

	if c.RetryBackoff < time.Second {
		return &ConfigError{Field: "RetryBackoff", Message: "must be at least 1 second"}
	}

	if c.MaxRetries < 1 {
		return &ConfigError{Field: "MaxRetries", Message: "must be at least 1"}
	}

	if c.EntryTTL < time.Hour {
		return &ConfigError{Field: "EntryTTL", Message: "must be at least 1 hour"}
	}

	if c.CompactInterval < time.Minute {
		return &ConfigError{Field: "CompactInterval", Message: "must be at least 1 minute"}
	}

	if c.MemTableSize < 1024*1024 {
		return &ConfigError{Field: "MemTableSize", Message: "must be at least 1MB"}
	}

	if c.ValueLogFileSize < 1024*1024 {
		return &ConfigError{Field: "ValueLogFileSize", Message: "must be at least 1MB"}
	}

	if c.NumCompactors < 2 {
		return &ConfigError{Field: "NumCompactors", Message: "must be at least 2 (BadgerDB requirement)"}
	}

	return nil
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "outbox config error: " + e.Field + ": " + e.Message
}
