// Table - Anti-Fraud Detection and Alerting for Online Card Games
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/elevow/table-sub009

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/elevow/table-sub009/internal/detection"
	"github.com/elevow/table-sub009/internal/wal"
)

// DefaultConfigPaths are searched in order when CONFIG_PATH is unset.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/table/config.yaml",
}

// ConfigPathEnvVar overrides the config file location.
const ConfigPathEnvVar = "CONFIG_PATH"

// Default returns the built-in configuration without reading a file or the
// environment.
func Default() *Config {
	return defaultConfig()
}

func defaultConfig() *Config {
	outbox := wal.DefaultConfig()
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8088,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Security: SecurityConfig{
			AuthMode:          "jwt",
			AdminRole:         "admin",
			RateLimitRequests: 120,
			RateLimitWindow:   time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Database: DatabaseConfig{
			Driver:          "duckdb",
			Path:            "/data/table.duckdb",
			MaxConns:        10,
			MinConns:        1,
			BreakerFailures: 5,
			BreakerTimeout:  30 * time.Second,
			QueryTimeout:    5 * time.Second,
		},
		Outbox: outbox,
		Redis: RedisConfig{
			Addr:    "127.0.0.1:6379",
			LockKey: "security-scheduler",
			LockTTL: 2 * time.Minute,
		},
		NATS: NATSConfig{
			URL:           "nats://127.0.0.1:4222",
			Topic:         "security_alerts",
			MaxReconnects: -1,
		},
		Scheduler: SchedulerConfig{
			Enabled:    true,
			IntervalMs: 60_000,
			LookbackMs: 15 * 60_000,
			RunTimeout: 45 * time.Second,
		},
		MultiAccount: detection.DefaultMultiAccountConfig(),
		Collusion:    detection.DefaultCollusionConfig(),
	}
}

// Load reads configuration from defaults, the config file and the environment.
func Load() (*Config, error) {
	return LoadWithKoanf()
}

// LoadWithKoanf applies the three layers in order of increasing priority:
// defaults, YAML file, environment.
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path := ConfigFilePath(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// ConfigFilePath returns the config file that Load would read, or "".
func ConfigFilePath() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

var sliceConfigPaths = []string{
	"security.cors_origins",
}

// processSliceFields splits comma-separated env values into slices.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		s, ok := k.Get(path).(string)
		if !ok || s == "" {
			continue
		}
		var parts []string
		for _, p := range strings.Split(s, ",") {
			if p = strings.TrimSpace(p); p != "" {
				parts = append(parts, p)
			}
		}
		if err := k.Set(path, parts); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// envMappings maps environment variable names (lowercased) to koanf paths.
// Unmapped variables are ignored.
var envMappings = map[string]string{
	"http_host":             "server.host",
	"http_port":             "server.port",
	"http_read_timeout":     "server.read_timeout",
	"http_write_timeout":    "server.write_timeout",
	"http_shutdown_timeout": "server.shutdown_timeout",

	"auth_mode":           "security.auth_mode",
	"jwt_secret":          "security.jwt_secret",
	"admin_role":          "security.admin_role",
	"rate_limit_requests": "security.rate_limit_requests",
	"rate_limit_window":   "security.rate_limit_window",
	"disable_rate_limit":  "security.rate_limit_disabled",
	"cors_origins":        "security.cors_origins",

	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",

	"db_driver":           "database.driver",
	"duckdb_path":         "database.path",
	"postgres_dsn":        "database.dsn",
	"db_max_conns":        "database.max_conns",
	"db_min_conns":        "database.min_conns",
	"db_breaker_failures": "database.breaker_failures",
	"db_breaker_timeout":  "database.breaker_timeout",
	"db_query_timeout":    "database.query_timeout",

	"outbox_enabled":        "outbox.enabled",
	"outbox_path":           "outbox.path",
	"outbox_in_memory":      "outbox.in_memory",
	"outbox_sync_writes":    "outbox.sync_writes",
	"outbox_retry_interval": "outbox.retry_interval",
	"outbox_retry_backoff":  "outbox.retry_backoff",
	"outbox_max_retries":    "outbox.max_retries",
	"outbox_entry_ttl":      "outbox.entry_ttl",

	"redis_enabled":  "redis.enabled",
	"redis_addr":     "redis.addr",
	"redis_password": "redis.password",
	"redis_db":       "redis.db",
	"redis_lock_key": "redis.lock_key",
	"redis_lock_ttl": "redis.lock_ttl",

	"nats_enabled":        "nats.enabled",
	"nats_url":            "nats.url",
	"nats_topic":          "nats.topic",
	"nats_max_reconnects": "nats.max_reconnects",

	"scheduler_enabled":     "scheduler.enabled",
	"scheduler_interval_ms": "scheduler.interval_ms",
	"scheduler_lookback_ms": "scheduler.lookback_ms",
	"scheduler_collusion":   "scheduler.collusion_enabled",
	"scheduler_run_timeout": "scheduler.run_timeout",

	"multi_account_device_weight":      "multi_account.device.weight",
	"multi_account_device_floor":       "multi_account.device.floor",
	"multi_account_network_weight":     "multi_account.network.weight",
	"multi_account_network_floor":      "multi_account.network.floor",
	"multi_account_temporal_weight":    "multi_account.temporal.weight",
	"multi_account_temporal_floor":     "multi_account.temporal.floor",
	"multi_account_behavioral_weight":  "multi_account.behavioral.weight",
	"multi_account_behavioral_floor":   "multi_account.behavioral.floor",
	"multi_account_temporal_window_ms": "multi_account.temporal_window_ms",
	"multi_account_behavioral_min":     "multi_account.behavioral_min_logins",

	"collusion_grouping_threshold":    "collusion.grouping_co_occurrence_threshold",
	"collusion_chip_dump_amount":      "collusion.chip_dump_amount_threshold",
	"collusion_chip_dump_occurrences": "collusion.chip_dump_occurrence_threshold",
}

func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}

// WatchConfigFile calls callback whenever the file at path changes.
func WatchConfigFile(path string, callback func()) error {
	return file.Provider(path).Watch(func(_ interface{}, err error) {
		if err != nil {
			return
		}
		callback()
	})
}
