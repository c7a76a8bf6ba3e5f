// Table - Anti-Fraud Detection and Alerting for Online Card Games
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/elevow/table-sub009

package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

const testSecret = "0123456789abcdef0123456789abcdef"

// isolate points CONFIG_PATH at a file that does not exist and moves into an
// empty directory so no stray config.yaml is picked up.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv(ConfigPathEnvVar, filepath.Join(dir, "missing.yaml"))
	return dir
}

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Server.Port != 8088 {
		t.Errorf("Server.Port = %d, want 8088", cfg.Server.Port)
	}
	if !cfg.Scheduler.Enabled {
		t.Error("Scheduler.Enabled should default to true")
	}
	if cfg.Scheduler.Interval() != time.Minute {
		t.Errorf("Scheduler.Interval() = %v, want 1m", cfg.Scheduler.Interval())
	}
	if cfg.Database.Driver != "duckdb" {
		t.Errorf("Database.Driver = %q, want duckdb", cfg.Database.Driver)
	}
	if cfg.Collusion.GroupingCoOccurrenceThreshold != 10 {
		t.Errorf("Collusion.GroupingCoOccurrenceThreshold = %d, want 10", cfg.Collusion.GroupingCoOccurrenceThreshold)
	}
	if cfg.MultiAccount.Device.Weight <= 0 {
		t.Error("device weight should be positive by default")
	}
}

func TestLoadWithKoanf_EnvOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("SCHEDULER_INTERVAL_MS", "5000")
	t.Setenv("SCHEDULER_LOOKBACK_MS", "120000")
	t.Setenv("MULTI_ACCOUNT_DEVICE_WEIGHT", "0.9")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("UNRELATED_VARIABLE", "ignored")

	cfg, err := LoadWithKoanf()
	if err != nil {
		t.Fatalf("LoadWithKoanf: %v", err)
	}
	if cfg.Scheduler.IntervalMs != 5000 {
		t.Errorf("IntervalMs = %d, want 5000", cfg.Scheduler.IntervalMs)
	}
	if cfg.Scheduler.LookbackMs != 120000 {
		t.Errorf("LookbackMs = %d, want 120000", cfg.Scheduler.LookbackMs)
	}
	if cfg.MultiAccount.Device.Weight != 0.9 {
		t.Errorf("Device.Weight = %v, want 0.9", cfg.MultiAccount.Device.Weight)
	}
	if len(cfg.Security.CORSOrigins) != 2 || cfg.Security.CORSOrigins[1] != "https://b.example" {
		t.Errorf("CORSOrigins = %v", cfg.Security.CORSOrigins)
	}
}

func TestLoadWithKoanf_FileThenEnv(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "config.yaml")
	yaml := []byte(`
security:
  jwt_secret: "` + testSecret + `"
scheduler:
  interval_ms: 30000
  collusion_enabled: true
collusion:
  chip_dump_amount_threshold: 250
`)
	if err := os.WriteFile(path, yaml, 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(ConfigPathEnvVar, path)
	t.Setenv("SCHEDULER_INTERVAL_MS", "20000")

	cfg, err := LoadWithKoanf()
	if err != nil {
		t.Fatalf("LoadWithKoanf: %v", err)
	}
	if cfg.Scheduler.IntervalMs != 20000 {
		t.Errorf("env should win over file, IntervalMs = %d", cfg.Scheduler.IntervalMs)
	}
	if !cfg.Scheduler.CollusionEnabled {
		t.Error("collusion_enabled from file not applied")
	}
	if cfg.Collusion.ChipDumpAmountThreshold != 250 {
		t.Errorf("ChipDumpAmountThreshold = %v, want 250", cfg.Collusion.ChipDumpAmountThreshold)
	}
	if cfg.Collusion.ChipDumpOccurrenceThreshold != 3 {
		t.Errorf("unset keys should keep defaults, ChipDumpOccurrenceThreshold = %d", cfg.Collusion.ChipDumpOccurrenceThreshold)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults with secret", func(c *Config) {}, false},
		{"short secret", func(c *Config) { c.Security.JWTSecret = "short" }, true},
		{"auth disabled needs no secret", func(c *Config) {
			c.Security.AuthMode = "none"
			c.Security.JWTSecret = ""
		}, false},
		{"postgres without dsn", func(c *Config) { c.Database.Driver = "postgres" }, true},
		{"unknown driver", func(c *Config) { c.Database.Driver = "sqlite" }, true},
		{"interval too small", func(c *Config) { c.Scheduler.IntervalMs = 10 }, true},
		{"all weights zero", func(c *Config) {
			c.MultiAccount.Device.Weight = 0
			c.MultiAccount.Network.Weight = 0
			c.MultiAccount.Temporal.Weight = 0
			c.MultiAccount.Behavioral.Weight = 0
		}, true},
		{"floor above one", func(c *Config) { c.MultiAccount.Network.Floor = 1.5 }, true},
		{"redis enabled without addr", func(c *Config) {
			c.Redis.Enabled = true
			c.Redis.Addr = ""
		}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			cfg.Security.JWTSecret = testSecret
			tt.mutate(cfg)

			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("error %v does not wrap ErrInvalidConfig", err)
			}
		})
	}
}

func TestProvider_ReloadKeepsPreviousOnError(t *testing.T) {
	initial := defaultConfig()
	p := NewProvider(initial)

	var notified *Config
	p.OnReload(func(c *Config) { notified = c })

	p.load = func() (*Config, error) { return nil, errors.New("broken file") }
	if err := p.Reload(); err == nil {
		t.Fatal("expected reload error")
	}
	if p.Current() != initial {
		t.Error("failed reload must keep the previous configuration")
	}

	next := defaultConfig()
	next.Scheduler.LookbackMs = 42
	p.load = func() (*Config, error) { return next, nil }
	if err := p.Reload(); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if p.Current().Scheduler.LookbackMs != 42 {
		t.Errorf("LookbackMs = %d, want 42", p.Current().Scheduler.LookbackMs)
	}
	if notified != next {
		t.Error("listener was not called with the new configuration")
	}
}
