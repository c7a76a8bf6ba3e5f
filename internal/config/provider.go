// Table - Anti-Fraud Detection and Alerting for Online Card Games
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/elevow/table-sub009

package config

import (
	"sync"

	"github.com/elevow/table-sub009/internal/logging"
)

// Provider holds the live configuration. A reload swaps the whole *Config, so
// values returned by Current must be treated as read-only.
type Provider struct {
	mu        sync.RWMutex
	cfg       *Config
	load      func() (*Config, error)
	listeners []func(*Config)
}

// NewProvider returns a provider seeded with cfg that reloads via LoadWithKoanf.
func NewProvider(cfg *Config) *Provider {
	return &Provider{cfg: cfg, load: LoadWithKoanf}
}

// Current returns the active configuration.
func (p *Provider) Current() *Config {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.cfg
}

// Set replaces the active configuration and notifies listeners.
func (p *Provider) Set(cfg *Config) {
	p.mu.Lock()
	p.cfg = cfg
	listeners := append([]func(*Config){}, p.listeners...)
	p.mu.Unlock()

	for _, fn := range listeners {
		fn(cfg)
	}
}

// OnReload registers fn to run after every successful reload.
func (p *Provider) OnReload(fn func(*Config)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.listeners = append(p.listeners, fn)
}

// Reload loads the configuration again. On failure the previous configuration
// stays active and the error is returned.
func (p *Provider) Reload() error {
	cfg, err := p.load()
	if err != nil {
		return err
	}
	p.Set(cfg)
	return nil
}

// Watch reloads whenever the config file changes. It is a no-op when the
// process runs without a config file.
func (p *Provider) Watch() error {
	path := ConfigFilePath()
	if path == "" {
		return nil
	}
	return WatchConfigFile(path, func() {
		if err := p.Reload(); err != nil {
			logging.Error().Err(err).Str("path", path).Msg("config reload failed, keeping previous configuration")
			return
		}
		logging.Info().Str("path", path).Msg("configuration reloaded")
	})
}
