// Table - Anti-Fraud Detection and Alerting for Online Card Games
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/elevow/table-sub009

package config

import (
	"errors"
	"fmt"

	"github.com/elevow/table-sub009/internal/validation"
)

// ErrInvalidConfig wraps every validation failure returned by Validate.
var ErrInvalidConfig = errors.New("invalid configuration")

// minJWTSecretLength matches the HS256 key size.
const minJWTSecretLength = 32

// Validate checks struct tags first, then the rules that span fields.
func (c *Config) Validate() error {
	if verr := validation.ValidateStruct(c); verr != nil {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, verr.Error())
	}

	if err := c.validateSecurity(); err != nil {
		return err
	}
	if err := c.Outbox.Validate(); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, err.Error())
	}
	return c.validateMultiAccount()
}

func (c *Config) validateSecurity() error {
	if c.Security.AuthMode != "jwt" {
		return nil
	}
	if len(c.Security.JWTSecret) < minJWTSecretLength {
		return fmt.Errorf("%w: JWT_SECRET must be at least %d characters when AUTH_MODE=jwt",
			ErrInvalidConfig, minJWTSecretLength)
	}
	if c.Security.AdminRole == "" {
		return fmt.Errorf("%w: ADMIN_ROLE is required when AUTH_MODE=jwt", ErrInvalidConfig)
	}
	return nil
}

func (c *Config) validateMultiAccount() error {
	m := c.MultiAccount
	total := m.Device.Weight + m.Network.Weight + m.Temporal.Weight + m.Behavioral.Weight
	if total <= 0 {
		return fmt.Errorf("%w: at least one multi_account signal weight must be positive", ErrInvalidConfig)
	}
	return nil
}
