// Table - Anti-Fraud Detection and Alerting for Online Card Games
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/elevow/table-sub009

// Package auth validates the HS256 bearer tokens that gate the admin API.
//
// Tokens are minted by the platform's identity service with the shared
// JWT_SECRET; this package only verifies them and exposes the claims to
// handlers through the request context.
package auth
