// Table - Anti-Fraud Detection and Alerting for Online Card Games
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/elevow/table-sub009

// Package jsoncol encodes and decodes the JSON text columns of the alert and
// event tables.
//
// Columns are written and read as text. Scanning a DuckDB JSON value as a
// decoded Go value loses integer precision and key order, so readers select
// the column cast to VARCHAR and decode the bytes here.
package jsoncol

import (
	"github.com/goccy/go-json"
)

// Marshal encodes v for a JSON text column.
func Marshal(v interface{}) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Unmarshal decodes a scanned JSON text column into dst. A NULL column (nil
// raw) leaves dst untouched.
func Unmarshal(raw []byte, dst interface{}) error {
	if raw == nil {
		return nil
	}
	return json.Unmarshal(raw, dst)
}
