// Table - Anti-Fraud Detection and Alerting for Online Card Games
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/elevow/table-sub009

/*
Package models defines the data structures shared between the analyzers, the
alert store, the repositories and the HTTP surface.

Key types:

  - AdminAlert: the persisted alert, serialized with the exact wire shape
    {id, type, severity, message, at, involved, source, status, evidence,
    createdAt, updatedAt}. All timestamps are Unix milliseconds.
  - AlertDraft: what an analyzer hands to the store before an id and
    timestamps are assigned.
  - Evidence: a tagged union keyed by EvidenceKind. Exactly one payload field
    matching the kind is populated; EvidenceRaw carries opaque records from
    sources this service does not model (WAF, database monitors).
  - APIResponse: the response envelope used by every handler.
*/
package models
