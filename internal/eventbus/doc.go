// Table - Anti-Fraud Detection and Alerting for Online Card Games
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/elevow/table-sub009

/*
Package eventbus publishes alert lifecycle events over Watermill.

Production deployments publish to NATS JetStream (NewNATSPublisher); tests
and single-node setups can hand any message.Publisher to NewPublisher, for
example a gochannel pub/sub.

Every message carries an AlertEvent JSON payload and the metadata keys
event_type, alert_id and severity. Message UUIDs are derived from the alert
id, event type and UpdatedAt, so JetStream deduplication drops a notification
that is published twice for the same state.
*/
package eventbus
