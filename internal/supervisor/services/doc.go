// Table - Anti-Fraud Detection and Alerting for Online Card Games
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/elevow/table-sub009

// Package services adapts the process components to suture.Service.
//
// Components with a Start/Stop lifecycle (the security scheduler, the outbox
// retry loop) are started in Serve, held until the context is canceled and
// then stopped. The HTTP server runs ListenAndServe and is shut down
// gracefully with its own timeout.
package services
