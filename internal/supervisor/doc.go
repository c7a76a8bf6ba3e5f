// Table - Anti-Fraud Detection and Alerting for Online Card Games
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/elevow/table-sub009

/*
Package supervisor runs the long-lived services of the process under a
suture v4 supervisor tree.

# Overview

	RootSupervisor ("table")
	├── DataSupervisor ("data-layer")
	│   ├── OutboxRetryService (if outbox enabled)
	│   └── OutboxCompactorService (if outbox enabled)
	├── DetectionSupervisor ("detection-layer")
	│   └── SchedulerService
	└── APISupervisor ("api-layer")
	    └── HTTPServerService

A crash in one layer restarts only that layer's services: a panicking
outbox replay does not take down the admin API, and an HTTP listener
failure does not stop the security scan.

# Logging

Supervisor events (service start, failure, backoff) are routed through
sutureslog into the process logger:

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	tree.AddDataService(services.NewOutboxRetryService(retryLoop))
	tree.AddDetectionService(services.NewSchedulerService(sched))
	tree.AddAPIService(services.NewHTTPServerService(srv, cfg.Server.ShutdownTimeout))
	err = tree.Serve(ctx)

Services wrap their Start/Stop lifecycles in suture's
Serve(ctx) error contract; see package services.
*/
package supervisor
