// Broadcast Scheduler - Playout Schedule Generation Core
// Copyright 2026 Jay Pound
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jaypound/broadcast-scheduler

/*
Package main is the entry point for the Broadcast Scheduler server.

The Broadcast Scheduler builds frame-accurate TV playout schedules: daily,
weekly, and monthly runs drawn from a rotation-ordered asset catalog, with
per-category replay delays, featured-content placement, holiday-greeting
fair rotation, and theme-separation enforcement.

# Application Architecture

The server implements a layered architecture with Suture v4 process supervision:

	RootSupervisor ("broadcast-scheduler")
	├── DataSupervisor ("data-layer")
	│   └── Schedule Builder worker pool
	├── MessagingSupervisor ("messaging-layer")
	│   └── WebSocket Hub (build-progress streaming)
	└── APISupervisor ("api-layer")
	    └── HTTP Server (schedule build, list, and item-edit endpoints)

Component initialization order:

 1. Configuration: Koanf v2 with environment variables and config files
 2. Logging: zerolog with JSON/console output modes
 3. Supervisor Tree: Suture v4 process supervision
 4. WebSocket Hub: live build-progress notifications
 5. Authentication: JWT, Basic Auth, or no-auth mode
 6. Database: DuckDB holding the asset catalog and scheduled-item store
 7. Schedule Builder: supervised worker pool draining build submissions
 8. HTTP Server: Chi router with middleware stack

# Configuration

Configuration is loaded via Koanf v2 with layered sources (highest priority wins):

	Priority: Environment variables > Config file > Defaults

Core environment variables:

	# Server
	HTTP_PORT=3857               # HTTP server port
	LOG_LEVEL=info               # trace, debug, info, warn, error
	LOG_FORMAT=json              # json or console

	# Authentication (choose one mode)
	AUTH_MODE=jwt                # jwt, basic, or none
	JWT_SECRET=<32+ chars>       # Required for JWT mode
	ADMIN_USERNAME=admin
	ADMIN_PASSWORD=<password>

	# Scheduler
	SCHEDULER_ROTATION_ORDER=id,short_form,long_form,spots
	SCHEDULER_FRAME_RATE=29.976

See the internal/config package documentation for the complete list of
environment variables.

# Signal Handling

The server handles graceful shutdown on SIGINT and SIGTERM:

 1. Stops accepting new HTTP connections
 2. Lets in-flight schedule builds finish or cancel
 3. Waits for in-flight requests (10s timeout)
 4. Flushes pending writes and closes the database
 5. Reports any services that failed to stop

# See Also

  - internal/config: Configuration management
  - internal/supervisor: Process supervision
  - internal/api: HTTP handlers and routing
  - internal/scheduler/builder: Schedule Builder core algorithm
*/
package main
