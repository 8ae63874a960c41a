// Broadcast Scheduler - Playout Schedule Generation Core
// Copyright 2026 Jay Pound
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jaypound/broadcast-scheduler

// Package main is the entry point for the Broadcast Scheduler server.
//
// The Broadcast Scheduler builds frame-accurate TV playout schedules from a
// rotation-ordered catalog of assets, enforcing per-category replay delays,
// featured-content placement, holiday-greeting fair rotation, and theme
// separation across daily, weekly, and monthly runs.
//
// # Application Architecture
//
// The server initializes components in the following order:
//
//  1. Configuration: Load settings from environment variables and config files (Koanf v2)
//  2. Logging and Supervisor Tree: zerolog setup and the Suture supervisor
//  3. WebSocket Hub: Stream live build progress to connected clients
//  4. Authentication: Configure JWT, Basic Auth, or no-auth mode
//  5. Asset Store: Open the DuckDB-backed asset catalog and scheduled-item store
//  6. Build Service: Supervised worker pool that runs the Schedule Builder
//  7. HTTP Server: REST API for schedule builds, listing, and item edits
//
// # Configuration
//
// Configuration is loaded via Koanf v2 with layered sources (highest priority wins):
//   - Environment variables (see internal/config for the mapped names)
//   - Config file (config.yaml)
//   - Built-in defaults
//
// For JWT authentication (default):
//   - JWT_SECRET: 32+ character secret for token signing
//   - ADMIN_USERNAME: Admin username
//   - ADMIN_PASSWORD: Admin password (12+ characters with upper and lower
//     case, a digit and a special character)
//
// # Signal Handling
//
// The server handles graceful shutdown on SIGINT and SIGTERM:
//   - Stops accepting new connections
//   - Waits for in-flight requests to complete (10s timeout)
//   - Lets in-flight schedule builds finish or cancel
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"

	"github.com/jaypound/broadcast-scheduler/internal/api"
	"github.com/jaypound/broadcast-scheduler/internal/auth"
	"github.com/jaypound/broadcast-scheduler/internal/config"
	"github.com/jaypound/broadcast-scheduler/internal/logging"
	schedevents "github.com/jaypound/broadcast-scheduler/internal/scheduler/events"
	schedlock "github.com/jaypound/broadcast-scheduler/internal/scheduler/lock"
	schedresilience "github.com/jaypound/broadcast-scheduler/internal/scheduler/resilience"
	schedstore "github.com/jaypound/broadcast-scheduler/internal/scheduler/store"
	"github.com/jaypound/broadcast-scheduler/internal/supervisor"
	"github.com/jaypound/broadcast-scheduler/internal/supervisor/services"
	ws "github.com/jaypound/broadcast-scheduler/internal/websocket"
)

//nolint:gocyclo // Main initialization function with sequential setup steps
func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().Msg("Starting Broadcast Scheduler with supervisor tree")
	logging.Info().
		Str("db_path", cfg.Database.Path).
		Str("auth_mode", cfg.Security.AuthMode).
		Msg("Configuration loaded")

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Bridge zerolog to slog for sutureslog compatibility.
	slogLogger := logging.NewSlogLogger()

	tree, err := supervisor.NewSupervisorTree(slogLogger, supervisor.TreeConfig{
		FailureThreshold: 5,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  10 * time.Second,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}

	// WebSocket hub for streaming schedule build progress to connected
	// dashboards; created before the build service so its publisher can be
	// wired to it below.
	wsHub := ws.NewHub()

	var jwtManager *auth.JWTManager
	var basicAuthManager *auth.BasicAuthManager

	switch cfg.Security.AuthMode {
	case "jwt":
		jwtManager, err = auth.NewJWTManager(&cfg.Security)
		if err != nil {
			logging.Fatal().Err(err).Msg("Failed to initialize JWT manager")
		}
		logging.Info().Msg("JWT authentication enabled")
	case "basic":
		basicAuthManager, err = auth.NewBasicAuthManager(
			cfg.Security.AdminUsername,
			cfg.Security.AdminPassword,
		)
		if err != nil {
			logging.Fatal().Err(err).Msg("Failed to initialize Basic Auth manager")
		}
		logging.Info().Msg("Basic authentication enabled")
		logging.Warn().Msg("Basic Auth transmits credentials with each request. Use HTTPS in production!")
	case "none":
		logging.Warn().Msg("============================================================")
		logging.Warn().Msg("  SECURITY WARNING: Authentication is DISABLED (AUTH_MODE=none)")
		logging.Warn().Msg("  All endpoints are publicly accessible without authentication!")
		logging.Warn().Msg("  This mode should ONLY be used for local dev or CI/CD testing.")
		logging.Warn().Msg("============================================================")
	}

	authMiddleware := auth.NewMiddleware(
		jwtManager,
		basicAuthManager,
		cfg.Security.AuthMode,
		cfg.Security.RateLimitReqs,
		cfg.Security.RateLimitWindow,
		cfg.Security.RateLimitDisabled,
		cfg.Security.CORSOrigins,
		cfg.Security.TrustedProxies,
		cfg.Security.BasicAuthDefaultRole,
		cfg.Security.AdminUsername,
	)

	if cfg.Security.RateLimitDisabled {
		logging.Warn().Msg("Rate limiting is DISABLED (DISABLE_RATE_LIMIT=true)")
	}

	if cfg.ShouldWarnAboutCORS() {
		logging.Warn().Msg("============================================================")
		logging.Warn().Msg("  SECURITY WARNING: CORS is configured with wildcard origin (CORS_ORIGINS=*)")
		logging.Warn().Msg("  With authentication enabled, this allows credential theft via malicious sites.")
		logging.Warn().Msg("  RECOMMENDED: Set specific origins, e.g. CORS_ORIGINS=https://yourdomain.com")
		logging.Warn().Msg("============================================================")
	}

	// === SCHEDULE BUILDER INITIALIZATION ===
	// Open the scheduler's asset/scheduled-item store and start the supervised
	// build-worker pool that runs the Schedule Builder (C6) off the request path.
	rawSchedStore, err := schedstore.Open(ctx, cfg.Database.Path)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open scheduler store")
	}
	defer func() {
		if err := rawSchedStore.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing scheduler store")
		}
	}()
	// Circuit-break and rate-limit the asset catalog round trips the
	// Candidate Provider makes once per slot (spec.md §4.3 category resets
	// can otherwise fire a burst of queries in a row).
	resilientSchedStore := schedresilience.New(rawSchedStore, 50, 100)

	// Per-asset advisory locks guard UpdateAssetLastScheduled against two
	// concurrent builds racing the same asset's scheduling metadata.
	assetLockPath := filepath.Join(filepath.Dir(cfg.Database.Path), "scheduler-locks")
	assetLocks, err := schedlock.Open(assetLockPath)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open scheduler asset lock store")
	}
	defer func() {
		if err := assetLocks.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing scheduler asset lock store")
		}
	}()
	schedStore := resilientSchedStore.WithAssetLocks(assetLocks)

	buildConcurrency := runtime.NumCPU()
	if buildConcurrency < 1 {
		buildConcurrency = 1
	}
	buildService := services.NewSchedulerBuildService(schedStore, &cfg.Scheduler, buildConcurrency)
	logging.Info().
		Int("workers", buildConcurrency).
		Strs("rotation_order", cfg.Scheduler.RotationOrderRaw).
		Msg("Schedule builder initialized")

	// Schedule build outcomes fan out over an in-process Watermill bus so
	// the WebSocket hub can stream schedule.completed/schedule.failed to
	// connected dashboards without the build service knowing about
	// WebSockets directly.
	schedEventBus := gochannel.NewGoChannel(gochannel.Config{}, watermill.NewStdLogger(false, false))
	buildService.SetPublisher(schedevents.New(schedEventBus))
	forwardScheduleEvents(ctx, schedEventBus, wsHub)

	healthHandler := api.NewHealthHandler(schedStore)
	router := api.NewRouter(healthHandler, authMiddleware)

	schedulerHandlers := api.NewSchedulerHandler(buildService, schedStore)
	router.ConfigureScheduler(schedulerHandlers)
	logging.Info().Msg("Scheduler routes configured")

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.SetupChi(),
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
		IdleTimeout:  60 * time.Second,
	}

	// === ADD SERVICES TO SUPERVISOR TREE ===

	tree.AddMessagingService(services.NewWebSocketHubService(wsHub))
	logging.Info().Msg("WebSocket hub added to supervisor tree")

	tree.AddDataService(buildService)
	logging.Info().Msg("Schedule builder worker pool added to supervisor tree")

	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	// === START SUPERVISOR TREE ===

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree...")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish...")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	if len(unstopped) > 0 {
		logging.Warn().Int("count", len(unstopped)).Msg("Services failed to stop within timeout")
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
		}
	}

	logging.Info().Msg("Application stopped gracefully")
}

// forwardScheduleEvents subscribes to the schedule build bus and rebroadcasts
// every message to connected WebSocket dashboards via wsHub.BroadcastJSON,
// so clients watching a long monthly build see progress without polling
// GET /schedules/build/{jobID}.
func forwardScheduleEvents(ctx context.Context, bus *gochannel.GoChannel, wsHub *ws.Hub) {
	for _, topic := range []string{schedevents.TopicScheduleCompleted, schedevents.TopicScheduleFailed} {
		messages, err := bus.Subscribe(ctx, topic)
		if err != nil {
			logging.Error().Err(err).Str("topic", topic).Msg("Failed to subscribe to schedule event bus")
			continue
		}
		go func(topic string, messages <-chan *message.Message) {
			for msg := range messages {
				var outcome schedevents.BuildOutcome
				if err := json.Unmarshal(msg.Payload, &outcome); err != nil {
					logging.Warn().Err(err).Str("topic", topic).Msg("Failed to decode schedule event")
					msg.Ack()
					continue
				}
				wsHub.BroadcastJSON(topic, outcome)
				msg.Ack()
			}
		}(topic, messages)
	}
}
