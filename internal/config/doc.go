// Broadcast Scheduler - Playout Schedule Generation Core
// Copyright 2026 Jay Pound
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jaypound/broadcast-scheduler

/*
Package config provides centralized configuration management for the
scheduler process, layered via Koanf v2.

# Configuration Sources

Load order, later sources override earlier ones:

  - Built-in defaults (defaultConfig in koanf.go)
  - An optional YAML config file (config.yaml, config.yml, or
    /etc/broadcast-scheduler/config.{yaml,yml}; override the search with
    CONFIG_PATH)
  - Environment variables, mapped through envTransformFunc

# Configuration Structure

  - DatabaseConfig: DuckDB path, memory limit, thread count
  - ServerConfig: HTTP bind address, port, timeout, environment name
  - APIConfig: pagination defaults
  - SecurityConfig: auth mode, JWT/Basic Auth settings, rate limiting, CORS
  - LoggingConfig: zerolog level/format/caller settings
  - schedcfg.Scheduler: rotation order, frame rate, replay delays and
    featured/holiday settings for the Broadcast Schedule Builder (C2-C7)

# Environment Variables

HTTP Server:
  - HTTP_HOST, HTTP_PORT, HTTP_TIMEOUT, ENVIRONMENT

Authentication (security.*):
  - AUTH_MODE: "none", "basic", or "jwt"
  - JWT_SECRET: signing secret, required for jwt mode
  - SESSION_TIMEOUT, ADMIN_USERNAME, ADMIN_PASSWORD
  - BASIC_AUTH_DEFAULT_ROLE, RATE_LIMIT_REQUESTS, RATE_LIMIT_WINDOW,
    DISABLE_RATE_LIMIT, CORS_ORIGINS, TRUSTED_PROXIES

Database:
  - DUCKDB_PATH, DUCKDB_MAX_MEMORY, DUCKDB_THREADS, SEED_MOCK_DATA,
    SKIP_INDEXES

Logging:
  - LOG_LEVEL, LOG_FORMAT, LOG_CALLER

Scheduler (Broadcast Schedule Builder, C2):
  - SCHEDULER_ROTATION_ORDER, SCHEDULER_FRAME_RATE, SCHEDULER_MAX_ERRORS

Unmapped environment variables are silently skipped by envTransformFunc
to keep unrelated process environment from polluting configuration.

# Usage Example

	import "github.com/jaypound/broadcast-scheduler/internal/config"

	cfg, err := config.LoadWithKoanf()
	if err != nil {
	    log.Fatalf("failed to load config: %v", err)
	}

	fmt.Printf("Starting server on %s:%d\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Printf("Database: %s\n", cfg.Database.Path)

# Validation

Load() calls Config.Validate() (see config_validate.go), which checks the
server port range, auth mode consistency (JWT_SECRET required for jwt mode,
admin credentials for jwt/basic), wildcard CORS origins in production,
rate-limit bounds, and the log level and format. Timeouts and trusted-proxy
entries are not validated. The admin password is checked against
DefaultPasswordPolicy in password_policy.go (length, character classes,
common-password list, username similarity).

# Thread Safety

The Config struct is immutable after LoadWithKoanf() returns, making it
safe for concurrent read access from multiple goroutines without
synchronization.

# See Also

  - internal/scheduler/config: Broadcast Schedule Builder tuning knobs
  - internal/auth: consumes SecurityConfig for the JWT/Basic/none auth modes
*/
package config
