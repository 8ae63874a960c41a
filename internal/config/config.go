// Broadcast Scheduler - Playout Schedule Generation Core
// Copyright 2026 Jay Pound
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jaypound/broadcast-scheduler

package config

import (
	"time"

	schedcfg "github.com/jaypound/broadcast-scheduler/internal/scheduler/config"
)

// Config holds all application configuration loaded from environment variables
// and an optional config file.
//
// Configuration Loading Order (Koanf v2):
//  1. Defaults: built-in sensible defaults for all optional settings
//  2. Config File: optional YAML config file (config.yaml)
//  3. Environment Variables: override any setting
//
// Config is immutable after Load() and safe for concurrent read access from
// multiple goroutines.
type Config struct {
	Database  DatabaseConfig     `koanf:"database"`
	Server    ServerConfig       `koanf:"server"`
	API       APIConfig          `koanf:"api"`
	Security  SecurityConfig     `koanf:"security"`
	Logging   LoggingConfig      `koanf:"logging"`
	Scheduler schedcfg.Scheduler `koanf:"scheduler"` // Broadcast Schedule Builder settings
}

// DatabaseConfig holds DuckDB settings for the Asset Store.
type DatabaseConfig struct {
	Path                   string `koanf:"path"`
	MaxMemory              string `koanf:"max_memory"`
	Threads                int    `koanf:"threads"`                 // Number of DuckDB threads (0 = use NumCPU)
	PreserveInsertionOrder bool   `koanf:"preserve_insertion_order"` // DuckDB default: true
	SeedMockData           bool   `koanf:"seed_mock_data"`           // Enable mock data seeding for local/dev runs
	SkipIndexes            bool   `koanf:"skip_indexes"`            // Skip index creation (fast test setup)
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port        int           `koanf:"port"`
	Host        string        `koanf:"host"`
	Timeout     time.Duration `koanf:"timeout"`
	Environment string        `koanf:"environment"` // "development", "staging", "production"
}

// APIConfig holds API pagination and response settings.
type APIConfig struct {
	DefaultPageSize int `koanf:"default_page_size"`
	MaxPageSize     int `koanf:"max_page_size"`
}

// SecurityConfig holds authentication, rate limiting, and CORS settings for
// the scheduler HTTP surface.
type SecurityConfig struct {
	AuthMode          string        `koanf:"auth_mode"` // "none", "basic", or "jwt"
	JWTSecret         string        `koanf:"jwt_secret"`
	SessionTimeout    time.Duration `koanf:"session_timeout"`
	AdminUsername     string        `koanf:"admin_username"`
	AdminPassword     string        `koanf:"admin_password"`
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
	CORSOrigins       []string      `koanf:"cors_origins"`
	TrustedProxies    []string      `koanf:"trusted_proxies"`

	// BasicAuthDefaultRole is the default role assigned to Basic Auth users
	// other than the configured admin user.
	BasicAuthDefaultRole string `koanf:"basic_auth_default_role"`
}

// LoggingConfig holds logging settings for zerolog.
type LoggingConfig struct {
	// Level is the minimum log level: trace, debug, info, warn, error.
	Level string `koanf:"level"`
	// Format is the output format: json or console.
	Format string `koanf:"format"`
	// Caller includes caller file and line number in logs.
	Caller bool `koanf:"caller"`
}

// Load reads configuration from environment variables and an optional config
// file. Configuration is loaded in the following order (later sources
// override earlier ones):
//  1. Built-in defaults
//  2. Config file (config.yaml if exists, or path specified in CONFIG_PATH)
//  3. Environment variables
//
// See LoadWithKoanf for the underlying implementation.
func Load() (*Config, error) {
	return LoadWithKoanf()
}
