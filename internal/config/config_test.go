// Broadcast Scheduler - Playout Schedule Generation Core
// Copyright 2026 Jay Pound
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jaypound/broadcast-scheduler

package config

import (
	"testing"
	"time"
)

func validConfig() *Config {
	return &Config{
		Database: DatabaseConfig{Path: "/data/test.duckdb"},
		Server:   ServerConfig{Port: 3857, Environment: "development"},
		API:      APIConfig{DefaultPageSize: 20, MaxPageSize: 100},
		Security: SecurityConfig{
			AuthMode:          "none",
			RateLimitReqs:     100,
			RateLimitWindow:   time.Minute,
			RateLimitDisabled: false,
			CORSOrigins:       []string{"*"},
		},
		Logging: LoggingConfig{Level: "info", Format: "json"},
	}
}

func TestValidate_ValidConfig(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected valid config to pass, got: %v", err)
	}
}

func TestValidate_RejectsInvalidPort(t *testing.T) {
	cfg := validConfig()
	cfg.Server.Port = 70000
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for out-of-range port")
	}
}

func TestValidate_RejectsUnknownAuthMode(t *testing.T) {
	cfg := validConfig()
	cfg.Security.AuthMode = "oidc"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unsupported auth mode")
	}
}

func TestValidate_RejectsAuthModeNoneInProduction(t *testing.T) {
	cfg := validConfig()
	cfg.Server.Environment = "production"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for AUTH_MODE=none in production")
	}
}

func TestValidate_RejectsWildcardCORSInProductionWithAuth(t *testing.T) {
	cfg := validConfig()
	cfg.Server.Environment = "production"
	cfg.Security.AuthMode = "jwt"
	cfg.Security.JWTSecret = "a-secret-at-least-32-characters-long"
	cfg.Security.CORSOrigins = []string{"*"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for wildcard CORS in production with auth enabled")
	}
}

func TestValidate_JWTRequiresSecretAndAdminCredentials(t *testing.T) {
	cfg := validConfig()
	cfg.Security.AuthMode = "jwt"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing JWT secret")
	}

	cfg.Security.JWTSecret = "a-secret-at-least-32-characters-long"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing admin credentials")
	}

	cfg.Security.AdminUsername = "operator"
	cfg.Security.AdminPassword = "Correct-Horse-Battery-Staple-9!"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected valid jwt config to pass, got: %v", err)
	}
}

func TestValidate_BasicRequiresAdminCredentials(t *testing.T) {
	cfg := validConfig()
	cfg.Security.AuthMode = "basic"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing admin credentials")
	}
}

func TestValidate_RejectsPlaceholderPassword(t *testing.T) {
	cfg := validConfig()
	cfg.Security.AuthMode = "basic"
	cfg.Security.AdminUsername = "operator"
	cfg.Security.AdminPassword = "CHANGEME-please-1!"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for placeholder admin password")
	}
}

func TestValidate_RejectsInvalidLogLevel(t *testing.T) {
	cfg := validConfig()
	cfg.Logging.Level = "verbose"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for invalid log level")
	}
}

func TestShouldWarnAboutCORS(t *testing.T) {
	cfg := validConfig()
	cfg.Security.AuthMode = "jwt"
	cfg.Security.CORSOrigins = []string{"*"}
	if !cfg.ShouldWarnAboutCORS() {
		t.Fatal("expected wildcard CORS with auth enabled to warn")
	}

	cfg.Security.AuthMode = "none"
	if cfg.ShouldWarnAboutCORS() {
		t.Fatal("expected no warning when auth is disabled")
	}
}

func TestIsProductionAndIsDevelopment(t *testing.T) {
	cfg := validConfig()
	cfg.Server.Environment = "production"
	if !cfg.IsProduction() || cfg.IsDevelopment() {
		t.Fatalf("expected production environment classification, got %+v", cfg.Server)
	}

	cfg.Server.Environment = ""
	if !cfg.IsDevelopment() || cfg.IsProduction() {
		t.Fatalf("expected empty environment to default to development, got %+v", cfg.Server)
	}
}
