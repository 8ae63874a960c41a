// Broadcast Scheduler - Playout Schedule Generation Core
// Copyright 2026 Jay Pound
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jaypound/broadcast-scheduler

// Package main provides the Broadcast Scheduler HTTP server
//
// The Broadcast Scheduler API builds and serves TV playout schedules.
//
// @title Broadcast Scheduler API
// @version 1.0
// @description Playout schedule generation engine for TV broadcast rotation
// @description
// @description ## Features
// @description
// @description - **Schedule Builds**: daily, weekly, and monthly playout generation
// @description - **Candidate Scoring**: jitter, featured placement, fatigue, and theme-conflict weighted selection
// @description - **Holiday Greetings**: fair-rotation pool across the holiday window
// @description - **Live Progress**: WebSocket-based build progress notifications
// @description - **Item Editing**: reorder, delete, and toggle availability on scheduled items
// @description
// @description ## Authentication
// @description
// @description The schedule endpoints require authentication. In JWT mode the token is sent as a `token` cookie or an `Authorization: Bearer` header.
// @description This server exposes no login endpoint.
// @description
// @description ## Rate Limiting
// @description
// @description Default rate limit: 100 requests per minute per IP address.
// @description Rate limit headers are included in responses: `X-RateLimit-Limit`, `X-RateLimit-Remaining`, `X-RateLimit-Reset`.
// @description
// @description ## Error Responses
// @description
// @description All error responses follow this format:
// @description ```json
// @description {
// @description   "status": "error",
// @description   "data": null,
// @description   "error": {
// @description     "code": "ERROR_CODE",
// @description     "message": "Human-readable error message",
// @description     "details": {}
// @description   },
// @description   "metadata": {
// @description     "timestamp": "2026-01-01T00:00:00Z"
// @description   }
// @description }
// @description ```
//
// @contact.name GitHub Repository
// @contact.url https://github.com/jaypound/broadcast-scheduler/issues
//
// @license.name AGPL-3.0-or-later
// @license.url https://www.gnu.org/licenses/agpl-3.0.html
//
// @host localhost:3857
// @BasePath /api/v1
// @schemes http https
//
// @securityDefinitions.apikey BearerAuth
// @in cookie
// @name token
// @description JWT token read from the `token` cookie (an `Authorization: Bearer` header is also accepted).
//
// @tag.name Core
// @tag.description Core API endpoints for health checks and system status
//
// @tag.name Schedules
// @tag.description Schedule build, list, and item-edit endpoints
//
// @tag.name Auth
// @tag.description Authentication and session management endpoints
//
// @tag.name Realtime
// @tag.description Real-time WebSocket connections for live build-progress notifications
package main
