// Vtour - 360° Virtual Tour Content Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vtour

package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tomtom215/vtour/internal/cache"
	"github.com/tomtom215/vtour/internal/config"
	"github.com/tomtom215/vtour/internal/imagecache"
	"github.com/tomtom215/vtour/internal/logging"
	"github.com/tomtom215/vtour/internal/studio"
	ws "github.com/tomtom215/vtour/internal/websocket"
)

// Backend is what the handlers need from the tour backend client.
// *backend.CircuitBreakerClient satisfies it.
type Backend interface {
	studio.Backend

	// Forward proxies a request to the backend and returns its response unchanged.
	Forward(ctx context.Context, method, path, rawQuery string, header http.Header, body io.Reader) (*http.Response, error)

	// State is the circuit breaker state: closed, half-open or open.
	State() string
}

// Handler contains dependencies for API handlers
//
// Handler methods are split across multiple files:
//   - handlers.go: Handler struct, constructor, websocket upgrader (this file)
//   - handlers_proxy.go: /api/vtour REST proxy with validation and response cache
//   - handlers_images.go: private and public image proxies
//   - handlers_studio.go: studio websocket endpoint
//   - handlers_health.go: liveness and readiness
type Handler struct {
	backend   Backend
	cache     *cache.Cache
	images    *imagecache.Cache
	wsHub     *ws.Hub
	config    *config.Config
	startTime time.Time
}

// NewHandler creates a new API handler.
//
// respCache holds cached GET /scenes and /settings responses and may be disabled
// (zero TTL). images backs the public image route; nil proxies every request.
// wsHub may be nil, in which case the studio endpoint answers 503.
func NewHandler(cfg *config.Config, b Backend, respCache *cache.Cache, images *imagecache.Cache, wsHub *ws.Hub) *Handler {
	if respCache == nil {
		respCache = cache.New(0)
	}
	return &Handler{
		backend:   b,
		cache:     respCache,
		images:    images,
		wsHub:     wsHub,
		config:    cfg,
		startTime: time.Now(),
	}
}

// ClearCache drops every cached proxy response.
func (h *Handler) ClearCache() {
	h.cache.Clear()
}

func (h *Handler) maxUploadBytes() int64 {
	if h.config == nil || h.config.Backend.MaxUploadBytes <= 0 {
		return defaultMaxUploadBytes
	}
	return h.config.Backend.MaxUploadBytes
}

// getUpgrader creates a WebSocket upgrader with origin checking and a handshake timeout.
func (h *Handler) getUpgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		CheckOrigin:      h.checkWebSocketOrigin,
		HandshakeTimeout: 10 * time.Second,
	}
}

// checkWebSocketOrigin validates WebSocket connection origins
func (h *Handler) checkWebSocketOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")

	// Browsers always send Origin on websocket upgrades; an empty one bypasses CORS.
	if origin == "" {
		logging.Warn().Msg("WebSocket connection rejected: missing Origin header")
		return false
	}

	// If config is nil, allow by default (tests/development)
	if h.config == nil {
		return true
	}

	for _, allowedOrigin := range h.config.Security.CORSOrigins {
		if allowedOrigin == "*" || allowedOrigin == origin {
			return true
		}
	}

	logging.Warn().Str("origin", sanitizeLogValue(origin)).Msg("WebSocket connection rejected from unauthorized origin")
	return false
}

// sanitizeLogValue escapes control characters to prevent log injection.
func sanitizeLogValue(s string) string {
	var result strings.Builder
	result.Grow(len(s))
	for _, r := range s {
		if r < 0x20 || r == 0x7F {
			result.WriteString(fmt.Sprintf("\\x%02x", r))
		} else {
			result.WriteRune(r)
		}
	}
	return result.String()
}
