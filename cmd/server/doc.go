// Vtour - 360° Virtual Tour Content Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vtour

/*
Package main is the entry point for the vtour studio server.

The server sits between the tour editor in the browser and the tour REST
backend. It proxies /api/vtour unchanged, caches public panorama images in
badger, and hosts the studio websocket where hotspot editing sessions run.

Component initialization order:

 1. Configuration: Koanf v2 with defaults, .env, config file and environment
 2. Logging: zerolog with JSON/console output modes
 3. Backend client: rate limited, behind a gobreaker circuit breaker
 4. Caches: in-memory response cache and the badger image cache
 5. WebSocket hub: scene_updated fan-out between studio sessions
 6. HTTP server: Chi router with the middleware stack
 7. Supervisor tree: Suture v4, see package supervisor

# Configuration

Priority: environment variables > config file > defaults.

	# Server
	HTTP_PORT=3857
	HTTP_HOST=0.0.0.0
	LOG_LEVEL=info               # trace, debug, info, warn, error
	LOG_FORMAT=json              # json or console

	# Tour backend
	VTOUR_BACKEND_URL=http://localhost:8000
	VTOUR_BACKEND_TIMEOUT=15s
	VTOUR_BACKEND_RPS=20
	MAX_UPLOAD_BYTES=52428800

	# Caching
	CACHE_TTL=30s                # 0 disables the response cache
	IMAGE_CACHE_PATH=/data/images  # empty keeps images in memory
	IMAGE_CACHE_TTL=24h

	# Browser access
	CORS_ORIGINS=https://admin.example.com
	RATE_LIMIT_REQUESTS=300
	RATE_LIMIT_WINDOW=1m

# Signal Handling

SIGINT and SIGTERM cancel the supervisor tree. The HTTP server stops accepting
connections and drains in-flight requests for up to 10 seconds; services that
miss the deadline are logged.
*/
package main
