// Vtour - 360° Virtual Tour Content Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vtour

/*
Package middleware provides HTTP middleware components for the application.

Key Components:

  - Request ID: UUID-based request tracking, propagated into the logging context
  - Prometheus Metrics: request count, latency and in-flight gauge per route pattern
  - Cache headers: no-store for private image routes, public max-age for the
    public image route

All middleware uses the http.HandlerFunc signature; the api package adapts it to
chi's func(http.Handler) http.Handler:

	r.Use(chiMiddleware(middleware.RequestID))
	r.Use(chiMiddleware(middleware.PrometheusMetrics))
	r.With(chiMiddleware(middleware.NoStore)).Get("/storage/*", h.PrivateImage)

The metrics wrapper passes http.Hijacker and http.Flusher through so the studio
websocket upgrade works behind it.
*/
package middleware
