// Vtour - 360° Virtual Tour Content Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vtour

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/vtour/internal/backend"
	"github.com/tomtom215/vtour/internal/config"
	"github.com/tomtom215/vtour/internal/middleware"
)

// publicPrefix is the anonymous image route used by the public tour viewer.
const publicPrefix = backend.APIPrefix + "/public/"

// Router wires the handlers to their routes.
type Router struct {
	handler       *Handler
	chiMiddleware *ChiMiddleware
}

// NewRouter creates a router for handler. sec supplies CORS origins and the default
// rate limit; nil uses the defaults.
func NewRouter(handler *Handler, sec *config.SecurityConfig) *Router {
	return &Router{
		handler:       handler,
		chiMiddleware: NewChiMiddleware(ChiMiddlewareConfigFromSecurity(sec)),
	}
}

// chiMiddleware adapts http.HandlerFunc middleware to Chi's func(http.Handler) http.Handler.
func chiMiddleware(mw func(http.HandlerFunc) http.HandlerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return mw(next.ServeHTTP)
	}
}

// SetupChi configures all HTTP routes.
func (router *Router) SetupChi() http.Handler {
	r := chi.NewRouter()
	h := router.handler
	mw := router.chiMiddleware

	// ========================
	// Global Middleware Stack
	// ========================
	r.Use(chiMiddleware(middleware.RequestID))
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(AccessLog())
	r.Use(mw.CORSByPath(publicPrefix)) // global so OPTIONS preflight is answered

	// ========================
	// Health and Metrics
	// ========================
	r.Route("/api/v1/health", func(r chi.Router) {
		r.Use(mw.RateLimitHealth())
		r.Use(APISecurityHeaders())
		r.Get("/live", h.HealthLive)
		r.Get("/ready", h.HealthReady)
		r.Get("/", h.Health)
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route(backend.APIPrefix, func(r chi.Router) {
		r.Use(chiMiddleware(middleware.PrometheusMetrics))

		// ========================
		// Public Images
		// ========================
		// Shared by every viewer: open CORS, a day of caching, no credentials.
		r.Route("/public/storage", func(r chi.Router) {
			r.Use(mw.RateLimitPublic())
			r.Use(chiMiddleware(middleware.PublicCache))
			r.Get("/*", h.PublicImage)
			r.Head("/*", h.PublicImage)
		})

		r.Group(func(r chi.Router) {
			r.Use(APISecurityHeaders())

			// Studio editing sessions
			r.With(mw.RateLimitWebSocket()).Get("/studio/ws", h.StudioWebSocket)

			// ========================
			// Private Images
			// ========================
			r.Group(func(r chi.Router) {
				r.Use(mw.RateLimit())
				r.Use(chiMiddleware(middleware.NoStore))
				r.Get("/images/*", h.PrivateImage)
				r.Head("/images/*", h.PrivateImage)
				r.Get("/storage/*", h.PrivateImage)
				r.Head("/storage/*", h.PrivateImage)
			})

			// ========================
			// REST Proxy
			// ========================
			r.Group(func(r chi.Router) {
				r.Use(mw.RateLimit())
				router.proxyRoutes(r)
			})
		})
	})

	return r
}

// proxyRoutes registers the transparent /api/vtour proxy. Reads go straight through;
// writes are rate limited separately and hotspot and menu bodies are validated first.
func (router *Router) proxyRoutes(r chi.Router) {
	h := router.handler
	mw := router.chiMiddleware

	plain := h.proxy(ProxyConfig{})
	upload := h.proxy(ProxyConfig{Upload: true})
	hotspot := h.proxy(ProxyConfig{Validate: validateHotspotBody})
	menu := h.proxy(ProxyConfig{Validate: validateMenuBody})

	write := r.With(mw.RateLimitWrite())
	uploads := r.With(mw.RateLimitUpload())

	// Scenes
	r.Get("/scenes", h.proxy(ProxyConfig{CacheName: "scenes", ValidateQuery: validateSceneQuery}))
	uploads.Post("/scenes", upload)
	r.Get("/scenes/{id}", plain)
	uploads.Post("/scenes/{id}", upload) // multipart update with _method=PUT
	write.Put("/scenes/{id}", upload)
	write.Delete("/scenes/{id}", plain)

	// Hotspots, scene-scoped and flat
	r.Get("/scenes/{id}/hotspots", plain)
	write.Post("/scenes/{id}/hotspots", hotspot)
	r.Get("/scenes/{id}/hotspots/{hotspotID}", plain)
	write.Put("/scenes/{id}/hotspots/{hotspotID}", hotspot)
	write.Delete("/scenes/{id}/hotspots/{hotspotID}", plain)
	r.Get("/hotspots/{id}", plain)
	write.Put("/hotspots/{id}", hotspot)
	write.Delete("/hotspots/{id}", plain)

	// Menus
	r.Get("/menus", plain)
	write.Post("/menus", menu)
	write.Post("/menus/update-order", h.proxy(ProxyConfig{Validate: validateMenuOrderBody}))
	r.Get("/menus/{id}", plain)
	write.Put("/menus/{id}", menu)
	write.Delete("/menus/{id}", plain)

	// Settings
	r.Get("/settings", h.proxy(ProxyConfig{CacheName: "settings"}))
	write.Post("/settings", plain)
	write.Put("/settings", plain)
	uploads.Post("/settings/logo", upload)
	write.Delete("/settings/logo", plain)
}
