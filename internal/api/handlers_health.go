// Vtour - 360° Virtual Tour Content Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vtour

package api

import (
	"net/http"
	"time"
)

// HealthStatus is the payload of the health endpoints.
type HealthStatus struct {
	Status         string  `json:"status"`
	BackendCircuit string  `json:"backend_circuit,omitempty"`
	StudioClients  int     `json:"studio_clients"`
	CachedEntries  int     `json:"cached_entries"`
	CacheHitRate   float64 `json:"cache_hit_rate"`
	CacheEvictions int64   `json:"cache_evictions"`
	Uptime         float64 `json:"uptime"`
}

// Health reports overall service status and cache statistics. It always answers 200.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	WriteSuccess(w, r, h.healthStatus())
}

// HealthLive handles liveness probe requests (Kubernetes-style).
// Returns 200 OK as long as the process is serving HTTP.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	WriteSuccess(w, r, map[string]interface{}{
		"alive":  true,
		"uptime": time.Since(h.startTime).Seconds(),
	})
}

// HealthReady handles readiness probe requests (Kubernetes-style).
// Returns 503 while the backend circuit breaker is open, since every proxied
// request would be rejected.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	status := h.healthStatus()
	if status.BackendCircuit == "open" {
		status.Status = "not_ready"
		NewResponseWriter(w, r).ErrorWithDetails(http.StatusServiceUnavailable, ErrCodeServiceUnavailable,
			"The tour backend circuit breaker is open", status)
		return
	}
	status.Status = "ready"
	WriteSuccess(w, r, status)
}

func (h *Handler) healthStatus() HealthStatus {
	stats := h.cache.GetStats()
	s := HealthStatus{
		Status:         "ok",
		CachedEntries:  h.cache.Len(),
		CacheHitRate:   h.cache.HitRate(),
		CacheEvictions: stats.Evictions,
		Uptime:         time.Since(h.startTime).Seconds(),
	}
	if h.backend != nil {
		s.BackendCircuit = h.backend.State()
	}
	if h.wsHub != nil {
		s.StudioClients = h.wsHub.GetClientCount()
	}
	return s
}
