// Vtour - 360° Virtual Tour Content Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vtour

package api

import (
	"net/http"
	"strconv"

	"github.com/tomtom215/vtour/internal/backend"
	"github.com/tomtom215/vtour/internal/logging"
	"github.com/tomtom215/vtour/internal/models"
	"github.com/tomtom215/vtour/internal/studio"
	ws "github.com/tomtom215/vtour/internal/websocket"
)

// StudioWebSocket upgrades /api/vtour/studio/ws?scene_id=&kind= to a studio session
// editing one kind of hotspot on one scene. The caller's Authorization header is
// used for every backend call the session makes, including background saves.
func (h *Handler) StudioWebSocket(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	sceneID, err := strconv.ParseInt(r.URL.Query().Get("scene_id"), 10, 64)
	if err != nil || sceneID <= 0 {
		rw.BadRequest("scene_id must be a positive integer")
		return
	}
	kind := models.Kind(r.URL.Query().Get("kind"))
	if !kind.Valid() {
		rw.BadRequest("kind must be info or link")
		return
	}

	if h.wsHub == nil {
		logging.Warn().Msg("WebSocket connection rejected: hub not initialized")
		rw.ServiceUnavailable("WebSocket service unavailable")
		return
	}

	upgrader := h.getUpgrader()
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("WebSocket upgrade error")
		return
	}

	ctx := backend.WithAuthorization(r.Context(), r.Header.Get("Authorization"))
	client := ws.NewClient(h.wsHub, conn, sceneID)

	hub := h.wsHub
	sess := studio.NewSession(ctx, h.backend, client, kind, h.studioOptions(studio.NotifierFunc(func(savedScene int64) {
		hub.BroadcastSceneUpdated(savedScene, client)
	})))
	client.SetHandler(sess)

	// A failed open has already been reported to the browser as a toast; the
	// connection stays up so the user can see it.
	if err := sess.Open(ctx, sceneID); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Int64("scene_id", sceneID).Str("kind", string(kind)).Msg("Studio session failed to open scene")
	}

	client.Run(ctx)
}

func (h *Handler) studioOptions(n studio.Notifier) studio.Options {
	opts := studio.Options{Notifier: n}
	if h.config != nil {
		opts.Width = h.config.Studio.ViewportWidth
		opts.Height = h.config.Studio.ViewportHeight
		opts.HFOV = h.config.Studio.DefaultHFOV
		opts.SaveTimeout = h.config.Studio.SaveTimeout
	}
	return opts
}
