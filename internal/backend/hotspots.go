// Vtour - 360° Virtual Tour Content Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vtour

package backend

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/tomtom215/vtour/internal/logging"
	"github.com/tomtom215/vtour/internal/models"
)

// ListHotspots fetches every hotspot of a scene, of both kinds.
func (c *Client) ListHotspots(ctx context.Context, sceneID int64) ([]models.HotspotRecord, error) {
	var out []models.HotspotRecord
	err := c.call(ctx, request{op: "list_hotspots", method: http.MethodGet, path: sceneHotspotsPath(sceneID)}, &out)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// CreateHotspot adds a hotspot to a scene.
func (c *Client) CreateHotspot(ctx context.Context, sceneID int64, p models.HotspotPayload) (models.HotspotRecord, error) {
	var out models.HotspotRecord
	err := c.callJSON(ctx, request{op: "create_hotspot", method: http.MethodPost, path: sceneHotspotsPath(sceneID)}, p, &out)
	return out, err
}

// GetHotspot fetches one hotspot.
func (c *Client) GetHotspot(ctx context.Context, sceneID, id int64) (models.HotspotRecord, error) {
	var out models.HotspotRecord
	err := c.withFallback(ctx, sceneID, id, func(path string) error {
		return c.call(ctx, request{op: "get_hotspot", method: http.MethodGet, path: path}, &out)
	})
	return out, err
}

// UpdateHotspot replaces a hotspot.
func (c *Client) UpdateHotspot(ctx context.Context, sceneID, id int64, p models.HotspotPayload) (models.HotspotRecord, error) {
	var out models.HotspotRecord
	err := c.withFallback(ctx, sceneID, id, func(path string) error {
		return c.callJSON(ctx, request{op: "update_hotspot", method: http.MethodPut, path: path}, p, &out)
	})
	return out, err
}

// DeleteHotspot removes a hotspot.
func (c *Client) DeleteHotspot(ctx context.Context, sceneID, id int64) error {
	return c.withFallback(ctx, sceneID, id, func(path string) error {
		return c.call(ctx, request{op: "delete_hotspot", method: http.MethodDelete, path: path}, nil)
	})
}

// withFallback runs fn against /hotspots/{id} and, only when that answers 404, against
// /scenes/{sceneID}/hotspots/{id}. Backends disagree on where single-hotspot routes live.
func (c *Client) withFallback(ctx context.Context, sceneID, id int64, fn func(path string) error) error {
	err := fn(hotspotPath(id))
	if err == nil || !IsNotFound(err) || sceneID <= 0 {
		return err
	}

	logging.Ctx(ctx).Debug().
		Int64("hotspot_id", id).
		Int64("scene_id", sceneID).
		Msg("Hotspot route returned 404, retrying scene-scoped route")

	if err := fn(sceneHotspotsPath(sceneID) + "/" + strconv.FormatInt(id, 10)); err != nil {
		return fmt.Errorf("hotspot %d (scene-scoped route): %w", id, err)
	}
	return nil
}

func hotspotPath(id int64) string {
	return "/hotspots/" + strconv.FormatInt(id, 10)
}

func sceneHotspotsPath(sceneID int64) string {
	return scenePath(sceneID) + "/hotspots"
}
