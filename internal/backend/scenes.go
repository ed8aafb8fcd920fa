// Vtour - 360° Virtual Tour Content Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vtour

package backend

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"

	"github.com/goccy/go-json"

	"github.com/tomtom215/vtour/internal/models"
)

// ListScenes fetches one page of scenes. A backend that answers with a bare array is
// reported as a single page.
func (c *Client) ListScenes(ctx context.Context, page, perPage int) (*models.ScenePage, error) {
	q := url.Values{}
	if page > 0 {
		q.Set("page", strconv.Itoa(page))
	}
	if perPage > 0 {
		q.Set("per_page", strconv.Itoa(perPage))
	}

	var raw json.RawMessage
	if err := c.call(ctx, request{op: "list_scenes", method: http.MethodGet, path: "/scenes", query: q}, &raw); err != nil {
		return nil, err
	}

	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '[' {
		var scenes []models.Scene
		if err := json.Unmarshal(raw, &scenes); err != nil {
			return nil, fmt.Errorf("failed to decode scene list: %w", err)
		}
		return &models.ScenePage{Data: scenes, CurrentPage: 1, LastPage: 1, PerPage: len(scenes), Total: len(scenes)}, nil
	}

	var p models.ScenePage
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("failed to decode scene page: %w", err)
	}
	return &p, nil
}

// GetScene fetches a single scene.
func (c *Client) GetScene(ctx context.Context, id int64) (*models.Scene, error) {
	var s models.Scene
	if err := c.call(ctx, request{op: "get_scene", method: http.MethodGet, path: scenePath(id)}, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// CreateScene uploads a new panorama as multipart fields name and image.
func (c *Client) CreateScene(ctx context.Context, name, filename string, image io.Reader) (*models.Scene, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("name", name); err != nil {
		return nil, err
	}
	fw, err := mw.CreateFormFile("image", filename)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(fw, image); err != nil {
		return nil, fmt.Errorf("failed to buffer scene image: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	var s models.Scene
	err = c.call(ctx, request{
		op:          "create_scene",
		method:      http.MethodPost,
		path:        "/scenes",
		body:        &buf,
		contentType: mw.FormDataContentType(),
	}, &s)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// UpdateScene changes a scene's name, description or default orientation. The backend
// only accepts this as a form POST with _method=PUT.
func (c *Client) UpdateScene(ctx context.Context, id int64, upd models.SceneUpdate) (*models.Scene, error) {
	form := url.Values{"_method": {"PUT"}}
	if upd.Name != nil {
		form.Set("name", *upd.Name)
	}
	if upd.Description != nil {
		form.Set("description", *upd.Description)
	}
	if upd.DefaultYaw != nil {
		form.Set("default_yaw", strconv.FormatFloat(*upd.DefaultYaw, 'f', -1, 64))
	}
	if upd.DefaultPitch != nil {
		form.Set("default_pitch", strconv.FormatFloat(*upd.DefaultPitch, 'f', -1, 64))
	}

	var s models.Scene
	err := c.call(ctx, request{
		op:          "update_scene",
		method:      http.MethodPost,
		path:        scenePath(id),
		body:        bytes.NewBufferString(form.Encode()),
		contentType: "application/x-www-form-urlencoded",
	}, &s)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// DeleteScene removes a scene.
func (c *Client) DeleteScene(ctx context.Context, id int64) error {
	return c.call(ctx, request{op: "delete_scene", method: http.MethodDelete, path: scenePath(id)}, nil)
}

func scenePath(id int64) string {
	return "/scenes/" + strconv.FormatInt(id, 10)
}
