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
	"strconv"

	"github.com/tomtom215/vtour/internal/models"
)

// ListMenus fetches the tour navigation entries.
func (c *Client) ListMenus(ctx context.Context) ([]models.MenuEntry, error) {
	var out []models.MenuEntry
	if err := c.call(ctx, request{op: "list_menus", method: http.MethodGet, path: "/menus"}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateMenu adds a navigation entry.
func (c *Client) CreateMenu(ctx context.Context, m models.MenuEntry) (*models.MenuEntry, error) {
	var out models.MenuEntry
	if err := c.callJSON(ctx, request{op: "create_menu", method: http.MethodPost, path: "/menus"}, m, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateMenu replaces a navigation entry.
func (c *Client) UpdateMenu(ctx context.Context, id int64, m models.MenuEntry) (*models.MenuEntry, error) {
	var out models.MenuEntry
	if err := c.callJSON(ctx, request{op: "update_menu", method: http.MethodPut, path: menuPath(id)}, m, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteMenu removes a navigation entry.
func (c *Client) DeleteMenu(ctx context.Context, id int64) error {
	return c.call(ctx, request{op: "delete_menu", method: http.MethodDelete, path: menuPath(id)}, nil)
}

// UpdateMenuOrder sends the full reorder payload in one request.
func (c *Client) UpdateMenuOrder(ctx context.Context, order []models.MenuOrder) error {
	return c.callJSON(ctx, request{op: "update_menu_order", method: http.MethodPost, path: "/menus/update-order"}, order, nil)
}

func menuPath(id int64) string {
	return "/menus/" + strconv.FormatInt(id, 10)
}

// GetSettings fetches tour-wide settings.
func (c *Client) GetSettings(ctx context.Context) (*models.Settings, error) {
	var s models.Settings
	if err := c.call(ctx, request{op: "get_settings", method: http.MethodGet, path: "/settings"}, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// UploadLogo replaces the tour logo with a multipart "logo" upload.
func (c *Client) UploadLogo(ctx context.Context, filename string, logo io.Reader) (*models.Settings, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("logo", filename)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(fw, logo); err != nil {
		return nil, fmt.Errorf("failed to buffer logo: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	var s models.Settings
	err = c.call(ctx, request{
		op:          "upload_logo",
		method:      http.MethodPost,
		path:        "/settings/logo",
		body:        &buf,
		contentType: mw.FormDataContentType(),
	}, &s)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// DeleteLogo removes the tour logo.
func (c *Client) DeleteLogo(ctx context.Context) error {
	return c.call(ctx, request{op: "delete_logo", method: http.MethodDelete, path: "/settings/logo"}, nil)
}
