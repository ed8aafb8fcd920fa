// Vtour - 360° Virtual Tour Content Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vtour

package models

import "time"

// Scene is a single panoramic image and its default viewing orientation.
type Scene struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Image        string    `json:"image"`         // Opaque path or URL understood by the image proxy
	DefaultYaw   float64   `json:"default_yaw"`   // Degrees, [-180,180]
	DefaultPitch float64   `json:"default_pitch"` // Degrees, [-90,90]
	Description  string    `json:"description,omitempty"`
	CreatedAt    time.Time `json:"created_at,omitempty"`
	UpdatedAt    time.Time `json:"updated_at,omitempty"`
}

// SceneUpdate carries the mutable scene fields sent with the POST+_method=PUT override.
// Nil fields are left untouched by the backend.
type SceneUpdate struct {
	Name         *string  `json:"name,omitempty" validate:"omitempty,min=1,max=255"`
	DefaultYaw   *float64 `json:"default_yaw,omitempty" validate:"omitempty,gte=-180,lte=180"`
	DefaultPitch *float64 `json:"default_pitch,omitempty" validate:"omitempty,gte=-90,lte=90"`
	Description  *string  `json:"description,omitempty"`
}

// ScenePage is one page of the paginated scene listing.
type ScenePage struct {
	Data        []Scene `json:"data"`
	CurrentPage int     `json:"current_page"`
	LastPage    int     `json:"last_page"`
	PerPage     int     `json:"per_page"`
	Total       int     `json:"total"`
}

// MenuEntry places a scene in the public tour's navigation order.
type MenuEntry struct {
	ID         int64  `json:"id"`
	Name       string `json:"name" validate:"required,max=255"`
	SceneID    int64  `json:"scene_id" validate:"required,gt=0"`
	Order      int    `json:"order" validate:"gte=0"`
	IsMapScene bool   `json:"is_map,omitempty"`
}

// MenuOrder is one element of the bulk reorder payload.
type MenuOrder struct {
	ID    int64 `json:"id" validate:"required,gt=0"`
	Order int   `json:"order" validate:"gte=0"`
}

// Settings holds tour-wide settings.
type Settings struct {
	Logo      string `json:"logo,omitempty"`
	TourTitle string `json:"tour_title,omitempty"`
}
