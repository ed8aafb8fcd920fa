// Vtour - 360° Virtual Tour Content Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vtour

package viewport

import "github.com/tomtom215/vtour/internal/sphere"

// Marker is the renderer-facing description of a hotspot marker.
type Marker struct {
	ID    string  `json:"id"`
	Pitch float64 `json:"pitch"`
	Yaw   float64 `json:"yaw"`
	Label string  `json:"label"`
	Class string  `json:"class"`
}

// Descriptor is a marker plus the callback invoked when the renderer reports a click on it.
type Descriptor struct {
	ID      string
	Pitch   float64
	Yaw     float64
	Label   string
	Class   string
	OnClick func()
}

// Marker returns the renderer-facing part of d with normalized coordinates.
func (d Descriptor) Marker() Marker {
	c := sphere.NormalizeSphereCoords(d.Pitch, d.Yaw)
	return Marker{ID: d.ID, Pitch: c.Pitch, Yaw: c.Yaw, Label: d.Label, Class: d.Class}
}

// MountSpec is everything a renderer needs to build a render surface.
type MountSpec struct {
	Container string   `json:"container"`
	Gen       uint64   `json:"gen"`
	ImageURL  string   `json:"image_url"`
	Yaw       float64  `json:"yaw"`
	Pitch     float64  `json:"pitch"`
	HFOV      float64  `json:"hfov"`
	Hotspots  []Marker `json:"hotspots"`
}

// Renderer is the panorama engine behind a Viewport. Implementations must not call back
// into the Viewport synchronously; events are delivered later through Viewport.Handle.
type Renderer interface {
	Mount(spec MountSpec) error
	Unmount() error
	AddMarker(m Marker) error
	RemoveMarker(id string) error
	SetInteraction(enabled bool) error
}

// PointerEvent is a click reported by the renderer.
type PointerEvent struct {
	// X and Y are container pixels.
	X float64 `json:"x"`
	Y float64 `json:"y"`

	// Native is the renderer's own sphere conversion, when it supplied one.
	Native *sphere.Coords `json:"native,omitempty"`

	OnMarker  bool `json:"on_marker,omitempty"`
	OnControl bool `json:"on_control,omitempty"`
}

// EventKind enumerates renderer events.
type EventKind int

const (
	EventLoad EventKind = iota + 1
	EventError
	EventClick
	EventCamera
	EventResize
	EventMarkerClick
)

func (k EventKind) String() string {
	switch k {
	case EventLoad:
		return "load"
	case EventError:
		return "error"
	case EventClick:
		return "click"
	case EventCamera:
		return "camera"
	case EventResize:
		return "resize"
	case EventMarkerClick:
		return "marker_click"
	default:
		return "unknown"
	}
}

// Event is a renderer notification. Gen ties the event to the mount that produced it;
// zero means "current mount".
type Event struct {
	Kind     EventKind
	Gen      uint64
	Err      error
	Pointer  PointerEvent
	Camera   Camera
	Width    float64
	Height   float64
	MarkerID string
}
