// Vtour - 360° Virtual Tour Content Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vtour

package viewport

import (
	"errors"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/tomtom215/vtour/internal/sphere"
)

// Outbound renderer commands.
const (
	MsgRendererInit        = "renderer.init"
	MsgRendererDestroy     = "renderer.destroy"
	MsgRendererAddHotspot  = "renderer.add_hotspot"
	MsgRendererRemove      = "renderer.remove_hotspot"
	MsgRendererInteraction = "renderer.interaction"
)

// Inbound renderer events.
const (
	MsgViewerLoad        = "viewer.load"
	MsgViewerError       = "viewer.error"
	MsgViewerClick       = "viewer.click"
	MsgViewerCamera      = "viewer.camera"
	MsgViewerResize      = "viewer.resize"
	MsgViewerMarkerClick = "viewer.marker_click"
)

// ErrUnknownEvent is returned by DecodeEvent for message types it does not handle.
var ErrUnknownEvent = errors.New("unknown viewer event")

// Sender delivers a typed message to the browser hosting the renderer.
type Sender interface {
	Send(msgType string, data any) error
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(msgType string, data any) error

// Send implements Sender.
func (f SenderFunc) Send(msgType string, data any) error {
	return f(msgType, data)
}

// RemoteRenderer drives a panorama engine running in the browser over a message channel.
type RemoteRenderer struct {
	sender    Sender
	container string
}

// NewRemoteRenderer returns a renderer for container that writes commands to s.
func NewRemoteRenderer(container string, s Sender) *RemoteRenderer {
	return &RemoteRenderer{sender: s, container: container}
}

type removePayload struct {
	Container string `json:"container"`
	ID        string `json:"id"`
}

type interactionPayload struct {
	Container string `json:"container"`
	Enabled   bool   `json:"enabled"`
}

type containerPayload struct {
	Container string `json:"container"`
}

type markerPayload struct {
	Container string `json:"container"`
	Marker
}

// Mount implements Renderer.
func (r *RemoteRenderer) Mount(spec MountSpec) error {
	spec.Container = r.container
	return r.sender.Send(MsgRendererInit, spec)
}

// Unmount implements Renderer.
func (r *RemoteRenderer) Unmount() error {
	return r.sender.Send(MsgRendererDestroy, containerPayload{Container: r.container})
}

// AddMarker implements Renderer.
func (r *RemoteRenderer) AddMarker(m Marker) error {
	return r.sender.Send(MsgRendererAddHotspot, markerPayload{Container: r.container, Marker: m})
}

// RemoveMarker implements Renderer.
func (r *RemoteRenderer) RemoveMarker(id string) error {
	return r.sender.Send(MsgRendererRemove, removePayload{Container: r.container, ID: id})
}

// SetInteraction implements Renderer.
func (r *RemoteRenderer) SetInteraction(enabled bool) error {
	return r.sender.Send(MsgRendererInteraction, interactionPayload{Container: r.container, Enabled: enabled})
}

type viewerEvent struct {
	Gen      uint64   `json:"gen"`
	Message  string   `json:"message"`
	X        float64  `json:"x"`
	Y        float64  `json:"y"`
	Pitch    *float64 `json:"pitch"`
	Yaw      *float64 `json:"yaw"`
	HFOV     float64  `json:"hfov"`
	Width    float64  `json:"width"`
	Height   float64  `json:"height"`
	ID       string   `json:"id"`
	OnMarker bool     `json:"on_marker"`
	OnCtrl   bool     `json:"on_control"`
}

// IsViewerEvent reports whether msgType is a renderer event handled by DecodeEvent.
func IsViewerEvent(msgType string) bool {
	switch msgType {
	case MsgViewerLoad, MsgViewerError, MsgViewerClick, MsgViewerCamera, MsgViewerResize, MsgViewerMarkerClick:
		return true
	}
	return false
}

// DecodeEvent converts a viewer.* message into an Event.
func DecodeEvent(msgType string, data []byte) (Event, error) {
	var in viewerEvent
	if len(data) > 0 && string(data) != "null" {
		if err := json.Unmarshal(data, &in); err != nil {
			return Event{}, fmt.Errorf("decode %s: %w", msgType, err)
		}
	}

	ev := Event{Gen: in.Gen}
	switch msgType {
	case MsgViewerLoad:
		ev.Kind = EventLoad
	case MsgViewerError:
		ev.Kind = EventError
		msg := in.Message
		if msg == "" {
			msg = "panorama failed to load"
		}
		ev.Err = errors.New(msg)
	case MsgViewerClick:
		ev.Kind = EventClick
		ev.Pointer = PointerEvent{X: in.X, Y: in.Y, OnMarker: in.OnMarker, OnControl: in.OnCtrl}
		if in.Pitch != nil && in.Yaw != nil {
			ev.Pointer.Native = &sphere.Coords{Pitch: *in.Pitch, Yaw: *in.Yaw}
		}
	case MsgViewerCamera:
		ev.Kind = EventCamera
		if in.Pitch != nil {
			ev.Camera.Pitch = *in.Pitch
		}
		if in.Yaw != nil {
			ev.Camera.Yaw = *in.Yaw
		}
		ev.Camera.HFOV = in.HFOV
	case MsgViewerResize:
		ev.Kind = EventResize
		ev.Width, ev.Height = in.Width, in.Height
	case MsgViewerMarkerClick:
		ev.Kind = EventMarkerClick
		ev.MarkerID = in.ID
	default:
		return Event{}, fmt.Errorf("%w: %s", ErrUnknownEvent, msgType)
	}
	return ev, nil
}
