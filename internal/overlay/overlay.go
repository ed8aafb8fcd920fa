// Vtour - 360° Virtual Tour Content Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vtour

// Package overlay keeps clickable hotspot markers aligned with a moving panorama camera.
//
// Positions always come from the viewport's own projection so markers sit exactly where
// the renderer draws the panorama. A Sync is not safe for concurrent use; its owner
// (the studio session) serializes access.
package overlay

import (
	"errors"
	"fmt"

	"github.com/tomtom215/vtour/internal/models"
	"github.com/tomtom215/vtour/internal/sphere"
	"github.com/tomtom215/vtour/internal/viewport"
)

// ErrNotVisible is returned by Click for markers that are not currently rendered.
var ErrNotVisible = errors.New("hotspot marker not visible")

// Projector is the slice of the viewport that the overlay depends on.
type Projector interface {
	ProjectToScreen(c sphere.Coords) (sphere.Point, bool)
	Size() (width, height float64)
	AddHotspot(d viewport.Descriptor) error
	RemoveHotspot(id string) error
}

// Marker is one rendered overlay element.
type Marker struct {
	ID      string         `json:"id"`
	Top     float64        `json:"top"`
	Left    float64        `json:"left"`
	Hotspot models.Hotspot `json:"hotspot"`
}

// Sink receives the full set of markers to display after every recomputation.
type Sink interface {
	Render(markers []Marker)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(markers []Marker)

// Render implements Sink.
func (f SinkFunc) Render(markers []Marker) { f(markers) }

// Sync projects hotspots on camera changes and renders those inside the frame.
type Sync struct {
	proj    Projector
	sink    Sink
	onClick func(models.Hotspot)

	hotspots   []models.Hotspot
	native     map[string]models.Hotspot
	suppressed bool
	visible    []Marker
}

// New creates a Sync. onClick receives the full hotspot so callers can branch on kind.
func New(p Projector, sink Sink, onClick func(models.Hotspot)) *Sync {
	return &Sync{
		proj:    p,
		sink:    sink,
		onClick: onClick,
		native:  make(map[string]models.Hotspot),
	}
}

// SetHotspots replaces the hotspot list, reconciles the renderer's native markers with
// it and recomputes the overlay.
func (s *Sync) SetHotspots(list []models.Hotspot) error {
	s.hotspots = make([]models.Hotspot, len(list))
	for i, h := range list {
		s.hotspots[i] = h.Normalized()
	}

	err := s.reconcile()
	s.Recompute()
	return err
}

// Hotspots returns the current hotspot list.
func (s *Sync) Hotspots() []models.Hotspot {
	out := make([]models.Hotspot, len(s.hotspots))
	for i, h := range s.hotspots {
		out[i] = h.Clone()
	}
	return out
}

// SetSuppressed hides every marker while click-to-place is armed so no existing marker
// can intercept the placement click.
func (s *Sync) SetSuppressed(suppressed bool) error {
	if s.suppressed == suppressed {
		return nil
	}
	s.suppressed = suppressed

	err := s.reconcile()
	s.Recompute()
	return err
}

// Suppressed reports whether the overlay is currently suppressed.
func (s *Sync) Suppressed() bool {
	return s.suppressed
}

// Resync re-adds every native marker, for use after the viewport remounts.
func (s *Sync) Resync() error {
	s.native = make(map[string]models.Hotspot)
	err := s.reconcile()
	s.Recompute()
	return err
}

// HandleCameraChange recomputes marker positions for the new camera.
func (s *Sync) HandleCameraChange(viewport.Camera) {
	s.Recompute()
}

// Recompute projects every hotspot and renders those strictly inside the container.
func (s *Sync) Recompute() {
	if s.suppressed || s.proj == nil {
		s.visible = nil
		s.render()
		return
	}

	width, height := s.proj.Size()
	visible := make([]Marker, 0, len(s.hotspots))
	for _, h := range s.hotspots {
		p, ok := s.proj.ProjectToScreen(h.Coords())
		if !ok || !inFrame(p, width, height) {
			continue
		}
		visible = append(visible, Marker{
			ID:      h.Ref.String(),
			Top:     p.Y,
			Left:    p.X,
			Hotspot: h.Clone(),
		})
	}
	s.visible = visible
	s.render()
}

func inFrame(p sphere.Point, width, height float64) bool {
	return p.X >= 0 && p.X < width && p.Y >= 0 && p.Y < height
}

func (s *Sync) render() {
	if s.sink == nil {
		return
	}
	out := make([]Marker, len(s.visible))
	copy(out, s.visible)
	s.sink.Render(out)
}

// Visible returns the markers from the last recomputation.
func (s *Sync) Visible() []Marker {
	out := make([]Marker, len(s.visible))
	copy(out, s.visible)
	return out
}

// Click dispatches a click on a rendered marker.
func (s *Sync) Click(id string) error {
	for _, m := range s.visible {
		if m.ID == id {
			s.dispatch(m.Hotspot)
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrNotVisible, id)
}

func (s *Sync) dispatch(h models.Hotspot) {
	if s.onClick != nil {
		s.onClick(h.Clone())
	}
}

// reconcile brings the renderer's native markers in line with the hotspot list.
// Errors from a renderer that is not ready are ignored; Resync catches up after load.
func (s *Sync) reconcile() error {
	if s.proj == nil {
		return nil
	}

	want := make(map[string]models.Hotspot, len(s.hotspots))
	if !s.suppressed {
		for _, h := range s.hotspots {
			want[h.Ref.String()] = h
		}
	}

	var errs []error
	for id := range s.native {
		if _, keep := want[id]; keep {
			continue
		}
		if err := s.proj.RemoveHotspot(id); err != nil && !errors.Is(err, viewport.ErrNotReady) {
			errs = append(errs, err)
			continue
		}
		delete(s.native, id)
	}

	for id, h := range want {
		if prev, ok := s.native[id]; ok && samePlacement(prev, h) {
			continue
		}
		if err := s.proj.AddHotspot(s.descriptor(h)); err != nil {
			if !errors.Is(err, viewport.ErrNotReady) {
				errs = append(errs, err)
			}
			continue
		}
		s.native[id] = h
	}

	return errors.Join(errs...)
}

func samePlacement(a, b models.Hotspot) bool {
	return a.Pitch == b.Pitch && a.Yaw == b.Yaw && a.Label == b.Label && a.Kind == b.Kind && a.IconName == b.IconName
}

func (s *Sync) descriptor(h models.Hotspot) viewport.Descriptor {
	class := "hotspot-" + string(h.Kind)
	if h.IconName != "" {
		class += " icon-" + h.IconName
	}
	hotspot := h.Clone()
	return viewport.Descriptor{
		ID:      h.Ref.String(),
		Pitch:   h.Pitch,
		Yaw:     h.Yaw,
		Label:   h.Label,
		Class:   class,
		OnClick: func() { s.dispatch(hotspot) },
	}
}
