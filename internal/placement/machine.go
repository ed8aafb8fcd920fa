// Vtour - 360° Virtual Tour Content Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vtour

// Package placement implements the add/edit/drag workflow for hotspots of one kind.
//
// State transitions:
//
//	idle -> click_armed -> editing -> idle
//	idle -> drag_armed  -> editing -> idle
//	idle -> editing (existing hotspot) -> idle
//
// Arming one add-mode while the other is armed cancels it first. Coordinates are checked
// when a position is confirmed; a rejected confirmation leaves the machine armed.
package placement

import (
	"errors"
	"fmt"
	"math"

	"github.com/tomtom215/vtour/internal/logging"
	"github.com/tomtom215/vtour/internal/metrics"
	"github.com/tomtom215/vtour/internal/models"
	"github.com/tomtom215/vtour/internal/sphere"
	"github.com/tomtom215/vtour/internal/viewport"
)

// State is the placement workflow position.
type State string

const (
	StateIdle       State = "idle"
	StateClickArmed State = "click_armed"
	StateDragArmed  State = "drag_armed"
	StateEditing    State = "editing"
)

var (
	// ErrInvalidCoordinates rejects a confirmation whose position is NaN or out of range.
	ErrInvalidCoordinates = errors.New("hotspot position is outside the panorama")

	// ErrInvalidTransition is returned when an action does not apply to the current state.
	ErrInvalidTransition = errors.New("action not allowed in current placement state")

	// ErrKindMismatch is returned when editing a hotspot of a different kind.
	ErrKindMismatch = errors.New("hotspot kind does not match editor")
)

// Viewer is the viewport surface the machine drives.
type Viewer interface {
	SetInteractionEnabled(enabled bool) error
	MouseEventToSphereCoords(ev viewport.PointerEvent) (sphere.Coords, bool)
	Size() (width, height float64)
}

// Overlay is the marker overlay that must stay out of the way during click capture.
type Overlay interface {
	SetSuppressed(suppressed bool) error
}

// Recorder receives the outcome of the editing modal.
type Recorder interface {
	RecordCreateOrUpdate(h models.Hotspot) error
	RecordDelete(ref models.HotspotRef) error
}

// Snapshot is an immutable view of the machine for rendering.
type Snapshot struct {
	State     State           `json:"state"`
	Kind      models.Kind     `json:"kind"`
	Marker    *sphere.Point   `json:"marker,omitempty"`
	Candidate *sphere.Coords  `json:"candidate,omitempty"`
	Draft     *models.Hotspot `json:"draft,omitempty"`
}

// Option configures a Machine.
type Option func(*Machine)

// WithViewer attaches the viewport. Without one, clicks use the pure screen mapping.
func WithViewer(v Viewer) Option {
	return func(m *Machine) { m.viewer = v }
}

// WithOverlay attaches the overlay to suppress during click capture.
func WithOverlay(o Overlay) Option {
	return func(m *Machine) { m.overlay = o }
}

// WithPercentMapper replaces the percentage-space mapping used by drag placement.
func WithPercentMapper(fn func(xPercent, yPercent float64) sphere.Coords) Option {
	return func(m *Machine) { m.percentToSphere = fn }
}

// WithSceneID sets the scene drafts are created in.
func WithSceneID(id int64) Option {
	return func(m *Machine) { m.sceneID = id }
}

// Machine is the placement state machine. It is not safe for concurrent use.
type Machine struct {
	kind            models.Kind
	sceneID         int64
	viewer          Viewer
	overlay         Overlay
	recorder        Recorder
	percentToSphere func(xPercent, yPercent float64) sphere.Coords

	state       State
	marker      sphere.Point
	lastPointer *sphere.Point
	draft       models.Hotspot
	listeners   []func(Snapshot)
}

// New creates an idle machine for hotspots of kind.
func New(kind models.Kind, recorder Recorder, opts ...Option) *Machine {
	m := &Machine{
		kind:            kind,
		recorder:        recorder,
		percentToSphere: sphere.PercentToSphere,
		state:           StateIdle,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Kind returns the hotspot kind this machine creates.
func (m *Machine) Kind() models.Kind { return m.kind }

// State returns the current state.
func (m *Machine) State() State { return m.state }

// SetSceneID changes the scene new drafts belong to. Any workflow in progress is cancelled.
func (m *Machine) SetSceneID(id int64) {
	if m.state != StateIdle {
		m.Cancel()
	}
	m.sceneID = id
}

// OnChange registers a listener for every state or marker change.
func (m *Machine) OnChange(fn func(Snapshot)) {
	m.listeners = append(m.listeners, fn)
}

// Snapshot returns the current view of the machine.
func (m *Machine) Snapshot() Snapshot {
	s := Snapshot{State: m.state, Kind: m.kind}
	switch m.state {
	case StateDragArmed:
		marker := m.marker
		candidate := m.percentToSphere(marker.X, marker.Y)
		s.Marker = &marker
		s.Candidate = &candidate
	case StateEditing:
		draft := m.draft.Clone()
		s.Draft = &draft
	}
	return s
}

func (m *Machine) notify() {
	snap := m.Snapshot()
	for _, fn := range m.listeners {
		fn(snap)
	}
}

// TrackPointer records the last pointer position, in container percent, for drag mode.
func (m *Machine) TrackPointer(xPercent, yPercent float64) {
	p := sphere.Point{X: xPercent, Y: yPercent}
	m.lastPointer = &p
}

// ArmClick enters click-to-place mode: native interaction off, overlay suppressed.
func (m *Machine) ArmClick() error {
	switch m.state {
	case StateClickArmed:
		return nil
	case StateEditing:
		return fmt.Errorf("%w: arm click while %s", ErrInvalidTransition, m.state)
	case StateDragArmed:
		m.toIdle()
	}

	m.setInteraction(false)
	m.setSuppressed(true)
	m.state = StateClickArmed
	m.notify()
	return nil
}

// ArmDrag enters drag-to-place mode with the marker at start, else the last pointer
// position, else the container center.
func (m *Machine) ArmDrag(start *sphere.Point) error {
	switch m.state {
	case StateEditing:
		return fmt.Errorf("%w: arm drag while %s", ErrInvalidTransition, m.state)
	case StateClickArmed, StateDragArmed:
		m.toIdle()
	}

	switch {
	case start != nil:
		m.marker = *start
	case m.lastPointer != nil:
		m.marker = *m.lastPointer
	default:
		m.marker = sphere.Point{X: 50, Y: 50}
	}
	m.state = StateDragArmed
	m.notify()
	return nil
}

// Click places a hotspot at a captured click. The viewport's own conversion is used
// when available, falling back to the pure screen mapping.
func (m *Machine) Click(ev viewport.PointerEvent) error {
	if m.state != StateClickArmed {
		return fmt.Errorf("%w: click while %s", ErrInvalidTransition, m.state)
	}

	c, ok := sphere.Coords{}, false
	if m.viewer != nil {
		c, ok = m.viewer.MouseEventToSphereCoords(ev)
	}
	if !ok {
		width, height := 0.0, 0.0
		if m.viewer != nil {
			width, height = m.viewer.Size()
		}
		if width <= 0 || height <= 0 {
			return m.checkCoords(sphere.Coords{Pitch: math.NaN(), Yaw: math.NaN()})
		}
		c = sphere.ScreenToSphere(ev.X, ev.Y, width, height)
	}

	if err := m.checkCoords(c); err != nil {
		return err
	}
	m.startDraft(c)
	return nil
}

// DragMove moves the drag marker to a container percentage position.
func (m *Machine) DragMove(xPercent, yPercent float64) error {
	if m.state != StateDragArmed {
		return fmt.Errorf("%w: drag while %s", ErrInvalidTransition, m.state)
	}
	m.marker = sphere.Point{X: xPercent, Y: yPercent}
	m.TrackPointer(xPercent, yPercent)
	m.notify()
	return nil
}

// ConfirmDrag turns the drag marker position into a draft hotspot.
func (m *Machine) ConfirmDrag() error {
	if m.state != StateDragArmed {
		return fmt.Errorf("%w: confirm while %s", ErrInvalidTransition, m.state)
	}
	c := m.percentToSphere(m.marker.X, m.marker.Y)
	if err := m.checkCoords(c); err != nil {
		return err
	}
	m.startDraft(c)
	return nil
}

// Edit opens an existing hotspot in the modal.
func (m *Machine) Edit(h models.Hotspot) error {
	if h.Kind != m.kind {
		return fmt.Errorf("%w: %s editor got %s", ErrKindMismatch, m.kind, h.Kind)
	}
	switch m.state {
	case StateEditing:
		return fmt.Errorf("%w: edit while %s", ErrInvalidTransition, m.state)
	case StateClickArmed, StateDragArmed:
		m.toIdle()
	}
	m.draft = h.Clone()
	m.state = StateEditing
	m.notify()
	return nil
}

// Draft returns the hotspot being edited.
func (m *Machine) Draft() (models.Hotspot, bool) {
	if m.state != StateEditing {
		return models.Hotspot{}, false
	}
	return m.draft.Clone(), true
}

// Save records the modal's fields. Identity, kind, scene and position come from the draft.
// A recorder error keeps the modal open.
func (m *Machine) Save(fields models.Hotspot) error {
	if m.state != StateEditing {
		return fmt.Errorf("%w: save while %s", ErrInvalidTransition, m.state)
	}

	h := fields.Clone()
	h.Ref = m.draft.Ref
	h.Kind = m.draft.Kind
	h.SceneID = m.draft.SceneID
	h.Pitch, h.Yaw = m.draft.Pitch, m.draft.Yaw

	if m.recorder != nil {
		if err := m.recorder.RecordCreateOrUpdate(h); err != nil {
			return fmt.Errorf("record hotspot: %w", err)
		}
	}
	m.toIdle()
	m.notify()
	return nil
}

// Delete removes the hotspot being edited.
func (m *Machine) Delete() error {
	if m.state != StateEditing {
		return fmt.Errorf("%w: delete while %s", ErrInvalidTransition, m.state)
	}
	if m.recorder != nil {
		if err := m.recorder.RecordDelete(m.draft.Ref); err != nil {
			return fmt.Errorf("record delete: %w", err)
		}
	}
	m.toIdle()
	m.notify()
	return nil
}

// Cancel abandons any armed mode or open modal. Calling it while idle does nothing.
func (m *Machine) Cancel() {
	if m.state == StateIdle {
		return
	}
	m.toIdle()
	m.notify()
}

func (m *Machine) toIdle() {
	if m.state == StateClickArmed {
		m.setInteraction(true)
		m.setSuppressed(false)
	}
	m.state = StateIdle
	m.draft = models.Hotspot{}
}

func (m *Machine) checkCoords(c sphere.Coords) error {
	if c.Valid() {
		return nil
	}
	metrics.PlacementRejections.WithLabelValues(string(m.kind), string(m.state)).Inc()
	l := logging.WithComponent("placement")
	l.Debug().
		Str("kind", string(m.kind)).
		Str("state", string(m.state)).
		Float64("pitch", c.Pitch).
		Float64("yaw", c.Yaw).
		Msg("Rejected hotspot placement")
	return fmt.Errorf("%w: pitch %.2f yaw %.2f", ErrInvalidCoordinates, c.Pitch, c.Yaw)
}

func (m *Machine) startDraft(c sphere.Coords) {
	wasClick := m.state == StateClickArmed

	m.draft = models.Hotspot{
		Ref:         models.NewDraftRef(),
		SceneID:     m.sceneID,
		Kind:        m.kind,
		Pitch:       c.Pitch,
		Yaw:         c.Yaw,
		Label:       DefaultLabel(m.kind),
		Description: DefaultDescription(m.kind),
	}
	if m.kind == models.KindInfo {
		m.draft.Sentences = []models.Sentence{}
	}
	m.state = StateEditing

	if wasClick {
		m.setInteraction(true)
		m.setSuppressed(false)
	}
	m.notify()
}

func (m *Machine) setInteraction(enabled bool) {
	if m.viewer == nil {
		return
	}
	if err := m.viewer.SetInteractionEnabled(enabled); err != nil {
		l := logging.WithComponent("placement")
		l.Warn().Err(err).Bool("enabled", enabled).Msg("Failed to toggle viewer interaction")
	}
}

func (m *Machine) setSuppressed(suppressed bool) {
	if m.overlay == nil {
		return
	}
	if err := m.overlay.SetSuppressed(suppressed); err != nil {
		l := logging.WithComponent("placement")
		l.Warn().Err(err).Bool("suppressed", suppressed).Msg("Failed to toggle overlay suppression")
	}
}

// DefaultLabel seeds the label of a new draft.
func DefaultLabel(kind models.Kind) string {
	if kind == models.KindLink {
		return "New Link"
	}
	return "New Info Point"
}

// DefaultDescription seeds the description of a new draft.
func DefaultDescription(kind models.Kind) string {
	if kind == models.KindLink {
		return "Go to another scene"
	}
	return "Describe this point of interest"
}
