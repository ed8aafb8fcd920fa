// Vtour - 360° Virtual Tour Content Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vtour

package viewport

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/tomtom215/vtour/internal/logging"
	"github.com/tomtom215/vtour/internal/sphere"
)

// State is the lifecycle position of a Viewport.
type State int

const (
	StateUninitialized State = iota
	StateLoading
	StateReady
	StateError
	StateDestroyed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateError:
		return "error"
	case StateDestroyed:
		return "destroyed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

var (
	// ErrNotReady is returned by operations that need a loaded panorama.
	ErrNotReady = errors.New("viewport not ready")

	// ErrInitInProgress is returned when Initialize is re-entered for the same container.
	ErrInitInProgress = errors.New("viewport initialization already in progress")

	// ErrNothingToRetry is returned by Retry outside the error state.
	ErrNothingToRetry = errors.New("viewport is not in an error state")

	// ErrNoRenderer is the load failure reported when no renderer is available.
	ErrNoRenderer = errors.New("panorama renderer unavailable")
)

// InitSpec describes the panorama to show.
type InitSpec struct {
	ImageURL string
	Yaw      float64
	Pitch    float64
	Hotspots []Descriptor
}

// Option configures a Viewport.
type Option func(*Viewport)

// WithSize sets the initial container size in pixels.
func WithSize(width, height float64) Option {
	return func(v *Viewport) {
		v.width, v.height = width, height
	}
}

// WithHFOV sets the field of view used for new mounts.
func WithHFOV(hfov float64) Option {
	return func(v *Viewport) {
		v.hfov = hfov
	}
}

// Viewport owns the single render surface of one container. It is safe for concurrent
// use; registered handlers run outside the internal lock.
type Viewport struct {
	mu sync.Mutex

	container string
	renderer  Renderer

	state        State
	gen          uint64
	initializing bool
	lastSpec     InitSpec
	lastErr      error

	camera        Camera
	hfov          float64
	width, height float64
	interaction   bool
	markers       map[string]Descriptor

	onLoad   []func()
	onError  []func(error)
	onClick  []func(sphere.Coords)
	onCamera []func(Camera)
}

// New creates an uninitialized Viewport for container. A nil renderer is allowed;
// initialization then fails into the error state.
func New(container string, r Renderer, opts ...Option) *Viewport {
	v := &Viewport{
		container:   container,
		renderer:    r,
		hfov:        DefaultHFOV,
		width:       1280,
		height:      720,
		interaction: true,
		markers:     make(map[string]Descriptor),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Container returns the container key this viewport renders into.
func (v *Viewport) Container() string {
	return v.container
}

// State returns the current lifecycle state.
func (v *Viewport) State() State {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

// retired reports a viewport destroyed for good, as opposed to one passing through
// the destroyed state while Initialize swaps surfaces.
func (v *Viewport) retired() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state == StateDestroyed && !v.initializing
}

// Err returns the last load failure, if any.
func (v *Viewport) Err() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.lastErr
}

// OnLoad registers a handler for successful loads.
func (v *Viewport) OnLoad(fn func()) {
	v.mu.Lock()
	v.onLoad = append(v.onLoad, fn)
	v.mu.Unlock()
}

// OnError registers a handler for load failures.
func (v *Viewport) OnError(fn func(error)) {
	v.mu.Lock()
	v.onError = append(v.onError, fn)
	v.mu.Unlock()
}

// OnClick registers a handler for clicks on the bare panorama. Clicks on markers or
// renderer controls are never forwarded.
func (v *Viewport) OnClick(fn func(sphere.Coords)) {
	v.mu.Lock()
	v.onClick = append(v.onClick, fn)
	v.mu.Unlock()
}

// OnCameraChange registers a handler for camera movement.
func (v *Viewport) OnCameraChange(fn func(Camera)) {
	v.mu.Lock()
	v.onCamera = append(v.onCamera, fn)
	v.mu.Unlock()
}

// Initialize mounts a new render surface, tearing down any existing one first.
// Load failures do not surface here: the viewport moves to StateError and OnError
// handlers run. The only returned error is ErrInitInProgress.
func (v *Viewport) Initialize(spec InitSpec) error {
	v.mu.Lock()
	if v.initializing {
		v.mu.Unlock()
		return ErrInitInProgress
	}
	v.initializing = true
	r := v.renderer
	if v.state == StateLoading || v.state == StateReady || v.state == StateError {
		// The old surface goes away before the new mount starts; its events are stale
		// from here on.
		v.state = StateDestroyed
		v.gen++
		v.mu.Unlock()
		if r != nil {
			if err := r.Unmount(); err != nil {
				l := logging.WithComponent("viewport")
				l.Warn().Err(err).Str("container", v.container).Msg("Failed to unmount previous panorama surface")
			}
		}
		v.mu.Lock()
	}

	v.gen++
	v.state = StateLoading
	v.lastSpec = spec
	v.lastErr = nil
	v.interaction = true
	start := sphere.NormalizeSphereCoords(spec.Pitch, spec.Yaw)
	v.camera = Camera{Yaw: start.Yaw, Pitch: start.Pitch, HFOV: v.hfov}
	v.markers = make(map[string]Descriptor, len(spec.Hotspots))
	mount := MountSpec{
		Container: v.container,
		Gen:       v.gen,
		ImageURL:  spec.ImageURL,
		Yaw:       v.camera.Yaw,
		Pitch:     v.camera.Pitch,
		HFOV:      v.camera.HFOV,
		Hotspots:  make([]Marker, 0, len(spec.Hotspots)),
	}
	for _, d := range spec.Hotspots {
		v.markers[d.ID] = d
		mount.Hotspots = append(mount.Hotspots, d.Marker())
	}
	gen := v.gen
	v.mu.Unlock()

	err := ErrNoRenderer
	if r != nil {
		err = r.Mount(mount)
	}

	v.mu.Lock()
	v.initializing = false
	v.mu.Unlock()

	l := logging.WithComponent("viewport")
	l.Debug().
		Str("container", v.container).
		Uint64("gen", gen).
		Str("image", spec.ImageURL).
		Msg("Panorama mount requested")

	if err != nil {
		v.fail(gen, fmt.Errorf("mount panorama: %w", err))
	}
	return nil
}

// Retry re-runs initialization with the last spec after a load failure.
func (v *Viewport) Retry() error {
	v.mu.Lock()
	if v.state != StateError {
		v.mu.Unlock()
		return ErrNothingToRetry
	}
	spec := v.lastSpec
	v.mu.Unlock()
	return v.Initialize(spec)
}

// Destroy tears down the render surface and drops all handlers. It is idempotent.
func (v *Viewport) Destroy() error {
	v.mu.Lock()
	if v.state == StateUninitialized || v.state == StateDestroyed {
		v.mu.Unlock()
		return nil
	}
	v.state = StateDestroyed
	v.gen++
	v.markers = make(map[string]Descriptor)
	v.onLoad, v.onError, v.onClick, v.onCamera = nil, nil, nil, nil
	r := v.renderer
	v.mu.Unlock()

	if r == nil {
		return nil
	}
	if err := r.Unmount(); err != nil {
		return fmt.Errorf("unmount panorama: %w", err)
	}
	return nil
}

// Handle applies a renderer event. Events from a superseded mount are dropped.
func (v *Viewport) Handle(ev Event) {
	switch ev.Kind {
	case EventLoad:
		v.loaded(ev.Gen)
	case EventError:
		err := ev.Err
		if err == nil {
			err = errors.New("panorama failed to load")
		}
		v.fail(ev.Gen, err)
	case EventClick:
		v.clicked(ev.Gen, ev.Pointer)
	case EventCamera:
		v.cameraChanged(ev.Gen, ev.Camera)
	case EventResize:
		v.resized(ev.Width, ev.Height)
	case EventMarkerClick:
		v.markerClicked(ev.Gen, ev.MarkerID)
	}
}

// current reports whether an event belongs to the live mount. Every mount has a
// non-zero generation, so events that omit it are dropped.
func (v *Viewport) current(gen uint64) bool {
	return gen != 0 && gen == v.gen
}

func (v *Viewport) loaded(gen uint64) {
	v.mu.Lock()
	if !v.current(gen) || v.state != StateLoading {
		v.mu.Unlock()
		return
	}
	v.state = StateReady
	handlers := append([]func(){}, v.onLoad...)
	v.mu.Unlock()

	for _, fn := range handlers {
		fn()
	}
}

func (v *Viewport) fail(gen uint64, err error) {
	v.mu.Lock()
	if !v.current(gen) || (v.state != StateLoading && v.state != StateReady) {
		v.mu.Unlock()
		return
	}
	v.state = StateError
	v.lastErr = err
	handlers := append([]func(error){}, v.onError...)
	v.mu.Unlock()

	l := logging.WithComponent("viewport")
	l.Warn().Err(err).Str("container", v.container).Msg("Panorama entered error state")
	for _, fn := range handlers {
		fn(err)
	}
}

func (v *Viewport) clicked(gen uint64, ev PointerEvent) {
	if ev.OnMarker || ev.OnControl {
		return
	}

	v.mu.Lock()
	if !v.current(gen) || v.state != StateReady {
		v.mu.Unlock()
		return
	}
	coords, ok := v.toSphereLocked(ev)
	handlers := append([]func(sphere.Coords){}, v.onClick...)
	v.mu.Unlock()

	if !ok {
		return
	}
	for _, fn := range handlers {
		fn(coords)
	}
}

func (v *Viewport) cameraChanged(gen uint64, cam Camera) {
	v.mu.Lock()
	if !v.current(gen) || v.state != StateReady {
		v.mu.Unlock()
		return
	}
	c := sphere.NormalizeSphereCoords(cam.Pitch, cam.Yaw)
	cam.Pitch, cam.Yaw = c.Pitch, c.Yaw
	if cam.HFOV < MinHFOV || cam.HFOV > MaxHFOV {
		cam.HFOV = v.camera.HFOV
	}
	v.camera = cam
	handlers := append([]func(Camera){}, v.onCamera...)
	v.mu.Unlock()

	for _, fn := range handlers {
		fn(cam)
	}
}

func (v *Viewport) resized(width, height float64) {
	if width <= 0 || height <= 0 {
		return
	}
	v.mu.Lock()
	v.width, v.height = width, height
	v.mu.Unlock()
}

func (v *Viewport) markerClicked(gen uint64, id string) {
	v.mu.Lock()
	if !v.current(gen) || v.state != StateReady {
		v.mu.Unlock()
		return
	}
	d, ok := v.markers[id]
	v.mu.Unlock()

	if ok && d.OnClick != nil {
		d.OnClick()
	}
}

// Camera returns the current camera. Only valid when ready.
func (v *Viewport) Camera() (Camera, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.state != StateReady {
		return Camera{}, ErrNotReady
	}
	return v.camera, nil
}

// Size returns the container size in pixels.
func (v *Viewport) Size() (width, height float64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.width, v.height
}

// ProjectToScreen returns the pixel position of c under the current camera.
// ok is false when not ready or when c is behind the camera.
func (v *Viewport) ProjectToScreen(c sphere.Coords) (sphere.Point, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.state != StateReady {
		return sphere.Point{}, false
	}
	return Project(v.camera, v.width, v.height, c.Normalize())
}

// MouseEventToSphereCoords converts a click to sphere coordinates using the renderer's
// own conversion when present, else the camera projection. ok is false when not ready.
func (v *Viewport) MouseEventToSphereCoords(ev PointerEvent) (sphere.Coords, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.state != StateReady {
		return sphere.Coords{}, false
	}
	return v.toSphereLocked(ev)
}

func (v *Viewport) toSphereLocked(ev PointerEvent) (sphere.Coords, bool) {
	if ev.Native != nil {
		return *ev.Native, true
	}
	return Unproject(v.camera, v.width, v.height, sphere.Point{X: ev.X, Y: ev.Y})
}

// AddHotspot adds or replaces a marker.
func (v *Viewport) AddHotspot(d Descriptor) error {
	v.mu.Lock()
	if v.state != StateReady {
		v.mu.Unlock()
		return ErrNotReady
	}
	_, replacing := v.markers[d.ID]
	v.markers[d.ID] = d
	r := v.renderer
	v.mu.Unlock()

	if replacing {
		if err := r.RemoveMarker(d.ID); err != nil {
			return fmt.Errorf("replace marker %s: %w", d.ID, err)
		}
	}
	if err := r.AddMarker(d.Marker()); err != nil {
		return fmt.Errorf("add marker %s: %w", d.ID, err)
	}
	return nil
}

// RemoveHotspot removes a marker. Unknown ids are ignored.
func (v *Viewport) RemoveHotspot(id string) error {
	v.mu.Lock()
	if v.state != StateReady {
		v.mu.Unlock()
		return ErrNotReady
	}
	if _, ok := v.markers[id]; !ok {
		v.mu.Unlock()
		return nil
	}
	delete(v.markers, id)
	r := v.renderer
	v.mu.Unlock()

	if err := r.RemoveMarker(id); err != nil {
		return fmt.Errorf("remove marker %s: %w", id, err)
	}
	return nil
}

// HotspotIDs returns the ids of the markers currently on the surface, sorted.
func (v *Viewport) HotspotIDs() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	ids := make([]string, 0, len(v.markers))
	for id := range v.markers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// SetInteractionEnabled toggles native drag and zoom. The setting survives remounts
// only until the next Initialize, which re-enables interaction.
func (v *Viewport) SetInteractionEnabled(enabled bool) error {
	v.mu.Lock()
	v.interaction = enabled
	mounted := v.state == StateLoading || v.state == StateReady
	r := v.renderer
	v.mu.Unlock()

	if !mounted || r == nil {
		return nil
	}
	if err := r.SetInteraction(enabled); err != nil {
		return fmt.Errorf("set interaction: %w", err)
	}
	return nil
}

// InteractionEnabled reports the last requested interaction setting.
func (v *Viewport) InteractionEnabled() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.interaction
}
