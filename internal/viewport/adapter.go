// Vtour - 360° Virtual Tour Content Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vtour

package viewport

import (
	"errors"
	"sync"
)

// RendererFactory builds the renderer for a container. It is injected so several
// adapters, and tests, never share ambient renderer state.
type RendererFactory func(container string) Renderer

// Adapter guarantees at most one live render surface per container.
type Adapter struct {
	mu        sync.Mutex
	factory   RendererFactory
	opts      []Option
	viewports map[string]*Viewport
}

// NewAdapter creates an adapter. opts apply to every Viewport it creates.
func NewAdapter(factory RendererFactory, opts ...Option) *Adapter {
	return &Adapter{
		factory:   factory,
		opts:      opts,
		viewports: make(map[string]*Viewport),
	}
}

// Initialize shows spec in container. An existing surface for the container is torn
// down and rebuilt, so the returned handle is the same Viewport across images.
func (a *Adapter) Initialize(container string, spec InitSpec) (*Viewport, error) {
	v := a.Viewport(container)
	if err := v.Initialize(spec); err != nil {
		return nil, err
	}
	return v, nil
}

// Viewport returns the viewport for container without mounting anything, creating
// it when none exists or the previous one was destroyed. Handlers registered on it
// before Initialize see the first mount's outcome.
func (a *Adapter) Viewport(container string) *Viewport {
	a.mu.Lock()
	defer a.mu.Unlock()
	v, ok := a.viewports[container]
	if !ok || v.retired() {
		var r Renderer
		if a.factory != nil {
			r = a.factory(container)
		}
		v = New(container, r, a.opts...)
		a.viewports[container] = v
	}
	return v
}

// Get returns the viewport for container, if one exists.
func (a *Adapter) Get(container string) (*Viewport, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	v, ok := a.viewports[container]
	return v, ok
}

// Destroy tears down the surface for container. Unknown containers are ignored.
func (a *Adapter) Destroy(container string) error {
	a.mu.Lock()
	v, ok := a.viewports[container]
	delete(a.viewports, container)
	a.mu.Unlock()

	if !ok {
		return nil
	}
	return v.Destroy()
}

// Close destroys every surface.
func (a *Adapter) Close() error {
	a.mu.Lock()
	vs := a.viewports
	a.viewports = make(map[string]*Viewport)
	a.mu.Unlock()

	var errs []error
	for _, v := range vs {
		if err := v.Destroy(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
