// Vtour - 360° Virtual Tour Content Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vtour

// Package editor holds the unsaved hotspot changes of one scene and writes them to the
// backend in a single batched save.
package editor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tomtom215/vtour/internal/logging"
	"github.com/tomtom215/vtour/internal/metrics"
	"github.com/tomtom215/vtour/internal/models"
)

var (
	// ErrSaveInProgress is returned for edits or saves attempted while a save runs.
	ErrSaveInProgress = errors.New("save already in progress")

	// ErrKindChange is returned when an update would change a hotspot's kind.
	ErrKindChange = errors.New("hotspot kind cannot change; delete and recreate instead")

	// ErrWrongKind is returned when a hotspot of another kind is recorded.
	ErrWrongKind = errors.New("hotspot kind does not belong to this editor")

	// ErrUnknownHotspot is returned when updating a persisted hotspot not in the session.
	ErrUnknownHotspot = errors.New("hotspot not in editing session")

	// ErrNoScene is returned by operations that need Load to have run first.
	ErrNoScene = errors.New("no scene loaded")

	// ErrReloadFailed wraps the reload error of a save whose writes all succeeded.
	ErrReloadFailed = errors.New("changes saved but reload failed")
)

// Backend is the hotspot persistence the session writes through.
type Backend interface {
	ListHotspots(ctx context.Context, sceneID int64) ([]models.HotspotRecord, error)
	CreateHotspot(ctx context.Context, sceneID int64, p models.HotspotPayload) (models.HotspotRecord, error)
	UpdateHotspot(ctx context.Context, sceneID, id int64, p models.HotspotPayload) (models.HotspotRecord, error)
	DeleteHotspot(ctx context.Context, sceneID, id int64) error
}

// Entry is a hotspot with its unsaved-change tag.
type Entry struct {
	Hotspot models.Hotspot `json:"hotspot"`
	Status  models.Status  `json:"status"`
}

// SaveResult summarizes a completed save.
type SaveResult struct {
	Deleted int
	Created int
	Updated int
}

// NewSentence creates a sentence with a locally generated id and browser narration.
func NewSentence(clause string) models.Sentence {
	return models.NewSentence(clause)
}

// Session is the editor state for one scene and one hotspot kind. It is safe for
// concurrent use.
type Session struct {
	backend Backend
	kind    models.Kind

	mu      sync.Mutex
	sceneID int64
	loaded  bool
	entries []Entry
	deletes []int64
	saving  bool
}

// NewSession creates an empty session for hotspots of kind.
func NewSession(b Backend, kind models.Kind) *Session {
	return &Session{backend: b, kind: kind}
}

// Kind returns the hotspot kind the session edits.
func (s *Session) Kind() models.Kind { return s.kind }

// SceneID returns the loaded scene, or 0.
func (s *Session) SceneID() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sceneID
}

// Load fetches the scene's hotspots, keeps those of the session's kind and discards any
// unsaved changes.
func (s *Session) Load(ctx context.Context, sceneID int64) error {
	s.mu.Lock()
	if s.saving {
		s.mu.Unlock()
		return ErrSaveInProgress
	}
	s.mu.Unlock()

	entries, err := s.fetch(ctx, sceneID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sceneID = sceneID
	s.loaded = true
	s.entries = entries
	s.deletes = nil
	return nil
}

func (s *Session) fetch(ctx context.Context, sceneID int64) ([]Entry, error) {
	records, err := s.backend.ListHotspots(ctx, sceneID)
	if err != nil {
		return nil, fmt.Errorf("load hotspots for scene %d: %w", sceneID, err)
	}

	entries := make([]Entry, 0, len(records))
	for _, r := range records {
		if r.Type != s.kind {
			continue
		}
		h := r.Hotspot()
		if h.SceneID == 0 {
			h.SceneID = sceneID
		}
		entries = append(entries, Entry{Hotspot: h.Normalized()})
	}
	return entries, nil
}

// Hotspots returns the session's entries in display order.
func (s *Session) Hotspots() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Entry, len(s.entries))
	for i, e := range s.entries {
		out[i] = Entry{Hotspot: e.Hotspot.Clone(), Status: e.Status}
	}
	return out
}

// List returns the bare hotspots.
func (s *Session) List() []models.Hotspot {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Hotspot, len(s.entries))
	for i, e := range s.entries {
		out[i] = e.Hotspot.Clone()
	}
	return out
}

// Find returns the hotspot with ref.
func (s *Session) Find(ref models.HotspotRef) (models.Hotspot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexLocked(ref); i >= 0 {
		return s.entries[i].Hotspot.Clone(), true
	}
	return models.Hotspot{}, false
}

// PendingDeletes returns the server ids queued for deletion.
func (s *Session) PendingDeletes() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int64(nil), s.deletes...)
}

// Dirty reports whether there is anything to save.
func (s *Session) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.deletes) > 0 {
		return true
	}
	for _, e := range s.entries {
		if e.Status != models.StatusNone {
			return true
		}
	}
	return false
}

// Saving reports whether a save is running.
func (s *Session) Saving() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saving
}

func (s *Session) indexLocked(ref models.HotspotRef) int {
	for i, e := range s.entries {
		if e.Hotspot.Ref == ref {
			return i
		}
	}
	return -1
}

// RecordCreateOrUpdate stores the outcome of the editing modal. A draft becomes "new";
// a persisted hotspot becomes "modified" unless it is still "new".
func (s *Session) RecordCreateOrUpdate(h models.Hotspot) error {
	if h.Kind != s.kind {
		return fmt.Errorf("%w: %s editor got %s", ErrWrongKind, s.kind, h.Kind)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saving {
		return ErrSaveInProgress
	}
	if h.SceneID == 0 {
		h.SceneID = s.sceneID
	}
	h = h.Normalized()

	i := s.indexLocked(h.Ref)
	if i >= 0 {
		prev := s.entries[i]
		if prev.Hotspot.Kind != h.Kind {
			return ErrKindChange
		}
		status := models.StatusModified
		if prev.Status == models.StatusNew {
			status = models.StatusNew
		}
		s.entries[i] = Entry{Hotspot: h, Status: status}
		return nil
	}

	if !h.Ref.IsDraft() {
		return fmt.Errorf("%w: %s", ErrUnknownHotspot, h.Ref)
	}
	s.entries = append(s.entries, Entry{Hotspot: h, Status: models.StatusNew})
	return nil
}

// RecordDelete drops a hotspot. Persisted hotspots are queued for backend deletion;
// drafts vanish without trace. Unknown refs are ignored.
func (s *Session) RecordDelete(ref models.HotspotRef) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saving {
		return ErrSaveInProgress
	}

	i := s.indexLocked(ref)
	if i < 0 {
		return nil
	}
	entry := s.entries[i]
	s.entries = append(s.entries[:i], s.entries[i+1:]...)

	if id, ok := entry.Hotspot.Ref.ServerID(); ok {
		s.deletes = append(s.deletes, id)
	}
	return nil
}

type saveOp struct {
	verb    string
	id      int64
	payload models.HotspotPayload
}

// Save sends every queued delete, create and update concurrently and waits for all of
// them. Any failure fails the save and leaves the unsaved state untouched. On success
// the deletion queue is cleared and the list is reloaded from the backend.
func (s *Session) Save(ctx context.Context) (SaveResult, error) {
	s.mu.Lock()
	if s.saving {
		s.mu.Unlock()
		return SaveResult{}, ErrSaveInProgress
	}
	if !s.loaded {
		s.mu.Unlock()
		return SaveResult{}, ErrNoScene
	}
	sceneID := s.sceneID
	ops := s.planLocked()
	s.saving = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.saving = false
		s.mu.Unlock()
	}()

	start := time.Now()
	var res SaveResult
	var g errgroup.Group
	for _, op := range ops {
		switch op.verb {
		case "DELETE":
			res.Deleted++
			g.Go(func() error {
				if err := s.backend.DeleteHotspot(ctx, sceneID, op.id); err != nil {
					return fmt.Errorf("delete hotspot %d: %w", op.id, err)
				}
				return nil
			})
		case "POST":
			res.Created++
			g.Go(func() error {
				if _, err := s.backend.CreateHotspot(ctx, sceneID, op.payload); err != nil {
					return fmt.Errorf("create hotspot %q: %w", op.payload.Label, err)
				}
				return nil
			})
		case "PUT":
			res.Updated++
			g.Go(func() error {
				if _, err := s.backend.UpdateHotspot(ctx, sceneID, op.id, op.payload); err != nil {
					return fmt.Errorf("update hotspot %d: %w", op.id, err)
				}
				return nil
			})
		}
	}

	if err := g.Wait(); err != nil {
		metrics.HotspotSaves.WithLabelValues("failure").Inc()
		logging.Ctx(ctx).Warn().
			Err(err).
			Int64("scene_id", sceneID).
			Int("operations", len(ops)).
			Msg("Hotspot save failed; unsaved changes kept")
		return SaveResult{}, err
	}

	metrics.HotspotSaves.WithLabelValues("success").Inc()
	logging.Ctx(ctx).Info().
		Int64("scene_id", sceneID).
		Int("deleted", res.Deleted).
		Int("created", res.Created).
		Int("updated", res.Updated).
		Dur("duration", time.Since(start)).
		Msg("Hotspot changes saved")

	entries, err := s.fetch(ctx, sceneID)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.deletes = nil
	if err != nil {
		// The backend has the changes but the server ids of created hotspots are
		// unknown, so drafts are dropped until the next successful Load.
		kept := s.entries[:0]
		for _, e := range s.entries {
			if e.Hotspot.Ref.IsDraft() {
				continue
			}
			e.Status = models.StatusNone
			kept = append(kept, e)
		}
		s.entries = kept
		return res, fmt.Errorf("%w: %w", ErrReloadFailed, err)
	}
	s.entries = entries
	return res, nil
}

// planLocked lists the requests for the current unsaved state: deletes, then creates,
// then updates.
func (s *Session) planLocked() []saveOp {
	ops := make([]saveOp, 0, len(s.deletes)+len(s.entries))
	for _, id := range s.deletes {
		ops = append(ops, saveOp{verb: "DELETE", id: id})
	}
	for _, e := range s.entries {
		if e.Status == models.StatusNew {
			ops = append(ops, saveOp{verb: "POST", payload: e.Hotspot.Payload()})
		}
	}
	for _, e := range s.entries {
		if e.Status != models.StatusModified {
			continue
		}
		if id, ok := e.Hotspot.Ref.ServerID(); ok {
			ops = append(ops, saveOp{verb: "PUT", id: id, payload: e.Hotspot.Payload()})
		}
	}
	return ops
}
