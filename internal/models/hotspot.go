// Vtour - 360° Virtual Tour Content Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vtour

package models

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/tomtom215/vtour/internal/sphere"
)

// Kind is the hotspot variant. It is immutable once a hotspot exists.
type Kind string

const (
	KindInfo Kind = "info"
	KindLink Kind = "link"
)

// Valid reports whether k is a known hotspot kind.
func (k Kind) Valid() bool {
	return k == KindInfo || k == KindLink
}

// VoiceSource tells the viewer where a sentence's narration comes from.
type VoiceSource string

const (
	VoiceBrowser VoiceSource = "browser"
	VoiceFile    VoiceSource = "file"
)

// Sentence is one narrated unit of an info hotspot. Order within the hotspot matters.
type Sentence struct {
	ID          string      `json:"id" validate:"required"`
	Clause      string      `json:"clause" validate:"required"`
	VoiceSource VoiceSource `json:"voiceSource" validate:"omitempty,oneof=browser file"`
	VoiceURL    string      `json:"voiceUrl,omitempty" validate:"required_if=VoiceSource file"`
}

// NewSentence creates a browser-narrated sentence with a locally generated id.
func NewSentence(clause string) Sentence {
	return Sentence{
		ID:          uuid.NewString(),
		Clause:      clause,
		VoiceSource: VoiceBrowser,
	}
}

// Status is the unsaved-change tag carried by a hotspot inside an editing session.
type Status string

const (
	StatusNone     Status = ""
	StatusNew      Status = "new"
	StatusModified Status = "modified"
)

// HotspotRef identifies a hotspot that is either an unsaved draft (local id) or a
// persisted backend record (server id). The zero value refers to nothing.
type HotspotRef struct {
	local  string
	server int64
}

const draftRefPrefix = "draft:"

// ErrInvalidRef is returned when a textual reference cannot be parsed.
var ErrInvalidRef = errors.New("invalid hotspot reference")

// DraftRef returns a reference to an unsaved hotspot.
func DraftRef(localID string) HotspotRef {
	return HotspotRef{local: localID}
}

// NewDraftRef returns a draft reference with a fresh random local id.
func NewDraftRef() HotspotRef {
	return DraftRef(uuid.NewString())
}

// PersistedRef returns a reference to a hotspot stored by the backend.
func PersistedRef(id int64) HotspotRef {
	return HotspotRef{server: id}
}

// IsZero reports whether r refers to nothing.
func (r HotspotRef) IsZero() bool {
	return r.local == "" && r.server == 0
}

// IsDraft reports whether r refers to an unsaved hotspot.
func (r HotspotRef) IsDraft() bool {
	return r.local != ""
}

// LocalID returns the draft id when r is a draft.
func (r HotspotRef) LocalID() (string, bool) {
	return r.local, r.local != ""
}

// ServerID returns the backend id when r is persisted.
func (r HotspotRef) ServerID() (int64, bool) {
	return r.server, r.local == "" && r.server != 0
}

// String renders drafts as "draft:<id>" and persisted refs as the decimal id.
func (r HotspotRef) String() string {
	switch {
	case r.local != "":
		return draftRefPrefix + r.local
	case r.server != 0:
		return strconv.FormatInt(r.server, 10)
	default:
		return ""
	}
}

// MarshalText implements encoding.TextMarshaler.
func (r HotspotRef) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *HotspotRef) UnmarshalText(b []byte) error {
	parsed, err := ParseHotspotRef(string(b))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// ParseHotspotRef parses the String form of a reference.
func ParseHotspotRef(s string) (HotspotRef, error) {
	if s == "" {
		return HotspotRef{}, nil
	}
	if local, ok := strings.CutPrefix(s, draftRefPrefix); ok {
		if local == "" {
			return HotspotRef{}, fmt.Errorf("%w: empty draft id", ErrInvalidRef)
		}
		return DraftRef(local), nil
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return HotspotRef{}, fmt.Errorf("%w: %q", ErrInvalidRef, s)
	}
	return PersistedRef(id), nil
}

// Hotspot is an interactive marker anchored to a point on a scene's sphere.
type Hotspot struct {
	Ref         HotspotRef `json:"ref"`
	SceneID     int64      `json:"scene_id"`
	Kind        Kind       `json:"type"`
	Yaw         float64    `json:"yaw"`
	Pitch       float64    `json:"pitch"`
	Label       string     `json:"label"`
	Description string     `json:"description,omitempty"`
	IconName    string     `json:"icon_name,omitempty"`

	// Sentences is only meaningful for info hotspots.
	Sentences []Sentence `json:"sentences,omitempty"`

	// TargetSceneID is only meaningful for link hotspots.
	TargetSceneID int64 `json:"target_scene_id,omitempty"`
}

// Coords returns the hotspot position.
func (h Hotspot) Coords() sphere.Coords {
	return sphere.Coords{Pitch: h.Pitch, Yaw: h.Yaw}
}

// Clone returns a deep copy.
func (h Hotspot) Clone() Hotspot {
	if h.Sentences != nil {
		h.Sentences = append([]Sentence(nil), h.Sentences...)
	}
	return h
}

// Normalized returns a copy with pitch clamped and yaw wrapped.
func (h Hotspot) Normalized() Hotspot {
	c := sphere.NormalizeSphereCoords(h.Pitch, h.Yaw)
	h = h.Clone()
	h.Pitch, h.Yaw = c.Pitch, c.Yaw
	return h
}

// Payload builds the create/update body. Coordinates are normalized and only the
// fields belonging to the hotspot's kind are included.
func (h Hotspot) Payload() HotspotPayload {
	c := sphere.NormalizeSphereCoords(h.Pitch, h.Yaw)
	p := HotspotPayload{
		Type:        h.Kind,
		Yaw:         c.Yaw,
		Pitch:       c.Pitch,
		Label:       h.Label,
		Description: h.Description,
	}

	switch h.Kind {
	case KindInfo:
		p.Sentences = append([]Sentence{}, h.Sentences...)
	case KindLink:
		if h.TargetSceneID != 0 {
			target := h.TargetSceneID
			p.TargetSceneID = &target
		}
		p.IconName = h.IconName
	}

	return p
}

// HotspotPayload is the wire body for hotspot create (POST) and update (PUT).
type HotspotPayload struct {
	Type          Kind       `json:"type" validate:"required,oneof=info link"`
	Yaw           float64    `json:"yaw" validate:"gte=-180,lte=180"`
	Pitch         float64    `json:"pitch" validate:"gte=-90,lte=90"`
	Label         string     `json:"label" validate:"required,max=255"`
	Description   string     `json:"description,omitempty" validate:"max=5000"`
	Sentences     []Sentence `json:"sentences,omitempty" validate:"omitempty,dive"`
	TargetSceneID *int64     `json:"target_scene_id,omitempty" validate:"required_if=Type link"`
	IconName      string     `json:"icon_name,omitempty" validate:"omitempty,max=64,iconname"`
}

// HotspotRecord is a hotspot as returned by the backend.
type HotspotRecord struct {
	ID            int64      `json:"id"`
	SceneID       int64      `json:"scene_id"`
	Type          Kind       `json:"type"`
	Yaw           float64    `json:"yaw"`
	Pitch         float64    `json:"pitch"`
	Label         string     `json:"label"`
	Description   string     `json:"description,omitempty"`
	Sentences     []Sentence `json:"sentences,omitempty"`
	TargetSceneID *int64     `json:"target_scene_id,omitempty"`
	IconName      string     `json:"icon_name,omitempty"`
}

// Hotspot converts the record into the in-memory form with a persisted reference.
func (r HotspotRecord) Hotspot() Hotspot {
	h := Hotspot{
		Ref:         PersistedRef(r.ID),
		SceneID:     r.SceneID,
		Kind:        r.Type,
		Yaw:         r.Yaw,
		Pitch:       r.Pitch,
		Label:       r.Label,
		Description: r.Description,
		IconName:    r.IconName,
		Sentences:   r.Sentences,
	}
	if r.TargetSceneID != nil {
		h.TargetSceneID = *r.TargetSceneID
	}
	return h
}
