// Vtour - 360° Virtual Tour Content Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vtour

package models

import (
	"errors"
	"testing"

	"github.com/goccy/go-json"
)

func TestHotspotRef(t *testing.T) {
	t.Parallel()

	draft := DraftRef("abc")
	if !draft.IsDraft() {
		t.Error("DraftRef should be a draft")
	}
	if _, ok := draft.ServerID(); ok {
		t.Error("draft ref must not report a server id")
	}
	if got := draft.String(); got != "draft:abc" {
		t.Errorf("String() = %q, want %q", got, "draft:abc")
	}

	persisted := PersistedRef(42)
	if persisted.IsDraft() {
		t.Error("PersistedRef should not be a draft")
	}
	if id, ok := persisted.ServerID(); !ok || id != 42 {
		t.Errorf("ServerID() = %d, %v, want 42, true", id, ok)
	}
	if got := persisted.String(); got != "42" {
		t.Errorf("String() = %q, want %q", got, "42")
	}

	if !(HotspotRef{}).IsZero() {
		t.Error("zero ref should report IsZero")
	}
	if NewDraftRef() == NewDraftRef() {
		t.Error("NewDraftRef should produce distinct refs")
	}
}

func TestParseHotspotRef(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    HotspotRef
		wantErr bool
	}{
		{"", HotspotRef{}, false},
		{"draft:x1", DraftRef("x1"), false},
		{"17", PersistedRef(17), false},
		{"draft:", HotspotRef{}, true},
		{"-3", HotspotRef{}, true},
		{"0", HotspotRef{}, true},
		{"temp_123", HotspotRef{}, true},
	}

	for _, tt := range tests {
		got, err := ParseHotspotRef(tt.in)
		if tt.wantErr {
			if !errors.Is(err, ErrInvalidRef) {
				t.Errorf("ParseHotspotRef(%q) error = %v, want ErrInvalidRef", tt.in, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseHotspotRef(%q) unexpected error: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseHotspotRef(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestHotspotRef_JSON(t *testing.T) {
	t.Parallel()

	h := Hotspot{Ref: DraftRef("d1"), Kind: KindInfo, Label: "x"}
	b, err := json.Marshal(h)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var back Hotspot
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back.Ref != h.Ref {
		t.Errorf("ref after JSON = %v, want %v", back.Ref, h.Ref)
	}
}

func TestHotspot_Payload(t *testing.T) {
	t.Parallel()

	t.Run("info keeps sentences only", func(t *testing.T) {
		t.Parallel()
		h := Hotspot{
			Kind:          KindInfo,
			Pitch:         120,
			Yaw:           190,
			Label:         "Meja Rapat",
			Sentences:     []Sentence{NewSentence("Ini adalah meja rapat")},
			TargetSceneID: 9,
			IconName:      "arrow",
		}
		p := h.Payload()
		if p.Pitch != 90 || p.Yaw != -170 {
			t.Errorf("payload coords = (%v,%v), want (90,-170)", p.Pitch, p.Yaw)
		}
		if len(p.Sentences) != 1 {
			t.Errorf("sentences = %d, want 1", len(p.Sentences))
		}
		if p.TargetSceneID != nil || p.IconName != "" {
			t.Error("info payload must not carry link fields")
		}
	})

	t.Run("link keeps target and icon", func(t *testing.T) {
		t.Parallel()
		h := Hotspot{
			Kind:          KindLink,
			Label:         "Lobby",
			TargetSceneID: 3,
			IconName:      "door",
			Sentences:     []Sentence{NewSentence("ignored")},
		}
		p := h.Payload()
		if p.TargetSceneID == nil || *p.TargetSceneID != 3 {
			t.Errorf("target_scene_id = %v, want 3", p.TargetSceneID)
		}
		if p.IconName != "door" {
			t.Errorf("icon_name = %q, want door", p.IconName)
		}
		if len(p.Sentences) != 0 {
			t.Error("link payload must not carry sentences")
		}
	})
}

func TestHotspot_CloneIsDeep(t *testing.T) {
	t.Parallel()

	h := Hotspot{Sentences: []Sentence{{ID: "1", Clause: "a"}}}
	c := h.Clone()
	c.Sentences[0].Clause = "b"
	if h.Sentences[0].Clause != "a" {
		t.Error("Clone shares sentence storage with the original")
	}
}

func TestHotspotRecord_Hotspot(t *testing.T) {
	t.Parallel()

	target := int64(5)
	r := HotspotRecord{ID: 11, SceneID: 2, Type: KindLink, Yaw: 10, Pitch: -5, Label: "Go", TargetSceneID: &target}
	h := r.Hotspot()
	if id, ok := h.Ref.ServerID(); !ok || id != 11 {
		t.Errorf("ref = %v, want persisted 11", h.Ref)
	}
	if h.TargetSceneID != 5 || h.Kind != KindLink || h.SceneID != 2 {
		t.Errorf("unexpected conversion: %+v", h)
	}
}
