// Vtour - 360° Virtual Tour Content Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vtour

package studio

import (
	"fmt"

	"github.com/goccy/go-json"

	"github.com/tomtom215/vtour/internal/editor"
	"github.com/tomtom215/vtour/internal/models"
	"github.com/tomtom215/vtour/internal/overlay"
	"github.com/tomtom215/vtour/internal/placement"
	"github.com/tomtom215/vtour/internal/sphere"
)

// UI commands sent by the browser.
const (
	CmdArmClick    = "ui.arm_click"
	CmdArmDrag     = "ui.arm_drag"
	CmdDragMove    = "ui.drag_move"
	CmdConfirmDrag = "ui.confirm_drag"
	CmdCancel      = "ui.cancel"
	CmdModalSave   = "ui.modal_save"
	CmdModalCancel = "ui.modal_cancel"
	CmdModalDelete = "ui.modal_delete"
	CmdDelete      = "ui.delete"
	CmdEdit        = "ui.edit"
	CmdSave        = "ui.save"
	CmdRetry       = "ui.retry"
	CmdReload      = "ui.reload"
	CmdMarkerClick = "ui.marker_click"
)

// Messages sent to the browser, in addition to the renderer commands.
const (
	MsgOverlayUpdate   = "overlay.update"
	MsgPlacementState  = "placement.state"
	MsgModalOpen       = "modal.open"
	MsgModalClose      = "modal.close"
	MsgSessionHotspots = "session.hotspots"
	MsgSessionSaving   = "session.saving"
	MsgToast           = "toast"
)

// ToastLevel is the severity shown on a toast.
type ToastLevel string

const (
	ToastInfo    ToastLevel = "info"
	ToastSuccess ToastLevel = "success"
	ToastError   ToastLevel = "error"
)

// Toast is a short user-facing notification.
type Toast struct {
	Level   ToastLevel `json:"level"`
	Message string     `json:"message"`
}

// OverlayUpdate carries every marker that should currently be on screen.
type OverlayUpdate struct {
	Markers []overlay.Marker `json:"markers"`
}

// PlacementState mirrors the placement machine for the toolbar and drag marker.
type PlacementState struct {
	State     placement.State `json:"state"`
	Kind      models.Kind     `json:"kind"`
	Marker    *sphere.Point   `json:"marker,omitempty"`
	Candidate *sphere.Coords  `json:"candidate,omitempty"`
}

// ModalOpen opens the data-entry modal on a draft.
type ModalOpen struct {
	Draft models.Hotspot `json:"draft"`
	IsNew bool           `json:"is_new"`
}

// SessionHotspots is the editor list with unsaved-change tags.
type SessionHotspots struct {
	SceneID int64          `json:"scene_id"`
	Kind    models.Kind    `json:"kind"`
	Items   []editor.Entry `json:"items"`
	Dirty   bool           `json:"dirty"`
}

// SessionSaving toggles the Save button.
type SessionSaving struct {
	Saving bool `json:"saving"`
}

type dragArgs struct {
	XPercent *float64 `json:"x_percent"`
	YPercent *float64 `json:"y_percent"`
}

type refArgs struct {
	Ref models.HotspotRef `json:"ref"`
}

type markerArgs struct {
	ID string `json:"id"`
}

// modalFields are the editable fields of the modal. Identity and position always
// come from the draft held by the placement machine.
type modalFields struct {
	Label         string            `json:"label"`
	Description   string            `json:"description"`
	IconName      string            `json:"icon_name"`
	Sentences     []models.Sentence `json:"sentences"`
	TargetSceneID int64             `json:"target_scene_id"`
}

func (f modalFields) hotspot() models.Hotspot {
	return models.Hotspot{
		Label:         f.Label,
		Description:   f.Description,
		IconName:      f.IconName,
		Sentences:     f.Sentences,
		TargetSceneID: f.TargetSceneID,
	}
}

// decodeArgs unmarshals a command payload. An absent payload leaves out untouched.
func decodeArgs(cmd string, data []byte, out any) error {
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s: %w", cmd, err)
	}
	return nil
}
