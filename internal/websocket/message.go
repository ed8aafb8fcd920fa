// Vtour - 360° Virtual Tour Content Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vtour

package websocket

import (
	"github.com/goccy/go-json"
)

// Message types handled by the transport itself.
const (
	MessageTypePing         = "ping"
	MessageTypePong         = "pong"
	MessageTypeSceneUpdated = "scene_updated"
)

// Message is an outbound message.
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Inbound is a message received from the browser. Data is decoded by the handler.
type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// SceneUpdatedData is the payload of scene_updated.
type SceneUpdatedData struct {
	SceneID int64 `json:"scene_id"`
}

// MarshalMessage converts a message to JSON
func MarshalMessage(msg Message) ([]byte, error) {
	return json.Marshal(msg)
}

// DecodeInbound parses a raw frame.
func DecodeInbound(raw []byte) (Inbound, error) {
	var in Inbound
	err := json.Unmarshal(raw, &in)
	return in, err
}
