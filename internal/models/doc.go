// Vtour - 360° Virtual Tour Content Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vtour

/*
Package models defines the tour data exchanged with the tour backend and the
studio.

Tour content:
  - Scene, SceneUpdate, ScenePage: panoramas and their default orientation
  - MenuEntry, MenuOrder: tour navigation menu
  - Settings: tour-wide branding and behavior

Hotspots:
  - Hotspot: the editor's view of a marker, either a link to another scene or an
    info popup with narration sentences
  - HotspotRef: identifies a hotspot before and after it is persisted. Drafts carry
    a local id; saved hotspots carry the backend id
  - HotspotPayload, HotspotRecord: the backend wire shapes. Payload carries the
    validation tags the proxy applies to hotspot bodies
*/
package models
