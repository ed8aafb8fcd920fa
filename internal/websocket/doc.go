// Vtour - 360° Virtual Tour Content Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vtour

/*
Package websocket carries studio sessions between the browser and the server.

It uses gorilla/websocket with a hub-client architecture. Each browser tab editing a
scene holds one Client; the Hub tracks every Client and fans out scene-wide
notifications such as scene_updated.

Key Components:

  - Hub: tracks connected clients and broadcasts to all of them or to one scene
  - Client: one connection with a read loop and a write goroutine
  - Message / Inbound: the {type, data} envelope in each direction
  - Handler: receives every inbound message of a client (the studio session)

Architecture:

	┌──────────┐
	│   Hub    │ ← scene_updated to every client of a scene
	└────┬─────┘
	     │
	┌────┴─────┬─────────┬─────────┐
	│ Client1  │ Client2 │ Client3 │
	│ scene 4  │ scene 4 │ scene 9 │
	└──────────┴─────────┴─────────┘

Each client has two goroutines:
  - readPump: reads from the connection, answers pings, hands everything else to
    the Handler in arrival order
  - writePump: writes queued messages and keepalive pings

Client implements viewport.Sender, so a studio session drives the browser's
panorama engine by calling Send.

Lifecycle:

	client := websocket.NewClient(hub, conn, sceneID)
	client.SetHandler(session)
	client.Run(ctx) // blocks until the connection closes

Cancelling the hub's Serve context closes every client.
*/
package websocket
