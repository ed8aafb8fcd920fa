// Vtour - 360° Virtual Tour Content Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vtour

package websocket

import (
	"context"
	"sort"
	"sync"

	"github.com/tomtom215/vtour/internal/logging"
	"github.com/tomtom215/vtour/internal/metrics"
)

// ShutdownReason identifies why the hub is shutting down.
type ShutdownReason string

const (
	// ShutdownReasonContextCanceled indicates the parent context was canceled.
	ShutdownReasonContextCanceled ShutdownReason = "context_canceled"

	// ShutdownReasonContextDeadline indicates the context deadline was exceeded.
	ShutdownReasonContextDeadline ShutdownReason = "context_deadline"
)

// AllScenes targets a broadcast at every client.
const AllScenes int64 = 0

// broadcast is a queued message with its audience.
type broadcast struct {
	msg     Message
	sceneID int64  // AllScenes for everyone
	except  uint64 // client id to skip, 0 for none
}

// Hub maintains the set of active clients and broadcasts messages to them
type Hub struct {
	clients   map[*Client]bool
	broadcast chan broadcast
	mu        sync.RWMutex
}

// NewHub creates a new Hub
func NewHub() *Hub {
	return &Hub{
		broadcast: make(chan broadcast, 256),
		clients:   make(map[*Client]bool),
	}
}

func (h *Hub) add(c *Client) {
	h.mu.Lock()
	h.clients[c] = true
	total := len(h.clients)
	h.mu.Unlock()

	metrics.WSConnections.Inc()
	logging.Info().
		Uint64("client_id", c.id).
		Int64("scene_id", c.sceneID).
		Int("total_clients", total).
		Msg("websocket client connected")
}

func (h *Hub) remove(c *Client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		delete(h.clients, c)
	}
	total := len(h.clients)
	h.mu.Unlock()

	c.close()
	if ok {
		metrics.WSConnections.Dec()
		logging.Info().
			Uint64("client_id", c.id).
			Int("total_clients", total).
			Msg("websocket client disconnected")
	}
}

// Serve delivers broadcasts until ctx is cancelled, then closes every client. It
// implements suture.Service.
//
// Shutdown is checked before each broadcast so a cancelled hub stops promptly even
// with a full queue.
func (h *Hub) Serve(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			h.logGracefulShutdown(ctx)
			return ctx.Err()
		default:
		}

		select {
		case <-ctx.Done():
			h.logGracefulShutdown(ctx)
			return ctx.Err()
		case b := <-h.broadcast:
			h.broadcastToClients(b)
		}
	}
}

// String names the service in supervisor logs.
func (h *Hub) String() string {
	return "websocket-hub"
}

// logGracefulShutdown closes all clients and logs the shutdown. ctx.Err() is not
// logged as an error because cancellation is the normal shutdown path.
func (h *Hub) logGracefulShutdown(ctx context.Context) {
	clientCount := h.GetClientCount()
	h.closeAllClients()

	logging.Info().
		Str("component", "websocket-hub").
		Str("reason", string(getShutdownReason(ctx))).
		Int("clients_closed", clientCount).
		Msg("websocket hub stopped")
}

// getShutdownReason determines the shutdown reason from the context error.
func getShutdownReason(ctx context.Context) ShutdownReason {
	switch ctx.Err() {
	case context.DeadlineExceeded:
		return ShutdownReasonContextDeadline
	default:
		return ShutdownReasonContextCanceled
	}
}

// sortedClients returns clients in ID order. Caller holds h.mu.
func (h *Hub) sortedClients() []*Client {
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	sort.Slice(clients, func(i, j int) bool {
		return clients[i].id < clients[j].id
	})
	return clients
}

// broadcastToClients delivers b in client ID order. Clients whose buffer is full are
// disconnected.
func (h *Hub) broadcastToClients(b broadcast) {
	h.mu.RLock()
	clients := h.sortedClients()
	h.mu.RUnlock()

	for _, client := range clients {
		if b.sceneID != AllScenes && client.sceneID != b.sceneID {
			continue
		}
		if b.except != 0 && client.id == b.except {
			continue
		}
		if err := client.enqueue(b.msg); err != nil {
			logging.Warn().
				Err(err).
				Uint64("client_id", client.id).
				Str("message_type", b.msg.Type).
				Msg("dropping slow websocket client")
			h.remove(client)
		}
	}
}

// closeAllClients closes every connected client in ID order.
func (h *Hub) closeAllClients() {
	h.mu.Lock()
	clients := h.sortedClients()
	h.mu.Unlock()

	for _, client := range clients {
		h.remove(client)
	}
}

func (h *Hub) queue(b broadcast) {
	select {
	case h.broadcast <- b:
	default:
		logging.Warn().Str("message_type", b.msg.Type).Msg("broadcast channel full, dropping message")
	}
}

// BroadcastJSON sends a message to all connected clients
func (h *Hub) BroadcastJSON(messageType string, data interface{}) {
	h.queue(broadcast{msg: Message{Type: messageType, Data: data}})
}

// BroadcastSceneUpdated tells every other client editing sceneID to reload it.
// origin may be nil.
func (h *Hub) BroadcastSceneUpdated(sceneID int64, origin *Client) {
	b := broadcast{
		msg:     Message{Type: MessageTypeSceneUpdated, Data: SceneUpdatedData{SceneID: sceneID}},
		sceneID: sceneID,
	}
	if origin != nil {
		b.except = origin.id
	}
	h.queue(b)
	logging.Debug().Int64("scene_id", sceneID).Msg("broadcast scene_updated")
}

// GetClientCount returns the number of connected clients
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// SceneClientCount returns the number of clients editing sceneID.
func (h *Hub) SceneClientCount(sceneID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for c := range h.clients {
		if c.sceneID == sceneID {
			n++
		}
	}
	return n
}
