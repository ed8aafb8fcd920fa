// Vtour - 360° Virtual Tour Content Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vtour

package websocket

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tomtom215/vtour/internal/logging"
	"github.com/tomtom215/vtour/internal/metrics"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512 * 1024 // 512 KB
	sendBufferSize = 256
)

var (
	// ErrClientClosed is returned by Send after the connection has closed.
	ErrClientClosed = errors.New("websocket client closed")

	// ErrSendBufferFull is returned by Send when the browser is not reading.
	ErrSendBufferFull = errors.New("websocket send buffer full")
)

// clientIDCounter generates unique, monotonically increasing IDs for clients.
var clientIDCounter atomic.Uint64

// Handler receives a client's inbound messages, one at a time and in order.
type Handler interface {
	HandleMessage(ctx context.Context, msg Inbound)
	// Close is called once after the connection has gone away.
	Close()
}

// Client is a middleman between the websocket connection and the hub
type Client struct {
	id      uint64
	hub     *Hub
	conn    *websocket.Conn
	sceneID int64
	send    chan Message
	handler Handler

	mu     sync.Mutex
	closed bool
	done   chan struct{}
}

// NewClient creates a client for a connection editing sceneID.
func NewClient(hub *Hub, conn *websocket.Conn, sceneID int64) *Client {
	return &Client{
		id:      clientIDCounter.Add(1),
		hub:     hub,
		conn:    conn,
		sceneID: sceneID,
		send:    make(chan Message, sendBufferSize),
		done:    make(chan struct{}),
	}
}

// ID returns the client's unique identifier
func (c *Client) ID() uint64 {
	return c.id
}

// SceneID returns the scene the client edits.
func (c *Client) SceneID() int64 {
	return c.sceneID
}

// SetHandler sets the receiver of inbound messages. Call before Run.
func (c *Client) SetHandler(h Handler) {
	c.handler = h
}

// Done is closed once the client has been closed.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Send queues a message for the browser without blocking. It implements
// viewport.Sender.
func (c *Client) Send(msgType string, data any) error {
	return c.enqueue(Message{Type: msgType, Data: data})
}

func (c *Client) enqueue(msg Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClientClosed
	}
	select {
	case c.send <- msg:
		return nil
	default:
		metrics.WSErrors.WithLabelValues("send_buffer_full").Inc()
		return ErrSendBufferFull
	}
}

// close stops the write pump. Safe to call more than once.
func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
	close(c.done)
}

// Run registers the client with the hub and serves the connection until it closes.
// Inbound messages are handled with ctx, which the caller should keep alive for the
// lifetime of the connection.
func (c *Client) Run(ctx context.Context) {
	c.hub.add(c)
	go c.writePump()
	c.readPump(ctx)
}

// readPump pumps messages from the websocket connection to the handler
func (c *Client) readPump(ctx context.Context) {
	defer func() {
		c.hub.remove(c)
		_ = c.conn.Close() // Explicitly ignore error - best-effort cleanup
		if c.handler != nil {
			c.handler.Close()
		}
	}()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		logging.Error().Err(err).Msg("failed to set read deadline")
		return
	}

	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				metrics.WSErrors.WithLabelValues("unexpected_close").Inc()
				logging.Error().Err(err).Msg("unexpected websocket close error")
			}
			return
		}
		metrics.WSMessagesReceived.Inc()

		msg, err := DecodeInbound(raw)
		if err != nil || msg.Type == "" {
			metrics.WSErrors.WithLabelValues("decode").Inc()
			logging.Ctx(ctx).Warn().Err(err).Int("bytes", len(raw)).Msg("Dropping malformed websocket message")
			continue
		}

		if msg.Type == MessageTypePing {
			_ = c.enqueue(Message{Type: MessageTypePong})
			continue
		}
		logging.Trace().Str("message_type", msg.Type).Int("bytes", len(raw)).Msg("websocket message received")
		if c.handler != nil {
			c.handler.HandleMessage(ctx, msg)
		}
	}
}

// writePump pumps queued messages to the websocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close() // Explicitly ignore error - best-effort cleanup
	}()

	for {
		select {
		case message, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				logging.Error().Err(err).Msg("failed to set write deadline")
				return
			}

			if !ok {
				// The client was closed
				if err := c.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
					logging.Debug().Err(err).Msg("failed to write close message")
				}
				return
			}

			data, err := MarshalMessage(message)
			if err != nil {
				metrics.WSErrors.WithLabelValues("encode").Inc()
				logging.Error().Err(err).Str("message_type", message.Type).Msg("failed to encode websocket message")
				continue
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				metrics.WSErrors.WithLabelValues("write").Inc()
				logging.Error().Err(err).Msg("failed to write websocket message")
				return
			}
			metrics.WSMessagesSent.Inc()

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				logging.Error().Err(err).Msg("failed to set write deadline for ping")
				return
			}

			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
