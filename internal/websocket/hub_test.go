// Vtour - 360° Virtual Tour Content Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vtour

package websocket

import (
	"context"
	"errors"
	"testing"
	"time"
)

// createTestClient creates a client without a connection. add, remove and enqueue
// never touch the connection.
func createTestClient(hub *Hub, sceneID int64) *Client {
	return NewClient(hub, nil, sceneID)
}

// startHub runs the hub until the test ends.
func startHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = hub.Serve(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return hub
}

// receive waits for the next message on c.
func receive(t *testing.T, c *Client) (Message, bool) {
	t.Helper()
	select {
	case msg, ok := <-c.send:
		return msg, ok
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
		return Message{}, false
	}
}

// assertNoMessage fails if c receives anything within a short window.
func assertNoMessage(t *testing.T, c *Client) {
	t.Helper()
	select {
	case msg := <-c.send:
		t.Errorf("client %d got unexpected %q", c.id, msg.Type)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHub_AddRemove(t *testing.T) {
	t.Parallel()
	hub := NewHub()

	a := createTestClient(hub, 4)
	b := createTestClient(hub, 9)
	hub.add(a)
	hub.add(b)

	if got := hub.GetClientCount(); got != 2 {
		t.Errorf("GetClientCount() = %d, want 2", got)
	}
	if got := hub.SceneClientCount(4); got != 1 {
		t.Errorf("SceneClientCount(4) = %d, want 1", got)
	}

	hub.remove(a)
	hub.remove(a) // second remove is a no-op
	if got := hub.GetClientCount(); got != 1 {
		t.Errorf("GetClientCount() = %d, want 1", got)
	}
	if err := a.Send("toast", nil); !errors.Is(err, ErrClientClosed) {
		t.Errorf("Send() after remove = %v, want ErrClientClosed", err)
	}
	select {
	case <-a.Done():
	default:
		t.Error("Done() not closed after remove")
	}
}

func TestHub_BroadcastSceneUpdated(t *testing.T) {
	t.Parallel()
	hub := startHub(t)

	origin := createTestClient(hub, 4)
	peer := createTestClient(hub, 4)
	other := createTestClient(hub, 9)
	for _, c := range []*Client{origin, peer, other} {
		hub.add(c)
	}

	hub.BroadcastSceneUpdated(4, origin)

	msg, _ := receive(t, peer)
	if msg.Type != MessageTypeSceneUpdated {
		t.Fatalf("peer got %q", msg.Type)
	}
	if data, ok := msg.Data.(SceneUpdatedData); !ok || data.SceneID != 4 {
		t.Errorf("data = %#v", msg.Data)
	}
	assertNoMessage(t, origin)
	assertNoMessage(t, other)
}

func TestHub_BroadcastJSONReachesEveryone(t *testing.T) {
	t.Parallel()
	hub := startHub(t)

	clients := []*Client{createTestClient(hub, 1), createTestClient(hub, 2), createTestClient(hub, 3)}
	for _, c := range clients {
		hub.add(c)
	}

	hub.BroadcastJSON("toast", map[string]string{"message": "maintenance"})

	for _, c := range clients {
		if msg, _ := receive(t, c); msg.Type != "toast" {
			t.Errorf("client %d got %q", c.id, msg.Type)
		}
	}
}

func TestHub_BroadcastDropsSlowClient(t *testing.T) {
	t.Parallel()
	hub := NewHub()

	slow := createTestClient(hub, 1)
	hub.add(slow)
	for i := 0; i < sendBufferSize; i++ {
		if err := slow.Send("fill", i); err != nil {
			t.Fatalf("fill %d: %v", i, err)
		}
	}
	if err := slow.Send("overflow", nil); !errors.Is(err, ErrSendBufferFull) {
		t.Fatalf("Send() = %v, want ErrSendBufferFull", err)
	}

	hub.broadcastToClients(broadcast{msg: Message{Type: "toast"}})

	if hub.GetClientCount() != 0 {
		t.Error("slow client not removed")
	}
}

func TestHub_ServeClosesClientsOnShutdown(t *testing.T) {
	t.Parallel()
	hub := NewHub()
	c := createTestClient(hub, 1)
	hub.add(c)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- hub.Serve(ctx) }()
	cancel()

	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve() = %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Serve() did not return")
	}
	if hub.GetClientCount() != 0 {
		t.Error("clients still registered after shutdown")
	}
	if _, ok := <-c.send; ok {
		t.Error("send channel still open")
	}
}

func TestGetShutdownReason(t *testing.T) {
	t.Parallel()

	canceled, cancel := context.WithCancel(context.Background())
	cancel()
	expired, cancel2 := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel2()

	tests := []struct {
		name string
		ctx  context.Context
		want ShutdownReason
	}{
		{"canceled", canceled, ShutdownReasonContextCanceled},
		{"deadline", expired, ShutdownReasonContextDeadline},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := getShutdownReason(tt.ctx); got != tt.want {
				t.Errorf("getShutdownReason() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMarshalMessage(t *testing.T) {
	t.Parallel()

	b, err := MarshalMessage(Message{Type: MessageTypeSceneUpdated, Data: SceneUpdatedData{SceneID: 7}})
	if err != nil {
		t.Fatalf("MarshalMessage() error = %v", err)
	}
	if string(b) != `{"type":"scene_updated","data":{"scene_id":7}}` {
		t.Errorf("MarshalMessage() = %s", b)
	}

	in, err := DecodeInbound([]byte(`{"type":"ui.drag_move","data":{"x_percent":12.5}}`))
	if err != nil || in.Type != "ui.drag_move" || string(in.Data) != `{"x_percent":12.5}` {
		t.Errorf("DecodeInbound() = %+v, %v", in, err)
	}
}
