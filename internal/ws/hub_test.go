package ws

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/facegate/internal/domain"
	"github.com/saturnino-fabrica-de-software/facegate/internal/session"
)

func runHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)
	return hub
}

func newClient(hub *Hub, sessionID uuid.UUID, previews bool) *Client {
	return &Client{
		hub:       hub,
		sessionID: sessionID,
		previews:  previews,
		send:      make(chan []byte, 10),
	}
}

func receive(t *testing.T, c *Client) Event {
	t.Helper()
	select {
	case msg := <-c.send:
		var event Event
		require.NoError(t, json.Unmarshal(msg, &event))
		return event
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
		return Event{}
	}
}

func assertSilent(t *testing.T, c *Client) {
	t.Helper()
	select {
	case msg := <-c.send:
		t.Fatalf("unexpected message: %s", msg)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestHub_AddAndRemoveClient(t *testing.T) {
	hub := runHub(t)
	sessionID := uuid.New()
	client := newClient(hub, sessionID, false)

	hub.register <- client
	assert.Eventually(t, func() bool { return hub.Watchers(sessionID) == 1 }, time.Second, 10*time.Millisecond)

	hub.unregister <- client
	assert.Eventually(t, func() bool { return hub.Watchers(sessionID) == 0 }, time.Second, 10*time.Millisecond)

	_, open := <-client.send
	assert.False(t, open)
}

func TestHub_OnStatus(t *testing.T) {
	hub := runHub(t)
	sessionID := uuid.New()
	client := newClient(hub, sessionID, false)
	hub.register <- client

	hub.OnStatus(domain.Status{SessionID: sessionID, State: domain.StateDwelling})

	event := receive(t, client)
	assert.Equal(t, EventSessionStatus, event.Type)
	assert.Equal(t, sessionID, event.SessionID)
	data, ok := event.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "dwelling", data["state"])
}

func TestHub_SessionIsolation(t *testing.T) {
	hub := runHub(t)
	session1, session2 := uuid.New(), uuid.New()

	watcher1 := newClient(hub, session1, false)
	watcher2 := newClient(hub, session2, false)
	everything := newClient(hub, uuid.Nil, false)
	hub.register <- watcher1
	hub.register <- watcher2
	hub.register <- everything

	hub.OnStatus(domain.Status{SessionID: session1, State: domain.StateAwaitingFace})

	assert.Equal(t, session1, receive(t, watcher1).SessionID)
	assert.Equal(t, session1, receive(t, everything).SessionID)
	assertSilent(t, watcher2)
}

func TestHub_PreviewsOnlyWhenRequested(t *testing.T) {
	hub := runHub(t)
	sessionID := uuid.New()

	plain := newClient(hub, sessionID, false)
	viewer := newClient(hub, sessionID, true)
	hub.register <- plain
	hub.register <- viewer

	hub.OnPreview(session.Preview{SessionID: sessionID, Seq: 7, State: domain.StateDwelling, JPEG: []byte{0xff, 0xd8}})

	event := receive(t, viewer)
	assert.Equal(t, EventSessionPreview, event.Type)
	data := event.Data.(map[string]interface{})
	assert.Equal(t, float64(7), data["seq"])
	assert.Equal(t, "/9g=", data["jpeg"])
	assertSilent(t, plain)
}

func TestHub_DropsSlowClient(t *testing.T) {
	hub := runHub(t)
	sessionID := uuid.New()
	slow := &Client{hub: hub, sessionID: sessionID, send: make(chan []byte)}
	hub.register <- slow

	hub.OnStatus(domain.Status{SessionID: sessionID, State: domain.StateDwelling})

	assert.Eventually(t, func() bool { return hub.Watchers(sessionID) == 0 }, time.Second, 10*time.Millisecond)
}

func TestHub_RunClosesClientsOnShutdown(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(done)
	}()

	client := newClient(hub, uuid.Nil, false)
	hub.register <- client
	cancel()
	<-done

	_, open := <-client.send
	assert.False(t, open)
}

func TestHub_LeaveAfterStopDoesNotBlock(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(done)
	}()
	cancel()
	<-done

	left := make(chan struct{})
	go func() {
		hub.leave(newClient(hub, uuid.Nil, false))
		close(left)
	}()

	select {
	case <-left:
	case <-time.After(time.Second):
		t.Fatal("leave blocked on a stopped hub")
	}
}

func TestHub_PublishNeverBlocks(t *testing.T) {
	hub := NewHub()
	sessionID := uuid.New()

	// sem Run: o buffer enche e o excedente é descartado
	for i := 0; i < cap(hub.broadcast)+10; i++ {
		hub.OnStatus(domain.Status{SessionID: sessionID, State: domain.StateAwaitingFace})
	}
	assert.Len(t, hub.broadcast, cap(hub.broadcast))
}
