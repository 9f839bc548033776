package ws

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/facegate/internal/domain"
	"github.com/saturnino-fabrica-de-software/facegate/internal/session"
)

// Hub fans session events out to websocket clients. Only the Run
// goroutine mutates the client set; Publish never blocks the sessions.
type Hub struct {
	register   chan *Client
	unregister chan *Client
	broadcast  chan Event
	stopped    chan struct{}

	// mu protege clients para leituras fora do Run (Watchers)
	mu      sync.RWMutex
	clients map[*Client]struct{}
}

var _ session.Observer = (*Hub)(nil)

func NewHub() *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan Event, 256),
		stopped:    make(chan struct{}),
		clients:    make(map[*Client]struct{}),
	}
}

// Run serves registrations and events until ctx is done, then closes
// every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.stopped)

	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for c := range h.clients {
				h.drop(c)
			}
			h.mu.Unlock()
			return

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = struct{}{}
			h.mu.Unlock()

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				h.drop(c)
			}
			h.mu.Unlock()

		case event := <-h.broadcast:
			h.fanOut(event)
		}
	}
}

// drop must run with mu held
func (h *Hub) drop(c *Client) {
	delete(h.clients, c)
	close(c.send)
}

func (h *Hub) fanOut(event Event) {
	msg, err := json.Marshal(event)
	if err != nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		if !c.wants(event) {
			continue
		}
		select {
		case c.send <- msg:
		default:
			// quem não acompanha o ritmo sai
			h.drop(c)
		}
	}
}

// leave unregisters c unless the hub already stopped
func (h *Hub) leave(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.stopped:
	}
}

// Publish queues an event; it is dropped when the hub is saturated
func (h *Hub) Publish(sessionID uuid.UUID, eventType EventType, data any) {
	select {
	case h.broadcast <- Event{SessionID: sessionID, Type: eventType, Data: data, Timestamp: time.Now().UTC()}:
	default:
	}
}

func (h *Hub) OnStatus(status domain.Status) {
	h.Publish(status.SessionID, EventSessionStatus, status)
}

func (h *Hub) OnPreview(preview session.Preview) {
	h.Publish(preview.SessionID, EventSessionPreview, PreviewData{
		Seq:   preview.Seq,
		State: string(preview.State),
		JPEG:  preview.JPEG,
	})
}

// Watchers counts clients following sessionID, including those that
// follow every session
func (h *Hub) Watchers(sessionID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	n := 0
	for c := range h.clients {
		if c.sessionID == uuid.Nil || c.sessionID == sessionID {
			n++
		}
	}
	return n
}
