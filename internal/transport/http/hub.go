package http

import (
	"sync"

	"qr-hunt-service/internal/app"
)

// Hub implements app.Broadcaster over the connected websocket sessions.
// Every session receives global events; team-scoped events only reach
// sessions that joined that team's room. Delivery is fire-and-forget: a
// slow or dead client gets stale events dropped, never blocking the
// engine.
type Hub struct {
	mu      sync.RWMutex
	clients map[*client]struct{}
	rooms   map[string]map[*client]struct{}
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[*client]struct{}),
		rooms:   make(map[string]map[*client]struct{}),
	}
}

func (h *Hub) ToAll(event app.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		c.deliver(event)
	}
}

func (h *Hub) ToTeam(teamID string, event app.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.rooms[teamID] {
		c.deliver(event)
	}
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
}

// join subscribes a session to a team room; joining twice is a no-op.
func (h *Hub) join(c *client, teamID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	room, ok := h.rooms[teamID]
	if !ok {
		room = make(map[*client]struct{})
		h.rooms[teamID] = room
	}
	room[c] = struct{}{}
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	for teamID, room := range h.rooms {
		delete(room, c)
		if len(room) == 0 {
			delete(h.rooms, teamID)
		}
	}
	close(c.send)
}

type client struct {
	send chan app.Event
}

// deliver queues an event without ever blocking; when the buffer is
// full the oldest queued event is dropped first. Clients that miss
// events recover through the pull endpoints.
func (c *client) deliver(event app.Event) {
	select {
	case c.send <- event:
	default:
		select {
		case <-c.send:
		default:
		}
		select {
		case c.send <- event:
		default:
		}
	}
}
