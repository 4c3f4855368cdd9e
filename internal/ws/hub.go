package ws

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/lunchvote/api/internal/state"
)

// Event represents a WebSocket message to be broadcast
type Event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Event types pushed to connected pages.
const (
	EventStateChanged = "state_changed"
	EventPhaseChanged = "phase_changed"
)

// Hub maintains the set of active clients and broadcasts messages to them.
// One deployment is one session, so there is a single room.
type Hub struct {
	clients map[*Client]bool

	register   chan *Client
	unregister chan *Client
	broadcast  chan Event

	mu sync.Mutex
}

// NewHub creates a new Hub instance
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan Event, 256),
	}
}

// Run starts the hub's main loop
// This should be called as a goroutine: go hub.Run()
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()

		case event := <-h.broadcast:
			message, err := json.Marshal(event)
			if err != nil {
				continue
			}
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// Client's send buffer is full, close and unregister
					close(client.send)
					delete(h.clients, client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Broadcast sends an event to every connected client.
func (h *Hub) Broadcast(event Event) {
	h.broadcast <- event
}

// Bind subscribes the hub to the engine's notification bus, translating
// state and phase events into WebSocket broadcasts.
func (h *Hub) Bind(bus *state.Bus) {
	bus.SubscribeState(func(snap *state.Snapshot) {
		payload, err := json.Marshal(snap)
		if err != nil {
			log.Printf("ERROR: marshal snapshot event: %v", err)
			return
		}
		h.Broadcast(Event{Type: EventStateChanged, Payload: payload})
	})
	bus.SubscribePhase(func(info state.PhaseInfo) {
		payload, err := json.Marshal(info)
		if err != nil {
			log.Printf("ERROR: marshal phase event: %v", err)
			return
		}
		h.Broadcast(Event{Type: EventPhaseChanged, Payload: payload})
	})
}
