package websocket

import (
	"encoding/json"
	"log/slog"
	"sync"
)

// Message is a real-time update pushed to connected clients: entity change
// broadcasts for calendar/task sync, and notification events for the in-app
// badge.
type Message struct {
	Type   string         `json:"type"`
	Entity string         `json:"entity"`
	Action string         `json:"action"`
	ID     int64          `json:"id,omitempty"`
	UserID int64          `json:"user_id,omitempty"`
	Extra  map[string]any `json:"extra,omitempty"`
}

// Hub maintains the set of active WebSocket clients and routes messages to
// them. Clients identify a user on connect; user-scoped messages only go to
// that user's connections.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	logger  *slog.Logger
}

// NewHub creates a new Hub.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
		logger:  logger,
	}
}

// Register adds a client to the hub.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

// Unregister removes a client from the hub and closes its send channel.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// Broadcast sends a message to all connected clients.
func (h *Hub) Broadcast(msg Message) {
	h.send(msg, 0)
}

// SendToUser sends a message to every connection belonging to one user.
func (h *Hub) SendToUser(userID int64, msg Message) {
	h.send(msg, userID)
}

func (h *Hub) send(msg Message, userID int64) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("marshal message", "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients {
		if userID != 0 && c.userID != userID {
			continue
		}
		select {
		case c.send <- data:
		default:
			// Client buffer full — drop message to avoid blocking
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
