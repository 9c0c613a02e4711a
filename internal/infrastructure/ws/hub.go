package ws

import (
	"context"
	"fmt"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/hilthontt/teamrelay/internal/domain"
	"github.com/hilthontt/teamrelay/internal/infrastructure/metrics"
)

// Hub indexes this node's open sockets by connection id and acts as the push
// channel for broadcasts. A connection registered on another node is gone
// from this hub's point of view.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]*Client),
	}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, exists := h.clients[c.ID]; !exists {
		metrics.WebSocketConnectionsCurrent.Inc()
	}
	h.clients[c.ID] = c
}

func (h *Hub) Unregister(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[id]; ok {
		delete(h.clients, id)
		metrics.WebSocketConnectionsCurrent.Dec()
	}
}

func (h *Hub) Get(id string) (*Client, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	c, ok := h.clients[id]
	return c, ok
}

func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Push writes payload to one socket. Unknown ids and closed sockets report
// domain.ErrGone; any other write failure is returned as is.
func (h *Hub) Push(_ context.Context, connectionID string, payload []byte) error {
	c, ok := h.Get(connectionID)
	if !ok {
		return fmt.Errorf("connection %s: %w", connectionID, domain.ErrGone)
	}

	if err := c.Send(payload); err != nil {
		if isGone(err) {
			h.Unregister(connectionID)
			return fmt.Errorf("connection %s: %w", connectionID, domain.ErrGone)
		}
		return fmt.Errorf("push to %s: %w", connectionID, err)
	}

	return nil
}

// CloseAll closes every socket, used on shutdown.
func (h *Hub) CloseAll() {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		_ = c.CloseWith(websocket.CloseGoingAway, "server shutting down")
	}
}
