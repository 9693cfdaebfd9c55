package notifications

import (
	"context"
	"errors"
	"sync"

	"verses/internal/observability"

	"github.com/gofiber/websocket/v2"
)

const (
	maxConnsPerUser = 8
	maxTotalConns   = 10000
)

var (
	// ErrHubFull is returned when the instance-wide connection cap is reached.
	ErrHubFull = errors.New("server connection limit reached")
	// ErrUserLimit is returned when one user holds too many connections.
	ErrUserLimit = errors.New("user connection limit reached")
	// ErrHubClosed is returned by Register after Shutdown.
	ErrHubClosed = errors.New("hub is shut down")
)

// Hub tracks feed subscribers on this instance. Anonymous clients are
// capped only by the instance-wide limit.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	perUser map[string]int
	closed  bool
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
		perUser: make(map[string]int),
	}
}

// Name returns a human-readable identifier for this hub.
func (h *Hub) Name() string { return "feed hub" }

// Register adds a connection for userID ("" for anonymous).
func (h *Hub) Register(userID string, conn *websocket.Conn) (*Client, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, ErrHubClosed
	}
	if len(h.clients) >= maxTotalConns {
		return nil, ErrHubFull
	}
	if userID != "" && h.perUser[userID] >= maxConnsPerUser {
		return nil, ErrUserLimit
	}

	client := NewClient(h, conn, userID)
	h.clients[client] = struct{}{}
	if userID != "" {
		h.perUser[userID]++
	}
	observability.WebSocketConnections.Inc()
	return client, nil
}

// UnregisterClient removes client and closes its send channel. Safe to call twice.
func (h *Hub) UnregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	if client.UserID != "" {
		h.perUser[client.UserID]--
		if h.perUser[client.UserID] <= 0 {
			delete(h.perUser, client.UserID)
		}
	}
	close(client.Send)
	observability.WebSocketConnections.Dec()
}

// BroadcastAll sends message to every connected client.
func (h *Hub) BroadcastAll(message string) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	data := []byte(message)
	for c := range h.clients {
		c.TrySend(data)
	}
}

// Count returns the number of connected clients.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// StartWiring forwards every event published on FeedChannel by any
// instance to this hub's clients.
func (h *Hub) StartWiring(ctx context.Context, n *Notifier) error {
	return n.StartFeedSubscriber(ctx, h.BroadcastAll)
}

// Shutdown closes every send channel; each client's WritePump then sends
// the close frame itself, so the connection keeps a single writer.
func (h *Hub) Shutdown(_ context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil
	}
	h.closed = true

	for client := range h.clients {
		close(client.Send)
		observability.WebSocketConnections.Dec()
	}
	h.clients = make(map[*Client]struct{})
	h.perUser = make(map[string]int)
	return nil
}
