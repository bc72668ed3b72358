package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"factory-tracker/internal/events"
	"factory-tracker/internal/metrics"
	"factory-tracker/internal/tracker"

	"go.uber.org/zap"
)

// OutgoingMessage is the frame written to every socket
type OutgoingMessage struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// Hub maintains active WebSocket connections. It is the admin room's
// subscriber on the broadcaster; driver rooms are subscribed per client.
type Hub struct {
	// Connected clients
	clients map[*Client]struct{}

	// Register requests from clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	// Closed when Run returns
	done chan struct{}

	broadcaster *events.Broadcaster
	registry    *tracker.Registry
	log         *zap.Logger

	mu sync.RWMutex
}

// NewHub creates a new Hub instance
func NewHub(broadcaster *events.Broadcaster, registry *tracker.Registry, log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		clients:     make(map[*Client]struct{}),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		done:        make(chan struct{}),
		broadcaster: broadcaster,
		registry:    registry,
		log:         log,
	}
}

// Run starts the hub's main loop and closes every client when ctx ends
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = struct{}{}
			total := len(h.clients)
			h.mu.Unlock()
			metrics.WebsocketClients.Inc()
			h.log.Info("✅ websocket client connected",
				zap.String("remote", client.remoteAddr),
				zap.Int("clients", total),
			)

		case client := <-h.unregister:
			h.removeClient(client)

		case <-ctx.Done():
			h.mu.RLock()
			clients := make([]*Client, 0, len(h.clients))
			for c := range h.clients {
				clients = append(clients, c)
			}
			h.mu.RUnlock()

			for _, c := range clients {
				h.removeClient(c)
			}
			return
		}
	}
}

// Register hands a new client to the hub. It reports false once the hub has stopped.
func (h *Hub) Register(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

// Unregister removes a client; safe to call after the hub has stopped
func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
		h.removeClient(c)
	}
}

func (h *Hub) Name() string { return "websocket-admin" }

// Deliver implements events.Subscriber for the admin room. A client whose
// send buffer is full is disconnected rather than allowed to fall behind.
func (h *Hub) Deliver(_ context.Context, e events.Event) error {
	data, err := encodeEvent(e)
	if err != nil {
		return err
	}

	var slow []*Client
	h.mu.RLock()
	for c := range h.clients {
		if !c.isAdmin() {
			continue
		}
		if !c.enqueue(data) {
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.log.Warn("⚠️ client buffer full, disconnecting", zap.String("remote", c.remoteAddr))
		h.removeClient(c)
	}
	return nil
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// AdminCount returns the number of clients in the admin room
func (h *Hub) AdminCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for c := range h.clients {
		if c.isAdmin() {
			n++
		}
	}
	return n
}

func (h *Hub) removeClient(c *Client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		delete(h.clients, c)
	}
	remaining := len(h.clients)
	h.mu.Unlock()

	if !ok {
		return
	}
	c.closeSend()
	metrics.WebsocketClients.Dec()
	h.log.Info("🔴 websocket client disconnected",
		zap.String("remote", c.remoteAddr),
		zap.Int("clients", remaining),
	)
}

func encodeEvent(e events.Event) ([]byte, error) {
	return json.Marshal(OutgoingMessage{
		Type:      string(e.Type),
		Data:      e.Data,
		Timestamp: e.Timestamp,
	})
}
