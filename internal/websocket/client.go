package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"factory-tracker/internal/events"
	"factory-tracker/internal/metrics"
	"factory-tracker/internal/models"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 2048

	sendBufferSize = 256
)

// IncomingMessage represents a message from the client
type IncomingMessage struct {
	Type      string          `json:"type"`
	Timestamp string          `json:"timestamp,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
}

type joinDriverData struct {
	DriverID string `json:"driver_id"`
}

type locationUpdateData struct {
	DriverID string   `json:"driver_id"`
	Lat      *float64 `json:"lat"`
	Lng      *float64 `json:"lng"`
}

// Client represents a WebSocket client connection
type Client struct {
	hub        *Hub
	conn       *websocket.Conn
	send       chan []byte
	remoteAddr string

	mu          sync.Mutex
	admin       bool
	driverID    string
	unsubscribe func()
	closed      bool
}

// NewClient creates a new WebSocket client
func NewClient(hub *Hub, conn *websocket.Conn) *Client {
	c := &Client{
		hub:  hub,
		conn: conn,
		send: make(chan []byte, sendBufferSize),
	}
	if conn != nil {
		c.remoteAddr = conn.RemoteAddr().String()
	}
	return c
}

// ReadPump pumps messages from the WebSocket connection to the hub
func (c *Client) ReadPump() {
	defer func() {
		c.leaveDriverRoom()
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.Warn("⚠️ websocket read error", zap.String("remote", c.remoteAddr), zap.Error(err))
			}
			break
		}

		c.handleMessage(message)
	}
}

// WritePump pumps messages from the hub to the WebSocket connection
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) handleMessage(raw []byte) {
	var msg IncomingMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		c.reply("error", map[string]string{"error": "invalid message format"})
		return
	}

	switch msg.Type {
	case "ping":
		c.reply("pong", nil)

	case "join_admin":
		c.joinAdmin()
		c.reply("joined", map[string]string{"room": events.AdminChannel})

	case "join_driver":
		var data joinDriverData
		if err := json.Unmarshal(msg.Data, &data); err != nil || data.DriverID == "" {
			c.reply("error", map[string]string{"error": "driver_id is required"})
			return
		}
		if err := c.JoinDriverRoom(data.DriverID); err != nil {
			c.reply("error", map[string]string{"error": err.Error()})
			return
		}
		c.reply("joined", map[string]string{"room": events.DriverChannel(data.DriverID)})

	case "location_update":
		c.handleLocationUpdate(msg.Data)

	default:
		c.reply("error", map[string]string{"error": "unknown message type: " + msg.Type})
	}
}

// handleLocationUpdate feeds a socket ping into the same ingest path as REST
func (c *Client) handleLocationUpdate(raw json.RawMessage) {
	var data locationUpdateData
	if err := json.Unmarshal(raw, &data); err != nil {
		metrics.ObserveLocationReport("websocket", err)
		c.reply("error", map[string]string{"error": "invalid location_update payload"})
		return
	}

	driverID := data.DriverID
	if driverID == "" {
		driverID = c.currentDriverID()
	}
	if data.Lat == nil || data.Lng == nil {
		err := errors.New("lat and lng are required")
		metrics.ObserveLocationReport("websocket", err)
		c.reply("error", map[string]string{"error": err.Error()})
		return
	}

	res, err := c.hub.registry.ReportLocation(driverID, models.Location{Latitude: *data.Lat, Longitude: *data.Lng})
	metrics.ObserveLocationReport("websocket", err)
	if err != nil {
		c.reply("error", map[string]string{"error": err.Error()})
		return
	}

	c.reply("location_ack", map[string]interface{}{
		"driverId":          driverID,
		"distanceToFactory": res.DistanceToFactory,
		"etaMinutes":        res.EtaMinutes,
	})
}

func (c *Client) joinAdmin() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.admin = true
}

func (c *Client) isAdmin() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.admin
}

func (c *Client) currentDriverID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.driverID
}

// JoinDriverRoom subscribes the client to one driver's events, leaving any
// driver room it was in before
func (c *Client) JoinDriverRoom(driverID string) error {
	c.leaveDriverRoom()

	unsubscribe, err := c.hub.broadcaster.Subscribe(events.DriverChannel(driverID), &driverRoom{client: c, driverID: driverID})
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.driverID = driverID
	c.unsubscribe = unsubscribe
	c.mu.Unlock()
	return nil
}

func (c *Client) leaveDriverRoom() {
	c.mu.Lock()
	unsubscribe := c.unsubscribe
	c.unsubscribe = nil
	c.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
}

// enqueue queues a frame without blocking. It reports false when the
// buffer is full; a closed client silently discards.
func (c *Client) enqueue(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return true
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

func (c *Client) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

func (c *Client) reply(msgType string, data interface{}) {
	frame, err := json.Marshal(OutgoingMessage{Type: msgType, Data: data, Timestamp: time.Now()})
	if err != nil {
		c.hub.log.Error("❌ failed to marshal reply", zap.Error(err))
		return
	}
	if !c.enqueue(frame) {
		c.hub.removeClient(c)
	}
}

// driverRoom forwards one driver's events to a single client
type driverRoom struct {
	client   *Client
	driverID string
}

func (d *driverRoom) Name() string { return "websocket-driver:" + d.driverID }

func (d *driverRoom) Deliver(_ context.Context, e events.Event) error {
	data, err := encodeEvent(e)
	if err != nil {
		return err
	}
	if !d.client.enqueue(data) {
		d.client.hub.log.Warn("⚠️ client buffer full, disconnecting", zap.String("driver_id", d.driverID))
		d.client.hub.removeClient(d.client)
	}
	return nil
}
