// Package events pushes milestone notifications to a user's connected websocket clients.
package events

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/cppla/quitmate/utils"
)

const (
	writeWait = 5 * time.Second
	// sendBuffer is how many events may queue for a session before it is dropped as too slow.
	sendBuffer = 16
)

// Message is the envelope written to clients.
type Message struct {
	Type      string      `json:"type"`
	UserID    string      `json:"user_id"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data,omitempty"`
}

// Conn is the subset of *websocket.Conn the hub writes through.
type Conn interface {
	SetWriteDeadline(t time.Time) error
	WriteJSON(v interface{}) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
	Close() error
}

// Client is one websocket session of a user. Events reach it through a buffered
// queue drained by its own write goroutine, so publishers never wait on the network.
type Client struct {
	Conn      Conn
	UserID    string
	send      chan Message
	writeMu   sync.Mutex
	closeOnce sync.Once
}

// NewClient wraps conn for userID.
func NewClient(conn Conn, userID string) *Client {
	return &Client{Conn: conn, UserID: userID, send: make(chan Message, sendBuffer)}
}

// SafeWriteJSON serialises writes to the client's connection.
func (c *Client) SafeWriteJSON(v interface{}) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.Conn.WriteJSON(v)
}

func (c *Client) closeSend() {
	c.closeOnce.Do(func() { close(c.send) })
}

// writePump delivers queued events until the queue is closed or a write fails.
func (c *Client) writePump(h *Hub) {
	for msg := range c.send {
		if err := c.SafeWriteJSON(msg); err != nil {
			utils.Logger.Warn("event delivery failed",
				zap.String("user_id", c.UserID),
				zap.String("type", msg.Type),
				zap.Error(err),
			)
			h.Unregister(c)
			return
		}
	}
}

// Hub tracks clients per user.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*Client]struct{}
	now     func() time.Time
}

// NewHub returns an empty hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[string]map[*Client]struct{}), now: time.Now}
}

// Register adds a client and starts its write goroutine.
func (h *Hub) Register(c *Client) {
	if c.send == nil {
		c.send = make(chan Message, sendBuffer)
	}
	h.mu.Lock()
	set, ok := h.clients[c.UserID]
	if !ok {
		set = make(map[*Client]struct{})
		h.clients[c.UserID] = set
	}
	set[c] = struct{}{}
	n := len(set)
	h.mu.Unlock()
	go c.writePump(h)
	utils.Logger.Debug("event client registered", zap.String("user_id", c.UserID), zap.Int("sessions", n))
}

// Unregister removes a client, stops its queue and closes its connection. It is safe to call twice.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	set, ok := h.clients[c.UserID]
	_, present := set[c]
	if ok && present {
		delete(set, c)
		if len(set) == 0 {
			delete(h.clients, c.UserID)
		}
		// The queue is only sent to under the hub lock, so closing it here cannot race a Publish.
		c.closeSend()
	}
	h.mu.Unlock()
	if present {
		_ = c.Conn.Close()
		utils.Logger.Debug("event client unregistered", zap.String("user_id", c.UserID))
	}
}

// Publish queues an event for every session of userID and returns without waiting
// for delivery. Sessions whose queue is full are dropped.
func (h *Hub) Publish(userID, eventType string, payload interface{}) {
	msg := Message{Type: eventType, UserID: userID, Timestamp: h.now(), Data: payload}

	var slow []*Client
	h.mu.RLock()
	for c := range h.clients[userID] {
		select {
		case c.send <- msg:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		utils.Logger.Warn("event queue full, dropping session",
			zap.String("user_id", userID),
			zap.String("type", eventType),
		)
		h.Unregister(c)
	}
}

// Count returns the number of sessions of userID.
func (h *Hub) Count(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

// Close sends a close frame to every client and forgets them.
func (h *Hub) Close() {
	h.mu.Lock()
	all := h.clients
	h.clients = make(map[string]map[*Client]struct{})
	h.mu.Unlock()

	deadline := time.Now().Add(writeWait)
	msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down")
	for _, set := range all {
		for c := range set {
			c.closeSend()
			c.writeMu.Lock()
			_ = c.Conn.WriteControl(websocket.CloseMessage, msg, deadline)
			c.writeMu.Unlock()
			_ = c.Conn.Close()
		}
	}
}
