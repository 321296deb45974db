// Package notifications fans reminder status events out to connected
// websocket subscribers.
package notifications

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	sendBufferSize = 16
)

// Event is a payload delivered to notification subscribers.
type Event struct {
	Event          string `json:"event"`
	NotificationID string `json:"notification_id,omitempty"`
	Data           any    `json:"data,omitempty"`
}

type client struct {
	conn *websocket.Conn
	send chan Event
}

// Hub tracks websocket subscribers per traveler.
type Hub struct {
	mu       sync.RWMutex
	clients  map[string]map[*client]struct{}
	upgrader websocket.Upgrader
}

// NewHub constructs a notification hub.
func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]map[*client]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Auth happens upstream; the hub accepts any origin the proxy let through.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Serve upgrades the connection and registers the traveler's subscriber until
// the peer disconnects.
func (h *Hub) Serve(travelerID string, w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	cl := &client{
		conn: conn,
		send: make(chan Event, sendBufferSize),
	}

	h.addClient(travelerID, cl)
	defer h.removeClient(travelerID, cl)

	go cl.writeLoop()
	cl.readLoop()
}

// Broadcast delivers an event to every subscriber of the traveler. Slow
// subscribers are skipped rather than blocking the dispatcher.
func (h *Hub) Broadcast(travelerID string, event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for cl := range h.clients[travelerID] {
		select {
		case cl.send <- event:
		default:
		}
	}
}

func (h *Hub) addClient(travelerID string, cl *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.clients[travelerID] == nil {
		h.clients[travelerID] = make(map[*client]struct{})
	}
	h.clients[travelerID][cl] = struct{}{}
}

func (h *Hub) removeClient(travelerID string, cl *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if set, ok := h.clients[travelerID]; ok {
		delete(set, cl)
		if len(set) == 0 {
			delete(h.clients, travelerID)
		}
	}
	close(cl.send)
	_ = cl.conn.Close()
}

func (c *client) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case event, ok := <-c.send:
			if !ok {
				return
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(event); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *client) readLoop() {
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
