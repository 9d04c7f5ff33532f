package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/roataway/briya/cli/bridge/types"
)

const (
	writeTimeout = 5 * time.Second
	sendBuffer   = 4
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Hub streams published vehicle snapshots to websocket clients. Every client has
// its own writer goroutine, so Broadcast never waits on a socket.
type Hub struct {
	mu      sync.Mutex
	clients map[*client]struct{}
	last    []byte
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[*client]struct{}),
		last:    []byte("[]"),
	}
}

// Serve upgrades the request, queues the last broadcast and registers the client.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithField("err", err).Debug("Websocket upgrade failed")
		return
	}

	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}
	h.mu.Lock()
	c.send <- h.last
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	go h.writePump(c)
	go h.readPump(c)
}

// Broadcast queues records for every client. A client whose queue is full is
// disconnected.
func (h *Hub) Broadcast(records []types.VehicleRecord) {
	if records == nil {
		records = []types.VehicleRecord{}
	}
	data, err := json.Marshal(records)
	if err != nil {
		log.WithField("err", err).Error("Could not encode live snapshot")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.last = data
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			log.Debug("Dropping slow live client")
			h.drop(c)
		}
	}
}

func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// drop must be called with mu held.
func (h *Hub) drop(c *client) {
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	h.drop(c)
	h.mu.Unlock()
}

func (h *Hub) writePump(c *client) {
	defer c.conn.Close()
	for data := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			h.remove(c)
			return
		}
	}
	_ = c.conn.WriteControl(websocket.CloseMessage, nil, time.Now().Add(writeTimeout))
}

func (h *Hub) readPump(c *client) {
	defer func() {
		h.remove(c)
		_ = c.conn.Close()
	}()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
