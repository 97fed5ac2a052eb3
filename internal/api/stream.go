package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Hub manages WebSocket clients and broadcasts snapshots to them.
type Hub struct {
	clients   map[*wsClient]struct{}
	mu        sync.Mutex
	collector *Collector
	interval  time.Duration
	logger    *slog.Logger
	done      chan struct{}
}

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// the dashboard is a local tool; cross-origin access is fine
	CheckOrigin: func(r *http.Request) bool { return true },
}

// NewHub creates a hub broadcasting collector snapshots on the interval.
func NewHub(collector *Collector, interval time.Duration, logger *slog.Logger) *Hub {
	if interval <= 0 {
		interval = time.Second
	}
	return &Hub{
		clients:   make(map[*wsClient]struct{}),
		collector: collector,
		interval:  interval,
		logger:    logger.With("component", "ws-hub"),
		done:      make(chan struct{}),
	}
}

// Run broadcasts snapshots until Close. Call in a goroutine.
func (h *Hub) Run() {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-h.done:
			return
		case <-ticker.C:
			h.broadcast()
		}
	}
}

// Close stops the broadcast loop and disconnects all clients.
func (h *Hub) Close() {
	close(h.done)

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		close(c.send)
		delete(h.clients, c)
	}
}

// HandleWebSocket upgrades an HTTP request into a streaming client.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("ws upgrade failed", "error", err)
		return
	}

	client := &wsClient{conn: conn, send: make(chan []byte, 16)}
	h.mu.Lock()
	h.clients[client] = struct{}{}
	count := len(h.clients)
	h.mu.Unlock()
	h.logger.Info("client connected", "count", count)

	go h.writePump(client)
	go h.readPump(client)
}

func (h *Hub) broadcast() {
	h.mu.Lock()
	if len(h.clients) == 0 {
		h.mu.Unlock()
		return
	}
	h.mu.Unlock()

	data, err := json.Marshal(h.collector.Snapshot())
	if err != nil {
		h.logger.Error("snapshot marshal failed", "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			// client can't keep up, drop it
			close(c.send)
			delete(h.clients, c)
		}
	}
}

func (h *Hub) writePump(c *wsClient) {
	defer c.conn.Close()
	for data := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			break
		}
	}
}

// readPump drains client frames so pings are answered, unregistering on
// disconnect.
func (h *Hub) readPump(c *wsClient) {
	defer func() {
		h.mu.Lock()
		if _, ok := h.clients[c]; ok {
			close(c.send)
			delete(h.clients, c)
		}
		h.mu.Unlock()
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
