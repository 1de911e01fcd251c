package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/ayusman/mudra/internal/app"
)

const writeWait = time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// StatusSource provides the status pushed to websocket clients.
type StatusSource interface {
	Status() app.Status
}

// Hub pushes the app status to every connected websocket client.
type Hub struct {
	source   StatusSource
	interval time.Duration
	logger   *zap.Logger

	// mu guards clients and serializes writes.
	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
}

// NewHub creates a Hub. Call Run to start broadcasting.
func NewHub(source StatusSource, interval time.Duration, logger *zap.Logger) *Hub {
	return &Hub{
		source:   source,
		interval: interval,
		logger:   logger,
		clients:  make(map[*websocket.Conn]struct{}),
	}
}

// ServeHTTP upgrades the connection, sends the current status and keeps the
// client registered until it disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("websocket upgrade", zap.Error(err))
		return
	}
	defer conn.Close()

	msg, err := json.Marshal(h.source.Status())
	if err != nil {
		return
	}

	h.mu.Lock()
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	err = conn.WriteMessage(websocket.TextMessage, msg)
	if err == nil {
		h.clients[conn] = struct{}{}
	}
	h.mu.Unlock()
	if err != nil {
		return
	}

	defer h.remove(conn)

	// Drain reads to notice the close.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Run broadcasts on every tick until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case <-ticker.C:
			h.broadcast()
		}
	}
}

func (h *Hub) broadcast() {
	if h.Clients() == 0 {
		return
	}

	msg, err := json.Marshal(h.source.Status())
	if err != nil {
		h.logger.Warn("marshal status", zap.Error(err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			delete(h.clients, conn)
			conn.Close()
		}
	}
}

func (h *Hub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.clients, conn)
	h.mu.Unlock()
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, ""), time.Now().Add(writeWait))
		conn.Close()
		delete(h.clients, conn)
	}
}
