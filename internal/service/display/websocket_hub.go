package display

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"BartWatch/internal/domain/models"
	applogger "BartWatch/pkg/logger"

	"github.com/gorilla/websocket"
)

// Hub broadcasts packets to connected WebSocket display clients.
type Hub struct {
	logger       *applogger.Logger
	upgrader     websocket.Upgrader
	writeTimeout time.Duration
	pingInterval time.Duration

	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
}

func NewHub(logger *applogger.Logger, pingInterval time.Duration) *Hub {
	if logger == nil {
		logger = applogger.Nop()
	}
	if pingInterval <= 0 {
		pingInterval = 30 * time.Second
	}
	return &Hub{
		logger:       logger.With(applogger.String("component", "ws_hub")),
		upgrader:     websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
		writeTimeout: 5 * time.Second,
		pingInterval: pingInterval,
		clients:      make(map[*websocket.Conn]struct{}),
	}
}

func (h *Hub) Name() string { return "websocket" }

// ServeHTTP upgrades the request and keeps the client registered until it disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", applogger.Error(err))
		return
	}
	h.mu.Lock()
	h.clients[conn] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	h.logger.Info("display client connected", applogger.String("remote", r.RemoteAddr), applogger.Int("clients", n))

	done := make(chan struct{})
	go h.pingLoop(conn, done)

	// Clients never send; read only to notice the close.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	close(done)
	h.drop(conn)
}

func (h *Hub) pingLoop(conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(h.pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			h.mu.Lock()
			err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(h.writeTimeout))
			h.mu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

// Publish writes p as JSON to every client. Clients that fail are dropped; the hub
// itself only errors on encoding.
func (h *Hub) Publish(_ context.Context, p models.NotificationPacket) error {
	b, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode packet: %w", err)
	}
	h.mu.Lock()
	var dead []*websocket.Conn
	for conn := range h.clients {
		_ = conn.SetWriteDeadline(time.Now().Add(h.writeTimeout))
		if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
			dead = append(dead, conn)
		}
	}
	h.mu.Unlock()
	for _, conn := range dead {
		h.drop(conn)
	}
	return nil
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every client.
func (h *Hub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutdown"),
			time.Now().Add(h.writeTimeout))
		_ = conn.Close()
		delete(h.clients, conn)
	}
	return nil
}

func (h *Hub) drop(conn *websocket.Conn) {
	h.mu.Lock()
	_, ok := h.clients[conn]
	delete(h.clients, conn)
	h.mu.Unlock()
	if ok {
		_ = conn.Close()
	}
}
