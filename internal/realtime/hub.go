// Package realtime pushes session and assistant events to connected clients
// over WebSocket.
package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/stackie-hr/stackie-server/internal/middleware"
)

// writeTimeout bounds a single event write to one client.
const writeTimeout = 5 * time.Second

// Event is one realtime notification on the wire.
type Event struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

const (
	// EventSessionState announces a session controller phase change.
	EventSessionState = "session_state"
	// EventAssistantReply announces a completed assistant turn.
	EventAssistantReply = "assistant_reply"
)

// Hub tracks WebSocket connections per user and fans events out to them.
type Hub struct {
	logger *slog.Logger

	mu     sync.RWMutex
	conns  map[string]map[int64]*websocket.Conn // userID -> connID -> conn
	nextID int64
}

// NewHub creates an empty hub.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		logger: logger,
		conns:  make(map[string]map[int64]*websocket.Conn),
	}
}

// ServeHTTP upgrades the request and keeps the connection registered until
// the client disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())
	if userID == "" {
		http.Error(w, `{"error":"identity required"}`, http.StatusUnauthorized)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		h.logger.Error("failed to accept WebSocket", "error", err, "user_id", userID)
		return
	}

	id := h.register(userID, ws)
	h.logger.Info("realtime client connected", "user_id", userID, "conn_id", id)

	defer func() {
		h.unregister(userID, id)
		if closeErr := ws.Close(websocket.StatusNormalClosure, "bye"); closeErr != nil {
			h.logger.Debug("WebSocket close", "error", closeErr)
		}
		h.logger.Info("realtime client disconnected", "user_id", userID, "conn_id", id)
	}()

	// Clients only listen; the read loop just detects disconnect.
	ctx := r.Context()
	for {
		if _, _, err := ws.Read(ctx); err != nil {
			return
		}
	}
}

// Broadcast sends an event to every connected client.
func (h *Hub) Broadcast(ev Event) {
	h.send(ev, "")
}

// Publish sends an event to one user's connections.
func (h *Hub) Publish(userID string, ev Event) {
	if userID == "" {
		return
	}
	h.send(ev, userID)
}

func (h *Hub) send(ev Event, userID string) {
	data, err := json.Marshal(ev)
	if err != nil {
		h.logger.Error("failed to encode realtime event", "type", ev.Type, "error", err)
		return
	}

	type target struct {
		userID string
		connID int64
		conn   *websocket.Conn
	}

	h.mu.RLock()
	var targets []target
	for uid, conns := range h.conns {
		if userID != "" && uid != userID {
			continue
		}
		for id, conn := range conns {
			targets = append(targets, target{userID: uid, connID: id, conn: conn})
		}
	}
	h.mu.RUnlock()

	for _, t := range targets {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		err := t.conn.Write(ctx, websocket.MessageText, data)
		cancel()
		if err != nil {
			// Stale connection; drop it so the map does not grow.
			h.logger.Debug("realtime write failed, dropping connection",
				"user_id", t.userID, "conn_id", t.connID, "error", err)
			h.unregister(t.userID, t.connID)
		}
	}
}

func (h *Hub) register(userID string, conn *websocket.Conn) int64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextID++
	id := h.nextID
	if h.conns[userID] == nil {
		h.conns[userID] = make(map[int64]*websocket.Conn)
	}
	h.conns[userID][id] = conn
	return id
}

func (h *Hub) unregister(userID string, id int64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	conns := h.conns[userID]
	if conns == nil {
		return
	}
	delete(conns, id)
	if len(conns) == 0 {
		delete(h.conns, userID)
	}
}

// ConnectionCount returns the number of registered connections.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	total := 0
	for _, conns := range h.conns {
		total += len(conns)
	}
	return total
}
