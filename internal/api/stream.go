package api

import (
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"ghostpace/pkg/model"
)

// Event is a single message pushed to connected clients.
type Event struct {
	Type     string              `json:"type"` // "state", "pacing", or "feedback"
	State    model.RaceState     `json:"state,omitempty"`
	Pacing   *model.PacingResult `json:"pacing,omitempty"`
	Feedback *model.FeedbackTick `json:"feedback,omitempty"`
}

// Hub fans race events out to websocket clients. Slow clients are
// dropped rather than allowed to stall the broadcast.
type Hub struct {
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*websocket.Conn]chan Event
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Local control surface, same-origin checks add nothing here.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: make(map[*websocket.Conn]chan Event),
	}
}

// HandleEvents handles GET /ws/events
func (h *Hub) HandleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("Websocket upgrade failed", "error", err)
		return
	}

	ch := make(chan Event, 32)
	h.mu.Lock()
	h.clients[conn] = ch
	h.mu.Unlock()
	slog.Debug("Websocket client connected", "remote", conn.RemoteAddr())

	go h.writeLoop(conn, ch)
	h.readLoop(conn)
}

// Broadcast queues an event for every connected client.
func (h *Hub) Broadcast(ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn, ch := range h.clients {
		select {
		case ch <- ev:
		default:
			// Client can't keep up, disconnect it.
			delete(h.clients, conn)
			close(ch)
			conn.Close()
		}
	}
}

// Close disconnects all clients.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn, ch := range h.clients {
		delete(h.clients, conn)
		close(ch)
		conn.Close()
	}
}

func (h *Hub) writeLoop(conn *websocket.Conn, ch chan Event) {
	for ev := range ch {
		if err := conn.WriteJSON(ev); err != nil {
			h.remove(conn)
			return
		}
	}
}

// readLoop drains incoming frames so pings are answered and close
// frames are seen. Clients never send application data.
func (h *Hub) readLoop(conn *websocket.Conn) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			h.remove(conn)
			return
		}
	}
}

func (h *Hub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if ch, ok := h.clients[conn]; ok {
		delete(h.clients, conn)
		close(ch)
	}
	conn.Close()
}
