package server

import (
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"statusmon/pkg/log"
	"statusmon/pkg/models"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

const wsWriteTimeout = 5 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		host := strings.ToLower(strings.TrimSpace(r.Host))
		originHost := strings.ToLower(strings.TrimSpace(u.Host))
		return host == originHost
	},
}

// Hub pushes status transitions and toasts to connected WebSocket clients.
type Hub struct {
	snapshot func() models.StatusSnapshot

	mu         sync.Mutex
	clients    map[*websocket.Conn]struct{}
	lastOnline *bool
}

// NewHub creates a hub. snapshot provides the status sent on connect and on
// every transition.
func NewHub(snapshot func() models.StatusSnapshot) *Hub {
	return &Hub{
		snapshot: snapshot,
		clients:  make(map[*websocket.Conn]struct{}),
	}
}

// Update broadcasts a status event when the reachability changes.
func (h *Hub) Update(online bool) {
	h.mu.Lock()
	changed := h.lastOnline == nil || *h.lastOnline != online
	h.lastOnline = &online
	h.mu.Unlock()

	if !changed {
		return
	}
	snap := h.snapshot()
	h.Broadcast(models.Event{Type: models.EventStatus, Status: &snap})
}

// Toast broadcasts a toast event.
func (h *Hub) Toast(toast models.Toast) {
	h.Broadcast(models.Event{Type: models.EventToast, Toast: &toast})
}

// Broadcast sends evt to every client, dropping clients that fail.
func (h *Hub) Broadcast(evt models.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for conn := range h.clients {
		if err := writeEvent(conn, evt); err != nil {
			log.Component(component).Debug().Err(err).Str("remote", conn.RemoteAddr().String()).Msg("Dropping live client")
			_ = conn.Close()
			delete(h.clients, conn)
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for conn := range h.clients {
		_ = conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(wsWriteTimeout),
		)
		_ = conn.Close()
		delete(h.clients, conn)
	}
}

// serveWS handles GET /ws.
func (h *Hub) serveWS(ctx echo.Context) error {
	conn, err := upgrader.Upgrade(ctx.Response(), ctx.Request(), nil)
	if err != nil {
		log.Component(component).Debug().Err(err).Msg("WebSocket upgrade failed")
		return nil
	}

	snap := h.snapshot()
	h.mu.Lock()
	if err := writeEvent(conn, models.Event{Type: models.EventStatus, Status: &snap}); err != nil {
		h.mu.Unlock()
		_ = conn.Close()
		return nil
	}
	h.clients[conn] = struct{}{}
	h.mu.Unlock()

	go h.readLoop(conn)
	return nil
}

// readLoop discards client messages and removes the client once it disconnects.
func (h *Hub) readLoop(conn *websocket.Conn) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	h.mu.Lock()
	delete(h.clients, conn)
	h.mu.Unlock()
	_ = conn.Close()
}

func writeEvent(conn *websocket.Conn, evt models.Event) error {
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return conn.WriteJSON(evt)
}
