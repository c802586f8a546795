// Package websocket pushes session lifecycle events to every open tab of the
// browser session they belong to, so a logout or expiry in one tab moves the
// others too.
package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"adoptify-web/internal/event"
	"adoptify-web/internal/navigation"
	"adoptify-web/internal/session"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	sendBuffer = 16
)

// Message is what a tab receives. RedirectTo is where the tab should go, if
// anywhere.
type Message struct {
	Type       event.Type `json:"type"`
	Username   string     `json:"username,omitempty"`
	Role       string     `json:"role,omitempty"`
	RedirectTo string     `json:"redirect_to,omitempty"`
	Timestamp  time.Time  `json:"timestamp"`
}

func messageFor(e event.Event) Message {
	msg := Message{
		Type:      e.Type,
		Username:  e.Username,
		Role:      e.Role,
		Timestamp: e.Timestamp,
	}

	switch e.Type {
	case event.TypeSessionLogin:
		if role, err := session.ParseRole(e.Role); err == nil {
			msg.RedirectTo = navigation.AfterLogin(role).String()
		}
	case event.TypeSessionLogout:
		msg.RedirectTo = navigation.AfterLogout().String()
	case event.TypeSessionExpired:
		msg.RedirectTo = navigation.AfterSessionExpired().String()
	}
	return msg
}

type Client struct {
	sessionID string
	conn      *websocket.Conn
	send      chan []byte
}

type Hub struct {
	bus      event.Bus
	logger   *slog.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*Client]struct{}
}

// NewHub builds a hub. Upgrades are accepted from the serving host and from
// origins.
func NewHub(bus event.Bus, origins []string, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}

	allowed := make(map[string]bool, len(origins))
	for _, origin := range origins {
		allowed[origin] = true
	}

	h := &Hub{
		bus:     bus,
		logger:  logger,
		clients: make(map[*Client]struct{}),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" || allowed[origin] || allowed["*"] {
				return true
			}
			u, err := url.Parse(origin)
			return err == nil && u.Host == r.Host
		},
	}
	return h
}

// Run forwards bus events to the tabs of the matching session until ctx is
// done.
func (h *Hub) Run(ctx context.Context) {
	events, unsubscribe := h.bus.Subscribe()
	defer unsubscribe()
	defer h.closeAll()

	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			if e.SessionID == "" {
				continue
			}
			payload, err := json.Marshal(messageFor(e))
			if err != nil {
				h.logger.Error("failed to marshal session event", "error", err)
				continue
			}
			h.deliver(e.SessionID, payload)
		}
	}
}

func (h *Hub) deliver(sessionID string, payload []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		if client.sessionID != sessionID {
			continue
		}
		select {
		case client.send <- payload:
		default:
			// Slow tab: drop it, it reconnects and reloads.
			delete(h.clients, client)
			close(client.send)
		}
	}
}

// Clients reports how many tabs are connected.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// ServeWS upgrades the request and streams the session's events. It needs
// the session middleware in front of it.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	sessionID := session.IDFromContext(r.Context())
	if sessionID == "" {
		http.Error(w, "session required", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	client := &Client{
		sessionID: sessionID,
		conn:      conn,
		send:      make(chan []byte, sendBuffer),
	}

	h.mu.Lock()
	h.clients[client] = struct{}{}
	h.mu.Unlock()

	go h.writePump(client)
	h.readPump(client)
}

// readPump only watches for the tab going away; tabs never send anything
// meaningful.
func (h *Hub) readPump(c *Client) {
	defer h.unregister(c)

	c.conn.SetReadLimit(512)
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

func (h *Hub) writePump(c *Client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
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

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		delete(h.clients, client)
		close(client.send)
	}
}
