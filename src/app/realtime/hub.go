// Package realtime streams session events to websocket subscribers.
package realtime

import (
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"neuroforge/src/app/http/dto"
	"neuroforge/src/core/ports"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 64
)

// Client is one websocket subscriber of a session.
type Client struct {
	sessionID string
	conn      *websocket.Conn
	send      chan ports.SessionEvent
	hub       *Hub
}

// Hub fans session events out to the websocket clients watching each session.
// It implements ports.SessionPublisher.
type Hub struct {
	log      *slog.Logger
	upgrader websocket.Upgrader

	mu       sync.Mutex
	sessions map[string]map[*Client]struct{}
}

var _ ports.SessionPublisher = (*Hub)(nil)

// NewHub creates a hub accepting websocket handshakes from allowedOrigin ("*" for any).
func NewHub(log *slog.Logger, allowedOrigin string) *Hub {
	h := &Hub{
		log:      log,
		sessions: make(map[string]map[*Client]struct{}),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(allowedOrigin),
	}
	return h
}

func originChecker(allowed string) func(r *http.Request) bool {
	if allowed == "" || allowed == "*" {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return u.Scheme+"://"+u.Host == allowed
	}
}

// Serve upgrades the request and subscribes the connection to sessionID. When
// initial is set it is the first event the client receives.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, sessionID string, initial *ports.SessionEvent) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	c := &Client{
		sessionID: sessionID,
		conn:      conn,
		send:      make(chan ports.SessionEvent, sendBuffer),
		hub:       h,
	}
	if initial != nil {
		c.send <- *initial
	}
	h.register(c)

	go c.writePump()
	go c.readPump()
	return nil
}

// Publish queues event for every client of its session without blocking; clients
// whose buffer is full are dropped. A discarded session disconnects its clients
// once the event is queued.
func (h *Hub) Publish(event ports.SessionEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients := h.sessions[event.SessionID]
	for c := range clients {
		select {
		case c.send <- event:
		default:
			h.log.Warn("dropping slow websocket client", "session_id", c.sessionID)
			h.removeLocked(c)
		}
	}
	if event.Type == ports.EventSessionDiscarded {
		h.disconnectLocked(event.SessionID)
	}
}

// Disconnect closes every client of sessionID with a normal closure.
func (h *Hub) Disconnect(sessionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.disconnectLocked(sessionID)
}

func (h *Hub) disconnectLocked(sessionID string) {
	for c := range h.sessions[sessionID] {
		h.removeLocked(c)
	}
}

// Subscribers returns the number of clients watching sessionID.
func (h *Hub) Subscribers(sessionID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions[sessionID])
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.sessions[c.sessionID] == nil {
		h.sessions[c.sessionID] = make(map[*Client]struct{})
	}
	h.sessions[c.sessionID][c] = struct{}{}
	h.log.Debug("websocket client connected", "session_id", c.sessionID)
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(c)
}

// removeLocked closes c.send exactly once: only a client still in the map is closed.
func (h *Hub) removeLocked(c *Client) {
	clients, ok := h.sessions[c.sessionID]
	if !ok {
		return
	}
	if _, ok := clients[c]; !ok {
		return
	}
	delete(clients, c)
	if len(clients) == 0 {
		delete(h.sessions, c.sessionID)
	}
	close(c.send)
	h.log.Debug("websocket client disconnected", "session_id", c.sessionID)
}

// readPump only services control frames; subscribers do not send commands.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.Warn("websocket read error", "session_id", c.sessionID, "error", err)
			}
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case event, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteJSON(dto.EventFromPort(event)); err != nil {
				c.hub.log.Warn("websocket write error", "session_id", c.sessionID, "error", err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
