package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/agentarena/agentarena/internal/logging"
)

const (
	wsWriteTimeout = 10 * time.Second
	wsPingInterval = 30 * time.Second
	// Per-client send buffer. A client that falls this far behind is dropped
	// rather than allowed to stall the broadcast path.
	wsSendBuffer = 32
)

// Frame is one WebSocket event message.
type Frame struct {
	Type    string `json:"type"`
	Event   string `json:"event"`
	Seq     uint64 `json:"seq"`
	Payload any    `json:"payload,omitempty"`
}

// Hub fans comparison progress events out to connected WebSocket clients.
type Hub struct {
	mu      sync.Mutex
	clients map[*wsClient]struct{}
	seq     uint64
	log     *logging.Logger
}

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
}

// NewHub creates an empty hub.
func NewHub(log *logging.Logger) *Hub {
	return &Hub{
		clients: make(map[*wsClient]struct{}),
		log:     log,
	}
}

// Broadcast sends an event frame to every connected client. Slow clients
// are disconnected instead of blocking the sender.
func (h *Hub) Broadcast(event string, payload any) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.seq++
	data, err := json.Marshal(Frame{
		Type:    "event",
		Event:   event,
		Seq:     h.seq,
		Payload: payload,
	})
	if err != nil {
		h.log.Error().Err(err).Str("event", event).Msg("marshaling frame failed")
		return
	}

	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			h.log.Warn().Msg("dropping slow websocket client")
			delete(h.clients, c)
			close(c.send)
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// CloseAll disconnects every client, used during shutdown.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
}

func (h *Hub) register(c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
}

func (h *Hub) unregister(c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

// handleWebSocket upgrades the connection and streams event frames until the
// client disconnects. Auth is checked before the upgrade; browser clients
// pass the token as a query parameter.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if !s.auth.Authorize(bearerToken(r)) {
		writeError(w, http.StatusUnauthorized, "invalid or missing token")
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	c := &wsClient{conn: conn, send: make(chan []byte, wsSendBuffer)}
	s.hub.register(c)
	s.log.Debug().Str("remote", r.RemoteAddr).Msg("websocket client connected")

	go c.writeLoop()
	c.readLoop(s.hub)
}

// writeLoop delivers broadcast frames and keepalive pings. It exits when
// the send channel is closed by the hub.
func (c *wsClient) writeLoop() {
	ticker := time.NewTicker(wsPingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			if !ok {
				c.conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, ""),
					time.Now().Add(wsWriteTimeout))
				return
			}
			c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readLoop discards inbound messages; its job is to notice disconnects.
func (c *wsClient) readLoop(h *Hub) {
	defer h.unregister(c)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
