package realtime

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
	sendBuffer = 256
)

// Registry maps an authenticated actor to at most one live channel. It is
// process-local and rebuilt empty on restart; only live push is lossy
// across restarts, message history stays durable.
type Registry interface {
	Register(userID uint, client *Client)
	Unregister(userID uint, client *Client)
	Get(userID uint) (*Client, bool)
}

// Client is one actor's live delivery channel. Payloads go through a
// buffered send channel drained by WritePump, so a dead or slow peer never
// blocks the caller.
type Client struct {
	UserID uint

	conn      *websocket.Conn
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func NewClient(userID uint, conn *websocket.Conn) *Client {
	return &Client{
		UserID: userID,
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		done:   make(chan struct{}),
	}
}

// trySend queues a payload without blocking. A full buffer or a shut-down
// client drops the payload.
func (c *Client) trySend(payload []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

func (c *Client) shutdown() {
	c.closeOnce.Do(func() {
		close(c.done)
		if c.conn != nil {
			c.conn.Close()
		}
	})
}

// WritePump drains the send channel onto the connection and keeps the peer
// alive with pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.shutdown()
	}()

	for {
		select {
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
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

// Hub is the mutex-guarded presence registry. One entry per actor;
// re-registering replaces the prior channel, which covers reconnects that
// never saw a clean disconnect.
type Hub struct {
	mu      sync.RWMutex
	clients map[uint]*Client
	logger  zerolog.Logger
}

func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		clients: make(map[uint]*Client),
		logger:  logger.With().Str("component", "presence_hub").Logger(),
	}
}

func (h *Hub) Register(userID uint, client *Client) {
	h.mu.Lock()
	prior := h.clients[userID]
	h.clients[userID] = client
	h.mu.Unlock()

	if prior != nil {
		prior.shutdown()
	}
	h.logger.Debug().Uint("user_id", userID).Bool("replaced", prior != nil).Msg("actor connected")
}

// Unregister removes the mapping only if client is still the current one,
// so a stale connection's teardown cannot evict its replacement.
func (h *Hub) Unregister(userID uint, client *Client) {
	h.mu.Lock()
	if h.clients[userID] == client {
		delete(h.clients, userID)
	}
	h.mu.Unlock()

	client.shutdown()
	h.logger.Debug().Uint("user_id", userID).Msg("actor disconnected")
}

func (h *Hub) Get(userID uint) (*Client, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	client, ok := h.clients[userID]
	return client, ok
}

// Push delivers a payload to one actor's channel if connected. Best effort:
// absent or saturated channels report false and the payload is dropped.
func (h *Hub) Push(userID uint, payload []byte) bool {
	client, ok := h.Get(userID)
	if !ok {
		return false
	}
	if !client.trySend(payload) {
		h.logger.Warn().Uint("user_id", userID).Msg("push dropped, send buffer full")
		return false
	}
	return true
}
