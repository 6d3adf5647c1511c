package messaging

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/bernice-stories/bernice/internal/infrastructure/observability/logging"
	"github.com/bernice-stories/bernice/pkg/config"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// WSClient represents a single connected WebSocket client.
type WSClient struct {
	Conn    *websocket.Conn
	StoryID string
	Send    chan []byte
}

// NewWSClient wraps a connection with a buffered send queue.
func NewWSClient(conn *websocket.Conn, storyID string) *WSClient {
	return &WSClient{Conn: conn, StoryID: storyID, Send: make(chan []byte, config.StreamClientBuffer)}
}

// Hub manages connected WebSocket clients.
type Hub struct {
	clients    map[*WSClient]bool
	register   chan *WSClient
	unregister chan *WSClient
	done       chan struct{}
	mu         sync.RWMutex
	logger     *logging.ChanneledLogger
}

func NewHub(logger *logging.ChanneledLogger) *Hub {
	return &Hub{
		clients:    make(map[*WSClient]bool),
		register:   make(chan *WSClient),
		unregister: make(chan *WSClient),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run starts the hub's main loop. This should be run as a goroutine.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				delete(h.clients, client)
				close(client.Send)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			h.logger.SSE().Debug("WebSocket client registered", "storyId", client.StoryID)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.Send)
			}
			h.mu.Unlock()
			h.logger.SSE().Debug("WebSocket client unregistered", "storyId", client.StoryID)
		}
	}
}

// Register queues a client for registration. It reports false once the hub has stopped.
func (h *Hub) Register(client *WSClient) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

// Unregister queues a client for unregistration.
func (h *Hub) Unregister(client *WSClient) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast queues message for every client following storyID or all stories.
func (h *Hub) Broadcast(storyID string, message []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients {
		if client.StoryID != "" && client.StoryID != storyID {
			continue
		}
		select {
		case client.Send <- message:
		default:
			h.logger.SSE().Warn("WebSocket send queue full, message dropped", "storyId", storyID)
		}
	}
}

// WritePump drains the client's queue onto the connection and keeps it alive
// with pings. It returns when the queue is closed or a write fails.
func (c *WSClient) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ReadPump discards inbound frames and unregisters the client on disconnect.
func (c *WSClient) ReadPump(h *Hub) {
	defer h.Unregister(c)

	c.Conn.SetReadLimit(512)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			return
		}
	}
}
