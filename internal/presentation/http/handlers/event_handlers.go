package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/bernice-stories/bernice/internal/infrastructure/messaging"
	"github.com/bernice-stories/bernice/internal/infrastructure/observability/logging"
	"github.com/bernice-stories/bernice/internal/infrastructure/observability/performance"
	"github.com/bernice-stories/bernice/pkg/config"
)

// EventHandlers streams story events over SSE and WebSocket
type EventHandlers struct {
	broadcaster messaging.Broadcaster
	hub         *messaging.Hub
	upgrader    websocket.Upgrader
	logger      *logging.ChanneledLogger
	perfTracker *performance.Tracker
}

// NewEventHandlers creates event handlers. allowedOrigins limits WebSocket
// upgrades; an empty list accepts any origin.
func NewEventHandlers(broadcaster messaging.Broadcaster, hub *messaging.Hub, allowedOrigins []string,
	logger *logging.ChanneledLogger, perfTracker *performance.Tracker) *EventHandlers {
	origins := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		origins[o] = true
	}
	return &EventHandlers{
		broadcaster: broadcaster,
		hub:         hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return len(origins) == 0 || origin == "" || origins[origin]
			},
		},
		logger:      logger,
		perfTracker: perfTracker,
	}
}

func (h *EventHandlers) connections() int {
	n := h.broadcaster.ConnectionCount()
	if h.hub != nil {
		n += h.hub.ConnectionCount()
	}
	return n
}

// GetSSE handles GET /api/v1/events/sse?storyId= and holds the stream open
// until the client goes away.
func (h *EventHandlers) GetSSE(c *gin.Context) {
	start := time.Now()
	storyID := c.Query("storyId")
	marker := h.perfTracker.StartOperation("get_sse_request", storyID)
	defer marker.Complete()
	h.logger.SSE().Debug("Received SSE connection request", "method", c.Request.Method, "path", c.Request.URL.Path, "storyId", storyID)

	currentConnections := h.connections()
	if currentConnections >= config.MaxStreamConnections {
		h.logger.SSE().Warn("Stream connection limit reached",
			"storyId", storyID,
			"currentConnections", currentConnections,
			"maxConnections", config.MaxStreamConnections)
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "stream connection limit reached, please try again later",
		})
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	ch := h.broadcaster.AddClient(storyID)
	defer h.broadcaster.RemoveClient(ch)

	connected := fmt.Sprintf("event: connected\ndata: {\"type\":\"connected\",\"storyId\":%q,\"timestamp\":%q}\n\n",
		storyID, time.Now().UTC().Format(time.RFC3339))
	if _, err := c.Writer.WriteString(connected); err != nil {
		h.logger.SSE().Warn("SSE initial message failed", "storyId", storyID, "error", err.Error())
		return
	}
	c.Writer.Flush()

	clientCtx := c.Request.Context()

	h.logger.SSE().Info("SSE connection established",
		"storyId", storyID,
		"totalConnections", h.connections(),
		"setupDuration", time.Since(start))

	marker.SetSuccess(true)
	h.logger.Perf().Info("Performance for GetSSE request", "duration", time.Since(start), "storyId", storyID, "success", true)

	ticker := time.NewTicker(config.SSEHeartbeatInterval)
	defer ticker.Stop()

	connectionStart := time.Now()
	for {
		select {
		case <-clientCtx.Done():
			h.logger.SSE().Info("SSE client disconnected",
				"storyId", storyID,
				"connectionDuration", time.Since(connectionStart))
			return

		case message, ok := <-ch:
			if !ok {
				h.logger.SSE().Info("SSE connection channel closed",
					"storyId", storyID,
					"connectionDuration", time.Since(connectionStart))
				return
			}
			if _, err := c.Writer.WriteString(message); err != nil {
				h.logger.SSE().Error("SSE write failed", "storyId", storyID, "error", err.Error())
				return
			}
			c.Writer.Flush()

		case <-ticker.C:
			heartbeat := fmt.Sprintf("event: heartbeat\ndata: {\"type\":\"heartbeat\",\"timestamp\":%q}\n\n", time.Now().UTC().Format(time.RFC3339))
			if _, err := c.Writer.WriteString(heartbeat); err != nil {
				h.logger.SSE().Error("SSE heartbeat failed", "storyId", storyID, "error", err.Error())
				return
			}
			c.Writer.Flush()
		}
	}
}

// GetWebSocket handles GET /api/v1/events/ws?storyId=
func (h *EventHandlers) GetWebSocket(c *gin.Context) {
	storyID := c.Query("storyId")
	if h.hub == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "websocket streaming is disabled"})
		return
	}
	if h.connections() >= config.MaxStreamConnections {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "stream connection limit reached, please try again later"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		h.logger.SSE().Warn("WebSocket upgrade failed", "storyId", storyID, "error", err.Error())
		return
	}

	client := messaging.NewWSClient(conn, storyID)
	if !h.hub.Register(client) {
		conn.Close()
		return
	}
	h.logger.SSE().Info("WebSocket connection established", "storyId", storyID, "totalConnections", h.connections())

	go client.WritePump()
	client.ReadPump(h.hub)
}
