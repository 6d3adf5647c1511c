// Package messaging fans story events out to SSE and WebSocket clients.
package messaging

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/bernice-stories/bernice/internal/domain/events"
	"github.com/bernice-stories/bernice/internal/infrastructure/observability/logging"
	"github.com/bernice-stories/bernice/internal/infrastructure/security"
	"github.com/bernice-stories/bernice/pkg/config"
)

// EventBroadcaster manages SSE client channels, optionally scoped to one story.
type EventBroadcaster struct {
	clients map[chan string]string // channel -> story filter ("" for all)
	hub     *Hub
	mu      sync.Mutex
	logger  *logging.ChanneledLogger
}

// NewEventBroadcaster creates a broadcaster. hub may be nil when WebSocket
// delivery is not wanted.
func NewEventBroadcaster(hub *Hub, logger *logging.ChanneledLogger) *EventBroadcaster {
	return &EventBroadcaster{
		clients: make(map[chan string]string),
		hub:     hub,
		logger:  logger,
	}
}

// AddClient registers a new SSE client. An empty storyID receives every event.
func (b *EventBroadcaster) AddClient(storyID string) chan string {
	ch := make(chan string, config.StreamClientBuffer)

	b.mu.Lock()
	defer b.mu.Unlock()

	b.clients[ch] = storyID
	b.logger.SSE().Debug("SSE client registered", "storyId", storyID, "clients", len(b.clients))
	return ch
}

// RemoveClient unregisters and closes an SSE client channel.
func (b *EventBroadcaster) RemoveClient(ch chan string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.clients[ch]; ok {
		delete(b.clients, ch)
		close(ch)
	}
	b.logger.SSE().Debug("SSE client unregistered", "clients", len(b.clients))
}

func (b *EventBroadcaster) ConnectionCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.clients)
}

// Publish sends the event to every matching client without blocking. Slow
// clients lose the message.
func (b *EventBroadcaster) Publish(e events.Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.SSE().Error("Panic recovered in Publish", "error", r, "type", e.Type)
		}
	}()

	if e.ID == "" {
		e.ID = security.GenerateULID()
	}

	data, err := json.Marshal(e)
	if err != nil {
		b.logger.SSE().Error("Failed to marshal event", "error", err.Error(), "type", e.Type)
		return
	}
	message := FormatSSE(string(e.Type), e.ID, data)

	b.mu.Lock()
	delivered := 0
	for ch, filter := range b.clients {
		if filter != "" && filter != e.StoryID {
			continue
		}
		select {
		case ch <- message:
			delivered++
		default:
			b.logger.SSE().Warn("SSE channel full, message dropped", "type", e.Type, "storyId", e.StoryID)
		}
	}
	b.mu.Unlock()

	if b.hub != nil {
		b.hub.Broadcast(e.StoryID, data)
	}
	b.logger.LogStreamEvent(string(e.Type), delivered)
}

// FormatSSE renders one server-sent event frame.
func FormatSSE(event, id string, data []byte) string {
	if id != "" {
		return fmt.Sprintf("id: %s\nevent: %s\ndata: %s\n\n", id, event, data)
	}
	return fmt.Sprintf("event: %s\ndata: %s\n\n", event, data)
}
