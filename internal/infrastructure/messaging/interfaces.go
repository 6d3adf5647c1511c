// Package messaging defines interfaces for real-time communication.
package messaging

import "github.com/bernice-stories/bernice/internal/domain/events"

// Broadcaster defines the interface for managing SSE client connections and broadcasting events.
type Broadcaster interface {
	events.Publisher
	AddClient(storyID string) chan string
	RemoveClient(ch chan string)
	ConnectionCount() int
}

var _ Broadcaster = (*EventBroadcaster)(nil)
