// Package events defines the notifications emitted when story state changes,
// whether the change happened in the demo store or on chain.
package events

import "time"

type Type string

const (
	StoryCreated     Type = "story_created"
	SubmissionAdded  Type = "submission_added"
	VoteCast         Type = "vote_cast"
	ChapterFinalized Type = "chapter_finalized"
	StoryCompleted   Type = "story_completed"
	VotingExtended   Type = "voting_extended"
	TxStatus         Type = "tx_status"
)

type Source string

const (
	SourceDemo  Source = "demo"
	SourceChain Source = "chain"
)

// Event is the envelope broadcast to stream clients.
type Event struct {
	ID        string    `json:"id"`
	Type      Type      `json:"type"`
	Source    Source    `json:"source"`
	StoryID   string    `json:"storyId,omitempty"`
	Payload   any       `json:"payload,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Publisher accepts events for fan-out. Publish must not block.
type Publisher interface {
	Publish(e Event)
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(e Event)

func (f PublisherFunc) Publish(e Event) { f(e) }

// Discard drops every event.
var Discard Publisher = PublisherFunc(func(Event) {})
