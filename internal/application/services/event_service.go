package services

import (
	"context"
	"time"

	"github.com/bernice-stories/bernice/internal/domain/events"
	"github.com/bernice-stories/bernice/internal/infrastructure/chain"
	"github.com/bernice-stories/bernice/internal/infrastructure/observability/logging"
)

var contractEventTypes = map[string]events.Type{
	chain.EventStoryCreated:     events.StoryCreated,
	chain.EventSubmissionAdded:  events.SubmissionAdded,
	chain.EventVoteCast:         events.VoteCast,
	chain.EventChapterFinalized: events.ChapterFinalized,
	chain.EventStoryCompleted:   events.StoryCompleted,
	chain.EventVotingExtended:   events.VotingExtended,
}

// EventService reacts to contract events: stale reads are dropped and the
// event is forwarded to stream clients.
type EventService struct {
	chain     *ChainService
	publisher events.Publisher
	logger    *logging.ChanneledLogger
}

func NewEventService(chainService *ChainService, publisher events.Publisher, logger *logging.ChanneledLogger) *EventService {
	if publisher == nil {
		publisher = events.Discard
	}
	return &EventService{
		chain:     chainService,
		publisher: publisher,
		logger:    logger,
	}
}

// Attach registers the service as a listener callback.
func (s *EventService) Attach(listener *chain.Listener) {
	listener.OnEvent(s.HandleContractEvent)
}

func (s *EventService) HandleContractEvent(ctx context.Context, ev chain.ContractEvent) {
	storyID := "0"
	if id := ev.Story(); id != nil {
		storyID = id.String()
	}

	if s.chain != nil {
		s.chain.InvalidateStory(storyID)
	}

	eventType, ok := contractEventTypes[ev.EventName()]
	if !ok {
		s.logger.Events().Warn("Unmapped contract event", "event", ev.EventName())
		return
	}

	s.publisher.Publish(events.Event{
		Type:      eventType,
		Source:    events.SourceChain,
		StoryID:   storyID,
		Payload:   ev.Payload(),
		Timestamp: time.Now().UTC(),
	})
}
