package chain

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// ErrUnknownEvent is returned for logs that are not one of the watched events.
var ErrUnknownEvent = errors.New("log does not match a watched event")

// ContractEvent is a decoded Bernice event.
type ContractEvent interface {
	EventName() string
	Story() *big.Int
	Log() types.Log
	// Payload renders the event for clients; integers are decimal strings.
	Payload() map[string]any
}

type StoryCreated struct {
	StoryId             *big.Int
	Creator             common.Address
	Title               string
	TotalChapters       *big.Int
	VotingPeriodSeconds *big.Int
	Raw                 types.Log
}

type SubmissionAdded struct {
	StoryId         *big.Int
	ChapterNumber   *big.Int
	SubmissionIndex *big.Int
	Author          common.Address
	Content         string
	Raw             types.Log
}

type VoteCast struct {
	StoryId         *big.Int
	ChapterNumber   *big.Int
	SubmissionIndex *big.Int
	Voter           common.Address
	Raw             types.Log
}

type ChapterFinalized struct {
	StoryId       *big.Int
	ChapterNumber *big.Int
	Winner        common.Address
	Votes         *big.Int
	Content       string
	Raw           types.Log
}

type StoryCompleted struct {
	StoryId *big.Int
	Raw     types.Log
}

type VotingExtended struct {
	StoryId       *big.Int
	ChapterNumber *big.Int
	NewVotingEnd  *big.Int
	Raw           types.Log
}

func (e *StoryCreated) EventName() string     { return EventStoryCreated }
func (e *SubmissionAdded) EventName() string  { return EventSubmissionAdded }
func (e *VoteCast) EventName() string         { return EventVoteCast }
func (e *ChapterFinalized) EventName() string { return EventChapterFinalized }
func (e *StoryCompleted) EventName() string   { return EventStoryCompleted }
func (e *VotingExtended) EventName() string   { return EventVotingExtended }

func (e *StoryCreated) Story() *big.Int     { return e.StoryId }
func (e *SubmissionAdded) Story() *big.Int  { return e.StoryId }
func (e *VoteCast) Story() *big.Int         { return e.StoryId }
func (e *ChapterFinalized) Story() *big.Int { return e.StoryId }
func (e *StoryCompleted) Story() *big.Int   { return e.StoryId }
func (e *VotingExtended) Story() *big.Int   { return e.StoryId }

func (e *StoryCreated) Log() types.Log     { return e.Raw }
func (e *SubmissionAdded) Log() types.Log  { return e.Raw }
func (e *VoteCast) Log() types.Log         { return e.Raw }
func (e *ChapterFinalized) Log() types.Log { return e.Raw }
func (e *StoryCompleted) Log() types.Log   { return e.Raw }
func (e *VotingExtended) Log() types.Log   { return e.Raw }

func (e *StoryCreated) Payload() map[string]any {
	return withLog(e.Raw, map[string]any{
		"storyId":             dec(e.StoryId),
		"creator":             e.Creator.Hex(),
		"title":               e.Title,
		"totalChapters":       dec(e.TotalChapters),
		"votingPeriodSeconds": dec(e.VotingPeriodSeconds),
	})
}

func (e *SubmissionAdded) Payload() map[string]any {
	return withLog(e.Raw, map[string]any{
		"storyId":         dec(e.StoryId),
		"chapterNumber":   dec(e.ChapterNumber),
		"submissionIndex": dec(e.SubmissionIndex),
		"author":          e.Author.Hex(),
		"content":         e.Content,
	})
}

func (e *VoteCast) Payload() map[string]any {
	return withLog(e.Raw, map[string]any{
		"storyId":         dec(e.StoryId),
		"chapterNumber":   dec(e.ChapterNumber),
		"submissionIndex": dec(e.SubmissionIndex),
		"voter":           e.Voter.Hex(),
	})
}

func (e *ChapterFinalized) Payload() map[string]any {
	return withLog(e.Raw, map[string]any{
		"storyId":       dec(e.StoryId),
		"chapterNumber": dec(e.ChapterNumber),
		"winner":        e.Winner.Hex(),
		"votes":         dec(e.Votes),
		"content":       e.Content,
	})
}

func (e *StoryCompleted) Payload() map[string]any {
	return withLog(e.Raw, map[string]any{"storyId": dec(e.StoryId)})
}

func (e *VotingExtended) Payload() map[string]any {
	return withLog(e.Raw, map[string]any{
		"storyId":       dec(e.StoryId),
		"chapterNumber": dec(e.ChapterNumber),
		"newVotingEnd":  dec(e.NewVotingEnd),
	})
}

func dec(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func withLog(l types.Log, m map[string]any) map[string]any {
	m["blockNumber"] = l.BlockNumber
	m["txHash"] = l.TxHash.Hex()
	m["logIndex"] = l.Index
	return m
}

// EventDecoder turns raw logs from one contract into typed events.
type EventDecoder struct {
	address common.Address
	abi     abi.ABI
}

func NewEventDecoder(address common.Address) *EventDecoder {
	return &EventDecoder{address: address, abi: MustBerniceABI()}
}

// Topics returns the topic filter matching every watched event.
func (d *EventDecoder) Topics() [][]common.Hash {
	ids := make([]common.Hash, 0, len(WatchedEvents))
	for _, name := range WatchedEvents {
		ids = append(ids, d.abi.Events[name].ID)
	}
	return [][]common.Hash{ids}
}

// Decode matches a log against the watched events and unpacks it.
func (d *EventDecoder) Decode(l types.Log) (ContractEvent, error) {
	if len(l.Topics) == 0 {
		return nil, ErrUnknownEvent
	}
	if d.address != (common.Address{}) && l.Address != d.address {
		return nil, ErrUnknownEvent
	}

	event, err := d.abi.EventByID(l.Topics[0])
	if err != nil {
		return nil, ErrUnknownEvent
	}

	var out ContractEvent
	switch event.Name {
	case EventStoryCreated:
		out = &StoryCreated{Raw: l}
	case EventSubmissionAdded:
		out = &SubmissionAdded{Raw: l}
	case EventVoteCast:
		out = &VoteCast{Raw: l}
	case EventChapterFinalized:
		out = &ChapterFinalized{Raw: l}
	case EventStoryCompleted:
		out = &StoryCompleted{Raw: l}
	case EventVotingExtended:
		out = &VotingExtended{Raw: l}
	default:
		return nil, ErrUnknownEvent
	}

	if len(l.Data) > 0 {
		if err := d.abi.UnpackIntoInterface(out, event.Name, l.Data); err != nil {
			return nil, fmt.Errorf("failed to unpack %s data: %w", event.Name, err)
		}
	}

	var indexed abi.Arguments
	for _, arg := range event.Inputs {
		if arg.Indexed {
			indexed = append(indexed, arg)
		}
	}
	if len(l.Topics)-1 != len(indexed) {
		return nil, fmt.Errorf("%s: expected %d indexed topics, got %d", event.Name, len(indexed), len(l.Topics)-1)
	}
	if err := abi.ParseTopics(out, indexed, l.Topics[1:]); err != nil {
		return nil, fmt.Errorf("failed to parse %s topics: %w", event.Name, err)
	}
	return out, nil
}
