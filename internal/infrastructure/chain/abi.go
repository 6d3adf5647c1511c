// Package chain talks to the Bernice story contract: typed reads, signed
// writes with phase tracking, and event delivery.
package chain

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

//go:embed bernice_abi.json
var berniceABIJSON string

// Contract function names.
const (
	MethodStoryCount          = "s_storyCount"
	MethodStories             = "s_stories"
	MethodGetStory            = "getStory"
	MethodGetChapterContent   = "getChapterContent"
	MethodGetSubmissionsCount = "getSubmissionsCount"
	MethodGetSubmission       = "getSubmission"
	MethodHasVoted            = "s_hasVoted"

	MethodCreateStory        = "createStory"
	MethodSubmitContinuation = "submitContinuation"
	MethodVote               = "vote"
	MethodFinalizeChapter    = "finalizeCurrentChapter"
	MethodExtendVoting       = "extendVoting"
)

// Contract event names.
const (
	EventStoryCreated     = "StoryCreated"
	EventSubmissionAdded  = "SubmissionAdded"
	EventVoteCast         = "VoteCast"
	EventChapterFinalized = "ChapterFinalized"
	EventStoryCompleted   = "StoryCompleted"
	EventVotingExtended   = "VotingExtended"
)

// WatchedEvents lists the events the listener subscribes to.
var WatchedEvents = []string{
	EventStoryCreated,
	EventSubmissionAdded,
	EventVoteCast,
	EventChapterFinalized,
	EventStoryCompleted,
	EventVotingExtended,
}

var (
	parsedABI     abi.ABI
	parsedABIErr  error
	parsedABIOnce sync.Once
)

// BerniceABI returns the parsed contract ABI.
func BerniceABI() (abi.ABI, error) {
	parsedABIOnce.Do(func() {
		parsedABI, parsedABIErr = abi.JSON(strings.NewReader(berniceABIJSON))
		if parsedABIErr != nil {
			parsedABIErr = fmt.Errorf("failed to parse bernice abi: %w", parsedABIErr)
			return
		}
		for _, name := range WatchedEvents {
			if _, ok := parsedABI.Events[name]; !ok {
				parsedABIErr = fmt.Errorf("bernice abi is missing event %s", name)
				return
			}
		}
	})
	return parsedABI, parsedABIErr
}

// MustBerniceABI is BerniceABI for package initialisation paths and tests.
func MustBerniceABI() abi.ABI {
	parsed, err := BerniceABI()
	if err != nil {
		panic(err)
	}
	return parsed
}
