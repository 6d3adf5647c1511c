package chain

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/bernice-stories/bernice/internal/apperrors"
)

// OnChainStory is the decoded getStory / s_stories tuple.
type OnChainStory struct {
	ID                      string `json:"id"`
	Creator                 string `json:"creator"`
	Title                   string `json:"title"`
	TotalChapters           uint64 `json:"totalChapters"`
	CurrentChapterNumber    uint64 `json:"currentChapterNumber"`
	VotingPeriod            uint64 `json:"votingPeriod"`
	CurrentChapterVotingEnd uint64 `json:"currentChapterVotingEnd"`
	Completed               bool   `json:"completed"`
}

// OnChainSubmission is the decoded getSubmission tuple.
type OnChainSubmission struct {
	StoryID         string `json:"storyId"`
	ChapterNumber   uint64 `json:"chapterNumber"`
	SubmissionIndex uint64 `json:"submissionIndex"`
	Author          string `json:"author"`
	Content         string `json:"content"`
	Votes           uint64 `json:"votes"`
}

// OnChainChapter is accepted chapter text read from the contract.
type OnChainChapter struct {
	ChapterNumber uint64 `json:"chapterNumber"`
	Content       string `json:"content"`
}

// CompleteStory is a story together with every accepted chapter.
type CompleteStory struct {
	Story    *OnChainStory    `json:"story"`
	Chapters []OnChainChapter `json:"chapters"`
}

// VotingStatus compares the voting deadline with the latest block time.
type VotingStatus struct {
	StoryID          string `json:"storyId"`
	ChapterNumber    uint64 `json:"chapterNumber"`
	VotingEnd        uint64 `json:"votingEnd"`
	BlockTime        uint64 `json:"blockTime"`
	IsVotingOpen     bool   `json:"isVotingOpen"`
	SecondsRemaining uint64 `json:"secondsRemaining"`
	CanFinalize      bool   `json:"canFinalize"`
	Completed        bool   `json:"completed"`
}

// ParseStoryID validates a decimal story id. Zero and empty ids are rejected.
func ParseStoryID(raw string) (*big.Int, error) {
	return parsePositive(raw, "story id")
}

// ParseChapterNumber validates a 1-based chapter number.
func ParseChapterNumber(raw string) (*big.Int, error) {
	return parsePositive(raw, "chapter number")
}

// ParseIndex validates a zero-based index.
func ParseIndex(raw string) (*big.Int, error) {
	raw = strings.TrimSpace(raw)
	v, ok := new(big.Int).SetString(raw, 10)
	if raw == "" || !ok || v.Sign() < 0 {
		return nil, apperrors.Validation("submission index must be a non-negative integer")
	}
	return v, nil
}

func parsePositive(raw, field string) (*big.Int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, apperrors.Validation(field + " is required")
	}
	v, ok := new(big.Int).SetString(raw, 10)
	if !ok || v.Sign() <= 0 {
		return nil, apperrors.Validation(field + " must be a positive integer")
	}
	return v, nil
}

// ParseAddress validates a 0x address.
func ParseAddress(raw string) (common.Address, error) {
	raw = strings.TrimSpace(raw)
	if !common.IsHexAddress(raw) {
		return common.Address{}, apperrors.Validation("address must be a 0x-prefixed hex address")
	}
	return common.HexToAddress(raw), nil
}

// DecodeStory converts a 7-field story tuple into an OnChainStory.
func DecodeStory(id *big.Int, values []interface{}) (*OnChainStory, error) {
	if len(values) != 7 {
		return nil, fmt.Errorf("story tuple: expected 7 fields, got %d", len(values))
	}
	creator, err := asAddress(values[0], "creator")
	if err != nil {
		return nil, err
	}
	title, err := asString(values[1], "title")
	if err != nil {
		return nil, err
	}
	nums := make([]uint64, 4)
	for i, name := range []string{"totalChapters", "currentChapterNumber", "votingPeriod", "currentChapterVotingEnd"} {
		if nums[i], err = asUint64(values[2+i], name); err != nil {
			return nil, err
		}
	}
	completed, ok := values[6].(bool)
	if !ok {
		return nil, fmt.Errorf("story tuple: completed has type %T", values[6])
	}

	return &OnChainStory{
		ID:                      id.String(),
		Creator:                 creator.Hex(),
		Title:                   title,
		TotalChapters:           nums[0],
		CurrentChapterNumber:    nums[1],
		VotingPeriod:            nums[2],
		CurrentChapterVotingEnd: nums[3],
		Completed:               completed,
	}, nil
}

// DecodeSubmission converts a 3-field submission tuple.
func DecodeSubmission(storyID, chapter, index *big.Int, values []interface{}) (*OnChainSubmission, error) {
	if len(values) != 3 {
		return nil, fmt.Errorf("submission tuple: expected 3 fields, got %d", len(values))
	}
	author, err := asAddress(values[0], "author")
	if err != nil {
		return nil, err
	}
	content, err := asString(values[1], "content")
	if err != nil {
		return nil, err
	}
	votes, err := asUint64(values[2], "votes")
	if err != nil {
		return nil, err
	}
	return &OnChainSubmission{
		StoryID:         storyID.String(),
		ChapterNumber:   chapter.Uint64(),
		SubmissionIndex: index.Uint64(),
		Author:          author.Hex(),
		Content:         content,
		Votes:           votes,
	}, nil
}

// DecodeSingle unwraps a single-output call.
func DecodeSingle(values []interface{}, method string) (interface{}, error) {
	if len(values) != 1 {
		return nil, fmt.Errorf("%s: expected 1 output, got %d", method, len(values))
	}
	return values[0], nil
}

func asAddress(v interface{}, field string) (common.Address, error) {
	addr, ok := v.(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("%s has type %T, want address", field, v)
	}
	return addr, nil
}

func asString(v interface{}, field string) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%s has type %T, want string", field, v)
	}
	return s, nil
}

func asUint64(v interface{}, field string) (uint64, error) {
	n, ok := v.(*big.Int)
	if !ok || n == nil {
		return 0, fmt.Errorf("%s has type %T, want uint256", field, v)
	}
	if !n.IsUint64() {
		return 0, fmt.Errorf("%s overflows uint64: %s", field, n)
	}
	return n.Uint64(), nil
}
