// Package services holds pure story rules shared by every store backend.
package services

import (
	"sort"
	"strings"

	"github.com/bernice-stories/bernice/internal/domain/entities/story"
)

// DefaultExcerptLength is the rune budget of StoryExcerpt.
const DefaultExcerptLength = 150

type StoryRules struct{}

func NewStoryRules() *StoryRules {
	return &StoryRules{}
}

// earlier reports whether a was submitted before b.
func earlier(a, b *story.Submission) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.Seq < b.Seq
}

// SelectWinner returns the submission with the most votes. On equal counts the
// earliest submission wins. Returns nil for an empty slot.
func (r *StoryRules) SelectWinner(subs []*story.Submission) *story.Submission {
	var winner *story.Submission
	for _, sub := range subs {
		if winner == nil ||
			sub.TotalVotes > winner.TotalVotes ||
			(sub.TotalVotes == winner.TotalVotes && earlier(sub, winner)) {
			winner = sub
		}
	}
	return winner
}

// SortByVotes orders submissions by votes descending, then by submission order.
func (r *StoryRules) SortByVotes(subs []*story.Submission) {
	sort.SliceStable(subs, func(i, j int) bool {
		if subs[i].TotalVotes != subs[j].TotalVotes {
			return subs[i].TotalVotes > subs[j].TotalVotes
		}
		return earlier(subs[i], subs[j])
	})
}

// Excerpt returns the start of the first chapter, or the description when the
// story has no chapters yet.
func (r *StoryRules) Excerpt(s *story.Story, maxLength int) string {
	if maxLength <= 0 {
		maxLength = DefaultExcerptLength
	}
	if len(s.Chapters) == 0 {
		return s.Description
	}
	text := []rune(s.Chapters[0].Content)
	if len(text) <= maxLength {
		return string(text)
	}
	return string(text[:maxLength]) + "..."
}

// EngagementScore weights chapters, votes and submissions for trending order.
func (r *StoryRules) EngagementScore(s *story.Story, submissionCount int) int {
	return len(s.Chapters)*10 + s.TotalVotes*2 + submissionCount*5
}

// Apply filters and sorts stories in place. Input is expected newest first;
// submissionCounts feeds the trending score and may be nil otherwise.
func (r *StoryRules) Apply(stories []*story.Story, filters story.StoryFilters, submissionCounts map[string]int) []*story.Story {
	out := stories[:0:0]
	tag := strings.ToLower(strings.TrimSpace(filters.Tag))
	for _, s := range stories {
		switch filters.Status {
		case story.StatusActive:
			if s.IsComplete {
				continue
			}
		case story.StatusComplete:
			if !s.IsComplete {
				continue
			}
		}
		if tag != "" && !hasTag(s.Tags, tag) {
			continue
		}
		out = append(out, s)
	}

	switch filters.SortBy {
	case story.SortPopular:
		sort.SliceStable(out, func(i, j int) bool { return out[i].TotalVotes > out[j].TotalVotes })
	case story.SortTrending:
		sort.SliceStable(out, func(i, j int) bool {
			return r.EngagementScore(out[i], submissionCounts[out[i].ID]) >
				r.EngagementScore(out[j], submissionCounts[out[j].ID])
		})
	}
	return out
}

// SortNewest orders stories by creation time, newest first.
func (r *StoryRules) SortNewest(stories []*story.Story) {
	sort.SliceStable(stories, func(i, j int) bool {
		return stories[i].CreatedAt.After(stories[j].CreatedAt)
	})
}

func hasTag(tags []string, tag string) bool {
	for _, t := range tags {
		if strings.ToLower(t) == tag {
			return true
		}
	}
	return false
}

// NormalizeFilters fills in defaults and rejects unknown values.
func NormalizeFilters(f story.StoryFilters) (story.StoryFilters, bool) {
	if f.Status == "" {
		f.Status = story.StatusAll
	}
	if f.SortBy == "" {
		f.SortBy = story.SortNewest
	}
	switch f.Status {
	case story.StatusActive, story.StatusComplete, story.StatusAll:
	default:
		return f, false
	}
	switch f.SortBy {
	case story.SortNewest, story.SortPopular, story.SortTrending:
	default:
		return f, false
	}
	return f, true
}
