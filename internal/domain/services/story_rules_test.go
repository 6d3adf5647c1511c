package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bernice-stories/bernice/internal/domain/entities/story"
)

func submission(id string, votes int, created time.Time, seq int64) *story.Submission {
	return &story.Submission{ID: id, TotalVotes: votes, CreatedAt: created, Seq: seq}
}

func TestSelectWinnerPicksMaxVotes(t *testing.T) {
	rules := NewStoryRules()
	now := time.Now()
	subs := []*story.Submission{
		submission("a", 1, now, 1),
		submission("b", 4, now.Add(time.Second), 2),
		submission("c", 2, now.Add(2*time.Second), 3),
	}
	assert.Equal(t, "b", rules.SelectWinner(subs).ID)
}

func TestSelectWinnerTieGoesToEarliest(t *testing.T) {
	rules := NewStoryRules()
	now := time.Now()

	subs := []*story.Submission{
		submission("late", 3, now.Add(time.Minute), 2),
		submission("early", 3, now, 1),
	}
	assert.Equal(t, "early", rules.SelectWinner(subs).ID)

	// same timestamp falls back to insertion order
	subs = []*story.Submission{
		submission("second", 0, now, 8),
		submission("first", 0, now, 7),
	}
	assert.Equal(t, "first", rules.SelectWinner(subs).ID)
}

func TestSelectWinnerEmpty(t *testing.T) {
	assert.Nil(t, NewStoryRules().SelectWinner(nil))
}

func TestSortByVotes(t *testing.T) {
	now := time.Now()
	subs := []*story.Submission{
		submission("a", 1, now, 1),
		submission("b", 2, now, 2),
		submission("c", 1, now, 3),
	}
	NewStoryRules().SortByVotes(subs)
	ids := []string{subs[0].ID, subs[1].ID, subs[2].ID}
	assert.Equal(t, []string{"b", "a", "c"}, ids)
}

func TestExcerpt(t *testing.T) {
	rules := NewStoryRules()
	s := &story.Story{Description: "no chapters yet"}
	assert.Equal(t, "no chapters yet", rules.Excerpt(s, 0))

	s.Chapters = []*story.Chapter{{Content: "short"}}
	assert.Equal(t, "short", rules.Excerpt(s, 10))

	s.Chapters[0].Content = "abcdefghijkl"
	assert.Equal(t, "abcde...", rules.Excerpt(s, 5))
}

func TestEngagementScore(t *testing.T) {
	s := &story.Story{Chapters: make([]*story.Chapter, 2), TotalVotes: 54}
	assert.Equal(t, 2*10+54*2+3*5, NewStoryRules().EngagementScore(s, 3))
}

func TestApplyFiltersAndSorts(t *testing.T) {
	rules := NewStoryRules()
	stories := []*story.Story{
		{ID: "new", TotalVotes: 1, Tags: []string{"Sci-Fi"}},
		{ID: "done", TotalVotes: 9, IsComplete: true},
		{ID: "old", TotalVotes: 5, Chapters: make([]*story.Chapter, 1)},
	}

	active := rules.Apply(stories, story.StoryFilters{Status: story.StatusActive, SortBy: story.SortNewest}, nil)
	require.Len(t, active, 2)
	assert.Equal(t, "new", active[0].ID)

	popular := rules.Apply(stories, story.StoryFilters{Status: story.StatusAll, SortBy: story.SortPopular}, nil)
	assert.Equal(t, "done", popular[0].ID)

	trending := rules.Apply(stories, story.StoryFilters{Status: story.StatusActive, SortBy: story.SortTrending},
		map[string]int{"new": 10})
	assert.Equal(t, "new", trending[0].ID)

	tagged := rules.Apply(stories, story.StoryFilters{Status: story.StatusAll, Tag: "sci-fi"}, nil)
	require.Len(t, tagged, 1)
	assert.Equal(t, "new", tagged[0].ID)

	// input order untouched
	assert.Equal(t, "new", stories[0].ID)
	assert.Equal(t, "done", stories[1].ID)
}

func TestNormalizeFilters(t *testing.T) {
	f, ok := NormalizeFilters(story.StoryFilters{})
	assert.True(t, ok)
	assert.Equal(t, story.StatusAll, f.Status)
	assert.Equal(t, story.SortNewest, f.SortBy)

	_, ok = NormalizeFilters(story.StoryFilters{Status: "archived"})
	assert.False(t, ok)
	_, ok = NormalizeFilters(story.StoryFilters{SortBy: "random"})
	assert.False(t, ok)
}
