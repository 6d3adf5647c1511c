// Package story defines the collaborative storytelling domain entities.
package story

import "time"

type User struct {
	Address  string  `json:"address"`
	Username *string `json:"username,omitempty"`
	Avatar   *string `json:"avatar,omitempty"`
}

type Story struct {
	ID             string     `json:"id"`
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	Creator        User       `json:"creator"`
	CreatedAt      time.Time  `json:"createdAt"`
	IsComplete     bool       `json:"isComplete"`
	CurrentChapter int        `json:"currentChapter"`
	MaxChapters    int        `json:"maxChapters"`
	Chapters       []*Chapter `json:"chapters"`
	Tags           []string   `json:"tags"`
	TotalVotes     int        `json:"totalVotes"`
}

// Chapter is an accepted segment of a story. Only winning content becomes a
// chapter, so IsSelected is always true.
type Chapter struct {
	ID            string        `json:"id"`
	StoryID       string        `json:"storyId"`
	ChapterNumber int           `json:"chapterNumber"`
	Content       string        `json:"content"`
	Author        User          `json:"author"`
	Votes         int           `json:"votes"`
	CreatedAt     time.Time     `json:"createdAt"`
	IsSelected    bool          `json:"isSelected"`
	Submissions   []*Submission `json:"submissions"`
}

type Submission struct {
	ID            string    `json:"id"`
	StoryID       string    `json:"storyId"`
	ChapterNumber int       `json:"chapterNumber"`
	Content       string    `json:"content"`
	Author        User      `json:"author"`
	Votes         []*Vote   `json:"votes"`
	TotalVotes    int       `json:"totalVotes"`
	CreatedAt     time.Time `json:"createdAt"`
	IsWinner      bool      `json:"isWinner"`

	// Seq is the store-assigned insertion order, used to break ties.
	Seq int64 `json:"-"`
}

type Vote struct {
	ID              string    `json:"id"`
	SubmissionID    string    `json:"submissionId"`
	Voter           User      `json:"voter"`
	TransactionHash string    `json:"transactionHash"`
	CreatedAt       time.Time `json:"createdAt"`
	Weight          int       `json:"weight"`
}

type StoryProgress struct {
	StoryID            string `json:"storyId"`
	CurrentChapter     int    `json:"currentChapter"`
	TotalChapters      int    `json:"totalChapters"`
	PendingSubmissions int    `json:"pendingSubmissions"`
	IsVotingOpen       bool   `json:"isVotingOpen"`
}

// VotingRound is the open slot of an incomplete story and its competitors.
type VotingRound struct {
	StoryID            string        `json:"storyId"`
	StoryTitle         string        `json:"storyTitle"`
	ChapterNumber      int           `json:"chapterNumber"`
	Submissions        []*Submission `json:"submissions"`
	IsActive           bool          `json:"isActive"`
	WinnerSubmissionID *string       `json:"winnerSubmissionId,omitempty"`
}

type StoryStatus string

const (
	StatusActive   StoryStatus = "active"
	StatusComplete StoryStatus = "complete"
	StatusAll      StoryStatus = "all"
)

type SortBy string

const (
	SortNewest   SortBy = "newest"
	SortPopular  SortBy = "popular"
	SortTrending SortBy = "trending"
)

type StoryFilters struct {
	Status StoryStatus `json:"status" form:"status"`
	SortBy SortBy      `json:"sortBy" form:"sortBy"`
	Tag    string      `json:"tag,omitempty" form:"tag"`
}

// Draft is unsaved form text keyed per owner.
type Draft struct {
	Owner     string    `json:"owner"`
	Key       string    `json:"key"`
	Content   string    `json:"content"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Clone returns a deep copy so callers cannot alias store state.
func (s *Story) Clone() *Story {
	if s == nil {
		return nil
	}
	out := *s
	out.Tags = append([]string(nil), s.Tags...)
	out.Chapters = make([]*Chapter, len(s.Chapters))
	for i, ch := range s.Chapters {
		out.Chapters[i] = ch.Clone()
	}
	return &out
}

func (c *Chapter) Clone() *Chapter {
	if c == nil {
		return nil
	}
	out := *c
	out.Submissions = make([]*Submission, len(c.Submissions))
	for i, sub := range c.Submissions {
		out.Submissions[i] = sub.Clone()
	}
	return &out
}

func (s *Submission) Clone() *Submission {
	if s == nil {
		return nil
	}
	out := *s
	out.Votes = make([]*Vote, len(s.Votes))
	for i, v := range s.Votes {
		vc := *v
		out.Votes[i] = &vc
	}
	return &out
}
