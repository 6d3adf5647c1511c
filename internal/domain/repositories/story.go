// Package repositories defines the persistence interfaces for the story domain.
// Both the in-memory demo store and the SQL store satisfy them.
package repositories

import (
	"context"

	"github.com/bernice-stories/bernice/internal/domain/entities/story"
)

// StoryRepository persists stories together with their accepted chapters.
type StoryRepository interface {
	Store(ctx context.Context, s *story.Story) error
	// Update writes the story's scalar fields and inserts any chapters not yet stored.
	Update(ctx context.Context, s *story.Story) error
	FindByID(ctx context.Context, id string) (*story.Story, error)
	FindAll(ctx context.Context) ([]*story.Story, error)
}

// SubmissionRepository persists candidate continuations. Find methods return
// submissions in insertion order.
type SubmissionRepository interface {
	Store(ctx context.Context, sub *story.Submission) error
	Update(ctx context.Context, sub *story.Submission) error
	FindByID(ctx context.Context, id string) (*story.Submission, error)
	FindBySlot(ctx context.Context, storyID string, chapterNumber int) ([]*story.Submission, error)
	FindByStory(ctx context.Context, storyID string) ([]*story.Submission, error)
	FindByAuthor(ctx context.Context, address string) ([]*story.Submission, error)
}

// VoteRepository persists votes. Store records the vote and adds its weight to
// the submission's TotalVotes as one unit.
type VoteRepository interface {
	Store(ctx context.Context, v *story.Vote) error
	FindBySubmission(ctx context.Context, submissionID string) ([]*story.Vote, error)
	FindBySubmissionAndVoter(ctx context.Context, submissionID, voter string) (*story.Vote, error)
	FindByVoter(ctx context.Context, voter string) ([]*story.Vote, error)
}

type DraftRepository interface {
	Get(ctx context.Context, owner, key string) (*story.Draft, error)
	Put(ctx context.Context, d *story.Draft) error
	Delete(ctx context.Context, owner, key string) error
	List(ctx context.Context, owner string) ([]*story.Draft, error)
}

// Stores bundles the repositories a backend provides.
type Stores struct {
	Stories     StoryRepository
	Submissions SubmissionRepository
	Votes       VoteRepository
	Drafts      DraftRepository
}
