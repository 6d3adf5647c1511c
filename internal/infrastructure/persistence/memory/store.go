// Package memory provides process-local repositories for the demo store.
// Each repository guards its own state; callers receive copies.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/bernice-stories/bernice/internal/domain/entities/story"
	"github.com/bernice-stories/bernice/internal/domain/repositories"
)

// NewStores returns a fresh set of in-memory repositories.
func NewStores() repositories.Stores {
	submissions := NewSubmissionRepository()
	return repositories.Stores{
		Stories:     NewStoryRepository(),
		Submissions: submissions,
		Votes:       NewVoteRepository(submissions),
		Drafts:      NewDraftRepository(),
	}
}

type StoryRepository struct {
	mu      sync.RWMutex
	stories map[string]*story.Story
	order   []string
}

func NewStoryRepository() *StoryRepository {
	return &StoryRepository{stories: make(map[string]*story.Story)}
}

func (r *StoryRepository) Store(_ context.Context, s *story.Story) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.stories[s.ID]; exists {
		return fmt.Errorf("story %s already exists", s.ID)
	}
	r.stories[s.ID] = s.Clone()
	r.order = append(r.order, s.ID)
	return nil
}

func (r *StoryRepository) Update(_ context.Context, s *story.Story) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.stories[s.ID]; !exists {
		return fmt.Errorf("story %s does not exist", s.ID)
	}
	r.stories[s.ID] = s.Clone()
	return nil
}

func (r *StoryRepository) FindByID(_ context.Context, id string) (*story.Story, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.stories[id]
	if !ok {
		return nil, nil
	}
	return s.Clone(), nil
}

// FindAll returns stories in insertion order.
func (r *StoryRepository) FindAll(_ context.Context) ([]*story.Story, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*story.Story, 0, len(r.order))
	for _, id := range r.order {
		result = append(result, r.stories[id].Clone())
	}
	return result, nil
}

type SubmissionRepository struct {
	mu          sync.RWMutex
	submissions map[string]*story.Submission
	order       []string
	seq         int64
}

func NewSubmissionRepository() *SubmissionRepository {
	return &SubmissionRepository{submissions: make(map[string]*story.Submission)}
}

// Store assigns the insertion sequence used for tie-breaking.
func (r *SubmissionRepository) Store(_ context.Context, sub *story.Submission) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.submissions[sub.ID]; exists {
		return fmt.Errorf("submission %s already exists", sub.ID)
	}
	r.seq++
	sub.Seq = r.seq
	r.submissions[sub.ID] = sub.Clone()
	r.order = append(r.order, sub.ID)
	return nil
}

func (r *SubmissionRepository) Update(_ context.Context, sub *story.Submission) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.submissions[sub.ID]
	if !ok {
		return fmt.Errorf("submission %s does not exist", sub.ID)
	}
	updated := sub.Clone()
	updated.Seq = existing.Seq
	r.submissions[sub.ID] = updated
	return nil
}

func (r *SubmissionRepository) addVotes(id string, weight int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	sub, ok := r.submissions[id]
	if !ok {
		return fmt.Errorf("submission %s does not exist", id)
	}
	sub.TotalVotes += weight
	return nil
}

func (r *SubmissionRepository) FindByID(_ context.Context, id string) (*story.Submission, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sub, ok := r.submissions[id]
	if !ok {
		return nil, nil
	}
	return sub.Clone(), nil
}

func (r *SubmissionRepository) filter(match func(*story.Submission) bool) []*story.Submission {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := []*story.Submission{}
	for _, id := range r.order {
		if sub := r.submissions[id]; match(sub) {
			result = append(result, sub.Clone())
		}
	}
	return result
}

func (r *SubmissionRepository) FindBySlot(_ context.Context, storyID string, chapterNumber int) ([]*story.Submission, error) {
	return r.filter(func(s *story.Submission) bool {
		return s.StoryID == storyID && s.ChapterNumber == chapterNumber
	}), nil
}

func (r *SubmissionRepository) FindByStory(_ context.Context, storyID string) ([]*story.Submission, error) {
	return r.filter(func(s *story.Submission) bool { return s.StoryID == storyID }), nil
}

func (r *SubmissionRepository) FindByAuthor(_ context.Context, address string) ([]*story.Submission, error) {
	return r.filter(func(s *story.Submission) bool { return s.Author.Address == address }), nil
}

// VoteRepository tallies each stored vote onto its submission.
type VoteRepository struct {
	mu          sync.RWMutex
	votes       []*story.Vote
	submissions *SubmissionRepository
}

func NewVoteRepository(submissions *SubmissionRepository) *VoteRepository {
	return &VoteRepository{submissions: submissions}
}

// Store rejects a second vote by the same voter on the same submission and
// a vote on an unknown submission. Nothing is recorded when it fails.
func (r *VoteRepository) Store(_ context.Context, v *story.Vote) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.votes {
		if existing.SubmissionID == v.SubmissionID && existing.Voter.Address == v.Voter.Address {
			return fmt.Errorf("vote by %s on %s already exists", v.Voter.Address, v.SubmissionID)
		}
	}
	if err := r.submissions.addVotes(v.SubmissionID, v.Weight); err != nil {
		return err
	}
	vc := *v
	r.votes = append(r.votes, &vc)
	return nil
}

func (r *VoteRepository) filter(match func(*story.Vote) bool) []*story.Vote {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := []*story.Vote{}
	for _, v := range r.votes {
		if match(v) {
			vc := *v
			result = append(result, &vc)
		}
	}
	return result
}

func (r *VoteRepository) FindBySubmission(_ context.Context, submissionID string) ([]*story.Vote, error) {
	return r.filter(func(v *story.Vote) bool { return v.SubmissionID == submissionID }), nil
}

func (r *VoteRepository) FindBySubmissionAndVoter(_ context.Context, submissionID, voter string) (*story.Vote, error) {
	found := r.filter(func(v *story.Vote) bool {
		return v.SubmissionID == submissionID && v.Voter.Address == voter
	})
	if len(found) == 0 {
		return nil, nil
	}
	return found[0], nil
}

func (r *VoteRepository) FindByVoter(_ context.Context, voter string) ([]*story.Vote, error) {
	return r.filter(func(v *story.Vote) bool { return v.Voter.Address == voter }), nil
}

type DraftRepository struct {
	mu     sync.RWMutex
	drafts map[string]map[string]story.Draft
}

func NewDraftRepository() *DraftRepository {
	return &DraftRepository{drafts: make(map[string]map[string]story.Draft)}
}

func (r *DraftRepository) Get(_ context.Context, owner, key string) (*story.Draft, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.drafts[owner][key]
	if !ok {
		return nil, nil
	}
	return &d, nil
}

func (r *DraftRepository) Put(_ context.Context, d *story.Draft) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.drafts[d.Owner] == nil {
		r.drafts[d.Owner] = make(map[string]story.Draft)
	}
	r.drafts[d.Owner][d.Key] = *d
	return nil
}

func (r *DraftRepository) Delete(_ context.Context, owner, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.drafts[owner], key)
	return nil
}

func (r *DraftRepository) List(_ context.Context, owner string) ([]*story.Draft, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := []*story.Draft{}
	for _, d := range r.drafts[owner] {
		dc := d
		result = append(result, &dc)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Key < result[j].Key })
	return result, nil
}
