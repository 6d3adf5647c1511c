package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/bernice-stories/bernice/internal/apperrors"
	"github.com/bernice-stories/bernice/internal/domain/entities/story"
	"github.com/bernice-stories/bernice/internal/domain/events"
	"github.com/bernice-stories/bernice/internal/domain/repositories"
	storyrules "github.com/bernice-stories/bernice/internal/domain/services"
	"github.com/bernice-stories/bernice/internal/infrastructure/observability/logging"
	"github.com/bernice-stories/bernice/internal/infrastructure/observability/performance"
	"github.com/bernice-stories/bernice/internal/infrastructure/security"
	"github.com/bernice-stories/bernice/pkg/config"
)

// CreateStoryRequest is the input of StoryService.CreateStory.
type CreateStoryRequest struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Creator     story.User `json:"creator"`
	MaxChapters int        `json:"maxChapters"`
	Tags        []string   `json:"tags"`
}

// StoryService runs the demo story lifecycle: create, submit, vote, finalize.
// Mutations are serialized so counters stay consistent across repositories.
type StoryService struct {
	stories     repositories.StoryRepository
	submissions repositories.SubmissionRepository
	votes       repositories.VoteRepository
	rules       *storyrules.StoryRules
	publisher   events.Publisher
	logger      *logging.ChanneledLogger
	perfTracker *performance.Tracker
	now         func() time.Time
	mu          sync.Mutex
}

func NewStoryService(stores repositories.Stores, publisher events.Publisher, logger *logging.ChanneledLogger, perfTracker *performance.Tracker) *StoryService {
	if publisher == nil {
		publisher = events.Discard
	}
	return &StoryService{
		stories:     stores.Stories,
		submissions: stores.Submissions,
		votes:       stores.Votes,
		rules:       storyrules.NewStoryRules(),
		publisher:   publisher,
		logger:      logger,
		perfTracker: perfTracker,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// CreateStory stores a new story with no chapters.
func (s *StoryService) CreateStory(ctx context.Context, req CreateStoryRequest) (*story.Story, error) {
	marker := s.perfTracker.StartOperation("create_story", "demo")
	defer marker.Complete()

	title := strings.TrimSpace(req.Title)
	if title == "" {
		marker.SetSuccess(false)
		return nil, apperrors.Validation("title is required")
	}
	if utf8.RuneCountInString(title) > config.MaxTitleLength {
		marker.SetSuccess(false)
		return nil, apperrors.Validation(fmt.Sprintf("title must be at most %d characters", config.MaxTitleLength))
	}
	if req.MaxChapters < 0 {
		marker.SetSuccess(false)
		return nil, apperrors.Validation("maxChapters cannot be negative")
	}
	if strings.TrimSpace(req.Creator.Address) == "" {
		marker.SetSuccess(false)
		return nil, apperrors.Validation("creator address is required")
	}

	maxChapters := req.MaxChapters
	if maxChapters == 0 {
		maxChapters = config.DefaultMaxChapters
	}

	st := &story.Story{
		ID:          security.NewID("story"),
		Title:       title,
		Description: strings.TrimSpace(req.Description),
		Creator:     req.Creator,
		CreatedAt:   s.now(),
		MaxChapters: maxChapters,
		Chapters:    []*story.Chapter{},
		Tags:        cleanTags(req.Tags),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.stories.Store(ctx, st); err != nil {
		marker.SetError(err)
		return nil, fmt.Errorf("failed to create story: %w", err)
	}

	s.logger.Story().Info("Story created", "storyId", st.ID, "title", st.Title, "maxChapters", st.MaxChapters)
	s.publish(events.StoryCreated, st.ID, st)
	return st, nil
}

func cleanTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" || seen[strings.ToLower(t)] {
			continue
		}
		seen[strings.ToLower(t)] = true
		out = append(out, t)
	}
	return out
}

// GetStory returns a story with each chapter's competing submissions.
func (s *StoryService) GetStory(ctx context.Context, id string) (*story.Story, error) {
	st, err := s.stories.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get story %s: %w", id, err)
	}
	if st == nil {
		return nil, apperrors.NotFound("story not found")
	}
	if err := s.hydrateChapters(ctx, st); err != nil {
		return nil, err
	}
	return st, nil
}

// GetAllStories returns every story, newest first.
func (s *StoryService) GetAllStories(ctx context.Context) ([]*story.Story, error) {
	stories, err := s.stories.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get stories: %w", err)
	}
	s.rules.SortNewest(stories)
	return stories, nil
}

// GetActiveStories returns incomplete stories, newest first.
func (s *StoryService) GetActiveStories(ctx context.Context) ([]*story.Story, error) {
	return s.ListStories(ctx, story.StoryFilters{Status: story.StatusActive, SortBy: story.SortNewest})
}

// ListStories filters and sorts stories.
func (s *StoryService) ListStories(ctx context.Context, filters story.StoryFilters) ([]*story.Story, error) {
	filters, ok := storyrules.NormalizeFilters(filters)
	if !ok {
		return nil, apperrors.Validation("unknown status or sort order")
	}

	stories, err := s.GetAllStories(ctx)
	if err != nil {
		return nil, err
	}

	var counts map[string]int
	if filters.SortBy != story.SortNewest {
		counts = make(map[string]int, len(stories))
		for _, st := range stories {
			subs, err := s.submissions.FindByStory(ctx, st.ID)
			if err != nil {
				return nil, fmt.Errorf("failed to count submissions: %w", err)
			}
			counts[st.ID] = len(subs)
		}
	}
	return s.rules.Apply(stories, filters, counts), nil
}

// SubmitChapter adds a continuation. The first submission of a story becomes
// chapter 1 immediately; later ones compete for the next open slot.
func (s *StoryService) SubmitChapter(ctx context.Context, storyID, content string, author story.User) (*story.Submission, error) {
	marker := s.perfTracker.StartOperation("submit_chapter", storyID)
	defer marker.Complete()

	content = strings.TrimSpace(content)
	if content == "" {
		marker.SetSuccess(false)
		return nil, apperrors.Validation("content is required")
	}
	if utf8.RuneCountInString(content) > config.MaxChapterLength {
		marker.SetSuccess(false)
		return nil, apperrors.Validation(fmt.Sprintf("content must be at most %d characters", config.MaxChapterLength))
	}
	if strings.TrimSpace(author.Address) == "" {
		marker.SetSuccess(false)
		return nil, apperrors.Validation("author address is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.stories.FindByID(ctx, storyID)
	if err != nil {
		marker.SetError(err)
		return nil, fmt.Errorf("failed to load story %s: %w", storyID, err)
	}
	if st == nil {
		marker.SetSuccess(false)
		return nil, apperrors.NotFound("story not found")
	}
	if st.IsComplete {
		marker.SetSuccess(false)
		return nil, apperrors.Conflict("story is already complete")
	}

	now := s.now()
	sub := &story.Submission{
		ID:            security.NewID("submission"),
		StoryID:       st.ID,
		ChapterNumber: st.CurrentChapter + 1,
		Content:       content,
		Author:        author,
		Votes:         []*story.Vote{},
		CreatedAt:     now,
	}

	// The opening chapter is accepted outright and never enters the slot's submissions.
	if st.CurrentChapter == 0 {
		sub.TotalVotes = 1
		sub.IsWinner = true
		s.logger.Story().Info("Opening chapter accepted", "storyId", st.ID, "submissionId", sub.ID)
		s.publish(events.SubmissionAdded, st.ID, sub)
		if err := s.promote(ctx, st, sub); err != nil {
			marker.SetError(err)
			return nil, err
		}
		return sub, nil
	}

	if err := s.submissions.Store(ctx, sub); err != nil {
		marker.SetError(err)
		return nil, fmt.Errorf("failed to store submission: %w", err)
	}

	s.logger.Story().Info("Submission added", "storyId", st.ID, "submissionId", sub.ID, "chapter", sub.ChapterNumber)
	s.publish(events.SubmissionAdded, st.ID, sub)
	return sub, nil
}

// promote turns the winning submission into the next chapter and advances
// the story. Callers hold s.mu.
func (s *StoryService) promote(ctx context.Context, st *story.Story, winner *story.Submission) error {
	chapter := &story.Chapter{
		ID:            fmt.Sprintf("chapter_%s_%d", st.ID, winner.ChapterNumber),
		StoryID:       st.ID,
		ChapterNumber: winner.ChapterNumber,
		Content:       winner.Content,
		Author:        winner.Author,
		Votes:         winner.TotalVotes,
		CreatedAt:     s.now(),
		IsSelected:    true,
		Submissions:   []*story.Submission{},
	}

	st.Chapters = append(st.Chapters, chapter)
	st.CurrentChapter = winner.ChapterNumber
	st.TotalVotes += winner.TotalVotes
	if st.CurrentChapter >= st.MaxChapters {
		st.IsComplete = true
	}

	if err := s.stories.Update(ctx, st); err != nil {
		return fmt.Errorf("failed to advance story %s: %w", st.ID, err)
	}

	s.logger.Story().Info("Chapter finalized",
		"storyId", st.ID, "chapter", chapter.ChapterNumber, "winner", winner.ID, "votes", winner.TotalVotes)
	s.publish(events.ChapterFinalized, st.ID, chapter)
	if st.IsComplete {
		s.logger.Story().Info("Story completed", "storyId", st.ID, "chapters", st.CurrentChapter)
		s.publish(events.StoryCompleted, st.ID, st)
	}
	return nil
}

// GetSubmissionsForChapter returns the slot's submissions by votes descending.
func (s *StoryService) GetSubmissionsForChapter(ctx context.Context, storyID string, chapterNumber int) ([]*story.Submission, error) {
	if chapterNumber < 1 {
		return nil, apperrors.Validation("chapter number must be at least 1")
	}
	subs, err := s.submissions.FindBySlot(ctx, storyID, chapterNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to get submissions: %w", err)
	}
	if err := s.hydrateVotes(ctx, subs); err != nil {
		return nil, err
	}
	s.rules.SortByVotes(subs)
	return subs, nil
}

// VoteForSubmission records one vote. A voter may vote once per submission.
// An empty txRef is replaced with a generated reference.
func (s *StoryService) VoteForSubmission(ctx context.Context, submissionID string, voter story.User, txRef string) (*story.Vote, error) {
	marker := s.perfTracker.StartOperation("vote_submission", submissionID)
	defer marker.Complete()

	if strings.TrimSpace(voter.Address) == "" {
		marker.SetSuccess(false)
		return nil, apperrors.Validation("voter address is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sub, err := s.submissions.FindByID(ctx, submissionID)
	if err != nil {
		marker.SetError(err)
		return nil, fmt.Errorf("failed to load submission %s: %w", submissionID, err)
	}
	if sub == nil {
		marker.SetSuccess(false)
		return nil, apperrors.NotFound("submission not found")
	}

	existing, err := s.votes.FindBySubmissionAndVoter(ctx, submissionID, voter.Address)
	if err != nil {
		marker.SetError(err)
		return nil, fmt.Errorf("failed to check existing vote: %w", err)
	}
	if existing != nil {
		marker.SetSuccess(false)
		return nil, apperrors.Conflict("user has already voted for this submission")
	}

	st, err := s.stories.FindByID(ctx, sub.StoryID)
	if err != nil {
		marker.SetError(err)
		return nil, fmt.Errorf("failed to load story %s: %w", sub.StoryID, err)
	}
	if st == nil {
		marker.SetSuccess(false)
		return nil, apperrors.NotFound("story not found")
	}
	if st.IsComplete || sub.ChapterNumber <= st.CurrentChapter {
		marker.SetSuccess(false)
		return nil, apperrors.Conflict("voting for this chapter has closed")
	}

	now := s.now()
	if txRef == "" {
		txRef = security.MockTransactionRef(submissionID, voter.Address, strconv.FormatInt(now.UnixNano(), 10))
	}
	vote := &story.Vote{
		ID:              security.NewID("vote"),
		SubmissionID:    submissionID,
		Voter:           voter,
		TransactionHash: txRef,
		CreatedAt:       now,
		Weight:          1,
	}
	if err := s.votes.Store(ctx, vote); err != nil {
		marker.SetError(err)
		return nil, fmt.Errorf("failed to store vote: %w", err)
	}

	sub.TotalVotes += vote.Weight

	s.logger.Story().Info("Vote cast", "storyId", sub.StoryID, "submissionId", sub.ID, "voter", voter.Address, "total", sub.TotalVotes)
	s.publish(events.VoteCast, sub.StoryID, vote)
	return vote, nil
}

// SelectWinningSubmission closes the open slot. An empty slot yields (nil, nil).
func (s *StoryService) SelectWinningSubmission(ctx context.Context, storyID string, chapterNumber int) (*story.Submission, error) {
	marker := s.perfTracker.StartOperation("finalize_chapter", storyID)
	defer marker.Complete()

	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.stories.FindByID(ctx, storyID)
	if err != nil {
		marker.SetError(err)
		return nil, fmt.Errorf("failed to load story %s: %w", storyID, err)
	}
	if st == nil {
		marker.SetSuccess(false)
		return nil, apperrors.NotFound("story not found")
	}

	subs, err := s.submissions.FindBySlot(ctx, storyID, chapterNumber)
	if err != nil {
		marker.SetError(err)
		return nil, fmt.Errorf("failed to get submissions: %w", err)
	}
	if len(subs) == 0 {
		return nil, nil
	}
	if st.IsComplete {
		marker.SetSuccess(false)
		return nil, apperrors.Conflict("story is already complete")
	}
	if chapterNumber != st.CurrentChapter+1 {
		marker.SetSuccess(false)
		return nil, apperrors.Conflict(fmt.Sprintf("chapter %d is not open for voting", chapterNumber))
	}

	winner := s.rules.SelectWinner(subs)
	winner.IsWinner = true
	if err := s.submissions.Update(ctx, winner); err != nil {
		marker.SetError(err)
		return nil, fmt.Errorf("failed to mark winner %s: %w", winner.ID, err)
	}
	if err := s.promote(ctx, st, winner); err != nil {
		marker.SetError(err)
		return nil, err
	}

	if err := s.hydrateVotes(ctx, []*story.Submission{winner}); err != nil {
		return nil, err
	}
	return winner, nil
}

// GetStoryProgress summarizes where a story stands.
func (s *StoryService) GetStoryProgress(ctx context.Context, storyID string) (*story.StoryProgress, error) {
	st, err := s.stories.FindByID(ctx, storyID)
	if err != nil {
		return nil, fmt.Errorf("failed to load story %s: %w", storyID, err)
	}
	if st == nil {
		return nil, apperrors.NotFound("story not found")
	}

	pending, err := s.submissions.FindBySlot(ctx, storyID, st.CurrentChapter+1)
	if err != nil {
		return nil, fmt.Errorf("failed to get pending submissions: %w", err)
	}
	return &story.StoryProgress{
		StoryID:            st.ID,
		CurrentChapter:     st.CurrentChapter,
		TotalChapters:      st.MaxChapters,
		PendingSubmissions: len(pending),
		IsVotingOpen:       len(pending) > 0 && !st.IsComplete,
	}, nil
}

// GetPendingVotingRounds lists the open slot of every incomplete story that
// already has a first chapter.
func (s *StoryService) GetPendingVotingRounds(ctx context.Context) ([]*story.VotingRound, error) {
	stories, err := s.GetAllStories(ctx)
	if err != nil {
		return nil, err
	}

	rounds := make([]*story.VotingRound, 0, len(stories))
	for _, st := range stories {
		if st.IsComplete || st.CurrentChapter == 0 {
			continue
		}
		subs, err := s.GetSubmissionsForChapter(ctx, st.ID, st.CurrentChapter+1)
		if err != nil {
			return nil, err
		}
		rounds = append(rounds, &story.VotingRound{
			StoryID:       st.ID,
			StoryTitle:    st.Title,
			ChapterNumber: st.CurrentChapter + 1,
			Submissions:   subs,
			IsActive:      len(subs) > 0,
		})
	}
	return rounds, nil
}

func (s *StoryService) GetUserVotes(ctx context.Context, address string) ([]*story.Vote, error) {
	if strings.TrimSpace(address) == "" {
		return nil, apperrors.Validation("address is required")
	}
	votes, err := s.votes.FindByVoter(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("failed to get votes for %s: %w", address, err)
	}
	return votes, nil
}

func (s *StoryService) GetUserSubmissions(ctx context.Context, address string) ([]*story.Submission, error) {
	if strings.TrimSpace(address) == "" {
		return nil, apperrors.Validation("address is required")
	}
	subs, err := s.submissions.FindByAuthor(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("failed to get submissions for %s: %w", address, err)
	}
	if err := s.hydrateVotes(ctx, subs); err != nil {
		return nil, err
	}
	return subs, nil
}

// StoryExcerpt returns the opening of a story. maxLength <= 0 uses the default.
func (s *StoryService) StoryExcerpt(st *story.Story, maxLength int) string {
	return s.rules.Excerpt(st, maxLength)
}

// EngagementScore weighs chapters, votes and submissions of a story.
func (s *StoryService) EngagementScore(ctx context.Context, st *story.Story) (int, error) {
	subs, err := s.submissions.FindByStory(ctx, st.ID)
	if err != nil {
		return 0, fmt.Errorf("failed to count submissions: %w", err)
	}
	return s.rules.EngagementScore(st, len(subs)), nil
}

func (s *StoryService) hydrateChapters(ctx context.Context, st *story.Story) error {
	for _, ch := range st.Chapters {
		subs, err := s.submissions.FindBySlot(ctx, st.ID, ch.ChapterNumber)
		if err != nil {
			return fmt.Errorf("failed to load chapter %d submissions: %w", ch.ChapterNumber, err)
		}
		if err := s.hydrateVotes(ctx, subs); err != nil {
			return err
		}
		s.rules.SortByVotes(subs)
		ch.Submissions = subs
	}
	return nil
}

func (s *StoryService) hydrateVotes(ctx context.Context, subs []*story.Submission) error {
	for _, sub := range subs {
		votes, err := s.votes.FindBySubmission(ctx, sub.ID)
		if err != nil {
			return fmt.Errorf("failed to load votes for %s: %w", sub.ID, err)
		}
		sub.Votes = votes
	}
	return nil
}

func (s *StoryService) publish(t events.Type, storyID string, payload any) {
	s.publisher.Publish(events.Event{
		Type:      t,
		Source:    events.SourceDemo,
		StoryID:   storyID,
		Payload:   payload,
		Timestamp: s.now(),
	})
}
