package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bernice-stories/bernice/internal/domain/entities/story"
)

func TestStoryRepositoryReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewStoryRepository()

	s := &story.Story{ID: "story_1", Title: "Original", MaxChapters: 5}
	require.NoError(t, repo.Store(ctx, s))
	s.Title = "mutated after store"

	found, err := repo.FindByID(ctx, "story_1")
	require.NoError(t, err)
	assert.Equal(t, "Original", found.Title)

	found.Title = "mutated copy"
	again, _ := repo.FindByID(ctx, "story_1")
	assert.Equal(t, "Original", again.Title)

	assert.Error(t, repo.Store(ctx, &story.Story{ID: "story_1"}))
	assert.Error(t, repo.Update(ctx, &story.Story{ID: "missing"}))

	missing, err := repo.FindByID(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestSubmissionRepositoryAssignsSequence(t *testing.T) {
	ctx := context.Background()
	repo := NewSubmissionRepository()
	now := time.Now()

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, repo.Store(ctx, &story.Submission{
			ID: id, StoryID: "story_1", ChapterNumber: 2, CreatedAt: now,
			Author: story.User{Address: "0x1"},
		}))
	}
	require.NoError(t, repo.Store(ctx, &story.Submission{ID: "d", StoryID: "story_1", ChapterNumber: 3}))

	slot, err := repo.FindBySlot(ctx, "story_1", 2)
	require.NoError(t, err)
	require.Len(t, slot, 3)
	assert.Equal(t, int64(1), slot[0].Seq)
	assert.Equal(t, int64(3), slot[2].Seq)

	slot[0].TotalVotes = 4
	slot[0].Seq = 99
	require.NoError(t, repo.Update(ctx, slot[0]))
	updated, _ := repo.FindByID(ctx, "a")
	assert.Equal(t, 4, updated.TotalVotes)
	assert.Equal(t, int64(1), updated.Seq)

	byStory, _ := repo.FindByStory(ctx, "story_1")
	assert.Len(t, byStory, 4)
	byAuthor, _ := repo.FindByAuthor(ctx, "0x1")
	assert.Len(t, byAuthor, 3)
}

func TestVoteRepositoryRejectsDuplicates(t *testing.T) {
	ctx := context.Background()
	subs := NewSubmissionRepository()
	require.NoError(t, subs.Store(ctx, &story.Submission{ID: "sub_1", StoryID: "story_1", ChapterNumber: 2}))
	require.NoError(t, subs.Store(ctx, &story.Submission{ID: "sub_2", StoryID: "story_1", ChapterNumber: 2}))
	repo := NewVoteRepository(subs)

	vote := &story.Vote{ID: "vote_1", SubmissionID: "sub_1", Voter: story.User{Address: "0xabc"}, Weight: 1}
	require.NoError(t, repo.Store(ctx, vote))
	assert.Error(t, repo.Store(ctx, &story.Vote{ID: "vote_2", SubmissionID: "sub_1", Voter: story.User{Address: "0xabc"}, Weight: 1}))
	require.NoError(t, repo.Store(ctx, &story.Vote{ID: "vote_3", SubmissionID: "sub_2", Voter: story.User{Address: "0xabc"}, Weight: 1}))

	tallied, _ := subs.FindByID(ctx, "sub_1")
	assert.Equal(t, 1, tallied.TotalVotes)

	found, err := repo.FindBySubmissionAndVoter(ctx, "sub_1", "0xabc")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "vote_1", found.ID)

	none, err := repo.FindBySubmissionAndVoter(ctx, "sub_1", "0xdef")
	require.NoError(t, err)
	assert.Nil(t, none)

	byVoter, _ := repo.FindByVoter(ctx, "0xabc")
	assert.Len(t, byVoter, 2)
	bySub, _ := repo.FindBySubmission(ctx, "sub_1")
	assert.Len(t, bySub, 1)
}

func TestVoteRepositoryUnknownSubmissionLeavesNoVote(t *testing.T) {
	ctx := context.Background()
	repo := NewVoteRepository(NewSubmissionRepository())

	err := repo.Store(ctx, &story.Vote{ID: "vote_1", SubmissionID: "ghost", Voter: story.User{Address: "0xabc"}, Weight: 1})
	assert.Error(t, err)

	found, err := repo.FindBySubmissionAndVoter(ctx, "ghost", "0xabc")
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestDraftRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewDraftRepository()

	require.NoError(t, repo.Put(ctx, &story.Draft{Owner: "0xabc", Key: "bernice_title", Content: "Draft"}))
	require.NoError(t, repo.Put(ctx, &story.Draft{Owner: "0xabc", Key: "bernice_chapterOne", Content: "Once"}))

	d, err := repo.Get(ctx, "0xabc", "bernice_title")
	require.NoError(t, err)
	assert.Equal(t, "Draft", d.Content)

	other, _ := repo.Get(ctx, "0xdef", "bernice_title")
	assert.Nil(t, other)

	list, _ := repo.List(ctx, "0xabc")
	require.Len(t, list, 2)
	assert.Equal(t, "bernice_chapterOne", list[0].Key)

	require.NoError(t, repo.Delete(ctx, "0xabc", "bernice_title"))
	gone, _ := repo.Get(ctx, "0xabc", "bernice_title")
	assert.Nil(t, gone)
}
