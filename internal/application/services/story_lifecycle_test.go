package services

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bernice-stories/bernice/internal/apperrors"
	"github.com/bernice-stories/bernice/internal/domain/repositories"
	"github.com/bernice-stories/bernice/internal/infrastructure/database"
	"github.com/bernice-stories/bernice/internal/infrastructure/observability/logging"
	"github.com/bernice-stories/bernice/internal/infrastructure/observability/performance"
	"github.com/bernice-stories/bernice/internal/infrastructure/persistence/memory"
	sqlstore "github.com/bernice-stories/bernice/internal/infrastructure/persistence/story"
)

func sqliteStores(t *testing.T) repositories.Stores {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.NewTableCreator().CreateSchema(db))
	return sqlstore.NewStores(db, logging.NewDiscardLogger())
}

func TestStoryLifecycleAcrossBackends(t *testing.T) {
	tests := []struct {
		name   string
		stores func(t *testing.T) repositories.Stores
	}{
		{name: "memory", stores: func(*testing.T) repositories.Stores { return memory.NewStores() }},
		{name: "sqlite", stores: sqliteStores},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			svc := NewStoryService(tt.stores(t), &recordingPublisher{}, logging.NewDiscardLogger(), performance.NewTracker(nil))
			clock := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
			svc.now = func() time.Time {
				clock = clock.Add(time.Second)
				return clock
			}

			st := createTestStory(t, svc, 2)

			opening, err := svc.SubmitChapter(ctx, st.ID, "A", alice)
			require.NoError(t, err)
			assert.True(t, opening.IsWinner)

			mine, err := svc.GetUserSubmissions(ctx, alice.Address)
			require.NoError(t, err)
			assert.Empty(t, mine)

			b1, err := svc.SubmitChapter(ctx, st.ID, "B1", bob)
			require.NoError(t, err)
			b2, err := svc.SubmitChapter(ctx, st.ID, "B2", carol)
			require.NoError(t, err)

			_, err = svc.VoteForSubmission(ctx, b2.ID, alice, "")
			require.NoError(t, err)
			_, err = svc.VoteForSubmission(ctx, b2.ID, bob, "0xfeed")
			require.NoError(t, err)
			_, err = svc.VoteForSubmission(ctx, b2.ID, bob, "")
			assert.True(t, apperrors.IsConflict(err))
			_, err = svc.VoteForSubmission(ctx, b1.ID, carol, "")
			require.NoError(t, err)

			slot, err := svc.GetSubmissionsForChapter(ctx, st.ID, 2)
			require.NoError(t, err)
			require.Len(t, slot, 2)
			assert.Equal(t, b2.ID, slot[0].ID)
			assert.Equal(t, 2, slot[0].TotalVotes)
			assert.Len(t, slot[0].Votes, 2)
			assert.Equal(t, 1, slot[1].TotalVotes)

			got, err := svc.GetStory(ctx, st.ID)
			require.NoError(t, err)
			score, err := svc.EngagementScore(ctx, got)
			require.NoError(t, err)
			assert.Equal(t, 1*10+1*2+2*5, score)

			winner, err := svc.SelectWinningSubmission(ctx, st.ID, 2)
			require.NoError(t, err)
			require.NotNil(t, winner)
			assert.Equal(t, "B2", winner.Content)

			got, err = svc.GetStory(ctx, st.ID)
			require.NoError(t, err)
			assert.True(t, got.IsComplete)
			assert.Equal(t, 2, got.CurrentChapter)
			assert.Equal(t, 3, got.TotalVotes)
			require.Len(t, got.Chapters, 2)
			assert.Equal(t, "A", got.Chapters[0].Content)
			assert.Equal(t, "B2", got.Chapters[1].Content)

			_, err = svc.VoteForSubmission(ctx, b1.ID, bob, "")
			assert.True(t, apperrors.IsConflict(err))

			votes, err := svc.GetUserVotes(ctx, bob.Address)
			require.NoError(t, err)
			require.Len(t, votes, 1)
			assert.Equal(t, "0xfeed", votes[0].TransactionHash)
		})
	}
}
