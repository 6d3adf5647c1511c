package services

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bernice-stories/bernice/internal/apperrors"
	"github.com/bernice-stories/bernice/internal/infrastructure/observability/logging"
	"github.com/bernice-stories/bernice/internal/infrastructure/persistence/memory"
)

func TestValidDraftKey(t *testing.T) {
	assert.True(t, ValidDraftKey(DraftKeyTitle))
	assert.True(t, ValidDraftKey(DraftKeyChapterOne))
	assert.True(t, ValidDraftKey(ChapterDraftKey("42")))
	assert.True(t, ValidDraftKey(ChapterDraftKey("story_01hx")))
	assert.False(t, ValidDraftKey("bernice_chapter_"))
	assert.False(t, ValidDraftKey("bernice_chapter_../etc"))
	assert.False(t, ValidDraftKey("other"))
}

func TestDraftLifecycle(t *testing.T) {
	svc := NewDraftService(memory.NewStores().Drafts, logging.NewDiscardLogger())
	ctx := context.Background()

	_, err := svc.Get(ctx, "0xalice", DraftKeyTitle)
	assert.True(t, apperrors.IsNotFound(err))

	_, err = svc.Save(ctx, "0xalice", DraftKeyTitle, "Working title ")
	require.NoError(t, err)
	_, err = svc.Save(ctx, "0xalice", DraftKeyTitle, "Better title ")
	require.NoError(t, err)
	_, err = svc.Save(ctx, "0xalice", ChapterDraftKey("7"), "It was a dark night")
	require.NoError(t, err)

	d, err := svc.Get(ctx, "0xalice", DraftKeyTitle)
	require.NoError(t, err)
	assert.Equal(t, "Better title ", d.Content)

	_, err = svc.Get(ctx, "0xbob", DraftKeyTitle)
	assert.True(t, apperrors.IsNotFound(err), "drafts are scoped per owner")

	list, err := svc.List(ctx, "0xalice")
	require.NoError(t, err)
	assert.Len(t, list, 2)

	require.NoError(t, svc.Delete(ctx, "0xalice", DraftKeyTitle))
	require.NoError(t, svc.Delete(ctx, "0xalice", DraftKeyTitle))
	_, err = svc.Get(ctx, "0xalice", DraftKeyTitle)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestDraftValidation(t *testing.T) {
	svc := NewDraftService(memory.NewStores().Drafts, logging.NewDiscardLogger())
	ctx := context.Background()

	_, err := svc.Save(ctx, "", DraftKeyTitle, "x")
	assert.True(t, apperrors.IsValidation(err))

	_, err = svc.Save(ctx, "0xalice", "bad-key", "x")
	assert.True(t, apperrors.IsValidation(err))

	_, err = svc.Save(ctx, "0xalice", DraftKeyTitle, strings.Repeat("t", 101))
	assert.True(t, apperrors.IsValidation(err))

	_, err = svc.Save(ctx, "0xalice", DraftKeyChapterOne, strings.Repeat("t", 101))
	assert.NoError(t, err)
}
