package container

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bernice-stories/bernice/internal/application/services"
	"github.com/bernice-stories/bernice/internal/domain/entities/story"
	"github.com/bernice-stories/bernice/internal/infrastructure/observability/logging"
	"github.com/bernice-stories/bernice/pkg/config"
)

func testSettings(driver, url string) *config.Settings {
	return &config.Settings{
		Port:           "0",
		DatabaseDriver: driver,
		DatabaseURL:    url,
		JWTSecret:      "container-test",
		DemoAddress:    "user123",
		LogLevel:       "error",
	}
}

func TestNewContainerMemory(t *testing.T) {
	c, err := NewContainer(context.Background(), testSettings(config.DriverMemory, ""), logging.NewDiscardLogger())
	require.NoError(t, err)
	defer c.Close()

	assert.Nil(t, c.DB)
	assert.Nil(t, c.ChainClient)
	assert.False(t, c.ChainService.Status().Enabled)

	st, err := c.StoryService.CreateStory(context.Background(), services.CreateStoryRequest{
		Title:   "Wired",
		Creator: story.User{Address: "user123"},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, st.ID)
}

func TestNewContainerSQLite(t *testing.T) {
	c, err := NewContainer(context.Background(), testSettings(config.DriverSQLite, "file::memory:?cache=shared"), logging.NewDiscardLogger())
	require.NoError(t, err)
	defer c.Close()

	require.NotNil(t, c.DB)
	ctx := context.Background()

	st, err := c.StoryService.CreateStory(ctx, services.CreateStoryRequest{
		Title:       "Persisted",
		Creator:     story.User{Address: "user123"},
		MaxChapters: 3,
	})
	require.NoError(t, err)

	_, err = c.StoryService.SubmitChapter(ctx, st.ID, "Opening", story.User{Address: "user123"})
	require.NoError(t, err)

	got, err := c.StoryService.GetStory(ctx, st.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.CurrentChapter)

	_, err = c.DraftService.Save(ctx, "user123", services.DraftKeyTitle, "Draft")
	require.NoError(t, err)
}

func TestNewLoggerFromSettings(t *testing.T) {
	logger, err := NewLogger(&config.Settings{LogLevel: "debug", LogDirectory: t.TempDir()})
	require.NoError(t, err)
	assert.Equal(t, "DEBUG", logger.GetChannelLevels()["system"])
}
