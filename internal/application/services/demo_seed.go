package services

import (
	"context"
	"fmt"
	"time"

	"github.com/bernice-stories/bernice/internal/domain/entities/story"
	"github.com/bernice-stories/bernice/internal/infrastructure/security"
)

// SeedDemo stores the sample story when the store is empty. It reports
// whether anything was written.
func (s *StoryService) SeedDemo(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.stories.FindAll(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to check existing stories: %w", err)
	}
	if len(existing) > 0 {
		return false, nil
	}

	st := demoStory(s.now())
	if err := s.stories.Store(ctx, st); err != nil {
		return false, fmt.Errorf("failed to seed demo story: %w", err)
	}
	s.logger.Story().Info("Seeded demo story", "storyId", st.ID, "title", st.Title)
	return true, nil
}

func demoStory(now time.Time) *story.Story {
	day := 24 * time.Hour
	scribe, dreamer := "CyberScribe", "QuantumDreamer"
	id := security.NewID("story")

	creator := story.User{Address: "0x1234...5678", Username: &scribe}
	return &story.Story{
		ID:    id,
		Title: "The Digital Realm Chronicles",
		Description: "In a world where consciousness can be uploaded to digital realms, a group of explorers " +
			"discovers that reality itself might be just another layer of code.",
		Creator:        creator,
		CreatedAt:      now.Add(-7 * day),
		CurrentChapter: 2,
		MaxChapters:    10,
		Chapters: []*story.Chapter{
			{
				ID:            fmt.Sprintf("chapter_%s_1", id),
				StoryID:       id,
				ChapterNumber: 1,
				Content:       "Maya's fingers trembled as she placed the neural interface crown on her head...",
				Author:        creator,
				Votes:         23,
				CreatedAt:     now.Add(-6 * day),
				IsSelected:    true,
				Submissions:   []*story.Submission{},
			},
			{
				ID:            fmt.Sprintf("chapter_%s_2", id),
				StoryID:       id,
				ChapterNumber: 2,
				Content:       "The digital realm stretched endlessly in all directions...",
				Author:        story.User{Address: "0x9876...4321", Username: &dreamer},
				Votes:         31,
				CreatedAt:     now.Add(-3 * day),
				IsSelected:    true,
				Submissions:   []*story.Submission{},
			},
		},
		Tags:       []string{"sci-fi", "cyberpunk", "virtual reality"},
		TotalVotes: 54,
	}
}
