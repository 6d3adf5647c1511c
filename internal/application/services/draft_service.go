package services

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/bernice-stories/bernice/internal/apperrors"
	"github.com/bernice-stories/bernice/internal/domain/entities/story"
	"github.com/bernice-stories/bernice/internal/domain/repositories"
	"github.com/bernice-stories/bernice/internal/infrastructure/observability/logging"
	"github.com/bernice-stories/bernice/pkg/config"
)

// Draft keys used by the story forms.
const (
	DraftKeyTitle         = "bernice_title"
	DraftKeyChapterOne    = "bernice_chapterOne"
	DraftKeyChapterPrefix = "bernice_chapter_"
)

var chapterDraftKey = regexp.MustCompile(`^bernice_chapter_[A-Za-z0-9_-]{1,80}$`)

// ChapterDraftKey returns the continuation draft key for a story.
func ChapterDraftKey(storyID string) string {
	return DraftKeyChapterPrefix + storyID
}

// ValidDraftKey reports whether key is one of the known draft slots.
func ValidDraftKey(key string) bool {
	return key == DraftKeyTitle || key == DraftKeyChapterOne || chapterDraftKey.MatchString(key)
}

// DraftService keeps unsaved form text per owner. Drafts never expire.
type DraftService struct {
	drafts repositories.DraftRepository
	logger *logging.ChanneledLogger
}

func NewDraftService(drafts repositories.DraftRepository, logger *logging.ChanneledLogger) *DraftService {
	return &DraftService{drafts: drafts, logger: logger}
}

func (s *DraftService) validate(owner, key string) error {
	if strings.TrimSpace(owner) == "" {
		return apperrors.Validation("owner is required")
	}
	if !ValidDraftKey(key) {
		return apperrors.Validation(fmt.Sprintf("unknown draft key %q", key))
	}
	return nil
}

func (s *DraftService) Get(ctx context.Context, owner, key string) (*story.Draft, error) {
	if err := s.validate(owner, key); err != nil {
		return nil, err
	}
	d, err := s.drafts.Get(ctx, owner, key)
	if err != nil {
		return nil, fmt.Errorf("failed to get draft: %w", err)
	}
	if d == nil {
		return nil, apperrors.NotFound("draft not found")
	}
	return d, nil
}

// Save overwrites the draft text. Content is stored as typed, untrimmed.
func (s *DraftService) Save(ctx context.Context, owner, key, content string) (*story.Draft, error) {
	if err := s.validate(owner, key); err != nil {
		return nil, err
	}
	limit := config.MaxChapterLength
	if key == DraftKeyTitle {
		limit = config.MaxTitleLength
	}
	if utf8.RuneCountInString(content) > limit {
		return nil, apperrors.Validation(fmt.Sprintf("draft must be at most %d characters", limit))
	}

	d := &story.Draft{Owner: owner, Key: key, Content: content, UpdatedAt: time.Now().UTC()}
	if err := s.drafts.Put(ctx, d); err != nil {
		return nil, fmt.Errorf("failed to save draft: %w", err)
	}
	s.logger.Story().Debug("Draft saved", "owner", owner, "key", key, "length", len(content))
	return d, nil
}

// Delete clears a draft. Deleting a missing draft is not an error.
func (s *DraftService) Delete(ctx context.Context, owner, key string) error {
	if err := s.validate(owner, key); err != nil {
		return err
	}
	if err := s.drafts.Delete(ctx, owner, key); err != nil {
		return fmt.Errorf("failed to delete draft: %w", err)
	}
	return nil
}

func (s *DraftService) List(ctx context.Context, owner string) ([]*story.Draft, error) {
	if strings.TrimSpace(owner) == "" {
		return nil, apperrors.Validation("owner is required")
	}
	drafts, err := s.drafts.List(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to list drafts: %w", err)
	}
	return drafts, nil
}
