package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/bernice-stories/bernice/internal/apperrors"
	"github.com/bernice-stories/bernice/internal/infrastructure/caching/interfaces"
	"github.com/bernice-stories/bernice/internal/infrastructure/chain"
	"github.com/bernice-stories/bernice/internal/infrastructure/observability/logging"
	"github.com/bernice-stories/bernice/internal/infrastructure/observability/performance"
	"github.com/bernice-stories/bernice/pkg/config"
)

// storiesTag marks cache entries derived from the story list or count.
const storiesTag = "stories"

func storyTag(id string) string { return "story:" + id }

// ChainStatus describes the active network and what the gateway can do.
type ChainStatus struct {
	Enabled       bool   `json:"enabled"`
	ChainID       uint64 `json:"chainId,omitempty"`
	Network       string `json:"network,omitempty"`
	Contract      string `json:"contract,omitempty"`
	WritesEnabled bool   `json:"writesEnabled"`
	Error         string `json:"error,omitempty"`
}

// ChainService validates contract requests, caches decoded reads and
// forwards writes to the gateway. With no gateway every call reports the
// reason the contract is unavailable.
type ChainService struct {
	gateway     *chain.Gateway
	network     chain.Network
	unavailable error
	tracker     *chain.TxTracker
	cache       interfaces.ReadCache
	logger      *logging.ChanneledLogger
	perfTracker *performance.Tracker
}

func NewChainService(gateway *chain.Gateway, network chain.Network, unavailable error, tracker *chain.TxTracker,
	cache interfaces.ReadCache, logger *logging.ChanneledLogger, perfTracker *performance.Tracker) *ChainService {
	if gateway == nil && unavailable == nil {
		unavailable = apperrors.Unavailable(chain.ErrContractUnavailable, nil)
	}
	return &ChainService{
		gateway:     gateway,
		network:     network,
		unavailable: unavailable,
		tracker:     tracker,
		cache:       cache,
		logger:      logger,
		perfTracker: perfTracker,
	}
}

func (s *ChainService) Status() ChainStatus {
	if s.gateway == nil {
		status := ChainStatus{ChainID: s.network.ChainID, Network: s.network.Name}
		if s.unavailable != nil {
			status.Error = unavailableMessage(s.unavailable)
		}
		return status
	}
	return ChainStatus{
		Enabled:       true,
		ChainID:       s.gateway.ChainID(),
		Network:       s.network.Name,
		Contract:      s.gateway.Address().Hex(),
		WritesEnabled: s.gateway.WritesEnabled(),
	}
}

func unavailableMessage(err error) string {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}

func (s *ChainService) available() error {
	if s.gateway == nil {
		return s.unavailable
	}
	return nil
}

// cached returns the value under key, loading and storing it on a miss.
func cached[T any](s *ChainService, key string, tags []string, load func() (T, error)) (T, error) {
	if v, ok := s.cache.Get(key); ok {
		if typed, ok := v.(T); ok {
			s.logger.LogCacheOperation("get", key, true)
			return typed, nil
		}
	}
	s.logger.LogCacheOperation("get", key, false)

	v, err := load()
	if err != nil {
		return v, err
	}
	s.cache.Set(key, v, tags...)
	return v, nil
}

// InvalidateStory drops cached reads for one story and the story list.
func (s *ChainService) InvalidateStory(storyID string) int {
	dropped := s.cache.InvalidateTag(storyTag(storyID)) + s.cache.InvalidateTag(storiesTag)
	s.logger.Cache().Debug("Invalidated story reads", "storyId", storyID, "entries", dropped)
	return dropped
}

func (s *ChainService) CacheStats() interfaces.Stats {
	return s.cache.Stats()
}

// =============================================================================
// Reads
// =============================================================================

func (s *ChainService) StoryCount(ctx context.Context) (uint64, error) {
	if err := s.available(); err != nil {
		return 0, err
	}
	return cached(s, "count", []string{storiesTag}, func() (uint64, error) {
		return s.gateway.StoryCount(ctx)
	})
}

// ListStories reads stories newest first. limit is capped by the bulk limit.
func (s *ChainService) ListStories(ctx context.Context, limit int) ([]*chain.OnChainStory, error) {
	if limit <= 0 || limit > config.MaxStoriesPerChainBulk {
		limit = config.MaxStoriesPerChainBulk
	}
	if err := s.available(); err != nil {
		return nil, err
	}

	marker := s.perfTracker.StartOperation("chain_list_stories", "chain")
	defer marker.Complete()

	stories, err := cached(s, fmt.Sprintf("stories:%d", limit), []string{storiesTag}, func() ([]*chain.OnChainStory, error) {
		return s.gateway.AllStories(ctx, limit)
	})
	if err != nil {
		marker.SetError(err)
	}
	return stories, err
}

func (s *ChainService) GetStory(ctx context.Context, rawID string) (*chain.OnChainStory, error) {
	id, err := chain.ParseStoryID(rawID)
	if err != nil {
		return nil, err
	}
	if err := s.available(); err != nil {
		return nil, err
	}
	key := id.String()
	return cached(s, "story:"+key, []string{storyTag(key)}, func() (*chain.OnChainStory, error) {
		return s.gateway.GetStory(ctx, id)
	})
}

func (s *ChainService) CompleteStory(ctx context.Context, rawID string) (*chain.CompleteStory, error) {
	id, err := chain.ParseStoryID(rawID)
	if err != nil {
		return nil, err
	}
	if err := s.available(); err != nil {
		return nil, err
	}

	marker := s.perfTracker.StartOperation("chain_complete_story", rawID)
	defer marker.Complete()

	key := id.String()
	full, err := cached(s, "story:"+key+":complete", []string{storyTag(key)}, func() (*chain.CompleteStory, error) {
		return s.gateway.CompleteStory(ctx, id)
	})
	if err != nil {
		marker.SetError(err)
	}
	return full, err
}

func (s *ChainService) ChapterContent(ctx context.Context, rawID, rawChapter string) (string, error) {
	id, err := chain.ParseStoryID(rawID)
	if err != nil {
		return "", err
	}
	n, err := chain.ParseChapterNumber(rawChapter)
	if err != nil {
		return "", err
	}
	if err := s.available(); err != nil {
		return "", err
	}
	key := id.String()
	return cached(s, fmt.Sprintf("story:%s:chapter:%s", key, n), []string{storyTag(key)}, func() (string, error) {
		return s.gateway.ChapterContent(ctx, id, n)
	})
}

func (s *ChainService) SubmissionsCount(ctx context.Context, rawID string) (uint64, error) {
	id, err := chain.ParseStoryID(rawID)
	if err != nil {
		return 0, err
	}
	if err := s.available(); err != nil {
		return 0, err
	}
	key := id.String()
	return cached(s, "story:"+key+":submissions", []string{storyTag(key)}, func() (uint64, error) {
		return s.gateway.SubmissionsCount(ctx, id)
	})
}

func (s *ChainService) GetSubmission(ctx context.Context, rawID, rawChapter, rawIndex string) (*chain.OnChainSubmission, error) {
	id, err := chain.ParseStoryID(rawID)
	if err != nil {
		return nil, err
	}
	n, err := chain.ParseChapterNumber(rawChapter)
	if err != nil {
		return nil, err
	}
	idx, err := chain.ParseIndex(rawIndex)
	if err != nil {
		return nil, err
	}
	if err := s.available(); err != nil {
		return nil, err
	}
	key := id.String()
	return cached(s, fmt.Sprintf("story:%s:submission:%s:%s", key, n, idx), []string{storyTag(key)}, func() (*chain.OnChainSubmission, error) {
		return s.gateway.GetSubmission(ctx, id, n, idx)
	})
}

func (s *ChainService) HasVoted(ctx context.Context, rawID, rawChapter, rawVoter string) (bool, error) {
	id, err := chain.ParseStoryID(rawID)
	if err != nil {
		return false, err
	}
	n, err := chain.ParseChapterNumber(rawChapter)
	if err != nil {
		return false, err
	}
	voter, err := chain.ParseAddress(rawVoter)
	if err != nil {
		return false, err
	}
	if err := s.available(); err != nil {
		return false, err
	}
	key := id.String()
	return cached(s, fmt.Sprintf("story:%s:voted:%s:%s", key, n, voter.Hex()), []string{storyTag(key)}, func() (bool, error) {
		return s.gateway.HasVoted(ctx, id, n, voter)
	})
}

// VotingStatus depends on the latest block and is never cached.
func (s *ChainService) VotingStatus(ctx context.Context, rawID string) (*chain.VotingStatus, error) {
	id, err := chain.ParseStoryID(rawID)
	if err != nil {
		return nil, err
	}
	if err := s.available(); err != nil {
		return nil, err
	}
	return s.gateway.VotingStatus(ctx, id)
}

// =============================================================================
// Writes
// =============================================================================

func (s *ChainService) CreateStory(ctx context.Context, in chain.CreateStoryInput) (chain.TxRecord, error) {
	if err := s.available(); err != nil {
		return chain.TxRecord{}, err
	}
	return s.write("chain_create_story", "", func() (chain.TxRecord, error) {
		return s.gateway.CreateStory(ctx, in)
	})
}

func (s *ChainService) SubmitContinuation(ctx context.Context, rawID, content string) (chain.TxRecord, error) {
	id, err := chain.ParseStoryID(rawID)
	if err != nil {
		return chain.TxRecord{}, err
	}
	if err := s.available(); err != nil {
		return chain.TxRecord{}, err
	}
	return s.write("chain_submit_continuation", id.String(), func() (chain.TxRecord, error) {
		return s.gateway.SubmitContinuation(ctx, id, content)
	})
}

func (s *ChainService) Vote(ctx context.Context, rawID, rawIndex string) (chain.TxRecord, error) {
	id, err := chain.ParseStoryID(rawID)
	if err != nil {
		return chain.TxRecord{}, err
	}
	idx, err := chain.ParseIndex(rawIndex)
	if err != nil {
		return chain.TxRecord{}, err
	}
	if err := s.available(); err != nil {
		return chain.TxRecord{}, err
	}
	return s.write("chain_vote", id.String(), func() (chain.TxRecord, error) {
		return s.gateway.Vote(ctx, id, idx)
	})
}

func (s *ChainService) FinalizeChapter(ctx context.Context, rawID string) (chain.TxRecord, error) {
	id, err := chain.ParseStoryID(rawID)
	if err != nil {
		return chain.TxRecord{}, err
	}
	if err := s.available(); err != nil {
		return chain.TxRecord{}, err
	}
	return s.write("chain_finalize", id.String(), func() (chain.TxRecord, error) {
		return s.gateway.FinalizeChapter(ctx, id)
	})
}

func (s *ChainService) ExtendVoting(ctx context.Context, rawID string, extraSeconds uint64) (chain.TxRecord, error) {
	id, err := chain.ParseStoryID(rawID)
	if err != nil {
		return chain.TxRecord{}, err
	}
	if err := s.available(); err != nil {
		return chain.TxRecord{}, err
	}
	return s.write("chain_extend_voting", id.String(), func() (chain.TxRecord, error) {
		return s.gateway.ExtendVoting(ctx, id, extraSeconds)
	})
}

func (s *ChainService) write(op, scope string, send func() (chain.TxRecord, error)) (chain.TxRecord, error) {
	marker := s.perfTracker.StartOperation(op, scope)
	defer marker.Complete()

	rec, err := send()
	if err != nil {
		marker.SetError(err)
		return rec, err
	}
	marker.AddMetadata("requestId", rec.RequestID)
	return rec, nil
}

// TxStatus returns the tracked phase of a write.
func (s *ChainService) TxStatus(requestID string) (chain.TxRecord, error) {
	if s.tracker == nil {
		return chain.TxRecord{}, apperrors.NotFound("transaction not found")
	}
	rec, ok := s.tracker.Get(requestID)
	if !ok {
		return chain.TxRecord{}, apperrors.NotFound("transaction not found")
	}
	return rec, nil
}

func (s *ChainService) RecentTx() []chain.TxRecord {
	if s.tracker == nil {
		return []chain.TxRecord{}
	}
	return s.tracker.List()
}
