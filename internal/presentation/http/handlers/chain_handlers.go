package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/bernice-stories/bernice/internal/application/services"
	"github.com/bernice-stories/bernice/internal/infrastructure/chain"
	"github.com/bernice-stories/bernice/internal/infrastructure/observability/logging"
	"github.com/bernice-stories/bernice/internal/infrastructure/observability/performance"
)

// ChainHandlers exposes the contract gateway over HTTP
type ChainHandlers struct {
	chainService *services.ChainService
	logger       *logging.ChanneledLogger
	perfTracker  *performance.Tracker
}

// NewChainHandlers creates chain handlers with injected dependencies
func NewChainHandlers(chainService *services.ChainService, logger *logging.ChanneledLogger, perfTracker *performance.Tracker) *ChainHandlers {
	return &ChainHandlers{
		chainService: chainService,
		logger:       logger,
		perfTracker:  perfTracker,
	}
}

// serve runs one contract request with the usual marker and logging.
func (h *ChainHandlers) serve(c *gin.Context, operation string, status int, run func(ctx context.Context) (any, error)) {
	marker := h.perfTracker.StartOperation(operation+"_request", c.Param("id"))
	defer marker.Complete()
	h.logger.Chain().Debug("Received chain request", "method", c.Request.Method, "path", c.Request.URL.Path)

	result, err := run(c.Request.Context())
	if err != nil {
		marker.SetError(err)
		var extra gin.H
		if rec, ok := result.(chain.TxRecord); ok && rec.RequestID != "" {
			extra = gin.H{"requestId": rec.RequestID}
		}
		respondError(c, h.logger.Chain(), operation, err, extra)
		return
	}

	marker.SetSuccess(true)
	h.logger.Perf().Info("Performance for chain request", "operation", operation, "duration", marker.Duration, "success", true)
	c.JSON(status, result)
}

// GetStatus handles GET /api/v1/chain/status
func (h *ChainHandlers) GetStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.chainService.Status())
}

// GetNetworks handles GET /api/v1/chain/networks
func (h *ChainHandlers) GetNetworks(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"networks": chain.Networks()})
}

// GetStories handles GET /api/v1/chain/stories?limit=
func (h *ChainHandlers) GetStories(c *gin.Context) {
	h.serve(c, "chain_list_stories", http.StatusOK, func(ctx context.Context) (any, error) {
		limit := 0
		if raw := c.Query("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 0 {
				return nil, invalidQuery("limit must be a non-negative integer")
			}
			limit = n
		}
		stories, err := h.chainService.ListStories(ctx, limit)
		if err != nil {
			return nil, err
		}
		return gin.H{"stories": stories, "count": len(stories)}, nil
	})
}

// GetStoryCount handles GET /api/v1/chain/stories/count
func (h *ChainHandlers) GetStoryCount(c *gin.Context) {
	h.serve(c, "chain_story_count", http.StatusOK, func(ctx context.Context) (any, error) {
		n, err := h.chainService.StoryCount(ctx)
		if err != nil {
			return nil, err
		}
		return gin.H{"count": n}, nil
	})
}

// GetStory handles GET /api/v1/chain/stories/:id. With full=true the
// accepted chapter texts are included.
func (h *ChainHandlers) GetStory(c *gin.Context) {
	h.serve(c, "chain_get_story", http.StatusOK, func(ctx context.Context) (any, error) {
		if c.Query("full") == "true" {
			return h.chainService.CompleteStory(ctx, c.Param("id"))
		}
		return h.chainService.GetStory(ctx, c.Param("id"))
	})
}

// GetChapter handles GET /api/v1/chain/stories/:id/chapters/:number
func (h *ChainHandlers) GetChapter(c *gin.Context) {
	h.serve(c, "chain_chapter_content", http.StatusOK, func(ctx context.Context) (any, error) {
		content, err := h.chainService.ChapterContent(ctx, c.Param("id"), c.Param("number"))
		if err != nil {
			return nil, err
		}
		return gin.H{"storyId": c.Param("id"), "chapterNumber": c.Param("number"), "content": content}, nil
	})
}

// GetSubmissionsCount handles GET /api/v1/chain/stories/:id/submissions/count
func (h *ChainHandlers) GetSubmissionsCount(c *gin.Context) {
	h.serve(c, "chain_submissions_count", http.StatusOK, func(ctx context.Context) (any, error) {
		n, err := h.chainService.SubmissionsCount(ctx, c.Param("id"))
		if err != nil {
			return nil, err
		}
		return gin.H{"storyId": c.Param("id"), "count": n}, nil
	})
}

// GetSubmission handles GET /api/v1/chain/stories/:id/chapters/:number/submissions/:index
func (h *ChainHandlers) GetSubmission(c *gin.Context) {
	h.serve(c, "chain_get_submission", http.StatusOK, func(ctx context.Context) (any, error) {
		return h.chainService.GetSubmission(ctx, c.Param("id"), c.Param("number"), c.Param("index"))
	})
}

// GetHasVoted handles GET /api/v1/chain/stories/:id/chapters/:number/voters/:address
func (h *ChainHandlers) GetHasVoted(c *gin.Context) {
	h.serve(c, "chain_has_voted", http.StatusOK, func(ctx context.Context) (any, error) {
		voted, err := h.chainService.HasVoted(ctx, c.Param("id"), c.Param("number"), c.Param("address"))
		if err != nil {
			return nil, err
		}
		return gin.H{"hasVoted": voted}, nil
	})
}

// GetVotingStatus handles GET /api/v1/chain/stories/:id/voting-status
func (h *ChainHandlers) GetVotingStatus(c *gin.Context) {
	h.serve(c, "chain_voting_status", http.StatusOK, func(ctx context.Context) (any, error) {
		return h.chainService.VotingStatus(ctx, c.Param("id"))
	})
}

// PostStory handles POST /api/v1/chain/stories
func (h *ChainHandlers) PostStory(c *gin.Context) {
	var req chain.CreateStoryInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequestBody(c, h.logger.Chain(), "chain_create_story", err)
		return
	}
	h.serve(c, "chain_create_story", http.StatusAccepted, func(ctx context.Context) (any, error) {
		return h.chainService.CreateStory(ctx, req)
	})
}

type continuationRequest struct {
	Content string `json:"content"`
}

// PostContinuation handles POST /api/v1/chain/stories/:id/continuations
func (h *ChainHandlers) PostContinuation(c *gin.Context) {
	var req continuationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequestBody(c, h.logger.Chain(), "chain_submit_continuation", err)
		return
	}
	h.serve(c, "chain_submit_continuation", http.StatusAccepted, func(ctx context.Context) (any, error) {
		return h.chainService.SubmitContinuation(ctx, c.Param("id"), req.Content)
	})
}

type chainVoteRequest struct {
	SubmissionIndex json.Number `json:"submissionIndex"`
}

// PostVote handles POST /api/v1/chain/stories/:id/votes
func (h *ChainHandlers) PostVote(c *gin.Context) {
	var req chainVoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequestBody(c, h.logger.Chain(), "chain_vote", err)
		return
	}
	h.serve(c, "chain_vote", http.StatusAccepted, func(ctx context.Context) (any, error) {
		return h.chainService.Vote(ctx, c.Param("id"), req.SubmissionIndex.String())
	})
}

// PostFinalize handles POST /api/v1/chain/stories/:id/finalize
func (h *ChainHandlers) PostFinalize(c *gin.Context) {
	h.serve(c, "chain_finalize", http.StatusAccepted, func(ctx context.Context) (any, error) {
		return h.chainService.FinalizeChapter(ctx, c.Param("id"))
	})
}

type extendRequest struct {
	ExtraSeconds uint64 `json:"extraSeconds"`
}

// PostExtend handles POST /api/v1/chain/stories/:id/extend
func (h *ChainHandlers) PostExtend(c *gin.Context) {
	var req extendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequestBody(c, h.logger.Chain(), "chain_extend_voting", err)
		return
	}
	h.serve(c, "chain_extend_voting", http.StatusAccepted, func(ctx context.Context) (any, error) {
		return h.chainService.ExtendVoting(ctx, c.Param("id"), req.ExtraSeconds)
	})
}

// GetTx handles GET /api/v1/chain/tx/:requestId
func (h *ChainHandlers) GetTx(c *gin.Context) {
	rec, err := h.chainService.TxStatus(c.Param("requestId"))
	if err != nil {
		respondError(c, h.logger.Chain(), "chain_tx_status", err, nil)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// GetRecentTx handles GET /api/v1/chain/tx
func (h *ChainHandlers) GetRecentTx(c *gin.Context) {
	start := time.Now()
	records := h.chainService.RecentTx()
	h.logger.Chain().Debug("Listed tracked transactions", "count", len(records), "duration", time.Since(start))
	c.JSON(http.StatusOK, gin.H{"transactions": records, "count": len(records)})
}
