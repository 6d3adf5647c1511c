package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/bernice-stories/bernice/internal/application/services"
	"github.com/bernice-stories/bernice/internal/domain/entities/story"
	"github.com/bernice-stories/bernice/internal/infrastructure/observability/logging"
	"github.com/bernice-stories/bernice/internal/infrastructure/observability/performance"
	"github.com/bernice-stories/bernice/internal/presentation/http/middleware"
)

// DemoHandlers serves the mock story store used when no contract is reachable
type DemoHandlers struct {
	storyService *services.StoryService
	logger       *logging.ChanneledLogger
	perfTracker  *performance.Tracker
}

// NewDemoHandlers creates demo handlers with injected dependencies
func NewDemoHandlers(storyService *services.StoryService, logger *logging.ChanneledLogger, perfTracker *performance.Tracker) *DemoHandlers {
	return &DemoHandlers{
		storyService: storyService,
		logger:       logger,
		perfTracker:  perfTracker,
	}
}

type storySummary struct {
	*story.Story
	Excerpt string `json:"excerpt"`
}

type createStoryRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	MaxChapters int      `json:"maxChapters"`
	Tags        []string `json:"tags"`
}

type submitChapterRequest struct {
	Content string `json:"content"`
}

type voteRequest struct {
	TransactionHash string `json:"transactionHash"`
}

func chapterParam(c *gin.Context) (int, bool) {
	n, err := strconv.Atoi(c.Param("number"))
	if err != nil || n < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "chapter number must be a positive integer"})
		return 0, false
	}
	return n, true
}

// GetStories handles GET /api/v1/demo/stories?status=&sortBy=&tag=
func (h *DemoHandlers) GetStories(c *gin.Context) {
	start := time.Now()
	marker := h.perfTracker.StartOperation("demo_list_stories_request", "demo")
	defer marker.Complete()
	h.logger.Story().Debug("Received list stories request", "method", c.Request.Method, "path", c.Request.URL.Path)

	var filters story.StoryFilters
	if err := c.ShouldBindQuery(&filters); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid query", "details": err.Error()})
		return
	}

	stories, err := h.storyService.ListStories(c.Request.Context(), filters)
	if err != nil {
		marker.SetError(err)
		respondError(c, h.logger.Story(), "demo_list_stories", err, nil)
		return
	}

	summaries := make([]storySummary, 0, len(stories))
	for _, st := range stories {
		summaries = append(summaries, storySummary{Story: st, Excerpt: h.storyService.StoryExcerpt(st, 0)})
	}

	marker.SetSuccess(true)
	h.logger.Perf().Info("Performance for GetStories request", "duration", marker.Duration, "count", len(summaries), "success", true)
	h.logger.Story().Debug("Listed stories", "count", len(summaries), "duration", time.Since(start))
	c.JSON(http.StatusOK, gin.H{"stories": summaries, "count": len(summaries)})
}

// PostStory handles POST /api/v1/demo/stories
func (h *DemoHandlers) PostStory(c *gin.Context) {
	marker := h.perfTracker.StartOperation("demo_create_story_request", "demo")
	defer marker.Complete()

	identity, ok := middleware.GetIdentity(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "identity not resolved"})
		return
	}

	var req createStoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequestBody(c, h.logger.Story(), "demo_create_story", err)
		return
	}

	created, err := h.storyService.CreateStory(c.Request.Context(), services.CreateStoryRequest{
		Title:       req.Title,
		Description: req.Description,
		Creator:     identity.User,
		MaxChapters: req.MaxChapters,
		Tags:        req.Tags,
	})
	if err != nil {
		marker.SetError(err)
		respondError(c, h.logger.Story(), "demo_create_story", err, nil)
		return
	}

	marker.SetSuccess(true)
	h.logger.Perf().Info("Performance for PostStory request", "duration", marker.Duration, "storyId", created.ID, "success", true)
	c.JSON(http.StatusCreated, created)
}

// GetStory handles GET /api/v1/demo/stories/:id
func (h *DemoHandlers) GetStory(c *gin.Context) {
	marker := h.perfTracker.StartOperation("demo_get_story_request", c.Param("id"))
	defer marker.Complete()

	st, err := h.storyService.GetStory(c.Request.Context(), c.Param("id"))
	if err != nil {
		marker.SetError(err)
		respondError(c, h.logger.Story(), "demo_get_story", err, nil)
		return
	}

	score, err := h.storyService.EngagementScore(c.Request.Context(), st)
	if err != nil {
		marker.SetError(err)
		respondError(c, h.logger.Story(), "demo_get_story", err, nil)
		return
	}

	marker.SetSuccess(true)
	c.JSON(http.StatusOK, gin.H{"story": st, "engagement": score})
}

// GetProgress handles GET /api/v1/demo/stories/:id/progress
func (h *DemoHandlers) GetProgress(c *gin.Context) {
	progress, err := h.storyService.GetStoryProgress(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger.Story(), "demo_story_progress", err, nil)
		return
	}
	c.JSON(http.StatusOK, progress)
}

// PostChapter handles POST /api/v1/demo/stories/:id/chapters
func (h *DemoHandlers) PostChapter(c *gin.Context) {
	marker := h.perfTracker.StartOperation("demo_submit_chapter_request", c.Param("id"))
	defer marker.Complete()

	identity, ok := middleware.GetIdentity(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "identity not resolved"})
		return
	}

	var req submitChapterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequestBody(c, h.logger.Story(), "demo_submit_chapter", err)
		return
	}

	sub, err := h.storyService.SubmitChapter(c.Request.Context(), c.Param("id"), req.Content, identity.User)
	if err != nil {
		marker.SetError(err)
		respondError(c, h.logger.Story(), "demo_submit_chapter", err, nil)
		return
	}

	marker.SetSuccess(true)
	h.logger.Perf().Info("Performance for PostChapter request", "duration", marker.Duration, "storyId", sub.StoryID, "chapter", sub.ChapterNumber, "success", true)
	c.JSON(http.StatusCreated, sub)
}

// GetSubmissions handles GET /api/v1/demo/stories/:id/chapters/:number/submissions
func (h *DemoHandlers) GetSubmissions(c *gin.Context) {
	n, ok := chapterParam(c)
	if !ok {
		return
	}
	subs, err := h.storyService.GetSubmissionsForChapter(c.Request.Context(), c.Param("id"), n)
	if err != nil {
		respondError(c, h.logger.Story(), "demo_get_submissions", err, nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{"submissions": subs, "count": len(subs)})
}

// PostFinalize handles POST /api/v1/demo/stories/:id/chapters/:number/finalize.
// A slot without submissions yields a null winner and no state change.
func (h *DemoHandlers) PostFinalize(c *gin.Context) {
	marker := h.perfTracker.StartOperation("demo_finalize_request", c.Param("id"))
	defer marker.Complete()

	n, ok := chapterParam(c)
	if !ok {
		return
	}

	winner, err := h.storyService.SelectWinningSubmission(c.Request.Context(), c.Param("id"), n)
	if err != nil {
		marker.SetError(err)
		respondError(c, h.logger.Story(), "demo_finalize", err, nil)
		return
	}

	marker.SetSuccess(true)
	c.JSON(http.StatusOK, gin.H{"winner": winner})
}

// PostVote handles POST /api/v1/demo/submissions/:id/votes
func (h *DemoHandlers) PostVote(c *gin.Context) {
	marker := h.perfTracker.StartOperation("demo_vote_request", c.Param("id"))
	defer marker.Complete()

	identity, ok := middleware.GetIdentity(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "identity not resolved"})
		return
	}

	// The body is optional; only a transaction hash can be supplied.
	var req voteRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequestBody(c, h.logger.Story(), "demo_vote", err)
			return
		}
	}

	vote, err := h.storyService.VoteForSubmission(c.Request.Context(), c.Param("id"), identity.User, req.TransactionHash)
	if err != nil {
		marker.SetError(err)
		respondError(c, h.logger.Story(), "demo_vote", err, nil)
		return
	}

	marker.SetSuccess(true)
	h.logger.Perf().Info("Performance for PostVote request", "duration", marker.Duration, "submissionId", vote.SubmissionID, "success", true)
	c.JSON(http.StatusCreated, vote)
}

// GetVotingRounds handles GET /api/v1/demo/voting
func (h *DemoHandlers) GetVotingRounds(c *gin.Context) {
	rounds, err := h.storyService.GetPendingVotingRounds(c.Request.Context())
	if err != nil {
		respondError(c, h.logger.Story(), "demo_voting_rounds", err, nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rounds": rounds, "count": len(rounds)})
}

// GetUserVotes handles GET /api/v1/demo/users/:address/votes
func (h *DemoHandlers) GetUserVotes(c *gin.Context) {
	votes, err := h.storyService.GetUserVotes(c.Request.Context(), c.Param("address"))
	if err != nil {
		respondError(c, h.logger.Story(), "demo_user_votes", err, nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{"votes": votes, "count": len(votes)})
}

// GetUserSubmissions handles GET /api/v1/demo/users/:address/submissions
func (h *DemoHandlers) GetUserSubmissions(c *gin.Context) {
	subs, err := h.storyService.GetUserSubmissions(c.Request.Context(), c.Param("address"))
	if err != nil {
		respondError(c, h.logger.Story(), "demo_user_submissions", err, nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{"submissions": subs, "count": len(subs)})
}
