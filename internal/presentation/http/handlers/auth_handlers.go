package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/bernice-stories/bernice/internal/application/services"
	"github.com/bernice-stories/bernice/internal/infrastructure/observability/logging"
	"github.com/bernice-stories/bernice/internal/infrastructure/observability/performance"
	"github.com/bernice-stories/bernice/internal/presentation/http/middleware"
)

// AuthHandlers issues demo identity tokens
type AuthHandlers struct {
	authService *services.AuthService
	logger      *logging.ChanneledLogger
	perfTracker *performance.Tracker
}

// NewAuthHandlers creates auth handlers with injected dependencies
func NewAuthHandlers(authService *services.AuthService, logger *logging.ChanneledLogger, perfTracker *performance.Tracker) *AuthHandlers {
	return &AuthHandlers{
		authService: authService,
		logger:      logger,
		perfTracker: perfTracker,
	}
}

type sessionRequest struct {
	Address  string `json:"address" binding:"required"`
	Username string `json:"username"`
}

// PostSession handles POST /api/v1/auth/session
func (h *AuthHandlers) PostSession(c *gin.Context) {
	start := time.Now()
	marker := h.perfTracker.StartOperation("post_session_request", "auth")
	defer marker.Complete()
	h.logger.Auth().Debug("Received session request", "method", c.Request.Method, "path", c.Request.URL.Path)

	var req sessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequestBody(c, h.logger.Auth(), "post_session", err)
		return
	}

	session, err := h.authService.IssueSession(req.Address, req.Username)
	if err != nil {
		marker.SetError(err)
		respondError(c, h.logger.Auth(), "post_session", err, nil)
		return
	}

	marker.SetSuccess(true)
	h.logger.Perf().Info("Performance for PostSession request", "duration", marker.Duration, "success", true, "elapsed", time.Since(start))
	c.JSON(http.StatusCreated, session)
}

// GetMe handles GET /api/v1/auth/me and reports the resolved caller.
func (h *AuthHandlers) GetMe(c *gin.Context) {
	identity, ok := middleware.GetIdentity(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "identity not resolved"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": identity.User, "source": identity.Source})
}
