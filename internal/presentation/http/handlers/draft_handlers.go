package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bernice-stories/bernice/internal/application/services"
	"github.com/bernice-stories/bernice/internal/infrastructure/observability/logging"
	"github.com/bernice-stories/bernice/internal/presentation/http/middleware"
)

// DraftHandlers persists unsaved form text per caller
type DraftHandlers struct {
	draftService *services.DraftService
	logger       *logging.ChanneledLogger
}

func NewDraftHandlers(draftService *services.DraftService, logger *logging.ChanneledLogger) *DraftHandlers {
	return &DraftHandlers{draftService: draftService, logger: logger}
}

type saveDraftRequest struct {
	Content string `json:"content"`
}

func owner(c *gin.Context) (string, bool) {
	identity, ok := middleware.GetIdentity(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "identity not resolved"})
		return "", false
	}
	return identity.User.Address, true
}

// GetDrafts handles GET /api/v1/drafts
func (h *DraftHandlers) GetDrafts(c *gin.Context) {
	address, ok := owner(c)
	if !ok {
		return
	}
	drafts, err := h.draftService.List(c.Request.Context(), address)
	if err != nil {
		respondError(c, h.logger.Story(), "list_drafts", err, nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{"drafts": drafts, "count": len(drafts)})
}

// GetDraft handles GET /api/v1/drafts/:key
func (h *DraftHandlers) GetDraft(c *gin.Context) {
	address, ok := owner(c)
	if !ok {
		return
	}
	draft, err := h.draftService.Get(c.Request.Context(), address, c.Param("key"))
	if err != nil {
		respondError(c, h.logger.Story(), "get_draft", err, nil)
		return
	}
	c.JSON(http.StatusOK, draft)
}

// PutDraft handles PUT /api/v1/drafts/:key
func (h *DraftHandlers) PutDraft(c *gin.Context) {
	address, ok := owner(c)
	if !ok {
		return
	}
	var req saveDraftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequestBody(c, h.logger.Story(), "put_draft", err)
		return
	}
	draft, err := h.draftService.Save(c.Request.Context(), address, c.Param("key"), req.Content)
	if err != nil {
		respondError(c, h.logger.Story(), "put_draft", err, nil)
		return
	}
	c.JSON(http.StatusOK, draft)
}

// DeleteDraft handles DELETE /api/v1/drafts/:key
func (h *DraftHandlers) DeleteDraft(c *gin.Context) {
	address, ok := owner(c)
	if !ok {
		return
	}
	if err := h.draftService.Delete(c.Request.Context(), address, c.Param("key")); err != nil {
		respondError(c, h.logger.Story(), "delete_draft", err, nil)
		return
	}
	c.Status(http.StatusNoContent)
}
