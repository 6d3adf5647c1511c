package handlers

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/bernice-stories/bernice/internal/application/container"
	"github.com/bernice-stories/bernice/internal/infrastructure/observability/logging"
)

// SystemHandlers reports health and runtime statistics
type SystemHandlers struct {
	container *container.Container
	startedAt time.Time
}

func NewSystemHandlers(container *container.Container) *SystemHandlers {
	return &SystemHandlers{container: container, startedAt: time.Now()}
}

// GetHealth handles GET /api/v1/health
func (h *SystemHandlers) GetHealth(c *gin.Context) {
	status := "ok"
	health := gin.H{
		"uptime": time.Since(h.startedAt).Round(time.Second).String(),
		"chain":  h.container.ChainService.Status(),
	}
	if h.container.DB != nil {
		if err := h.container.DB.PingContext(c.Request.Context()); err != nil {
			status = "degraded"
			health["database"] = "unreachable"
		} else {
			health["database"] = "ok"
		}
	} else {
		health["database"] = "memory"
	}
	if h.container.PerfTracker != nil {
		health["performance"] = h.container.PerfTracker.Health()
	}
	health["status"] = status
	c.JSON(http.StatusOK, health)
}

// GetStats handles GET /api/v1/system/stats
func (h *SystemHandlers) GetStats(c *gin.Context) {
	stats := gin.H{
		"cache": h.container.ChainService.CacheStats(),
		"connections": gin.H{
			"sse":       h.container.Broadcaster.ConnectionCount(),
			"websocket": h.container.Hub.ConnectionCount(),
		},
		"transactions": len(h.container.ChainService.RecentTx()),
	}
	if h.container.PerfTracker != nil {
		stats["performance"] = h.container.PerfTracker.GetOverallStats()
		stats["operations"] = h.container.PerfTracker.GetOperationStats()
	}
	if h.container.ChainClient != nil && h.container.ChainClient.Listener != nil {
		delivered, lastBlock := h.container.ChainClient.Listener.Stats()
		stats["listener"] = gin.H{"delivered": delivered, "lastBlock": lastBlock}
	}
	c.JSON(http.StatusOK, stats)
}

// GetLogLevels handles GET /api/v1/system/log-levels
func (h *SystemHandlers) GetLogLevels(c *gin.Context) {
	logger := h.container.Logger
	if logger == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "logger not available"})
		return
	}
	c.JSON(http.StatusOK, logger.GetChannelLevels())
}

// SetLogLevel handles PUT /api/v1/system/log-levels
func (h *SystemHandlers) SetLogLevel(c *gin.Context) {
	logger := h.container.Logger
	if logger == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "logger not available"})
		return
	}

	var req struct {
		Channel string `json:"channel" binding:"required"`
		Level   string `json:"level" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	var level slog.Level
	switch strings.ToUpper(req.Level) {
	case "DEBUG":
		level = slog.LevelDebug
	case "INFO":
		level = slog.LevelInfo
	case "WARN":
		level = slog.LevelWarn
	case "ERROR":
		level = slog.LevelError
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid log level specified"})
		return
	}

	if err := logger.SetChannelLevel(logging.Channel(req.Channel), level); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to set log level", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "message": fmt.Sprintf("log level for channel '%s' set to '%s'", req.Channel, strings.ToUpper(req.Level))})
}
