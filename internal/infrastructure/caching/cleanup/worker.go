// Package cleanup provides the background cache purge worker
package cleanup

import (
	"context"
	"time"

	"github.com/bernice-stories/bernice/internal/infrastructure/caching/interfaces"
	"github.com/bernice-stories/bernice/internal/infrastructure/observability/logging"
)

// Worker handles background cache cleanup operations
type Worker struct {
	cache  interfaces.ReadCache
	logger *logging.ChanneledLogger
	config *Config
}

// NewWorker creates a new cleanup worker with injected configuration
func NewWorker(cache interfaces.ReadCache, logger *logging.ChanneledLogger, config *Config) *Worker {
	return &Worker{
		cache:  cache,
		logger: logger,
		config: config,
	}
}

// Start runs until ctx is cancelled, purging on the configured interval
func (w *Worker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.config.CleanupInterval)
	defer ticker.Stop()

	w.logger.Cache().Info("Cache cleanup worker started", "interval", w.config.CleanupInterval, "entryTTL", w.config.EntryTTL)

	for {
		select {
		case <-ctx.Done():
			w.logger.Cache().Info("Cache cleanup worker stopping")
			return
		case <-ticker.C:
			w.PerformCleanup()
		}
	}
}

// PerformCleanup purges expired entries once
func (w *Worker) PerformCleanup() int {
	start := time.Now()
	purged := w.cache.PurgeExpired()
	if purged > 0 {
		stats := w.cache.Stats()
		w.logger.Cache().Info("Cache cleanup finished",
			"purged", purged, "remaining", stats.Entries, "duration", time.Since(start))
	}
	return purged
}
