package cleanup

import (
	"time"

	"github.com/bernice-stories/bernice/pkg/config"
)

// Config controls how often the read cache is swept.
type Config struct {
	CleanupInterval time.Duration
	// EntryTTL is reported only; the store applies it on Set.
	EntryTTL time.Duration
}

// NewConfig reads the cleanup cadence from pkg/config.
func NewConfig() *Config {
	return &Config{
		CleanupInterval: config.CacheCleanupInterval,
		EntryTTL:        config.ReadCacheTTL,
	}
}
