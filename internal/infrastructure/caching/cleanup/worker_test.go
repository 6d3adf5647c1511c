package cleanup

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/bernice-stories/bernice/internal/infrastructure/caching/stores"
	"github.com/bernice-stories/bernice/internal/infrastructure/observability/logging"
)

func TestPerformCleanupPurgesExpired(t *testing.T) {
	cache := stores.NewReadStore(time.Nanosecond)
	cache.Set("story:1", "x", "1")
	time.Sleep(time.Millisecond)

	w := NewWorker(cache, logging.NewDiscardLogger(), &Config{CleanupInterval: time.Hour})
	assert.Equal(t, 1, w.PerformCleanup())
	assert.Equal(t, 0, cache.Stats().Entries)
}

func TestWorkerStopsOnCancel(t *testing.T) {
	cache := stores.NewReadStore(time.Minute)
	w := NewWorker(cache, logging.NewDiscardLogger(), &Config{CleanupInterval: time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}
