package performance

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrackerAggregatesMarkers(t *testing.T) {
	tracker := NewTracker(nil)

	ok := tracker.StartOperation("story:vote", "demo")
	ok.Complete()
	ok.Complete()

	failed := tracker.StartOperation("story:vote", "demo")
	failed.SetError(errors.New("user has already voted for this submission"))
	failed.Complete()

	stats := tracker.GetOperationStats()
	require.Len(t, stats, 1)
	assert.Equal(t, "story:vote", stats[0].Operation)
	assert.Equal(t, 2, stats[0].Count)
	assert.Equal(t, 1, stats[0].Failures)
	assert.Equal(t, "user has already voted for this submission", stats[0].LastError)
	assert.Equal(t, 0, tracker.GetOverallStats()["activeOperations"])
}

func TestTrackerHealth(t *testing.T) {
	tracker := NewTracker(&TrackerConfig{
		SlowThreshold:      time.Hour,
		DegradedSlowRatio:  0.5,
		UnhealthyFailRatio: 0.5,
	})
	assert.Equal(t, HealthUnknown, tracker.Health())

	m := tracker.StartOperation("chain:get_story", "chain")
	m.Complete()
	assert.Equal(t, HealthHealthy, tracker.Health())

	m = tracker.StartOperation("chain:get_story", "chain")
	m.SetError(errors.New("rpc down"))
	m.Complete()
	assert.Equal(t, HealthUnhealthy, tracker.Health())

	tracker.Reset()
	assert.Empty(t, tracker.GetOperationStats())
}

func TestStartOperationWithCancelledContext(t *testing.T) {
	tracker := NewTracker(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	m := tracker.StartOperationWithContext(ctx, "chain:vote", "chain")
	assert.False(t, m.Success)
	assert.Equal(t, context.Canceled.Error(), m.Error)
}
