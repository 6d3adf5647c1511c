package performance

import (
	"context"
	"runtime"
	"sort"
	"sync"
	"time"
)

// Tracker aggregates timings for operations across the process.
type Tracker struct {
	stats   map[string]*OperationStats
	active  int
	mu      sync.RWMutex
	started time.Time
	config  *TrackerConfig
}

// TrackerConfig contains configuration options for the performance tracker
type TrackerConfig struct {
	SlowThreshold      time.Duration `json:"slowThreshold"`      // operations above this count as slow
	DegradedSlowRatio  float64       `json:"degradedSlowRatio"`  // slow share that marks the tracker degraded
	UnhealthyFailRatio float64       `json:"unhealthyFailRatio"` // failure share that marks it unhealthy
}

// DefaultTrackerConfig returns a sensible default configuration
func DefaultTrackerConfig() *TrackerConfig {
	return &TrackerConfig{
		SlowThreshold:      2 * time.Second,
		DegradedSlowRatio:  0.10,
		UnhealthyFailRatio: 0.50,
	}
}

// NewTracker creates a tracker with the given configuration
func NewTracker(config *TrackerConfig) *Tracker {
	if config == nil {
		config = DefaultTrackerConfig()
	}
	return &Tracker{
		stats:   make(map[string]*OperationStats),
		started: time.Now(),
		config:  config,
	}
}

// StartOperation creates a new performance marker for an operation
func (t *Tracker) StartOperation(operation, scope string) *Marker {
	t.mu.Lock()
	t.active++
	t.mu.Unlock()

	return &Marker{
		Operation: operation,
		Scope:     scope,
		StartTime: time.Now(),
		Metadata:  make(map[string]any),
		Success:   true, // Assume success until proven otherwise
		tracker:   t,
	}
}

// StartOperationWithContext creates a marker that fails itself when ctx ends first
func (t *Tracker) StartOperationWithContext(ctx context.Context, operation, scope string) *Marker {
	marker := t.StartOperation(operation, scope)
	if err := ctx.Err(); err != nil {
		marker.SetError(err)
	}
	return marker
}

func (t *Tracker) record(m *Marker) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.active > 0 {
		t.active--
	}

	stats, ok := t.stats[m.Operation]
	if !ok {
		stats = &OperationStats{Operation: m.Operation}
		t.stats[m.Operation] = stats
	}
	stats.Count++
	stats.TotalTime += m.Duration
	stats.LastFinished = m.EndTime
	if m.Duration > stats.MaxTime {
		stats.MaxTime = m.Duration
	}
	if m.Duration > t.config.SlowThreshold {
		stats.SlowCount++
	}
	if !m.Success {
		stats.Failures++
		stats.LastError = m.Error
	}
}

// GetOperationStats returns a copy of the aggregated stats sorted by operation name
func (t *Tracker) GetOperationStats() []OperationStats {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]OperationStats, 0, len(t.stats))
	for _, s := range t.stats {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Operation < out[j].Operation })
	return out
}

// Health derives an overall status from failure and slow ratios
func (t *Tracker) Health() HealthStatus {
	t.mu.RLock()
	defer t.mu.RUnlock()

	total, failures, slow := 0, 0, 0
	for _, s := range t.stats {
		total += s.Count
		failures += s.Failures
		slow += s.SlowCount
	}
	if total == 0 {
		return HealthUnknown
	}
	if float64(failures)/float64(total) >= t.config.UnhealthyFailRatio {
		return HealthUnhealthy
	}
	if float64(slow)/float64(total) >= t.config.DegradedSlowRatio {
		return HealthDegraded
	}
	return HealthHealthy
}

// Reset discards all aggregated stats
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stats = make(map[string]*OperationStats)
}

// GetOverallStats returns overall tracker statistics
func (t *Tracker) GetOverallStats() map[string]any {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	completed := 0
	for _, s := range t.stats {
		completed += s.Count
	}

	return map[string]any{
		"trackerUptime":       time.Since(t.started).String(),
		"operations":          len(t.stats),
		"activeOperations":    t.active,
		"completedOperations": completed,
		"goroutines":          runtime.NumGoroutine(),
		"memoryUsageMB":       memStats.Alloc / (1024 * 1024),
		"systemMemoryMB":      memStats.Sys / (1024 * 1024),
	}
}
