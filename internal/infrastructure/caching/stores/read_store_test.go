package stores

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newClockedStore(ttl time.Duration) (*ReadStore, *time.Time) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s := NewReadStore(ttl)
	s.now = func() time.Time { return now }
	return s, &now
}

func TestReadStoreGetSetAndExpiry(t *testing.T) {
	s, now := newClockedStore(time.Minute)

	s.Set("story:1", "value", "1")
	v, ok := s.Get("story:1")
	assert.True(t, ok)
	assert.Equal(t, "value", v)

	*now = now.Add(2 * time.Minute)
	_, ok = s.Get("story:1")
	assert.False(t, ok)

	assert.Equal(t, 1, s.PurgeExpired())
	stats := s.Stats()
	assert.Equal(t, 0, stats.Entries)
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, int64(1), stats.Expired)
}

func TestReadStoreInvalidateTag(t *testing.T) {
	s, _ := newClockedStore(time.Minute)

	s.Set("story:1", 1, "1")
	s.Set("chapter:1:1", "text", "1")
	s.Set("story:2", 2, "2")
	s.Set("stories:all", []int{1, 2}, "1", "2")

	assert.Equal(t, 3, s.InvalidateTag("1"))
	_, ok := s.Get("story:1")
	assert.False(t, ok)
	_, ok = s.Get("stories:all")
	assert.False(t, ok)
	_, ok = s.Get("story:2")
	assert.True(t, ok)

	// tag 2 no longer references the removed aggregate entry
	assert.Equal(t, 1, s.InvalidateTag("2"))
	assert.Equal(t, 0, s.InvalidateTag("missing"))
}

func TestReadStoreSetRetags(t *testing.T) {
	s, _ := newClockedStore(time.Minute)

	s.Set("k", 1, "a")
	s.Set("k", 2, "b")
	assert.Equal(t, 0, s.InvalidateTag("a"))
	assert.Equal(t, 1, s.InvalidateTag("b"))
}

func TestReadStoreClear(t *testing.T) {
	s, _ := newClockedStore(time.Minute)
	s.Set("a", 1)
	s.Set("b", 2, "x")
	s.Clear()
	assert.Equal(t, 0, s.Stats().Entries)
	assert.Equal(t, 0, s.InvalidateTag("x"))
}
