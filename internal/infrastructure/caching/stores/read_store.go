// Package stores provides concrete cache store implementations
package stores

import (
	"sync"
	"time"

	"github.com/bernice-stories/bernice/internal/infrastructure/caching/interfaces"
)

type entry struct {
	value    any
	storedAt time.Time
	tags     []string
}

// ReadStore is a TTL map with tag-based invalidation.
type ReadStore struct {
	entries map[string]*entry
	byTag   map[string]map[string]struct{}
	ttl     time.Duration
	now     func() time.Time
	mu      sync.RWMutex

	hits, misses, invalidations, expired int64
}

// NewReadStore creates a store whose entries live for ttl.
func NewReadStore(ttl time.Duration) *ReadStore {
	return &ReadStore{
		entries: make(map[string]*entry),
		byTag:   make(map[string]map[string]struct{}),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (s *ReadStore) Get(key string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok || s.now().Sub(e.storedAt) > s.ttl {
		s.misses++
		return nil, false
	}
	s.hits++
	return e.value, true
}

func (s *ReadStore) Set(key string, value any, tags ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.entries[key]; ok {
		s.untag(key, old.tags)
	}
	s.entries[key] = &entry{value: value, storedAt: s.now(), tags: tags}
	for _, tag := range tags {
		if s.byTag[tag] == nil {
			s.byTag[tag] = make(map[string]struct{})
		}
		s.byTag[tag][key] = struct{}{}
	}
}

// InvalidateTag removes every entry carrying tag and returns how many went.
func (s *ReadStore) InvalidateTag(tag string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := s.byTag[tag]
	removed := 0
	for key := range keys {
		if e, ok := s.entries[key]; ok {
			s.untag(key, e.tags)
			delete(s.entries, key)
			removed++
		}
	}
	delete(s.byTag, tag)
	s.invalidations += int64(removed)
	return removed
}

func (s *ReadStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.invalidations += int64(len(s.entries))
	s.entries = make(map[string]*entry)
	s.byTag = make(map[string]map[string]struct{})
}

// PurgeExpired drops entries older than the TTL.
func (s *ReadStore) PurgeExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	purged := 0
	for key, e := range s.entries {
		if now.Sub(e.storedAt) > s.ttl {
			s.untag(key, e.tags)
			delete(s.entries, key)
			purged++
		}
	}
	s.expired += int64(purged)
	return purged
}

func (s *ReadStore) Stats() interfaces.Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return interfaces.Stats{
		Entries:       len(s.entries),
		Hits:          s.hits,
		Misses:        s.misses,
		Invalidations: s.invalidations,
		Expired:       s.expired,
		TTL:           s.ttl,
	}
}

// untag must be called with the lock held.
func (s *ReadStore) untag(key string, tags []string) {
	for _, tag := range tags {
		delete(s.byTag[tag], key)
		if len(s.byTag[tag]) == 0 {
			delete(s.byTag, tag)
		}
	}
}
