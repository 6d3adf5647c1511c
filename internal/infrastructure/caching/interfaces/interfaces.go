// Package interfaces defines the cache contracts used by services.
package interfaces

import "time"

// ReadCache holds decoded contract reads. Entries carry tags (usually a story
// id) so an event for one story can drop everything derived from it.
type ReadCache interface {
	Get(key string) (any, bool)
	Set(key string, value any, tags ...string)
	InvalidateTag(tag string) int
	Clear()
	PurgeExpired() int
	Stats() Stats
}

// Stats is a point-in-time view of a cache.
type Stats struct {
	Entries       int           `json:"entries"`
	Hits          int64         `json:"hits"`
	Misses        int64         `json:"misses"`
	Invalidations int64         `json:"invalidations"`
	Expired       int64         `json:"expired"`
	TTL           time.Duration `json:"ttl"`
}
