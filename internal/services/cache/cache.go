package cache

import (
	"classifier-service/internal/models"
)

// Store is a bounded fingerprint-keyed prediction score store. Implementations
// must be safe for concurrent use and must never hand out their internal
// score slices by reference.
type Store interface {
	Name() string
	// Get returns a copy of the stored scores, counts a hit or miss and
	// refreshes the entry's recency.
	Get(fingerprint string) ([]models.ClassScore, bool)
	// Peek returns a copy of the stored scores without touching recency or
	// the hit/miss counters.
	Peek(fingerprint string) ([]models.ClassScore, bool)
	// Put stores a copy of scores, evicting older entries as needed so the
	// size bound holds at every observable point.
	Put(fingerprint string, scores []models.ClassScore)
	// Clear removes all entries and resets the hit/miss counters.
	Clear()
	Info() models.CacheInfo
}
