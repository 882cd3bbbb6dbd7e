package caches

import (
	"log"
	"sync"
	"sync/atomic"
	"time"

	"classifier-service/internal/models"
)

// LRUStore is a fixed-capacity in-memory prediction store with
// least-recently-used eviction. Eviction happens synchronously inside Put,
// so the entry count never exceeds the capacity, not even transiently.
type LRUStore struct {
	mu       sync.Mutex
	entries  map[string]*storeEntry
	capacity int
	nextSeq  uint64

	hits   atomic.Int64
	misses atomic.Int64
}

// storeEntry keeps the scores plus the bookkeeping eviction needs. seq is a
// strict access counter: wall-clock timestamps can collide on coarse clocks,
// which would make eviction order nondeterministic.
type storeEntry struct {
	scores     []models.ClassScore
	createdAt  time.Time
	lastAccess time.Time
	seq        uint64
}

func NewLRUStore(capacity int) *LRUStore {
	if capacity < 1 {
		capacity = 1
	}
	return &LRUStore{
		entries:  make(map[string]*storeEntry, capacity),
		capacity: capacity,
	}
}

func (s *LRUStore) Name() string {
	return "LRU"
}

// Get returns a copy of the stored scores and refreshes the entry's recency.
func (s *LRUStore) Get(fingerprint string) ([]models.ClassScore, bool) {
	s.mu.Lock()
	entry, ok := s.entries[fingerprint]
	if !ok {
		s.mu.Unlock()
		s.misses.Add(1)
		return nil, false
	}
	s.nextSeq++
	entry.seq = s.nextSeq
	entry.lastAccess = time.Now()
	scores := cloneScores(entry.scores)
	s.mu.Unlock()
	s.hits.Add(1)
	return scores, true
}

// Peek returns a copy of the stored scores without touching recency or the
// hit/miss counters.
func (s *LRUStore) Peek(fingerprint string) ([]models.ClassScore, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[fingerprint]
	if !ok {
		return nil, false
	}
	return cloneScores(entry.scores), true
}

// Put stores a copy of scores under fingerprint, evicting the least recently
// used entry when the store is already full.
func (s *LRUStore) Put(fingerprint string, scores []models.ClassScore) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	s.nextSeq++
	if entry, ok := s.entries[fingerprint]; ok {
		entry.scores = cloneScores(scores)
		entry.lastAccess = now
		entry.seq = s.nextSeq
		return
	}
	if len(s.entries) >= s.capacity {
		s.evictOldest()
	}
	s.entries[fingerprint] = &storeEntry{
		scores:     cloneScores(scores),
		createdAt:  now,
		lastAccess: now,
		seq:        s.nextSeq,
	}
}

// evictOldest removes the entry with the lowest access sequence. The caller
// holds the lock.
func (s *LRUStore) evictOldest() {
	var oldestKey string
	var oldestSeq uint64
	found := false
	for key, entry := range s.entries {
		if !found || entry.seq < oldestSeq {
			oldestKey = key
			oldestSeq = entry.seq
			found = true
		}
	}
	if found {
		delete(s.entries, oldestKey)
		log.Printf("Prediction store: evicted entry %s", shortFingerprint(oldestKey))
	}
}

// Clear removes all entries and resets the hit/miss counters.
func (s *LRUStore) Clear() {
	s.mu.Lock()
	s.entries = make(map[string]*storeEntry, s.capacity)
	s.mu.Unlock()
	s.hits.Store(0)
	s.misses.Store(0)
}

func (s *LRUStore) Info() models.CacheInfo {
	s.mu.Lock()
	currsize := len(s.entries)
	s.mu.Unlock()
	return models.CacheInfo{
		Hits:     s.hits.Load(),
		Misses:   s.misses.Load(),
		Maxsize:  s.capacity,
		Currsize: currsize,
	}
}

func cloneScores(scores []models.ClassScore) []models.ClassScore {
	out := make([]models.ClassScore, len(scores))
	copy(out, scores)
	return out
}

func shortFingerprint(fp string) string {
	if len(fp) > 12 {
		return fp[:12]
	}
	return fp
}
