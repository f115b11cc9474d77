package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/flanksource/quality-unit/models"
)

// RunKey builds the whole-run cache key from the canonicalized codebase
// root and a deterministic serialization of the options. sha256 keeps
// the key collision-resistant: a collision here would silently serve a
// different run's result, which is a correctness bug rather than a
// performance one.
func RunKey(root string, opts models.AnalysisOptions) string {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		absRoot = root
	}

	h := sha256.New()
	h.Write([]byte(absRoot))
	h.Write([]byte{0})
	h.Write([]byte(opts.CanonicalString()))
	return hex.EncodeToString(h.Sum(nil))
}

type runEntry struct {
	result   models.AnalysisRunResult
	cachedAt time.Time
}

// RunCache is the coarse whole-run result cache. It is deliberately a
// separate store from the per-file cache so the fast full-bypass check
// never depends on the slower per-file diff logic.
type RunCache struct {
	mu      sync.RWMutex
	entries map[string]runEntry
	ttl     time.Duration
	hits    atomic.Int64
	misses  atomic.Int64
}

// NewRunCache creates a run cache with the given entry TTL
func NewRunCache(ttl time.Duration) *RunCache {
	return &RunCache{
		entries: make(map[string]runEntry),
		ttl:     ttl,
	}
}

// SetTTL updates the freshness bound applied by Get
func (c *RunCache) SetTTL(ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	c.mu.Lock()
	c.ttl = ttl
	c.mu.Unlock()
}

// Get returns the cached run result for a key if it is still fresh
func (c *RunCache) Get(key string) (models.AnalysisRunResult, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	ttl := c.ttl
	c.mu.RUnlock()

	if !ok || (ttl > 0 && time.Since(entry.cachedAt) > ttl) {
		c.misses.Add(1)
		return models.AnalysisRunResult{}, false
	}

	c.hits.Add(1)
	return entry.result, true
}

// Put stores a run result stamped with the current time
func (c *RunCache) Put(key string, result models.AnalysisRunResult) {
	c.mu.Lock()
	c.entries[key] = runEntry{result: result, cachedAt: time.Now()}
	c.mu.Unlock()
}

// Expire removes entries older than ttl and returns the count removed
func (c *RunCache) Expire(ttl time.Duration) int {
	cutoff := time.Now().Add(-ttl)

	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key, entry := range c.entries {
		if entry.cachedAt.Before(cutoff) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// Clear empties the run cache
func (c *RunCache) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]runEntry)
	c.mu.Unlock()
}

// Len returns the current number of cached run results
func (c *RunCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Counters returns the lifetime hit/miss counters
func (c *RunCache) Counters() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// Stats summarizes both cache stores for the admin surface
type Stats struct {
	FileEntries int   `json:"file_entries"`
	RunEntries  int   `json:"run_entries"`
	Hits        int64 `json:"hits"`
	Misses      int64 `json:"misses"`
}

// CollectStats combines the counters of a file store and a run cache
func CollectStats(files *Store, runs *RunCache) Stats {
	fileHits, fileMisses := files.Counters()
	runHits, runMisses := runs.Counters()
	return Stats{
		FileEntries: files.Len(),
		RunEntries:  runs.Len(),
		Hits:        fileHits + runHits,
		Misses:      fileMisses + runMisses,
	}
}
