package cache

import (
	"hash/fnv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/flanksource/commons/logger"

	"github.com/flanksource/quality-unit/models"
)

const shardCount = 16

// FileRecord is one cached per-file analysis result. It is valid only
// while its fingerprint matches the live file and its age is below the
// store TTL; both checks happen inside the store, never in callers.
type FileRecord struct {
	Fingerprint Fingerprint       `json:"fingerprint"`
	Parsed      models.ParsedFile `json:"parsed"`
	Issues      []models.Issue    `json:"issues"`
	CachedAt    time.Time         `json:"cached_at"`
}

type shard struct {
	mu      sync.RWMutex
	records map[string]FileRecord
}

// Store is the per-file result cache. Paths are hashed onto independent
// shards so concurrent Get/Put/Diff from both worker pools do not
// contend on a single lock.
type Store struct {
	shards [shardCount]*shard
	// ttl holds nanoseconds; atomic because SetTTL runs concurrently
	// with Get/Diff when runs overlap
	ttl     atomic.Int64
	hits    atomic.Int64
	misses  atomic.Int64
	persist *Persistence
}

// NewStore creates an in-memory store with the given entry TTL
func NewStore(ttl time.Duration) *Store {
	s := &Store{}
	s.ttl.Store(int64(ttl))
	for i := range s.shards {
		s.shards[i] = &shard{records: make(map[string]FileRecord)}
	}
	return s
}

// NewStoreWithPersistence creates a store backed by an SQLite database.
// Previously persisted records are loaded eagerly; a load failure
// degrades to an empty store rather than failing.
func NewStoreWithPersistence(ttl time.Duration, persist *Persistence) *Store {
	s := NewStore(ttl)
	s.persist = persist

	records, err := persist.LoadAll()
	if err != nil {
		logger.Warnf("failed to load persisted cache, starting empty: %v", err)
		return s
	}
	for _, rec := range records {
		s.shardFor(rec.Fingerprint.Path).records[rec.Fingerprint.Path] = rec
	}
	if len(records) > 0 {
		logger.Debugf("loaded %d cached file records", len(records))
	}
	return s
}

func (s *Store) shardFor(path string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(path))
	return s.shards[h.Sum32()%shardCount]
}

// SetTTL updates the freshness bound applied by Get and Diff
func (s *Store) SetTTL(ttl time.Duration) {
	if ttl > 0 {
		s.ttl.Store(int64(ttl))
	}
}

func (s *Store) expired(rec FileRecord, now time.Time) bool {
	ttl := time.Duration(s.ttl.Load())
	return ttl > 0 && now.Sub(rec.CachedAt) > ttl
}

// Get returns the cached record for a path if it is still fresh: the
// entry must exist, be younger than the TTL, and carry a fingerprint
// matching the live file. Anything else is a miss.
func (s *Store) Get(path string) (FileRecord, bool) {
	sh := s.shardFor(path)

	sh.mu.RLock()
	rec, ok := sh.records[path]
	sh.mu.RUnlock()

	if !ok || s.expired(rec, time.Now()) {
		s.misses.Add(1)
		return FileRecord{}, false
	}

	live, err := ComputeFingerprint(path)
	if err != nil || !rec.Fingerprint.Equal(live) {
		s.misses.Add(1)
		return FileRecord{}, false
	}

	s.hits.Add(1)
	return rec, true
}

// Put upserts a record stamped with the current time. Persistence is
// write-behind and best-effort: a storage failure is logged, never
// surfaced, since caching is an optimization rather than a correctness
// requirement.
func (s *Store) Put(fp Fingerprint, parsed models.ParsedFile, issues []models.Issue) {
	rec := FileRecord{
		Fingerprint: fp,
		Parsed:      parsed,
		Issues:      issues,
		CachedAt:    time.Now(),
	}

	sh := s.shardFor(fp.Path)
	sh.mu.Lock()
	sh.records[fp.Path] = rec
	sh.mu.Unlock()

	if s.persist != nil {
		if err := s.persist.Save(rec); err != nil {
			logger.Warnf("failed to persist cache record for %s: %v", fp.Path, err)
		}
	}
}

// Diff splits paths into (changed, unchanged) by recomputing each file's
// live fingerprint and comparing it to the stored one. Missing entries,
// expired entries, fingerprint mismatches and unreadable files are all
// classified as changed. Order within each slice follows the input order.
func (s *Store) Diff(paths []string) (changed []string, unchanged []string) {
	now := time.Now()

	for _, path := range paths {
		sh := s.shardFor(path)
		sh.mu.RLock()
		rec, ok := sh.records[path]
		sh.mu.RUnlock()

		if !ok || s.expired(rec, now) {
			changed = append(changed, path)
			continue
		}

		live, err := ComputeFingerprint(path)
		if err != nil || !rec.Fingerprint.Equal(live) {
			changed = append(changed, path)
			continue
		}

		unchanged = append(unchanged, path)
	}

	return changed, unchanged
}

// Expire removes entries whose age exceeds ttl and returns the count
// removed. Used off the hot path for maintenance sweeps.
func (s *Store) Expire(ttl time.Duration) int {
	cutoff := time.Now().Add(-ttl)
	removed := 0

	for _, sh := range s.shards {
		sh.mu.Lock()
		for path, rec := range sh.records {
			if rec.CachedAt.Before(cutoff) {
				delete(sh.records, path)
				removed++
				if s.persist != nil {
					if err := s.persist.Delete(path); err != nil {
						logger.Warnf("failed to delete persisted record for %s: %v", path, err)
					}
				}
			}
		}
		sh.mu.Unlock()
	}

	return removed
}

// Remove drops a single entry, used when a file disappears from disk
func (s *Store) Remove(path string) {
	sh := s.shardFor(path)
	sh.mu.Lock()
	delete(sh.records, path)
	sh.mu.Unlock()

	if s.persist != nil {
		if err := s.persist.Delete(path); err != nil {
			logger.Warnf("failed to delete persisted record for %s: %v", path, err)
		}
	}
}

// Clear empties the store and its persistent backing
func (s *Store) Clear() {
	for _, sh := range s.shards {
		sh.mu.Lock()
		sh.records = make(map[string]FileRecord)
		sh.mu.Unlock()
	}

	if s.persist != nil {
		if err := s.persist.Clear(); err != nil {
			logger.Warnf("failed to clear persisted cache: %v", err)
		}
	}
}

// Len returns the current number of cached file records
func (s *Store) Len() int {
	total := 0
	for _, sh := range s.shards {
		sh.mu.RLock()
		total += len(sh.records)
		sh.mu.RUnlock()
	}
	return total
}

// Counters returns the lifetime hit/miss counters
func (s *Store) Counters() (hits, misses int64) {
	return s.hits.Load(), s.misses.Load()
}

// Close releases the persistent backing, if any
func (s *Store) Close() error {
	if s.persist != nil {
		return s.persist.Close()
	}
	return nil
}
