package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	apperrors "go-nft-marker-gen/internal/errors"
	"go-nft-marker-gen/internal/logger"
	"go-nft-marker-gen/internal/metrics"
	"go-nft-marker-gen/pkg/models"
)

// DefaultTTL is the default lifetime of a cached analysis.
const DefaultTTL = 7 * 24 * time.Hour

type entry struct {
	Analysis  models.QualityAnalysis `json:"analysis"`
	ExpiresAt time.Time              `json:"expires_at"`
}

func (e entry) expired(now time.Time) bool {
	return now.After(e.ExpiresAt)
}

// AnalysisCache memoizes quality analyses keyed by source fingerprint. It is
// safe for concurrent use by batch workers. When a directory is configured,
// entries are written through to one JSON file each so they survive
// restarts; a corrupt or unreadable file degrades to a miss, never to a
// failure.
type AnalysisCache struct {
	mu       sync.RWMutex
	entries  map[string]entry
	ttl      time.Duration
	dir      string
	recorder *metrics.Recorder
}

// NewAnalysisCache creates a cache with the given default TTL (DefaultTTL
// when ttl <= 0). dir may be empty for a memory-only cache. The recorder
// receives a hit or miss for every lookup and may be nil.
func NewAnalysisCache(ttl time.Duration, dir string, recorder *metrics.Recorder) (*AnalysisCache, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, apperrors.NewCacheError("creating cache directory", err)
		}
	}
	return &AnalysisCache{
		entries:  make(map[string]entry),
		ttl:      ttl,
		dir:      dir,
		recorder: recorder,
	}, nil
}

// Get returns the cached analysis for a fingerprint. Expiry is checked
// lazily here; expired entries are evicted on the spot. The returned
// analysis carries Cached=true.
func (c *AnalysisCache) Get(fingerprint string) (models.QualityAnalysis, bool) {
	now := time.Now()

	c.mu.RLock()
	e, ok := c.entries[fingerprint]
	c.mu.RUnlock()

	if ok && e.expired(now) {
		c.evict(fingerprint)
		ok = false
	}

	if !ok && c.dir != "" {
		e, ok = c.loadFromDisk(fingerprint, now)
	}

	if !ok {
		c.recordMiss()
		return models.QualityAnalysis{}, false
	}

	c.recordHit()
	analysis := e.Analysis
	analysis.Cached = true
	return analysis, true
}

// Put stores an analysis under the fingerprint with the default TTL.
func (c *AnalysisCache) Put(fingerprint string, analysis models.QualityAnalysis) {
	c.PutWithTTL(fingerprint, analysis, c.ttl)
}

// PutWithTTL stores an analysis with an explicit TTL.
func (c *AnalysisCache) PutWithTTL(fingerprint string, analysis models.QualityAnalysis, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.ttl
	}
	analysis.Cached = false
	e := entry{Analysis: analysis, ExpiresAt: time.Now().Add(ttl)}

	c.mu.Lock()
	c.entries[fingerprint] = e
	c.mu.Unlock()

	if c.dir != "" {
		if err := c.saveToDisk(fingerprint, e); err != nil {
			logger.WithError(err).WithField("fingerprint", fingerprint).
				Warn("Failed to persist cache entry")
		}
	}
}

// Clear removes entries. With all=true everything goes; otherwise only
// entries already past their expiry. Returns the number removed.
func (c *AnalysisCache) Clear(all bool) int {
	now := time.Now()

	c.mu.Lock()
	removed := 0
	for fp, e := range c.entries {
		if all || e.expired(now) {
			delete(c.entries, fp)
			removed++
			if c.dir != "" {
				os.Remove(c.entryPath(fp))
			}
		}
	}
	c.mu.Unlock()

	if all && c.dir != "" {
		// Disk may hold entries from earlier processes.
		matches, _ := filepath.Glob(filepath.Join(c.dir, "*.json"))
		for _, m := range matches {
			os.Remove(m)
		}
	}
	return removed
}

// Len reports the number of in-memory entries, expired or not.
func (c *AnalysisCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *AnalysisCache) evict(fingerprint string) {
	c.mu.Lock()
	delete(c.entries, fingerprint)
	c.mu.Unlock()
	if c.dir != "" {
		os.Remove(c.entryPath(fingerprint))
	}
}

// loadFromDisk revives a persisted entry. Corruption is logged as a cache
// error, the file removed, and the lookup degrades to a miss.
func (c *AnalysisCache) loadFromDisk(fingerprint string, now time.Time) (entry, bool) {
	data, err := os.ReadFile(c.entryPath(fingerprint))
	if err != nil {
		return entry{}, false
	}

	var e entry
	if err := json.Unmarshal(data, &e); err != nil {
		cacheErr := apperrors.NewCacheError(
			fmt.Sprintf("corrupt cache entry for fingerprint %s", fingerprint), err)
		logger.WithError(cacheErr).Warn("Dropping corrupt cache entry")
		os.Remove(c.entryPath(fingerprint))
		return entry{}, false
	}
	if e.expired(now) {
		os.Remove(c.entryPath(fingerprint))
		return entry{}, false
	}

	c.mu.Lock()
	c.entries[fingerprint] = e
	c.mu.Unlock()
	return e, true
}

func (c *AnalysisCache) saveToDisk(fingerprint string, e entry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return os.WriteFile(c.entryPath(fingerprint), data, 0o644)
}

func (c *AnalysisCache) entryPath(fingerprint string) string {
	return filepath.Join(c.dir, fingerprint+".json")
}

func (c *AnalysisCache) recordHit() {
	if c.recorder != nil {
		c.recorder.RecordCacheHit()
	}
}

func (c *AnalysisCache) recordMiss() {
	if c.recorder != nil {
		c.recorder.RecordCacheMiss()
	}
}
