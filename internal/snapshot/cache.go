// Package snapshot keeps a rolling in-memory window of whole-catalog
// position snapshots.
//
// The cache covers [now, now+horizon] continuously: a background worker
// generates new snapshots at the leading edge and evicts stale entries from
// the trailing edge. When the TLE dataset is replaced, the window is rebuilt
// in the background while reads keep being served from the old entries.
package snapshot

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
	"unsafe"

	"github.com/satview/satview/internal/metrics"
	"github.com/satview/satview/internal/propagation"
	"github.com/satview/satview/internal/tle"
)

// Config controls the cache window geometry.
type Config struct {
	Step        time.Duration // snapshot interval
	Horizon     time.Duration // how far ahead of now to cache
	GracePeriod time.Duration // dataset cutover grace period
	Buffer      time.Duration // keep entries this long past expiration
}

type cacheEntry struct {
	snapshot    *propagation.Snapshot
	generatedAt time.Time
}

// Cache is a rolling window of snapshots keyed by step-aligned timestamps.
// Safe for concurrent use.
type Cache struct {
	mu      sync.RWMutex
	entries map[time.Time]*cacheEntry

	config Config
	prop   *propagation.Propagator
	store  *tle.Store
	logger *slog.Logger

	// Dataset identity the window was built from, for cutover detection.
	currentFetchedAt time.Time

	hits      atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64

	inGracePeriod atomic.Bool
}

func NewCache(config Config, prop *propagation.Propagator, store *tle.Store, logger *slog.Logger) *Cache {
	logger.Info("snapshot cache initialized",
		"step_seconds", config.Step.Seconds(),
		"horizon_seconds", config.Horizon.Seconds(),
		"buffer_seconds", config.Buffer.Seconds(),
		"grace_period_seconds", config.GracePeriod.Seconds(),
	)

	return &Cache{
		entries: make(map[time.Time]*cacheEntry),
		config:  config,
		prop:    prop,
		store:   store,
		logger:  logger,
	}
}

// RoundToStep aligns a timestamp down to the cache's step boundary so
// lookups hit consistently. Converts to UTC first; SGP4 and sidereal time
// both work in UTC.
func (c *Cache) RoundToStep(t time.Time) time.Time {
	return t.UTC().Truncate(c.config.Step)
}

// Get returns the snapshot at the given (step-aligned) timestamp, or nil.
func (c *Cache) Get(t time.Time) *propagation.Snapshot {
	key := c.RoundToStep(t)

	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if ok {
		c.hits.Add(1)
		metrics.IncCacheHits()
		return entry.snapshot
	}

	c.misses.Add(1)
	metrics.IncCacheMisses()
	return nil
}

// GetRecent returns up to count snapshots at and before t, oldest first.
func (c *Cache) GetRecent(t time.Time, count int) []*propagation.Snapshot {
	if count <= 0 {
		return nil
	}

	key := c.RoundToStep(t)

	c.mu.RLock()
	defer c.mu.RUnlock()

	result := make([]*propagation.Snapshot, 0, count)
	for i := count - 1; i >= 0; i-- {
		ts := key.Add(-time.Duration(i) * c.config.Step)
		if entry, ok := c.entries[ts]; ok {
			result = append(result, entry.snapshot)
		}
	}
	return result
}

// GetLatest returns the snapshot closest to (but not after) now, walking a
// few steps back to ride out a lagging generator.
func (c *Cache) GetLatest() *propagation.Snapshot {
	now := c.RoundToStep(time.Now())

	c.mu.RLock()
	defer c.mu.RUnlock()

	for i := 0; i < 10; i++ {
		key := now.Add(-time.Duration(i) * c.config.Step)
		if entry, ok := c.entries[key]; ok {
			c.hits.Add(1)
			metrics.IncCacheHits()
			return entry.snapshot
		}
	}

	c.misses.Add(1)
	metrics.IncCacheMisses()
	return nil
}

// put stores a snapshot. Caller must not hold mu.
func (c *Cache) put(snap *propagation.Snapshot) {
	key := c.RoundToStep(snap.Timestamp)
	entry := &cacheEntry{snapshot: snap, generatedAt: time.Now()}

	c.mu.Lock()
	c.entries[key] = entry
	c.mu.Unlock()

	c.updateMetrics()
}

// evictExpired removes entries older than now - buffer.
func (c *Cache) evictExpired() int {
	cutoff := time.Now().Add(-c.config.Buffer)
	var removed int

	c.mu.Lock()
	for ts := range c.entries {
		if ts.Before(cutoff) {
			delete(c.entries, ts)
			removed++
		}
	}
	c.mu.Unlock()

	if removed > 0 {
		c.evictions.Add(int64(removed))
		metrics.AddCacheEvictions(removed)
		c.updateMetrics()
		c.logger.Debug("snapshot cache eviction", "entries_removed", removed)
	}

	return removed
}

// replaceAll swaps the whole entry map, used at dataset cutover.
func (c *Cache) replaceAll(newEntries map[time.Time]*cacheEntry) {
	c.mu.Lock()
	c.entries = newEntries
	c.mu.Unlock()
	c.updateMetrics()
}

// Stats is a point-in-time view of the cache for the stats endpoint.
type Stats struct {
	Entries         int       `json:"entries"`
	SizeBytes       int64     `json:"size_bytes"`
	OldestTimestamp time.Time `json:"oldest_timestamp"`
	NewestTimestamp time.Time `json:"newest_timestamp"`
	Hits            int64     `json:"hits"`
	Misses          int64     `json:"misses"`
	Evictions       int64     `json:"evictions"`
	InGracePeriod   bool      `json:"in_grace_period"`
}

func (c *Cache) Stats() Stats {
	c.mu.RLock()
	count := len(c.entries)

	var oldest, newest time.Time
	for ts := range c.entries {
		if oldest.IsZero() || ts.Before(oldest) {
			oldest = ts
		}
		if newest.IsZero() || ts.After(newest) {
			newest = ts
		}
	}
	c.mu.RUnlock()

	return Stats{
		Entries:         count,
		SizeBytes:       c.estimateSizeBytes(),
		OldestTimestamp: oldest,
		NewestTimestamp: newest,
		Hits:            c.hits.Load(),
		Misses:          c.misses.Load(),
		Evictions:       c.evictions.Load(),
		InGracePeriod:   c.inGracePeriod.Load(),
	}
}

// estimateSizeBytes is a rough memory footprint for the size gauge. Struct
// sizes plus name string bytes; map bucket overhead approximated.
func (c *Cache) estimateSizeBytes() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var total int64
	for _, entry := range c.entries {
		if entry.snapshot == nil {
			continue
		}
		total += int64(len(entry.snapshot.Satellites)) * int64(unsafe.Sizeof(propagation.SubPoint{}))
		for _, sp := range entry.snapshot.Satellites {
			total += int64(len(sp.Name))
		}
		total += int64(unsafe.Sizeof(propagation.Snapshot{})) + int64(unsafe.Sizeof(cacheEntry{}))
	}
	total += int64(len(c.entries)) * 8

	return total
}

func (c *Cache) updateMetrics() {
	c.mu.RLock()
	count := len(c.entries)
	c.mu.RUnlock()

	metrics.SetCacheEntries(count)
	metrics.SetCacheSizeBytes(c.estimateSizeBytes())
}
