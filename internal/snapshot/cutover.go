package snapshot

import (
	"context"
	"time"

	"github.com/satview/satview/internal/metrics"
)

// datasetChanged reports whether the store holds a newer dataset than the
// one the window was built from.
func (c *Cache) datasetChanged() bool {
	ds := c.store.Get()
	if ds == nil {
		return false
	}
	return !ds.FetchedAt.Equal(c.currentFetchedAt)
}

// performCutover rebuilds the whole window from the new dataset. Reads keep
// hitting the old entries until the new map is swapped in, so a refresh
// never interrupts clients.
func (c *Cache) performCutover(ctx context.Context) {
	ds := c.store.Get()
	if ds == nil {
		return
	}

	c.logger.Info("dataset cutover starting",
		"old_dataset_fetched_at", c.currentFetchedAt.UTC().Format(time.RFC3339),
		"new_dataset_fetched_at", ds.FetchedAt.UTC().Format(time.RFC3339),
	)

	c.inGracePeriod.Store(true)
	metrics.SetCacheGracePeriodActive(true)

	start := time.Now()
	now := c.RoundToStep(time.Now())
	numFrames := int(c.config.Horizon/c.config.Step) + 1

	newEntries := make(map[time.Time]*cacheEntry, numFrames)
	generated := 0

	for i := 0; i < numFrames; i++ {
		select {
		case <-ctx.Done():
			c.inGracePeriod.Store(false)
			metrics.SetCacheGracePeriodActive(false)
			c.logger.Warn("cutover cancelled by context")
			return
		default:
		}

		target := now.Add(time.Duration(i) * c.config.Step)
		snap, err := c.prop.SnapshotAt(ctx, target)
		if err != nil {
			c.logger.Warn("cutover propagation failed",
				"timestamp", target.Format(time.RFC3339),
				"error", err,
			)
			metrics.IncCacheRegenerationErrors()
			continue
		}

		newEntries[c.RoundToStep(snap.Timestamp)] = &cacheEntry{
			snapshot:    snap,
			generatedAt: time.Now(),
		}
		generated++
	}

	c.replaceAll(newEntries)
	c.currentFetchedAt = ds.FetchedAt

	c.inGracePeriod.Store(false)
	metrics.SetCacheGracePeriodActive(false)

	duration := time.Since(start)
	c.logger.Info("dataset cutover complete",
		"duration_ms", duration.Milliseconds(),
		"entries_replaced", generated,
	)
	metrics.ObserveCacheRegenerationDuration(duration)
}
