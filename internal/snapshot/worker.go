package snapshot

import (
	"context"
	"time"

	"github.com/satview/satview/internal/metrics"
)

// Start runs the background maintenance loop: an initial warmup filling
// [now, now+horizon], then per-step ticks that extend the leading edge,
// evict the trailing edge, and watch for dataset cutovers. Blocks until ctx
// is cancelled.
func (c *Cache) Start(ctx context.Context) {
	if !c.waitForTLEData(ctx) {
		return
	}

	c.warmup(ctx)

	ticker := time.NewTicker(c.config.Step)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("snapshot generator stopped")
			return
		case <-ticker.C:
			c.tick(ctx)
		}
	}
}

// waitForTLEData blocks until the store has a dataset, polling once a
// second. Returns false when ctx is cancelled first.
func (c *Cache) waitForTLEData(ctx context.Context) bool {
	if c.store.Get() != nil {
		return true
	}

	c.logger.Info("snapshot cache waiting for TLE data")
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
			if c.store.Get() != nil {
				c.logger.Info("TLE data available, starting snapshot warmup")
				return true
			}
		}
	}
}

// warmup fills the cache for [now, now+horizon].
func (c *Cache) warmup(ctx context.Context) {
	ds := c.store.Get()
	if ds == nil {
		return
	}
	c.currentFetchedAt = ds.FetchedAt

	now := c.RoundToStep(time.Now())
	numFrames := int(c.config.Horizon/c.config.Step) + 1

	c.logger.Info("snapshot warmup starting",
		"frames", numFrames,
		"from", now.Format(time.RFC3339),
		"to", now.Add(c.config.Horizon).Format(time.RFC3339),
	)

	start := time.Now()
	generated := 0

	for i := 0; i < numFrames; i++ {
		select {
		case <-ctx.Done():
			return
		default:
		}

		target := now.Add(time.Duration(i) * c.config.Step)
		snap, err := c.prop.SnapshotAt(ctx, target)
		if err != nil {
			c.logger.Warn("warmup propagation failed", "timestamp", target, "error", err)
			metrics.IncCacheRegenerationErrors()
			continue
		}

		c.put(snap)
		generated++
	}

	c.logger.Info("snapshot warmup complete",
		"generated", generated,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}

// tick runs one maintenance iteration.
func (c *Cache) tick(ctx context.Context) {
	if c.datasetChanged() {
		c.performCutover(ctx)
		return
	}

	c.generateLeadingEdge(ctx)
	c.evictExpired()
}

// generateLeadingEdge produces the snapshot at now+horizon if missing.
func (c *Cache) generateLeadingEdge(ctx context.Context) {
	target := c.RoundToStep(time.Now().Add(c.config.Horizon))

	if c.Get(target) != nil {
		return
	}

	start := time.Now()
	snap, err := c.prop.SnapshotAt(ctx, target)
	duration := time.Since(start)

	if err != nil {
		c.logger.Warn("leading edge generation failed",
			"timestamp", target.Format(time.RFC3339),
			"error", err,
		)
		metrics.IncCacheRegenerationErrors()
		return
	}

	c.put(snap)
	metrics.ObserveCacheRegenerationDuration(duration)

	c.logger.Debug("leading edge generated",
		"timestamp", target.Format(time.RFC3339),
		"duration_ms", duration.Milliseconds(),
	)
}
