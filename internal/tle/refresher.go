package tle

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/satview/satview/internal/metrics"
)

// Refresher keeps the store's element set fresh: fetch, parse, publish,
// persist to the disk cache, on a fixed interval.
type Refresher struct {
	fetcher  *Fetcher
	cache    *Cache
	store    *Store
	interval time.Duration
	logger   *slog.Logger
}

func NewRefresher(fetcher *Fetcher, cache *Cache, store *Store, interval time.Duration, logger *slog.Logger) *Refresher {
	if interval <= 0 {
		interval = 6 * time.Hour
	}
	return &Refresher{
		fetcher:  fetcher,
		cache:    cache,
		store:    store,
		interval: interval,
		logger:   logger,
	}
}

// Start refreshes once immediately, then on every interval tick until the
// context is cancelled. A failed refresh leaves the previous dataset in
// place; the next tick tries again.
func (r *Refresher) Start(ctx context.Context) {
	if err := r.RefreshNow(ctx); err != nil {
		r.logger.Warn("initial TLE refresh failed", "error", err)
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := r.RefreshNow(ctx); err != nil {
				r.logger.Warn("TLE refresh failed", "error", err)
			}
		case <-ctx.Done():
			return
		}
	}
}

// RefreshNow performs one fetch-parse-publish cycle. Concurrent calls are
// serialized on the store's refresh mutex.
func (r *Refresher) RefreshNow(ctx context.Context) error {
	r.store.Lock()
	defer r.store.Unlock()

	data, err := r.fetcher.Fetch(ctx)
	if err != nil {
		return err
	}

	entries, err := Parse(bytes.NewReader(data), r.logger)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return fmt.Errorf("no usable entries in %d bytes from %s", len(data), r.fetcher.SourceURL())
	}

	now := time.Now().UTC()
	r.store.Set(NewDataset(r.fetcher.SourceURL(), now, entries))
	metrics.SetTLEDatasetCount(len(entries))

	if r.cache != nil {
		if err := r.cache.Write(data, now); err != nil {
			r.logger.Warn("writing TLE cache failed", "error", err)
		}
	}

	r.logger.Info("TLE dataset refreshed", "count", len(entries), "source", r.fetcher.SourceURL())
	return nil
}

// LoadFromCache seeds the store from the newest cached file, if any. Meant
// for startup so the service is usable before its first network fetch.
func (r *Refresher) LoadFromCache() error {
	if r.cache == nil {
		return fmt.Errorf("no cache configured")
	}

	data, ts, err := r.cache.LoadLatest()
	if err != nil {
		return err
	}

	entries, err := Parse(bytes.NewReader(data), r.logger)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return fmt.Errorf("cached TLE data contains no usable entries")
	}

	r.store.Set(NewDataset("cache", ts, entries))
	metrics.SetTLEDatasetCount(len(entries))
	r.logger.Info("loaded TLE data from cache", "count", len(entries), "cached_at", ts.Format(time.RFC3339))
	return nil
}
