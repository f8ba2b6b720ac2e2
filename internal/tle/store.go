package tle

import (
	"sync"
	"sync/atomic"
	"time"
)

// Store is the process-wide holder of the current element set. Reads are
// lock-free; a dataset, once published, is never mutated.
type Store struct {
	dataset atomic.Pointer[TLEDataset]
	mu      sync.Mutex // serializes refresh operations
}

func NewStore() *Store {
	return &Store{}
}

// Get returns the current dataset, or nil when none has been loaded yet.
func (s *Store) Get() *TLEDataset {
	return s.dataset.Load()
}

// Set publishes a new dataset. Callers must not modify ds afterwards.
func (s *Store) Set(ds *TLEDataset) {
	s.dataset.Store(ds)
}

// Find looks up a satellite by NORAD ID in the current dataset.
func (s *Store) Find(noradID int) (TLEEntry, bool) {
	ds := s.dataset.Load()
	if ds == nil {
		return TLEEntry{}, false
	}
	return ds.Find(noradID)
}

// Count returns the number of satellites in the current dataset.
func (s *Store) Count() int {
	ds := s.dataset.Load()
	if ds == nil {
		return 0
	}
	return len(ds.Satellites)
}

// AgeSeconds returns the age of the current dataset in seconds, or -1 when
// no dataset is loaded.
func (s *Store) AgeSeconds() float64 {
	ds := s.dataset.Load()
	if ds == nil {
		return -1
	}
	return time.Since(ds.FetchedAt).Seconds()
}

// Lock acquires the refresh mutex so only one fetch runs at a time.
func (s *Store) Lock() {
	s.mu.Lock()
}

func (s *Store) Unlock() {
	s.mu.Unlock()
}
