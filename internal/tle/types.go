package tle

import "time"

// TLEEntry is a single satellite's two-line element set plus the catalog
// fields extracted from it.
type TLEEntry struct {
	NORADID int
	Name    string
	Epoch   time.Time
	Line1   string
	Line2   string
}

// EpochRange is the span of element epochs in a dataset.
type EpochRange struct {
	Min time.Time `json:"min"`
	Max time.Time `json:"max"`
}

// TLEDataset is a complete element set from one fetch. Build it with
// NewDataset so the epoch range and the NORAD ID index are populated.
type TLEDataset struct {
	Source     string
	FetchedAt  time.Time
	EpochRange EpochRange
	Satellites []TLEEntry

	byID map[int]int // NORAD ID -> index into Satellites
}

// NewDataset assembles a dataset from parsed entries, computing the epoch
// range and indexing entries by NORAD ID. When the same ID appears more than
// once the last entry wins.
func NewDataset(source string, fetchedAt time.Time, entries []TLEEntry) *TLEDataset {
	ds := &TLEDataset{
		Source:     source,
		FetchedAt:  fetchedAt,
		Satellites: entries,
		byID:       make(map[int]int, len(entries)),
	}

	for i, e := range entries {
		ds.byID[e.NORADID] = i
		if i == 0 || e.Epoch.Before(ds.EpochRange.Min) {
			ds.EpochRange.Min = e.Epoch
		}
		if i == 0 || e.Epoch.After(ds.EpochRange.Max) {
			ds.EpochRange.Max = e.Epoch
		}
	}

	return ds
}

// Find returns the entry for a NORAD ID.
func (ds *TLEDataset) Find(noradID int) (TLEEntry, bool) {
	i, ok := ds.byID[noradID]
	if !ok {
		return TLEEntry{}, false
	}
	return ds.Satellites[i], true
}

// Metadata is the dataset summary served over the API.
type Metadata struct {
	Source     string     `json:"source"`
	FetchedAt  time.Time  `json:"fetched_at"`
	EpochRange EpochRange `json:"epoch_range"`
	Count      int        `json:"count"`
}

// Metadata summarizes the dataset.
func (ds *TLEDataset) Metadata() Metadata {
	return Metadata{
		Source:     ds.Source,
		FetchedAt:  ds.FetchedAt,
		EpochRange: ds.EpochRange,
		Count:      len(ds.Satellites),
	}
}
