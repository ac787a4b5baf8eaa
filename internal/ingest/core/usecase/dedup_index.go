package usecase

import (
	"fmt"
	"sync"
	"time"
)

// DedupIndex is a bounded in-process index of recently seen idempotency keys.
// It is a fast path in front of the event log's unique constraint, which
// remains the authority across processes. Keys expire after the configured TTL
// (duplicates older than the client retry horizon are implausible).
//
// When the index is at capacity it fails open: the key is admitted without
// being recorded and the degraded-admit counter is incremented. Losing dedup
// precision is preferable to losing events.
type DedupIndex struct {
	mu      sync.Mutex
	entries map[string]dedupEntry
	ttl     time.Duration
	max     int

	degradedAdmits uint64

	now func() time.Time
}

type dedupEntry struct {
	eventID string
	seenAt  time.Time
}

func NewDedupIndex(ttl time.Duration, maxEntries int) *DedupIndex {
	return &DedupIndex{
		entries: make(map[string]dedupEntry),
		ttl:     ttl,
		max:     maxEntries,
		now:     time.Now,
	}
}

// Lookup returns the recorded winner id for the key, if present and fresh.
func (i *DedupIndex) Lookup(siteID int64, key string) (string, bool) {
	i.mu.Lock()
	defer i.mu.Unlock()

	e, ok := i.entries[indexKey(siteID, key)]
	if !ok {
		return "", false
	}
	if i.now().Sub(e.seenAt) > i.ttl {
		delete(i.entries, indexKey(siteID, key))
		return "", false
	}
	return e.eventID, true
}

// Record stores the winning event id for the key. At capacity the entry is
// dropped instead (fail open).
func (i *DedupIndex) Record(siteID int64, key, eventID string) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if len(i.entries) >= i.max {
		i.degradedAdmits++
		return
	}
	i.entries[indexKey(siteID, key)] = dedupEntry{eventID: eventID, seenAt: i.now()}
}

// DegradedAdmits reports how many keys were admitted without dedup coverage.
func (i *DedupIndex) DegradedAdmits() uint64 {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.degradedAdmits
}

// Len reports the current number of tracked keys.
func (i *DedupIndex) Len() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return len(i.entries)
}

// Run sweeps expired keys until stop closes. Sweep cadence is a fraction of
// the TTL; exact timing is not load-bearing.
func (i *DedupIndex) Run(stop <-chan struct{}) {
	interval := i.ttl / 24
	if interval < time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			i.sweep()
		}
	}
}

func (i *DedupIndex) sweep() {
	i.mu.Lock()
	defer i.mu.Unlock()

	cutoff := i.now().Add(-i.ttl)
	for k, e := range i.entries {
		if e.seenAt.Before(cutoff) {
			delete(i.entries, k)
		}
	}
}

func indexKey(siteID int64, key string) string {
	return fmt.Sprintf("%d:%s", siteID, key)
}
