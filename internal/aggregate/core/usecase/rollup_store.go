package usecase

import (
	"sort"
	"sync"
	"time"

	"pulsetrack-api/internal/aggregate/core/domain"
	ingestdomain "pulsetrack-api/internal/ingest/core/domain"
	ingestports "pulsetrack-api/internal/ingest/core/ports"
)

// RollupStore holds the incrementally maintained per-site, per-bucket rollups
// for the hot window. Applies are idempotent: each open bucket remembers the
// event ids that already contributed, so replaying the log section never
// double counts.
//
// Sealing happens per metric class. Event-count metrics seal once the
// late-arrival grace past bucket end elapses; session-derived metrics seal
// once the grace has passed AND no open session can still be attributed to the
// bucket. A sealed class never changes; in-window events arriving after the
// event-metric seal are tallied in a per-site late counter instead.
type RollupStore struct {
	mu sync.RWMutex

	width time.Duration
	grace time.Duration
	gap   time.Duration
	hot   time.Duration

	buckets map[bucketKey]*bucket
	late    map[int64]int64

	now func() time.Time
}

type bucketKey struct {
	siteID int64
	start  int64 // unix seconds of bucket start
}

type bucket struct {
	start    time.Time
	counts   map[domain.Metric]int64
	visitors map[string]struct{}

	// seen holds contributing event ids while the bucket is open; dropped
	// at seal time to free memory.
	seen map[string]struct{}

	durationSeconds float64

	eventSealed   bool
	sessionSealed bool
}

func NewRollupStore(width, grace, gap, hot time.Duration) *RollupStore {
	return &RollupStore{
		width:   width,
		grace:   grace,
		gap:     gap,
		hot:     hot,
		buckets: make(map[bucketKey]*bucket),
		late:    make(map[int64]int64),
		now:     time.Now,
	}
}

// ApplyEvent folds one live log entry into its bucket. Returns false when the
// event was already applied or its bucket's event metrics are sealed.
func (s *RollupStore) ApplyEvent(se ingestports.StoredEvent) bool {
	return s.apply(se, false)
}

// RestoreEvent folds one replayed log entry into its bucket during hot-window
// rebuild. Replay is not a late arrival: buckets whose seal horizon has passed
// on the wall clock are still reopened, and SealExpired marks them sealed
// again once the rebuild is done.
func (s *RollupStore) RestoreEvent(se ingestports.StoredEvent) bool {
	return s.apply(se, true)
}

func (s *RollupStore) apply(se ingestports.StoredEvent, replay bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	ev := se.Event
	start := ev.OccurredAt.Truncate(s.width)
	key := bucketKey{siteID: ev.SiteID, start: start.Unix()}

	b := s.buckets[key]
	if b != nil && b.eventSealed {
		s.late[ev.SiteID]++
		return false
	}
	if b == nil {
		// Live events whose bucket already passed its seal horizon get the
		// late treatment; reopening is not allowed outside replay.
		if !replay && s.now().After(start.Add(s.width+s.grace)) {
			s.late[ev.SiteID]++
			return false
		}
		b = newBucket(start)
		s.buckets[key] = b
	}

	if _, dup := b.seen[ev.ID]; dup {
		return false
	}
	b.seen[ev.ID] = struct{}{}

	b.counts[domain.MetricEvents]++
	switch ev.Name {
	case ingestdomain.EventPageview:
		b.counts[domain.MetricPageviews]++
	case ingestdomain.EventClick:
		b.counts[domain.MetricClicks]++
	}

	b.visitors[ev.VisitorID] = struct{}{}
	return true
}

// ApplySession attributes one finished session to the bucket containing its
// first event.
func (s *RollupStore) ApplySession(fs FinishedSession) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := fs.Start.Truncate(s.width)
	key := bucketKey{siteID: fs.SiteID, start: start.Unix()}

	b := s.buckets[key]
	if b == nil {
		b = newBucket(start)
		s.buckets[key] = b
	}
	if b.sessionSealed {
		s.late[fs.SiteID]++
		return false
	}

	b.counts[domain.MetricSessions]++
	if fs.Events == 1 {
		b.counts[domain.MetricBounces]++
	}
	if fs.Goal {
		b.counts[domain.MetricConversions]++
	}
	b.durationSeconds += fs.End.Sub(fs.Start).Seconds()
	return true
}

// SealExpired marks seal flags whose horizons have passed and evicts buckets
// that fell out of the hot window. sessionFloor is the first-event time of the
// oldest still-open session (zero when none are open): buckets that may yet
// receive that session's metrics are kept session-open past their time
// horizon, so boundary-spanning sessions are never dropped.
func (s *RollupStore) SealExpired(sessionFloor time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	floorStart := sessionFloor.Truncate(s.width)
	for key, b := range s.buckets {
		end := b.start.Add(s.width)
		if !b.eventSealed && now.After(end.Add(s.grace)) {
			b.eventSealed = true
			b.seen = nil
		}
		if !b.sessionSealed && now.After(end.Add(s.gap+s.grace)) {
			if sessionFloor.IsZero() || b.start.Before(floorStart) {
				b.sessionSealed = true
			}
		}
		if end.Before(now.Add(-s.hot)) {
			delete(s.buckets, key)
		}
	}
}

// Snapshot returns rollups for buckets overlapping [from, to), ordered by
// bucket start.
func (s *RollupStore) Snapshot(siteID int64, from, to time.Time) []domain.BucketRollup {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.BucketRollup
	for key, b := range s.buckets {
		if key.siteID != siteID {
			continue
		}
		if !b.start.Add(s.width).After(from) || !b.start.Before(to) {
			continue
		}
		counts := make(map[domain.Metric]int64, len(b.counts))
		for m, v := range b.counts {
			counts[m] = v
		}
		out = append(out, domain.BucketRollup{
			SiteID:                 siteID,
			Start:                  b.start,
			Counts:                 counts,
			DistinctVisitors:       int64(len(b.visitors)),
			SessionDurationSeconds: b.durationSeconds,
			Sealed:                 b.eventSealed,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out
}

// DistinctVisitors counts visitors active in buckets overlapping [from, to),
// deduplicated across the whole range. A visitor spanning several buckets
// counts once.
func (s *RollupStore) DistinctVisitors(siteID int64, from, to time.Time) int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	union := make(map[string]struct{})
	for key, b := range s.buckets {
		if key.siteID != siteID {
			continue
		}
		if !b.start.Add(s.width).After(from) || !b.start.Before(to) {
			continue
		}
		for v := range b.visitors {
			union[v] = struct{}{}
		}
	}
	return int64(len(union))
}

// RetentionRate computes, over adjacent bucket pairs in [from, to), the share
// of a bucket's visitors who came back in the next bucket, as a percentage.
func (s *RollupStore) RetentionRate(siteID int64, from, to time.Time) float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var overlap, prevTotal int64
	for key, b := range s.buckets {
		if key.siteID != siteID || !b.start.Before(to) || b.start.Before(from) {
			continue
		}
		next := s.buckets[bucketKey{siteID: siteID, start: b.start.Add(s.width).Unix()}]
		if next == nil {
			continue
		}
		prevTotal += int64(len(b.visitors))
		for v := range b.visitors {
			if _, ok := next.visitors[v]; ok {
				overlap++
			}
		}
	}
	if prevTotal == 0 {
		return 0
	}
	return float64(overlap) / float64(prevTotal) * 100
}

// LateEvents reports how many in-window events arrived after their bucket
// sealed and were excluded from strict aggregates.
func (s *RollupStore) LateEvents(siteID int64) int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.late[siteID]
}

// Horizon is the earliest instant the in-memory rollups cover. Bootstrap
// replay fills the full hot window, so coverage always reaches back that far.
// Queries beyond the horizon must recount from the event log.
func (s *RollupStore) Horizon() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.now().Add(-s.hot)
}

func newBucket(start time.Time) *bucket {
	return &bucket{
		start:    start,
		counts:   make(map[domain.Metric]int64),
		visitors: make(map[string]struct{}),
		seen:     make(map[string]struct{}),
	}
}
