package usecase

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"pulsetrack-api/internal/aggregate/core/domain"
	"pulsetrack-api/internal/aggregate/core/ports"
	ingestdomain "pulsetrack-api/internal/ingest/core/domain"
	ingestports "pulsetrack-api/internal/ingest/core/ports"
)

const (
	rollupCursorName = "rollups"

	// Consecutive full poll batches before the cursor is considered to be
	// lagging behind ingest.
	lagStreakThreshold = 3

	clickSeriesCap = 20
)

// Aggregator tails the ingest log and maintains the rollup store. Bucket
// updates are idempotent (seen-id sets), so the durable cursor is advanced
// after each applied batch and at-least-once redelivery is harmless.
type Aggregator struct {
	source    ports.EventSourcePort
	cursors   ports.CursorStorePort
	store     *RollupStore
	sessions  *SessionTracker
	publisher ports.DeltaPublisherPort

	pollInterval time.Duration
	batch        int
	hot          time.Duration

	offset    int64
	lagStreak int
	degraded  atomic.Bool

	clickMu     sync.Mutex
	clickSeries map[int64][]domain.ClickPoint
}

func NewAggregator(
	source ports.EventSourcePort,
	cursors ports.CursorStorePort,
	store *RollupStore,
	sessions *SessionTracker,
	publisher ports.DeltaPublisherPort,
	pollInterval time.Duration,
	batch int,
	hot time.Duration,
) *Aggregator {
	return &Aggregator{
		source:       source,
		cursors:      cursors,
		store:        store,
		sessions:     sessions,
		publisher:    publisher,
		pollInterval: pollInterval,
		batch:        batch,
		hot:          hot,
		clickSeries:  make(map[int64][]domain.ClickPoint),
	}
}

// Bootstrap loads the durable cursor and rebuilds the hot rollup window by
// replaying recent log entries. Replay is silent: no deltas are published for
// historical events.
func (a *Aggregator) Bootstrap(ctx context.Context) error {
	offset, err := a.cursors.Load(ctx, rollupCursorName)
	if err != nil {
		return err
	}
	a.offset = offset

	since := time.Now().UTC().Add(-a.hot)
	events, err := a.source.ReplaySince(ctx, since, a.batch)
	if err != nil {
		return err
	}
	var replayed int
	for len(events) > 0 {
		last := int64(0)
		for _, se := range events {
			a.apply(se, false)
			last = se.Offset
		}
		replayed += len(events)
		if last > a.offset {
			a.offset = last
		}
		if len(events) < a.batch {
			break
		}
		events, err = a.source.ReplayFrom(ctx, last, a.batch)
		if err != nil {
			return err
		}
	}

	if err := a.cursors.Save(ctx, rollupCursorName, a.offset); err != nil {
		return err
	}
	logrus.Infof("aggregator bootstrapped: %d events replayed, cursor at %d", replayed, a.offset)
	return nil
}

// Run tails the log until ctx is done.
func (a *Aggregator) Run(ctx context.Context) {
	ticker := time.NewTicker(a.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.poll(ctx)
			for _, fs := range a.sessions.FinalizeIdle() {
				a.store.ApplySession(fs)
			}
			a.store.SealExpired(a.sessions.OldestOpenStart())
		}
	}
}

func (a *Aggregator) poll(ctx context.Context) {
	events, err := a.source.ReplayFrom(ctx, a.offset, a.batch)
	if err != nil {
		logrus.Warnf("aggregator: replay from %d failed: %v", a.offset, err)
		return
	}

	for _, se := range events {
		a.apply(se, true)
		a.offset = se.Offset
	}

	if len(events) > 0 {
		if err := a.cursors.Save(ctx, rollupCursorName, a.offset); err != nil {
			// Tolerable: bucket updates are idempotent, a stale cursor
			// only causes redelivery.
			logrus.Warnf("aggregator: cursor save failed: %v", err)
		}
	}

	if len(events) == a.batch {
		a.lagStreak++
	} else {
		a.lagStreak = 0
	}
	lagging := a.lagStreak >= lagStreakThreshold
	if lagging && !a.degraded.Load() {
		logrus.Warnf("aggregator: cursor lagging behind ingest (%d full batches), queries disclose live estimates", a.lagStreak)
	}
	a.degraded.Store(lagging)
}

func (a *Aggregator) apply(se ingestports.StoredEvent, live bool) {
	applied := false
	if live {
		applied = a.store.ApplyEvent(se)
	} else {
		// Bootstrap replay rebuilds buckets regardless of how much wall-clock
		// time has passed since they sealed.
		applied = a.store.RestoreEvent(se)
	}
	if !applied {
		return
	}
	for _, fs := range a.sessions.Observe(se.Event) {
		a.store.ApplySession(fs)
	}
	if live && se.Event.Name == ingestdomain.EventClick && a.publisher != nil {
		points := a.recordClick(se.Event.SiteID, se.Event.OccurredAt)
		a.publisher.PublishAnalyticsUpdate(se.Event.SiteID, string(se.Event.Name), points)
	}
}

// recordClick maintains the short per-site click series mirrored to live
// subscribers, keyed by wall-clock second.
func (a *Aggregator) recordClick(siteID int64, at time.Time) []domain.ClickPoint {
	a.clickMu.Lock()
	defer a.clickMu.Unlock()

	label := at.UTC().Format("15:04:05")
	series := a.clickSeries[siteID]

	found := false
	for i := range series {
		if series[i].Time == label {
			series[i].Clicks++
			found = true
			break
		}
	}
	if !found {
		series = append(series, domain.ClickPoint{Time: label, Clicks: 1})
		if len(series) > clickSeriesCap {
			series = series[len(series)-clickSeriesCap:]
		}
	}

	sort.Slice(series, func(i, j int) bool { return series[i].Time < series[j].Time })
	a.clickSeries[siteID] = series

	out := make([]domain.ClickPoint, len(series))
	copy(out, series)
	return out
}

// Degraded reports whether the aggregation cursor is lagging; the query layer
// discloses this as a live-estimate caveat instead of failing.
func (a *Aggregator) Degraded() bool {
	return a.degraded.Load()
}

// Snapshot, DistinctVisitors, RetentionRate, LateEvents and Horizon expose the
// rollup store to the query service.
func (a *Aggregator) Snapshot(siteID int64, from, to time.Time) []domain.BucketRollup {
	return a.store.Snapshot(siteID, from, to)
}

func (a *Aggregator) DistinctVisitors(siteID int64, from, to time.Time) int64 {
	return a.store.DistinctVisitors(siteID, from, to)
}

func (a *Aggregator) RetentionRate(siteID int64, from, to time.Time) float64 {
	return a.store.RetentionRate(siteID, from, to)
}

func (a *Aggregator) LateEvents(siteID int64) int64 {
	return a.store.LateEvents(siteID)
}

func (a *Aggregator) Horizon() time.Time {
	return a.store.Horizon()
}
