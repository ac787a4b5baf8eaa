package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"pulsetrack-api/internal/aggregate/core/domain"
	ingestdomain "pulsetrack-api/internal/ingest/core/domain"
	ingestports "pulsetrack-api/internal/ingest/core/ports"
)

// fakeSource serves a fixed log slice.
type fakeSource struct {
	events []ingestports.StoredEvent
	err    error
}

func (f *fakeSource) ReplayFrom(ctx context.Context, offset int64, limit int) ([]ingestports.StoredEvent, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []ingestports.StoredEvent
	for _, se := range f.events {
		if se.Offset > offset {
			out = append(out, se)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeSource) ReplaySince(ctx context.Context, receivedAfter time.Time, limit int) ([]ingestports.StoredEvent, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []ingestports.StoredEvent
	for _, se := range f.events {
		if !se.Event.ReceivedAt.Before(receivedAfter) {
			out = append(out, se)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

type fakeCursorStore struct {
	offsets map[string]int64
	saveErr error
}

func newFakeCursorStore() *fakeCursorStore {
	return &fakeCursorStore{offsets: make(map[string]int64)}
}

func (f *fakeCursorStore) Load(ctx context.Context, name string) (int64, error) {
	return f.offsets[name], nil
}

func (f *fakeCursorStore) Save(ctx context.Context, name string, offset int64) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.offsets[name] = offset
	return nil
}

type publishedUpdate struct {
	siteID int64
	name   string
	points []domain.ClickPoint
}

type fakePublisher struct {
	updates []publishedUpdate
}

func (f *fakePublisher) PublishAnalyticsUpdate(siteID int64, eventName string, points []domain.ClickPoint) {
	f.updates = append(f.updates, publishedUpdate{siteID: siteID, name: eventName, points: points})
}

func logEntry(offset int64, id string, name ingestdomain.EventName, at time.Time) ingestports.StoredEvent {
	return ingestports.StoredEvent{
		Offset: offset,
		Event: ingestdomain.Event{
			ID:         id,
			SiteID:     1,
			VisitorID:  "v1",
			Name:       name,
			OccurredAt: at,
			ReceivedAt: at,
		},
	}
}

func newTestAggregator(source *fakeSource, cursors *fakeCursorStore, pub *fakePublisher, batch int) *Aggregator {
	store := NewRollupStore(time.Hour, 5*time.Minute, 30*time.Minute, 48*time.Hour)
	sessions := NewSessionTracker(30*time.Minute, 5*time.Minute, ingestdomain.EventFormSubmit)
	return NewAggregator(source, cursors, store, sessions, pub, time.Second, batch, 48*time.Hour)
}

func TestAggregator_BootstrapReplaysSilently(t *testing.T) {
	now := time.Now().UTC()
	source := &fakeSource{events: []ingestports.StoredEvent{
		logEntry(1, "e1", ingestdomain.EventPageview, now.Add(-time.Minute)),
		logEntry(2, "e2", ingestdomain.EventClick, now.Add(-30*time.Second)),
	}}
	cursors := newFakeCursorStore()
	pub := &fakePublisher{}

	agg := newTestAggregator(source, cursors, pub, 100)

	if err := agg.Bootstrap(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Historical events rebuild state without waking subscribers.
	if len(pub.updates) != 0 {
		t.Fatalf("expected no live updates during bootstrap, got %d", len(pub.updates))
	}
	if cursors.offsets["rollups"] != 2 {
		t.Fatalf("expected cursor at 2, got %d", cursors.offsets["rollups"])
	}

	b := agg.Snapshot(1, now.Add(-time.Hour), now.Add(time.Hour))
	if len(b) == 0 || b[0].Count(domain.MetricEvents) != 2 {
		t.Fatalf("expected bootstrap to rebuild the rollups")
	}
}

func TestAggregator_BootstrapRebuildsOldBuckets(t *testing.T) {
	now := time.Now().UTC()
	source := &fakeSource{events: []ingestports.StoredEvent{
		logEntry(1, "e1", ingestdomain.EventPageview, now.Add(-3*time.Hour)),
		logEntry(2, "e2", ingestdomain.EventPageview, now.Add(-3*time.Hour)),
		logEntry(3, "e3", ingestdomain.EventClick, now.Add(-90*time.Minute)),
	}}
	cursors := newFakeCursorStore()

	agg := newTestAggregator(source, cursors, &fakePublisher{}, 100)

	if err := agg.Bootstrap(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Buckets whose seal horizon passed hours ago are rebuilt, not dropped
	// into the late counter, so a restart does not empty the hot window.
	if agg.LateEvents(1) != 0 {
		t.Fatalf("expected no late events after bootstrap, got %d", agg.LateEvents(1))
	}

	buckets := agg.Snapshot(1, now.Add(-4*time.Hour), now)
	if len(buckets) != 2 {
		t.Fatalf("expected 2 rebuilt buckets, got %d", len(buckets))
	}
	var pageviews, clicks int64
	for _, b := range buckets {
		pageviews += b.Count(domain.MetricPageviews)
		clicks += b.Count(domain.MetricClicks)
	}
	if pageviews != 2 || clicks != 1 {
		t.Fatalf("expected 2 pageviews and 1 click restored, got %d/%d", pageviews, clicks)
	}
}

func TestAggregator_BootstrapPaginates(t *testing.T) {
	now := time.Now().UTC()
	var events []ingestports.StoredEvent
	for i := int64(1); i <= 5; i++ {
		events = append(events, logEntry(i, "e"+string(rune('0'+i)), ingestdomain.EventPageview, now.Add(-time.Minute)))
	}
	source := &fakeSource{events: events}
	cursors := newFakeCursorStore()

	agg := newTestAggregator(source, cursors, &fakePublisher{}, 2)

	if err := agg.Bootstrap(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cursors.offsets["rollups"] != 5 {
		t.Fatalf("expected cursor at 5, got %d", cursors.offsets["rollups"])
	}

	b := agg.Snapshot(1, now.Add(-time.Hour), now.Add(time.Hour))
	if len(b) == 0 || b[0].Count(domain.MetricPageviews) != 5 {
		t.Fatalf("expected 5 pageviews after paginated bootstrap")
	}
}

func TestAggregator_PollPublishesClickUpdates(t *testing.T) {
	now := time.Now().UTC()
	source := &fakeSource{events: []ingestports.StoredEvent{
		logEntry(1, "e1", ingestdomain.EventPageview, now),
		logEntry(2, "e2", ingestdomain.EventClick, now),
	}}
	cursors := newFakeCursorStore()
	pub := &fakePublisher{}

	agg := newTestAggregator(source, cursors, pub, 100)
	agg.poll(context.Background())

	if len(pub.updates) != 1 {
		t.Fatalf("expected 1 click update, got %d", len(pub.updates))
	}
	u := pub.updates[0]
	if u.siteID != 1 || u.name != "click" {
		t.Fatalf("unexpected update: %+v", u)
	}
	if len(u.points) != 1 || u.points[0].Clicks != 1 {
		t.Fatalf("expected a single click point, got %+v", u.points)
	}
	if cursors.offsets["rollups"] != 2 {
		t.Fatalf("expected cursor saved at 2, got %d", cursors.offsets["rollups"])
	}
}

func TestAggregator_PollTailsIncrementally(t *testing.T) {
	now := time.Now().UTC()
	source := &fakeSource{events: []ingestports.StoredEvent{
		logEntry(1, "e1", ingestdomain.EventPageview, now),
	}}
	cursors := newFakeCursorStore()

	agg := newTestAggregator(source, cursors, &fakePublisher{}, 100)
	agg.poll(context.Background())

	// New entries appear; the next poll picks up only those.
	source.events = append(source.events, logEntry(2, "e2", ingestdomain.EventPageview, now))
	agg.poll(context.Background())

	b := agg.Snapshot(1, now.Add(-time.Hour), now.Add(time.Hour))
	if len(b) == 0 || b[0].Count(domain.MetricPageviews) != 2 {
		t.Fatalf("expected 2 pageviews after incremental polls")
	}
}

func TestAggregator_CursorSaveFailureDoesNotStall(t *testing.T) {
	now := time.Now().UTC()
	source := &fakeSource{events: []ingestports.StoredEvent{
		logEntry(1, "e1", ingestdomain.EventPageview, now),
	}}
	cursors := newFakeCursorStore()
	cursors.saveErr = errors.New("db down")

	agg := newTestAggregator(source, cursors, &fakePublisher{}, 100)
	agg.poll(context.Background())

	b := agg.Snapshot(1, now.Add(-time.Hour), now.Add(time.Hour))
	if len(b) == 0 || b[0].Count(domain.MetricPageviews) != 1 {
		t.Fatalf("expected the event applied despite cursor save failure")
	}
}

func TestAggregator_DegradedAfterSustainedLag(t *testing.T) {
	now := time.Now().UTC()
	var events []ingestports.StoredEvent
	for i := int64(1); i <= 10; i++ {
		events = append(events, logEntry(i, "dup", ingestdomain.EventPageview, now))
	}
	source := &fakeSource{events: events}

	// Batch of 2 with plenty of backlog: every poll returns a full batch.
	agg := newTestAggregator(source, newFakeCursorStore(), &fakePublisher{}, 2)

	for i := 0; i < 3; i++ {
		agg.poll(context.Background())
	}
	if !agg.Degraded() {
		t.Fatalf("expected degraded after %d full batches", 3)
	}

	// Catching up clears the flag once a poll comes back short.
	for i := 0; i < 3; i++ {
		agg.poll(context.Background())
	}
	if agg.Degraded() {
		t.Fatalf("expected degraded to clear once caught up")
	}
}
