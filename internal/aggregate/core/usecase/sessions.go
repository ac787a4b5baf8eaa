package usecase

import (
	"sync"
	"time"

	ingestdomain "pulsetrack-api/internal/ingest/core/domain"
)

// FinishedSession is one completed visitor session, emitted once the
// inactivity gap (plus the late-arrival grace) has passed without a new event.
type FinishedSession struct {
	SiteID    int64
	VisitorID string
	Start     time.Time
	End       time.Time
	Events    int
	Goal      bool
}

// Bounce reports whether the session consisted of exactly one event.
func (s FinishedSession) Bounce() bool { return s.Events == 1 }

type sessionKey struct {
	siteID    int64
	visitorID string
}

type sessionState struct {
	first  time.Time
	last   time.Time
	events int
	goal   bool
}

// SessionTracker groups events by (site, visitor) and splits them into
// sessions by the inactivity-gap rule. Finalization is deferred by the grace
// period to tolerate out-of-order delivery.
type SessionTracker struct {
	mu sync.Mutex

	gap   time.Duration
	grace time.Duration
	goal  ingestdomain.EventName

	active map[sessionKey]*sessionState

	now func() time.Time
}

func NewSessionTracker(gap, grace time.Duration, goal ingestdomain.EventName) *SessionTracker {
	return &SessionTracker{
		gap:    gap,
		grace:  grace,
		goal:   goal,
		active: make(map[sessionKey]*sessionState),
		now:    time.Now,
	}
}

// Observe folds one event into its visitor's open session. When the event
// falls past the inactivity gap, the previous session is finished and
// returned, and a fresh one starts.
func (t *SessionTracker) Observe(ev ingestdomain.Event) []FinishedSession {
	t.mu.Lock()
	defer t.mu.Unlock()

	key := sessionKey{siteID: ev.SiteID, visitorID: ev.VisitorID}
	st := t.active[key]
	if st == nil {
		t.active[key] = newSessionState(ev, t.goal)
		return nil
	}

	if ev.OccurredAt.After(st.last.Add(t.gap)) {
		finished := t.finish(key, st)
		t.active[key] = newSessionState(ev, t.goal)
		return []FinishedSession{finished}
	}

	// Out-of-order events may extend the session backwards.
	if ev.OccurredAt.Before(st.first) {
		st.first = ev.OccurredAt
	}
	if ev.OccurredAt.After(st.last) {
		st.last = ev.OccurredAt
	}
	st.events++
	if ev.Name == t.goal {
		st.goal = true
	}
	return nil
}

// FinalizeIdle closes sessions whose visitors have been quiet for the gap
// plus the grace period.
func (t *SessionTracker) FinalizeIdle() []FinishedSession {
	t.mu.Lock()
	defer t.mu.Unlock()

	cutoff := t.now().Add(-(t.gap + t.grace))
	var out []FinishedSession
	for key, st := range t.active {
		if st.last.Before(cutoff) {
			out = append(out, t.finish(key, st))
		}
	}
	return out
}

// OldestOpenStart returns the first-event time of the oldest open session,
// or the zero time when none are open. The rollup store uses it as a floor:
// a bucket cannot seal its session metrics while a still-open session may be
// attributed to it.
func (t *SessionTracker) OldestOpenStart() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()

	var oldest time.Time
	for _, st := range t.active {
		if oldest.IsZero() || st.first.Before(oldest) {
			oldest = st.first
		}
	}
	return oldest
}

// Open reports the number of sessions not yet finalized.
func (t *SessionTracker) Open() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.active)
}

func (t *SessionTracker) finish(key sessionKey, st *sessionState) FinishedSession {
	delete(t.active, key)
	return FinishedSession{
		SiteID:    key.siteID,
		VisitorID: key.visitorID,
		Start:     st.first,
		End:       st.last,
		Events:    st.events,
		Goal:      st.goal,
	}
}

func newSessionState(ev ingestdomain.Event, goal ingestdomain.EventName) *sessionState {
	return &sessionState{
		first:  ev.OccurredAt,
		last:   ev.OccurredAt,
		events: 1,
		goal:   ev.Name == goal,
	}
}
