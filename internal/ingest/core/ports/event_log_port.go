package ports

import (
	"context"
	"time"

	"pulsetrack-api/internal/ingest/core/domain"
)

// StoredEvent is an event as read back from the log, paired with its append
// offset. Offsets are strictly increasing in arrival order per the log's
// total order.
type StoredEvent struct {
	Offset int64
	Event  domain.Event
}

// AppendOutcome reports the result of a durable append.
//
//	Duplicate = false -> new record, EventID is the appended event's id
//	Duplicate = true  -> idempotency-key collision, EventID is the winner's id
type AppendOutcome struct {
	EventID   string
	Duplicate bool
}

// EventLogPort is the append-only system of record for validated events.
type EventLogPort interface {
	// AppendEvent durably writes e before returning. A second append with
	// the same (site_id, idempotency_key) is a no-op that reports the
	// original event's id.
	AppendEvent(ctx context.Context, e *domain.Event) (AppendOutcome, error)

	// ReplayFrom returns up to limit events with offset > offset, ordered
	// by offset. Used by the aggregator's tailing cursor.
	ReplayFrom(ctx context.Context, offset int64, limit int) ([]StoredEvent, error)

	// ReplaySince returns up to limit events received at or after the given
	// time, ordered by offset. Used to rebuild the hot rollup window after
	// a restart.
	ReplaySince(ctx context.Context, receivedAfter time.Time, limit int) ([]StoredEvent, error)
}
