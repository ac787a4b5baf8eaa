package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"pulsetrack-api/internal/ingest/core/domain"
	"pulsetrack-api/internal/ingest/core/ports"
)

// EventLogRepository persists validated events in arrival order.
type EventLogRepository struct {
	db DB
}

func NewEventLogRepository(db DB) *EventLogRepository {
	return &EventLogRepository{db: db}
}

var _ ports.EventLogPort = (*EventLogRepository)(nil)

const appendEventSQL = `
INSERT INTO events (
    event_id,
    site_id,
    visitor_id,
    event_name,
    properties,
    occurred_at,
    received_at,
    idempotency_key
) VALUES (
    $1, $2, $3, $4,
    $5, $6, $7, $8
)
ON CONFLICT (site_id, idempotency_key) DO NOTHING
RETURNING event_id;
`

const winnerEventSQL = `
SELECT event_id FROM events WHERE site_id = $1 AND idempotency_key = $2;
`

// AppendEvent durably inserts the event. On an idempotency-key conflict the
// insert is a no-op and the original event's id is looked up and returned.
func (r *EventLogRepository) AppendEvent(ctx context.Context, e *domain.Event) (ports.AppendOutcome, error) {
	propertiesJSON, err := json.Marshal(e.Properties)
	if err != nil {
		return ports.AppendOutcome{}, err
	}

	var eventID string
	err = r.db.QueryRowContext(ctx, appendEventSQL,
		e.ID,
		e.SiteID,
		e.VisitorID,
		string(e.Name),
		propertiesJSON,
		e.OccurredAt,
		e.ReceivedAt,
		e.IdempotencyKey,
	).Scan(&eventID)

	if err == nil {
		return ports.AppendOutcome{EventID: eventID, Duplicate: false}, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return ports.AppendOutcome{}, err
	}

	// DO NOTHING fired: a concurrent or earlier append won. Hand the caller
	// the winner's id so retried beacons resolve to the committed event.
	err = r.db.QueryRowContext(ctx, winnerEventSQL, e.SiteID, e.IdempotencyKey).Scan(&eventID)
	if err != nil {
		return ports.AppendOutcome{}, err
	}
	return ports.AppendOutcome{EventID: eventID, Duplicate: true}, nil
}

const replayFromSQL = `
SELECT id, event_id, site_id, visitor_id, event_name, properties, occurred_at, received_at
FROM events
WHERE id > $1
ORDER BY id ASC
LIMIT $2;
`

func (r *EventLogRepository) ReplayFrom(ctx context.Context, offset int64, limit int) ([]ports.StoredEvent, error) {
	rows, err := r.db.QueryContext(ctx, replayFromSQL, offset, limit)
	if err != nil {
		return nil, err
	}
	return scanStoredEvents(rows)
}

const replaySinceSQL = `
SELECT id, event_id, site_id, visitor_id, event_name, properties, occurred_at, received_at
FROM events
WHERE received_at >= $1
ORDER BY id ASC
LIMIT $2;
`

func (r *EventLogRepository) ReplaySince(ctx context.Context, receivedAfter time.Time, limit int) ([]ports.StoredEvent, error) {
	rows, err := r.db.QueryContext(ctx, replaySinceSQL, receivedAfter, limit)
	if err != nil {
		return nil, err
	}
	return scanStoredEvents(rows)
}

func scanStoredEvents(rows RowScanner) ([]ports.StoredEvent, error) {
	defer rows.Close()

	var out []ports.StoredEvent
	for rows.Next() {
		var (
			se             ports.StoredEvent
			name           string
			propertiesJSON []byte
		)
		if err := rows.Scan(
			&se.Offset,
			&se.Event.ID,
			&se.Event.SiteID,
			&se.Event.VisitorID,
			&name,
			&propertiesJSON,
			&se.Event.OccurredAt,
			&se.Event.ReceivedAt,
		); err != nil {
			return nil, err
		}
		se.Event.Name = domain.EventName(name)
		if len(propertiesJSON) > 0 {
			if err := json.Unmarshal(propertiesJSON, &se.Event.Properties); err != nil {
				return nil, err
			}
		}
		out = append(out, se)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
