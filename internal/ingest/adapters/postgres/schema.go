package postgres

import "context"

// The events table is the append-only ingest log. The BIGSERIAL id doubles as
// the replay offset; the unique (site_id, idempotency_key) pair makes appends
// idempotent across processes. Archival of rows past the retention period is
// an out-of-band job, not part of the hot path.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS events (
		id              BIGSERIAL PRIMARY KEY,
		event_id        UUID        NOT NULL,
		site_id         BIGINT      NOT NULL,
		visitor_id      TEXT        NOT NULL,
		event_name      TEXT        NOT NULL,
		properties      JSONB       NOT NULL DEFAULT '{}',
		occurred_at     TIMESTAMPTZ NOT NULL,
		received_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
		idempotency_key TEXT        NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS events_site_idempotency_key
		ON events (site_id, idempotency_key)`,
	`CREATE INDEX IF NOT EXISTS events_site_occurred_at
		ON events (site_id, occurred_at)`,
	`CREATE TABLE IF NOT EXISTS aggregator_cursor (
		name   TEXT PRIMARY KEY,
		offset_id BIGINT NOT NULL DEFAULT 0,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
}

// EnsureSchema creates the tables and indexes if they do not exist yet.
func EnsureSchema(ctx context.Context, db DB) error {
	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
