package ports

import (
	"context"
	"time"

	aggdomain "pulsetrack-api/internal/aggregate/core/domain"
	ingestports "pulsetrack-api/internal/ingest/core/ports"
)

// EventSourcePort is the aggregator's view of the ingest log.
type EventSourcePort interface {
	ReplayFrom(ctx context.Context, offset int64, limit int) ([]ingestports.StoredEvent, error)
	ReplaySince(ctx context.Context, receivedAfter time.Time, limit int) ([]ingestports.StoredEvent, error)
}

// CursorStorePort persists the last-processed log offset so a restart resumes
// tailing instead of reprocessing the whole log.
type CursorStorePort interface {
	Load(ctx context.Context, name string) (int64, error)
	Save(ctx context.Context, name string, offset int64) error
}

// DeltaPublisherPort receives aggregate deltas for live fan-out. Publishing
// must never block the aggregator.
type DeltaPublisherPort interface {
	PublishAnalyticsUpdate(siteID int64, eventName string, points []aggdomain.ClickPoint)
}
