package ports

import (
	"context"
	"time"

	aggdomain "pulsetrack-api/internal/aggregate/core/domain"
	"pulsetrack-api/internal/query/core/domain"
)

// RollupReaderPort is the query service's window into the aggregator's
// incrementally maintained rollups (the hot path).
type RollupReaderPort interface {
	Snapshot(siteID int64, from, to time.Time) []aggdomain.BucketRollup
	DistinctVisitors(siteID int64, from, to time.Time) int64
	RetentionRate(siteID int64, from, to time.Time) float64
	LateEvents(siteID int64) int64
	Horizon() time.Time
	Degraded() bool
}

// ColdReaderPort recounts directly from the ingest log for ranges the rollups
// no longer cover.
type ColdReaderPort interface {
	CountRange(ctx context.Context, siteID int64, from, to time.Time) (domain.RangeCounts, error)
	DailyPageStats(ctx context.Context, siteID int64, from, to time.Time) ([]domain.DailyPageStat, error)
}
