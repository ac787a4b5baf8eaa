package postgres

import (
	"context"
	"time"

	"pulsetrack-api/internal/query/core/domain"
	"pulsetrack-api/internal/query/core/ports"
)

type RowScanner interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close() error
}

type DB interface {
	QueryContext(ctx context.Context, query string, args ...any) (RowScanner, error)
}

// AnalyticsRepository recounts aggregates straight from the events table for
// windows the in-memory rollups no longer cover.
type AnalyticsRepository struct {
	db        DB
	goalEvent string
}

func NewAnalyticsRepository(db DB, goalEvent string) *AnalyticsRepository {
	return &AnalyticsRepository{db: db, goalEvent: goalEvent}
}

var _ ports.ColdReaderPort = (*AnalyticsRepository)(nil)

const countRangeSQL = `
SELECT
    COUNT(*) AS total_events,
    COUNT(*) FILTER (WHERE event_name = 'pageview') AS pageviews,
    COUNT(*) FILTER (WHERE event_name = 'click') AS clicks,
    COUNT(*) FILTER (WHERE event_name = $4) AS goal_events,
    COUNT(DISTINCT visitor_id) AS unique_visitors
FROM events
WHERE site_id = $1 AND occurred_at >= $2 AND occurred_at < $3
`

const visitorDaysSQL = `
SELECT
    COUNT(*) AS visitor_days,
    COUNT(*) FILTER (WHERE events = 1) AS bounce_visitor_days,
    COUNT(*) FILTER (WHERE goal_events > 0) AS goal_visitor_days
FROM (
    SELECT
        visitor_id,
        date_trunc('day', occurred_at) AS day,
        COUNT(*) AS events,
        COUNT(*) FILTER (WHERE event_name = $4) AS goal_events
    FROM events
    WHERE site_id = $1 AND occurred_at >= $2 AND occurred_at < $3
    GROUP BY visitor_id, day
) visitor_days
`

const returningVisitorsSQL = `
SELECT COUNT(*) AS returning_visitors
FROM (
    SELECT visitor_id
    FROM events
    WHERE site_id = $1 AND occurred_at >= $2 AND occurred_at < $3
    GROUP BY visitor_id
    HAVING max(occurred_at) - min(occurred_at) > interval '24 hours'
) returners
`

// CountRange recounts one window from the log. Three passes over the same
// range: flat counters, per-visitor-per-day counters, and visitors whose first
// and last events are more than a day apart.
func (r *AnalyticsRepository) CountRange(ctx context.Context, siteID int64, from, to time.Time) (domain.RangeCounts, error) {
	var rc domain.RangeCounts
	args := []any{siteID, from.UTC(), to.UTC(), r.goalEvent}

	err := r.queryOne(ctx, countRangeSQL, args,
		&rc.Events, &rc.Pageviews, &rc.Clicks, &rc.GoalEvents, &rc.UniqueVisitors)
	if err != nil {
		return domain.RangeCounts{}, err
	}

	err = r.queryOne(ctx, visitorDaysSQL, args,
		&rc.VisitorDays, &rc.BounceVisitorDays, &rc.GoalVisitorDays)
	if err != nil {
		return domain.RangeCounts{}, err
	}

	err = r.queryOne(ctx, returningVisitorsSQL, args[:3], &rc.ReturningVisitors)
	if err != nil {
		return domain.RangeCounts{}, err
	}

	return rc, nil
}

const dailyPageStatsSQL = `
SELECT
    date_trunc('day', occurred_at) AS day,
    COUNT(*) FILTER (WHERE event_name = 'pageview') AS pageviews,
    COUNT(*) FILTER (WHERE event_name = 'click') AS clicks
FROM events
WHERE site_id = $1 AND occurred_at >= $2 AND occurred_at < $3
GROUP BY day
ORDER BY day
`

// DailyPageStats returns per-day pageview and click counts for days that saw
// traffic; the usecase fills the gaps.
func (r *AnalyticsRepository) DailyPageStats(ctx context.Context, siteID int64, from, to time.Time) ([]domain.DailyPageStat, error) {
	rows, err := r.db.QueryContext(ctx, dailyPageStatsSQL, siteID, from.UTC(), to.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.DailyPageStat
	for rows.Next() {
		var day time.Time
		var pageviews, clicks int64
		if err := rows.Scan(&day, &pageviews, &clicks); err != nil {
			return nil, err
		}
		out = append(out, domain.DailyPageStat{
			Date:      day.UTC().Format("2006-01-02"),
			Pageviews: pageviews,
			Clicks:    clicks,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *AnalyticsRepository) queryOne(ctx context.Context, query string, args []any, dest ...any) error {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	if rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return err
		}
	}
	return rows.Err()
}
