package usecase

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/sirupsen/logrus"

	aggdomain "pulsetrack-api/internal/aggregate/core/domain"
	"pulsetrack-api/internal/query/core/domain"
	"pulsetrack-api/internal/query/core/ports"
)

var (
	ErrInvalidSite   = errors.New("site_id is required and must be positive")
	ErrInvalidWindow = errors.New("days must be between 1 and 365")
)

const maxWindowDays = 365

// AnalyticsUseCase answers dashboard reads. Recent ranges come from the
// aggregator's in-memory rollups; the part of a window older than the rollup
// horizon is recounted from the event log. When the recount fails the hot part
// is still served, flagged stale.
type AnalyticsUseCase struct {
	rollups ports.RollupReaderPort
	cold    ports.ColdReaderPort
	width   time.Duration

	now func() time.Time
}

func NewAnalyticsUseCase(rollups ports.RollupReaderPort, cold ports.ColdReaderPort, width time.Duration) *AnalyticsUseCase {
	return &AnalyticsUseCase{
		rollups: rollups,
		cold:    cold,
		width:   width,
		now:     time.Now,
	}
}

// mergedCounts is a window's counters assembled from both paths. Session
// counters come from rollups where covered and from visitor-day approximations
// beyond the horizon.
type mergedCounts struct {
	events          int64
	pageviews       int64
	clicks          int64
	uniqueVisitors  int64
	sessions        int64
	bounces         int64
	conversions     int64
	durationSeconds float64
	stale           bool
}

func (u *AnalyticsUseCase) window(siteID int64, days int) (time.Time, time.Time, error) {
	if siteID <= 0 {
		return time.Time{}, time.Time{}, ErrInvalidSite
	}
	if days <= 0 || days > maxWindowDays {
		return time.Time{}, time.Time{}, ErrInvalidWindow
	}
	to := u.now().UTC()
	return to.AddDate(0, 0, -days), to, nil
}

func (u *AnalyticsUseCase) merged(ctx context.Context, siteID int64, from, to time.Time) mergedCounts {
	var m mergedCounts

	horizon := u.rollups.Horizon()
	hotFrom := from
	if hotFrom.Before(horizon) {
		hotFrom = horizon
	}

	for _, b := range u.rollups.Snapshot(siteID, hotFrom, to) {
		m.events += b.Count(aggdomain.MetricEvents)
		m.pageviews += b.Count(aggdomain.MetricPageviews)
		m.clicks += b.Count(aggdomain.MetricClicks)
		m.sessions += b.Count(aggdomain.MetricSessions)
		m.bounces += b.Count(aggdomain.MetricBounces)
		m.conversions += b.Count(aggdomain.MetricConversions)
		m.durationSeconds += b.SessionDurationSeconds
	}
	// Window-level distinct, not a per-bucket sum: a visitor active in
	// several buckets counts once.
	m.uniqueVisitors = u.rollups.DistinctVisitors(siteID, hotFrom, to)

	if from.Before(horizon) {
		rc, err := u.cold.CountRange(ctx, siteID, from, horizon)
		if err != nil {
			logrus.Warnf("analytics: cold recount for site %d failed: %v", siteID, err)
			m.stale = true
			return m
		}
		m.events += rc.Events
		m.pageviews += rc.Pageviews
		m.clicks += rc.Clicks
		// Distinct within each side of the horizon; visitors active on
		// both sides count twice. Deduplicating across would need the
		// cold visitor set in memory.
		m.uniqueVisitors += rc.UniqueVisitors
		m.sessions += rc.VisitorDays
		m.bounces += rc.BounceVisitorDays
		m.conversions += rc.GoalVisitorDays
	}
	return m
}

// Overview returns the headline summary for one site and window.
func (u *AnalyticsUseCase) Overview(ctx context.Context, siteID int64, days int) (domain.Overview, error) {
	from, to, err := u.window(siteID, days)
	if err != nil {
		return domain.Overview{}, err
	}

	m := u.merged(ctx, siteID, from, to)

	avg := 0.0
	if m.sessions > 0 {
		avg = round2(m.durationSeconds / float64(m.sessions))
	}
	return domain.Overview{
		SiteID:                 siteID,
		PeriodDays:             days,
		TotalPageviews:         m.pageviews,
		TotalEvents:            m.events,
		UniqueVisitors:         m.uniqueVisitors,
		AverageSessionDuration: avg,
		LateEvents:             u.rollups.LateEvents(siteID),
		IncludesLiveEstimate:   u.rollups.Degraded() || u.currentBucketOpen(siteID, to),
		Stale:                  m.stale,
	}, nil
}

// currentBucketOpen reports whether the window's last bucket is still
// accumulating, so totals can still move.
func (u *AnalyticsUseCase) currentBucketOpen(siteID int64, to time.Time) bool {
	buckets := u.rollups.Snapshot(siteID, to.Add(-u.width), to)
	for _, b := range buckets {
		if !b.Sealed {
			return true
		}
	}
	return false
}

// PagePerformance returns the per-day pageview, click and bounce-rate series.
// The event log covers every day of the window, so this reads the cold path
// only.
func (u *AnalyticsUseCase) PagePerformance(ctx context.Context, siteID int64, days int) ([]domain.DailyPagePerformance, error) {
	stats, err := u.dailyStats(ctx, siteID, days)
	if err != nil {
		return nil, err
	}
	out := make([]domain.DailyPagePerformance, 0, len(stats))
	for _, st := range stats {
		bounce := 0.0
		if st.Pageviews > 0 {
			engaged := st.Clicks
			if engaged > st.Pageviews {
				engaged = st.Pageviews
			}
			bounce = round2(float64(st.Pageviews-engaged) / float64(st.Pageviews) * 100)
		}
		out = append(out, domain.DailyPagePerformance{
			Date:       st.Date,
			Pageviews:  st.Pageviews,
			Clicks:     st.Clicks,
			BounceRate: bounce,
		})
	}
	return out, nil
}

// PageVisits returns the per-day pageview counts.
func (u *AnalyticsUseCase) PageVisits(ctx context.Context, siteID int64, days int) ([]domain.DailyVisits, error) {
	stats, err := u.dailyStats(ctx, siteID, days)
	if err != nil {
		return nil, err
	}
	out := make([]domain.DailyVisits, 0, len(stats))
	for _, st := range stats {
		out = append(out, domain.DailyVisits{Date: st.Date, Visits: st.Pageviews})
	}
	return out, nil
}

// dailyStats recounts per-day stats and fills days with no traffic with zero
// rows so the series always spans the whole window.
func (u *AnalyticsUseCase) dailyStats(ctx context.Context, siteID int64, days int) ([]domain.DailyPageStat, error) {
	from, to, err := u.window(siteID, days)
	if err != nil {
		return nil, err
	}
	stats, err := u.cold.DailyPageStats(ctx, siteID, from, to)
	if err != nil {
		return nil, err
	}

	byDate := make(map[string]domain.DailyPageStat, len(stats))
	for _, st := range stats {
		byDate[st.Date] = st
	}

	out := make([]domain.DailyPageStat, 0, days)
	for day := from.Truncate(24 * time.Hour); !day.After(to); day = day.AddDate(0, 0, 1) {
		date := day.Format("2006-01-02")
		if st, ok := byDate[date]; ok {
			out = append(out, st)
		} else {
			out = append(out, domain.DailyPageStat{Date: date})
		}
	}
	return out, nil
}

// ClickRate returns clicks per pageview over the window, as a percentage.
func (u *AnalyticsUseCase) ClickRate(ctx context.Context, siteID int64, days int) (float64, bool, error) {
	from, to, err := u.window(siteID, days)
	if err != nil {
		return 0, false, err
	}
	m := u.merged(ctx, siteID, from, to)
	return ratio(m.clicks, m.pageviews), m.stale, nil
}

// BounceRate returns single-event sessions per session, as a percentage.
func (u *AnalyticsUseCase) BounceRate(ctx context.Context, siteID int64, days int) (float64, bool, error) {
	from, to, err := u.window(siteID, days)
	if err != nil {
		return 0, false, err
	}
	m := u.merged(ctx, siteID, from, to)
	return ratio(m.bounces, m.sessions), m.stale, nil
}

// ConversionRate returns goal-completing sessions per session, as a
// percentage.
func (u *AnalyticsUseCase) ConversionRate(ctx context.Context, siteID int64, days int) (float64, bool, error) {
	from, to, err := u.window(siteID, days)
	if err != nil {
		return 0, false, err
	}
	m := u.merged(ctx, siteID, from, to)
	return ratio(m.conversions, m.sessions), m.stale, nil
}

// RetentionRate returns the share of visitors who came back later in the
// window, as a percentage. Windows fully inside the rollup horizon use
// adjacent-bucket overlap; longer windows recount returning visitors from the
// log.
func (u *AnalyticsUseCase) RetentionRate(ctx context.Context, siteID int64, days int) (float64, bool, error) {
	from, to, err := u.window(siteID, days)
	if err != nil {
		return 0, false, err
	}

	if !from.Before(u.rollups.Horizon()) {
		return round2(u.rollups.RetentionRate(siteID, from, to)), false, nil
	}

	rc, err := u.cold.CountRange(ctx, siteID, from, to)
	if err != nil {
		logrus.Warnf("analytics: cold retention recount for site %d failed: %v", siteID, err)
		return round2(u.rollups.RetentionRate(siteID, from, to)), true, nil
	}
	return ratio(rc.ReturningVisitors, rc.UniqueVisitors), false, nil
}

// ratio is num/den as a round-2 percentage, zero when the denominator is zero.
func ratio(num, den int64) float64 {
	if den == 0 {
		return 0
	}
	return round2(float64(num) / float64(den) * 100)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
