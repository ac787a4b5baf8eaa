package domain

// Overview is the dashboard's headline summary for one site and window.
type Overview struct {
	SiteID                 int64
	PeriodDays             int
	TotalPageviews         int64
	TotalEvents            int64
	UniqueVisitors         int64
	AverageSessionDuration float64 // seconds
	LateEvents             int64

	// IncludesLiveEstimate marks that the still-open current bucket is
	// included; sessions pending finalization may be undercounted.
	IncludesLiveEstimate bool

	// Stale marks that the cold recount path failed and the result covers
	// the hot window only.
	Stale bool
}

// DailyPagePerformance is one day of the page performance series.
type DailyPagePerformance struct {
	Date       string  `json:"date"`
	Pageviews  int64   `json:"pageviews"`
	Clicks     int64   `json:"clicks"`
	BounceRate float64 `json:"bounce_rate"`
}

// DailyVisits is one day of the page visits series.
type DailyVisits struct {
	Date   string `json:"date"`
	Visits int64  `json:"visits"`
}

// RangeCounts is a recount of the event log over one window, used for ranges
// older than the rollup horizon. Session-shaped counters are approximated by
// visitor-days (one visitor on one day), which the log can answer without
// session state.
type RangeCounts struct {
	Events         int64
	Pageviews      int64
	Clicks         int64
	GoalEvents     int64
	UniqueVisitors int64

	VisitorDays       int64
	BounceVisitorDays int64
	GoalVisitorDays   int64

	ReturningVisitors int64
}

// DailyPageStat is the raw per-day pageview/click recount.
type DailyPageStat struct {
	Date      string
	Pageviews int64
	Clicks    int64
}
