package fiber

import "pulsetrack-api/internal/query/core/domain"

type OverviewResponse struct {
	SiteID                 int64   `json:"site_id"`
	PeriodDays             int     `json:"period_days"`
	TotalPageviews         int64   `json:"total_pageviews"`
	TotalEvents            int64   `json:"total_events"`
	UniqueUsers            int64   `json:"unique_users"`
	AverageSessionDuration float64 `json:"average_session_duration"`
	LateEvents             int64   `json:"late_events"`
	IncludesLiveEstimate   bool    `json:"includes_live_estimate"`
	Stale                  bool    `json:"stale"`
}

type PagePerformanceResponse struct {
	SiteID int64                         `json:"site_id"`
	Data   []domain.DailyPagePerformance `json:"data"`
}

type PageVisitsResponse struct {
	SiteID int64                `json:"site_id"`
	Data   []domain.DailyVisits `json:"data"`
}

type RateResponse struct {
	SiteID     int64   `json:"site_id"`
	PeriodDays int     `json:"period_days"`
	Rate       float64 `json:"rate"`
	Stale      bool    `json:"stale,omitempty"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
