package domain

import "time"

// Metric names one rollup counter within a bucket.
type Metric string

const (
	MetricEvents      Metric = "events"
	MetricPageviews   Metric = "pageviews"
	MetricClicks      Metric = "clicks"
	MetricSessions    Metric = "sessions"
	MetricBounces     Metric = "bounces"
	MetricConversions Metric = "conversions"
)

// BucketRollup is a read-only snapshot of one site's rollup for one time
// bucket. Counts are monotonically non-decreasing until the bucket seals.
type BucketRollup struct {
	SiteID                 int64
	Start                  time.Time
	Counts                 map[Metric]int64
	DistinctVisitors       int64
	SessionDurationSeconds float64
	Sealed                 bool
}

// Count returns the named counter, zero when absent.
func (b BucketRollup) Count(m Metric) int64 {
	return b.Counts[m]
}

// ClickPoint is one entry of the per-site recent click series pushed to
// dashboard subscribers.
type ClickPoint struct {
	Time   string `json:"time"`
	Clicks int64  `json:"clicks"`
}
