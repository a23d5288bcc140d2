package domain

import "time"

// TimeFilter selects the analytics window.
type TimeFilter string

const (
	FilterDay     TimeFilter = "day"
	FilterWeek    TimeFilter = "week"
	FilterMonth   TimeFilter = "month"
	FilterYear    TimeFilter = "year"
	FilterDefault TimeFilter = "30d"
)

// DailyVisits is one bucket of the time series.
type DailyVisits struct {
	Date  string `json:"date"` // YYYY-MM-DD
	Count int64  `json:"count"`
}

// LabelCount is one row of a categorical breakdown.
type LabelCount struct {
	Label string `json:"label"`
	Count int64  `json:"count"`
}

// AnalyticsReport is the aggregated view of a link's visits over a window.
type AnalyticsReport struct {
	Slug        string        `json:"slug"`
	OriginalURL string        `json:"original_url"`
	TotalVisits int64         `json:"total_visits"` // lifetime counter, not windowed
	TimeFilter  TimeFilter    `json:"time_filter"`
	WindowStart time.Time     `json:"window_start"`
	WindowEnd   time.Time     `json:"window_end"`
	VisitData   []DailyVisits `json:"visit_data"`
	Browsers    []LabelCount  `json:"browser_stats"`
	Devices     []LabelCount  `json:"device_stats"`
	OS          []LabelCount  `json:"os_stats"`
}
