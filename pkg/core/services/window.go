package services

import (
	"time"

	"github.com/wadjakorntonsri/shortlink-analytics/pkg/core/domain"
)

const dateLayout = "2006-01-02"

// Window is a calendar-day aligned analytics range. End is exclusive and
// never earlier than the start of tomorrow, so the series covers at least
// Buckets+1 days and always includes today.
type Window struct {
	Filter  domain.TimeFilter
	Start   time.Time
	End     time.Time
	Buckets int
}

// ResolveWindow maps a timeFilter to its window as seen at now in loc.
// Unknown or empty filters get the 30 day default.
func ResolveWindow(filter string, now time.Time, loc *time.Location) Window {
	if loc == nil {
		loc = time.Local
	}
	now = now.In(loc)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)

	var w Window
	switch domain.TimeFilter(filter) {
	case domain.FilterDay:
		w = Window{Filter: domain.FilterDay, Start: today, Buckets: 1}
	case domain.FilterWeek:
		w = Window{Filter: domain.FilterWeek, Start: today.AddDate(0, 0, -7), Buckets: 7}
	case domain.FilterMonth:
		w = Window{Filter: domain.FilterMonth, Start: today.AddDate(0, -1, 0), Buckets: 30}
	case domain.FilterYear:
		w = Window{Filter: domain.FilterYear, Start: today.AddDate(-1, 0, 0), Buckets: 365}
	default:
		w = Window{Filter: domain.FilterDefault, Start: today.AddDate(0, 0, -30), Buckets: 30}
	}
	w.End = w.Start.AddDate(0, 0, w.Buckets+1)
	if tomorrow := today.AddDate(0, 0, 1); w.End.Before(tomorrow) {
		w.End = tomorrow
	}
	return w
}

// Days lists the series dates in ascending order.
func (w Window) Days() []string {
	days := make([]string, 0, w.Buckets+2)
	for d := w.Start; d.Before(w.End); d = d.AddDate(0, 0, 1) {
		days = append(days, d.Format(dateLayout))
	}
	return days
}
