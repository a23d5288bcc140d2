package services

import (
	"testing"
	"time"

	"github.com/wadjakorntonsri/shortlink-analytics/pkg/core/domain"
)

func TestResolveWindow(t *testing.T) {
	march := time.Date(2024, 3, 15, 13, 45, 0, 0, time.UTC)

	tests := []struct {
		name    string
		filter  string
		now     time.Time
		want    domain.TimeFilter
		start   string
		last    string
		days    int
		buckets int
	}{
		{"day", "day", march, domain.FilterDay, "2024-03-15", "2024-03-16", 2, 1},
		{"week", "week", march, domain.FilterWeek, "2024-03-08", "2024-03-15", 8, 7},
		{"month", "month", march, domain.FilterMonth, "2024-02-15", "2024-03-16", 31, 30},
		{"year across leap day", "year", march, domain.FilterYear, "2023-03-15", "2024-03-15", 367, 365},
		{"default", "", march, domain.FilterDefault, "2024-02-14", "2024-03-15", 31, 30},
		{"unknown", "fortnight", march, domain.FilterDefault, "2024-02-14", "2024-03-15", 31, 30},
		// previous month has 31 days
		{"month after long month", "month", time.Date(2024, 8, 17, 12, 0, 0, 0, time.UTC), domain.FilterMonth, "2024-07-17", "2024-08-17", 32, 30},
		{"year ending on leap day", "year", time.Date(2028, 3, 1, 9, 0, 0, 0, time.UTC), domain.FilterYear, "2027-03-01", "2028-03-01", 367, 365},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := ResolveWindow(tt.filter, tt.now, time.UTC)
			if w.Filter != tt.want {
				t.Errorf("filter = %q, want %q", w.Filter, tt.want)
			}
			if got := w.Start.Format(dateLayout); got != tt.start {
				t.Errorf("start = %s, want %s", got, tt.start)
			}
			if w.Buckets != tt.buckets {
				t.Errorf("buckets = %d, want %d", w.Buckets, tt.buckets)
			}
			days := w.Days()
			if len(days) != tt.days {
				t.Fatalf("len(days) = %d, want %d", len(days), tt.days)
			}
			if days[0] != tt.start {
				t.Errorf("first day = %s, want %s", days[0], tt.start)
			}
			if days[len(days)-1] != tt.last {
				t.Errorf("last day = %s, want %s", days[len(days)-1], tt.last)
			}
			if !w.End.After(tt.now) {
				t.Errorf("end %s does not include now %s", w.End, tt.now)
			}
			for i := 1; i < len(days); i++ {
				if days[i] <= days[i-1] {
					t.Fatalf("days not increasing at %d: %s, %s", i, days[i-1], days[i])
				}
			}
		})
	}
}

func TestResolveWindow_UsesLocation(t *testing.T) {
	// 23:30 UTC is already the next day in UTC+7
	now := time.Date(2024, 3, 15, 23, 30, 0, 0, time.UTC)
	w := ResolveWindow("day", now, time.FixedZone("ICT", 7*60*60))
	if got := w.Start.Format(dateLayout); got != "2024-03-16" {
		t.Errorf("start = %s, want 2024-03-16", got)
	}
}
