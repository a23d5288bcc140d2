package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/wadjakorntonsri/shortlink-analytics/pkg/core/domain"
	"github.com/wadjakorntonsri/shortlink-analytics/pkg/ports"
)

type AnalyticsService struct {
	links  ports.LinkRepository
	visits ports.VisitRepository
	loc    *time.Location
	now    func() time.Time
}

func NewAnalyticsService(links ports.LinkRepository, visits ports.VisitRepository, loc *time.Location) *AnalyticsService {
	if loc == nil {
		loc = time.Local
	}
	return &AnalyticsService{links: links, visits: visits, loc: loc, now: time.Now}
}

// Query aggregates the visits of an owned, active link over the window
// selected by timeFilter.
func (s *AnalyticsService) Query(ctx context.Context, slug, ownerID, timeFilter string) (*domain.AnalyticsReport, error) {
	if ownerID == "" || !IsValidSlug(slug) {
		return nil, domain.ErrLinkNotFound
	}
	link, err := s.links.GetOwned(ctx, slug, ownerID)
	if err != nil {
		return nil, fmt.Errorf("lookup %q: %w", slug, err)
	}
	if link == nil {
		return nil, domain.ErrLinkNotFound
	}

	w := ResolveWindow(timeFilter, s.now(), s.loc)
	visits, err := s.visits.ListVisits(ctx, link.ID, w.Start, w.End)
	if err != nil {
		return nil, fmt.Errorf("list visits for %q: %w", slug, err)
	}

	report := Aggregate(visits, w, s.loc)
	report.Slug = link.Slug
	report.OriginalURL = link.OriginalURL
	report.TotalVisits = link.TotalVisits
	return report, nil
}

// Aggregate builds the zero-filled daily series and the categorical
// breakdowns. visits must be ordered oldest first; ties in the breakdowns
// keep first-seen order.
func Aggregate(visits []domain.Visit, w Window, loc *time.Location) *domain.AnalyticsReport {
	days := w.Days()
	series := make([]domain.DailyVisits, len(days))
	index := make(map[string]int, len(days))
	for i, d := range days {
		series[i] = domain.DailyVisits{Date: d}
		index[d] = i
	}

	var browsers, devices, systems tally
	for _, v := range visits {
		if i, ok := index[v.OccurredAt.In(loc).Format(dateLayout)]; ok {
			series[i].Count++
		}
		browsers.add(v.Browser)
		devices.add(v.Device)
		systems.add(v.OS)
	}

	return &domain.AnalyticsReport{
		TimeFilter:  w.Filter,
		WindowStart: w.Start,
		WindowEnd:   w.End,
		VisitData:   series,
		Browsers:    browsers.sorted(),
		Devices:     devices.sorted(),
		OS:          systems.sorted(),
	}
}

// tally counts labels and remembers the order they were first seen in.
type tally struct {
	order  []string
	counts map[string]int64
}

func (t *tally) add(label *string) {
	if label == nil {
		return
	}
	if t.counts == nil {
		t.counts = make(map[string]int64)
	}
	if _, seen := t.counts[*label]; !seen {
		t.order = append(t.order, *label)
	}
	t.counts[*label]++
}

func (t *tally) sorted() []domain.LabelCount {
	out := make([]domain.LabelCount, 0, len(t.order))
	for _, label := range t.order {
		out = append(out, domain.LabelCount{Label: label, Count: t.counts[label]})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Count > out[j].Count
	})
	return out
}

var _ ports.AnalyticsService = (*AnalyticsService)(nil)
