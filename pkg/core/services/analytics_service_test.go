package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wadjakorntonsri/shortlink-analytics/pkg/core/domain"
)

func strPtr(s string) *string { return &s }

func TestAnalyticsService_WeekScenario(t *testing.T) {
	store := newTestStore(t)
	links := NewLinkService(store, newTestAllocator(t, store), nil)
	ctx := context.Background()

	link, err := links.Create(ctx, "https://example.com/a", "", owner)
	require.NoError(t, err)

	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	day0 := ResolveWindow("week", now, time.UTC).Start

	record := func(at time.Time, client domain.ClientInfo) {
		require.NoError(t, store.RecordVisit(ctx, domain.NewVisit(link.ID, at, time.UTC, client)))
	}
	chrome := domain.ClientInfo{Browser: strPtr("Chrome"), OS: strPtr("Windows"), Device: strPtr("desktop")}
	safari := domain.ClientInfo{Browser: strPtr("Safari"), OS: strPtr("iOS"), Device: strPtr("mobile")}
	record(day0.Add(1*time.Hour), chrome)
	record(day0.Add(2*time.Hour), safari)
	record(day0.Add(3*time.Hour), chrome)
	record(day0.Add(25*time.Hour), safari)
	record(day0.Add(26*time.Hour), domain.ClientInfo{})
	// outside the window
	record(day0.Add(-time.Hour), chrome)

	svc := NewAnalyticsService(store, store, time.UTC)
	svc.now = func() time.Time { return now }

	report, err := svc.Query(ctx, link.Slug, owner, "week")
	require.NoError(t, err)

	assert.Equal(t, domain.FilterWeek, report.TimeFilter)
	assert.Equal(t, link.Slug, report.Slug)
	assert.Equal(t, int64(6), report.TotalVisits)
	require.Len(t, report.VisitData, 8)
	assert.Equal(t, "2024-03-08", report.VisitData[0].Date)
	assert.Equal(t, int64(3), report.VisitData[0].Count)
	assert.Equal(t, int64(2), report.VisitData[1].Count)
	for _, d := range report.VisitData[2:] {
		assert.Zero(t, d.Count, d.Date)
	}

	assert.Equal(t, []domain.LabelCount{{Label: "Chrome", Count: 2}, {Label: "Safari", Count: 2}}, report.Browsers)
	assert.Equal(t, []domain.LabelCount{{Label: "desktop", Count: 2}, {Label: "mobile", Count: 2}}, report.Devices)
	assert.Equal(t, []domain.LabelCount{{Label: "Windows", Count: 2}, {Label: "iOS", Count: 2}}, report.OS)
}

func TestAnalyticsService_MonthIncludesToday(t *testing.T) {
	store := newTestStore(t)
	links := NewLinkService(store, newTestAllocator(t, store), nil)
	ctx := context.Background()

	link, err := links.Create(ctx, "https://example.com/a", "", owner)
	require.NoError(t, err)
	chrome := domain.ClientInfo{Browser: strPtr("Chrome")}
	require.NoError(t, store.RecordVisit(ctx, domain.NewVisit(link.ID, time.Date(2024, 8, 17, 11, 0, 0, 0, time.UTC), time.UTC, chrome)))

	svc := NewAnalyticsService(store, store, time.UTC)
	svc.now = func() time.Time { return time.Date(2024, 8, 17, 12, 0, 0, 0, time.UTC) }

	report, err := svc.Query(ctx, link.Slug, owner, "month")
	require.NoError(t, err)

	require.Len(t, report.VisitData, 32)
	assert.Equal(t, "2024-07-17", report.VisitData[0].Date)
	last := report.VisitData[len(report.VisitData)-1]
	assert.Equal(t, domain.DailyVisits{Date: "2024-08-17", Count: 1}, last)
	assert.Equal(t, []domain.LabelCount{{Label: "Chrome", Count: 1}}, report.Browsers)
	assert.Equal(t, int64(1), report.TotalVisits)
}

func TestAnalyticsService_NotOwned(t *testing.T) {
	store := newTestStore(t)
	links := NewLinkService(store, newTestAllocator(t, store), nil)
	ctx := context.Background()

	_, err := links.Create(ctx, "https://example.com", "mine1", owner)
	require.NoError(t, err)
	svc := NewAnalyticsService(store, store, time.UTC)

	_, err = svc.Query(ctx, "mine1", "other@example.com", "")
	assert.ErrorIs(t, err, domain.ErrLinkNotFound)
	_, err = svc.Query(ctx, "nope!", owner, "")
	assert.ErrorIs(t, err, domain.ErrLinkNotFound)

	require.NoError(t, links.SoftDelete(ctx, "mine1", owner))
	_, err = svc.Query(ctx, "mine1", owner, "")
	assert.ErrorIs(t, err, domain.ErrLinkNotFound)
}

func TestAggregate_SeriesSumsToWindowedVisits(t *testing.T) {
	now := time.Date(2024, 6, 30, 18, 0, 0, 0, time.UTC)
	for _, filter := range []string{"day", "week", "month", "year", ""} {
		t.Run(filter, func(t *testing.T) {
			w := ResolveWindow(filter, now, time.UTC)
			var visits []domain.Visit
			for at := w.Start; at.Before(w.End); at = at.Add(7 * time.Hour) {
				visits = append(visits, domain.Visit{OccurredAt: at})
			}

			report := Aggregate(visits, w, time.UTC)
			var sum int64
			for _, d := range report.VisitData {
				sum += d.Count
			}
			assert.Equal(t, int64(len(visits)), sum)
			assert.Len(t, report.VisitData, len(w.Days()))
			assert.GreaterOrEqual(t, len(report.VisitData), w.Buckets+1)
			assert.GreaterOrEqual(t, report.VisitData[len(report.VisitData)-1].Date, now.Format(dateLayout))
		})
	}
}

func TestAggregate_TieBreakKeepsFirstSeen(t *testing.T) {
	w := ResolveWindow("day", time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC), time.UTC)
	at := w.Start.Add(time.Hour)
	visits := []domain.Visit{
		{OccurredAt: at, ClientInfo: domain.ClientInfo{Browser: strPtr("Firefox")}},
		{OccurredAt: at, ClientInfo: domain.ClientInfo{Browser: strPtr("Edge")}},
		{OccurredAt: at, ClientInfo: domain.ClientInfo{Browser: strPtr("Chrome")}},
		{OccurredAt: at, ClientInfo: domain.ClientInfo{Browser: strPtr("Chrome")}},
		{OccurredAt: at, ClientInfo: domain.ClientInfo{Browser: strPtr("Edge")}},
	}

	report := Aggregate(visits, w, time.UTC)
	assert.Equal(t, []domain.LabelCount{
		{Label: "Edge", Count: 2},
		{Label: "Chrome", Count: 2},
		{Label: "Firefox", Count: 1},
	}, report.Browsers)
	assert.Empty(t, report.Devices)
	assert.NotNil(t, report.Devices)
}
