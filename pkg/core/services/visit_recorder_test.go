package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wadjakorntonsri/shortlink-analytics/pkg/core/domain"
)

const chromeUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

func closeRecorder(t *testing.T, r *VisitRecorder) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, r.Close(ctx))
}

func TestVisitRecorder_ConcurrentRecords(t *testing.T) {
	store := newTestStore(t)
	links := NewLinkService(store, newTestAllocator(t, store), nil)
	ctx := context.Background()

	link, err := links.Create(ctx, "https://example.com/a", "", owner)
	require.NoError(t, err)

	r := NewVisitRecorder(store, RecorderConfig{Location: time.UTC})
	defer closeRecorder(t, r)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = r.Record(ctx, link.Slug, chromeUA)
		}()
	}
	wg.Wait()
	require.NoError(t, errs[0])
	require.NoError(t, errs[1])

	got, err := links.Lookup(ctx, link.Slug)
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.TotalVisits)

	visits, err := store.ListVisits(ctx, link.ID, time.Unix(0, 0), time.Now().Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, visits, 2)
	require.NotNil(t, visits[0].Browser)
	assert.Equal(t, "Chrome", *visits[0].Browser)
}

func TestVisitRecorder_Record_Decomposition(t *testing.T) {
	store := newTestStore(t)
	links := NewLinkService(store, newTestAllocator(t, store), nil)
	ctx := context.Background()

	link, err := links.Create(ctx, "https://example.com", "decomp", owner)
	require.NoError(t, err)

	bangkok := time.FixedZone("ICT", 7*60*60)
	r := NewVisitRecorder(store, RecorderConfig{Location: bangkok})
	defer closeRecorder(t, r)
	r.now = func() time.Time { return time.Date(2024, 12, 31, 20, 30, 0, 0, time.UTC) }

	require.NoError(t, r.Record(ctx, "decomp", ""))

	visits, err := store.ListVisits(ctx, link.ID, time.Unix(0, 0), time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, visits, 1)
	v := visits[0]
	assert.Equal(t, 1, v.Day)
	assert.Equal(t, 1, v.Month)
	assert.Equal(t, 2025, v.Year)
	assert.Equal(t, 3, v.Hour)
	assert.Nil(t, v.Browser)
	assert.Nil(t, v.OS)
	assert.Nil(t, v.Device)
}

func TestVisitRecorder_DispatchAndClose(t *testing.T) {
	store := newTestStore(t)
	links := NewLinkService(store, newTestAllocator(t, store), nil)
	ctx := context.Background()

	link, err := links.Create(ctx, "https://example.com", "dispat", owner)
	require.NoError(t, err)

	r := NewVisitRecorder(store, RecorderConfig{MaxInFlight: 2})
	for i := 0; i < 5; i++ {
		r.Dispatch(link.Slug, chromeUA)
	}
	closeRecorder(t, r)

	assert.Equal(t, RecorderStats{Recorded: 5}, r.Stats())
	got, err := links.Lookup(ctx, link.Slug)
	require.NoError(t, err)
	assert.Equal(t, int64(5), got.TotalVisits)

	// after Close nothing is recorded
	r.Dispatch(link.Slug, chromeUA)
	assert.Equal(t, int64(1), r.Stats().Dropped)
	assert.NoError(t, r.Close(ctx))
}

func TestVisitRecorder_DeletedLinkFailsSilently(t *testing.T) {
	store := newTestStore(t)
	links := NewLinkService(store, newTestAllocator(t, store), nil)
	ctx := context.Background()

	_, err := links.Create(ctx, "https://example.com", "ghost", owner)
	require.NoError(t, err)
	require.NoError(t, links.SoftDelete(ctx, "ghost", owner))

	r := NewVisitRecorder(store, RecorderConfig{})
	assert.ErrorIs(t, r.Record(ctx, "ghost", ""), domain.ErrLinkNotFound)

	r.Dispatch("ghost", "")
	r.Dispatch("nosuch", "")
	closeRecorder(t, r)

	assert.Equal(t, RecorderStats{Failed: 2}, r.Stats())
}
