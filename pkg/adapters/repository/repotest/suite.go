// Package repotest holds a behavioural suite shared by every store backend.
package repotest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wadjakorntonsri/shortlink-analytics/pkg/core/domain"
	"github.com/wadjakorntonsri/shortlink-analytics/pkg/ports"
)

// Run exercises repo against the storage contract. newRepo must return an
// empty store for each call.
func Run(t *testing.T, newRepo func(t *testing.T) ports.Repository) {
	t.Run("CreateAndGet", func(t *testing.T) { testCreateAndGet(t, newRepo(t)) })
	t.Run("DuplicateSlug", func(t *testing.T) { testDuplicateSlug(t, newRepo(t)) })
	t.Run("ListByOwner", func(t *testing.T) { testListByOwner(t, newRepo(t)) })
	t.Run("UpdateSlug", func(t *testing.T) { testUpdateSlug(t, newRepo(t)) })
	t.Run("SoftDelete", func(t *testing.T) { testSoftDelete(t, newRepo(t)) })
	t.Run("RecordVisit", func(t *testing.T) { testRecordVisit(t, newRepo(t)) })
	t.Run("ConcurrentVisits", func(t *testing.T) { testConcurrentVisits(t, newRepo(t)) })
	t.Run("Dump", func(t *testing.T) { testDump(t, newRepo(t)) })
}

func newLink(slug, owner string, created time.Time) *domain.Link {
	return &domain.Link{
		Slug:        slug,
		OriginalURL: "https://example.com/" + slug,
		OwnerID:     owner,
		CreatedAt:   created.UTC().Truncate(time.Millisecond),
	}
}

func mustCreate(t *testing.T, repo ports.Repository, l *domain.Link) *domain.Link {
	t.Helper()
	require.NoError(t, repo.Create(context.Background(), l))
	require.NotZero(t, l.ID)
	return l
}

func testCreateAndGet(t *testing.T, repo ports.Repository) {
	ctx := context.Background()
	created := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	l := mustCreate(t, repo, newLink("abcde", "alice@example.com", created))

	got, err := repo.GetBySlug(ctx, "abcde")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, l.ID, got.ID)
	assert.Equal(t, "https://example.com/abcde", got.OriginalURL)
	assert.Equal(t, "alice@example.com", got.OwnerID)
	assert.True(t, created.Equal(got.CreatedAt))
	assert.False(t, got.IsDeleted)
	assert.Nil(t, got.DeletedAt)

	owned, err := repo.GetOwned(ctx, "abcde", "alice@example.com")
	require.NoError(t, err)
	require.NotNil(t, owned)

	other, err := repo.GetOwned(ctx, "abcde", "bob@example.com")
	require.NoError(t, err)
	assert.Nil(t, other)

	missing, err := repo.GetBySlug(ctx, "zzzzz")
	require.NoError(t, err)
	assert.Nil(t, missing)

	exists, err := repo.SlugExists(ctx, "abcde")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.SlugExists(ctx, "zzzzz")
	require.NoError(t, err)
	assert.False(t, exists)
}

func testDuplicateSlug(t *testing.T, repo ports.Repository) {
	mustCreate(t, repo, newLink("dupes", "alice@example.com", time.Now()))
	err := repo.Create(context.Background(), newLink("dupes", "bob@example.com", time.Now()))
	assert.ErrorIs(t, err, ports.ErrSlugTaken)
}

func testListByOwner(t *testing.T, repo ports.Repository) {
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	mustCreate(t, repo, newLink("first", "alice@example.com", base))
	mustCreate(t, repo, newLink("second", "alice@example.com", base.Add(time.Hour)))
	mustCreate(t, repo, newLink("others", "bob@example.com", base.Add(2*time.Hour)))
	gone := mustCreate(t, repo, newLink("gone1", "alice@example.com", base.Add(3*time.Hour)))
	require.NoError(t, repo.SoftDelete(ctx, gone.ID, base.Add(4*time.Hour)))

	links, err := repo.ListByOwner(ctx, "alice@example.com")
	require.NoError(t, err)
	require.Len(t, links, 2)
	assert.Equal(t, "second", links[0].Slug)
	assert.Equal(t, "first", links[1].Slug)

	none, err := repo.ListByOwner(ctx, "carol@example.com")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func testUpdateSlug(t *testing.T, repo ports.Repository) {
	ctx := context.Background()
	l := mustCreate(t, repo, newLink("oldslug", "alice@example.com", time.Now()))
	mustCreate(t, repo, newLink("taken", "bob@example.com", time.Now()))

	require.NoError(t, repo.UpdateSlug(ctx, l.ID, "newslug"))

	got, err := repo.GetBySlug(ctx, "newslug")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, l.ID, got.ID)

	old, err := repo.GetBySlug(ctx, "oldslug")
	require.NoError(t, err)
	assert.Nil(t, old)

	assert.ErrorIs(t, repo.UpdateSlug(ctx, l.ID, "taken"), ports.ErrSlugTaken)
	assert.ErrorIs(t, repo.UpdateSlug(ctx, l.ID+1000, "whatever"), domain.ErrLinkNotFound)
}

func testSoftDelete(t *testing.T, repo ports.Repository) {
	ctx := context.Background()
	l := mustCreate(t, repo, newLink("doomed", "alice@example.com", time.Now()))
	at := time.Date(2024, 4, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, repo.SoftDelete(ctx, l.ID, at))
	assert.ErrorIs(t, repo.SoftDelete(ctx, l.ID, at), domain.ErrLinkNotFound)

	got, err := repo.GetBySlug(ctx, "doomed")
	require.NoError(t, err)
	assert.Nil(t, got)

	exists, err := repo.SlugExists(ctx, "doomed")
	require.NoError(t, err)
	assert.True(t, exists, "deleted slugs stay reserved")

	err = repo.Create(ctx, newLink("doomed", "bob@example.com", time.Now()))
	assert.ErrorIs(t, err, ports.ErrSlugTaken)
}

func strPtr(s string) *string { return &s }

func testRecordVisit(t *testing.T, repo ports.Repository) {
	ctx := context.Background()
	l := mustCreate(t, repo, newLink("visits", "alice@example.com", time.Now()))
	base := time.Date(2024, 5, 10, 9, 30, 0, 0, time.UTC)

	first := domain.NewVisit(l.ID, base, time.UTC, domain.ClientInfo{Browser: strPtr("Chrome"), OS: strPtr("Windows"), Device: strPtr("desktop")})
	second := domain.NewVisit(l.ID, base.Add(24*time.Hour), time.UTC, domain.ClientInfo{})
	require.NoError(t, repo.RecordVisit(ctx, first))
	require.NoError(t, repo.RecordVisit(ctx, second))
	assert.NotZero(t, first.ID)

	got, err := repo.GetBySlug(ctx, "visits")
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.TotalVisits)

	visits, err := repo.ListVisits(ctx, l.ID, base, base.Add(48*time.Hour))
	require.NoError(t, err)
	require.Len(t, visits, 2)
	assert.True(t, base.Equal(visits[0].OccurredAt))
	require.NotNil(t, visits[0].Browser)
	assert.Equal(t, "Chrome", *visits[0].Browser)
	assert.Equal(t, 10, visits[0].Day)
	assert.Equal(t, 5, visits[0].Month)
	assert.Equal(t, 2024, visits[0].Year)
	assert.Equal(t, 9, visits[0].Hour)
	assert.Nil(t, visits[1].Browser)
	assert.Nil(t, visits[1].Device)

	// upper bound is exclusive
	visits, err = repo.ListVisits(ctx, l.ID, base, base.Add(24*time.Hour))
	require.NoError(t, err)
	assert.Len(t, visits, 1)

	missing := domain.NewVisit(l.ID+1000, base, time.UTC, domain.ClientInfo{})
	assert.ErrorIs(t, repo.RecordVisit(ctx, missing), domain.ErrLinkNotFound)
}

func testConcurrentVisits(t *testing.T, repo ports.Repository) {
	ctx := context.Background()
	l := mustCreate(t, repo, newLink("racers", "alice@example.com", time.Now()))
	now := time.Now().UTC().Truncate(time.Millisecond)

	const n = 10
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- repo.RecordVisit(ctx, domain.NewVisit(l.ID, now, time.UTC, domain.ClientInfo{}))
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	got, err := repo.GetBySlug(ctx, "racers")
	require.NoError(t, err)
	assert.Equal(t, int64(n), got.TotalVisits)
}

func testDump(t *testing.T, repo ports.Repository) {
	ctx := context.Background()
	a := mustCreate(t, repo, newLink("dumpa", "alice@example.com", time.Now()))
	mustCreate(t, repo, newLink("dumpb", "bob@example.com", time.Now()))
	require.NoError(t, repo.SoftDelete(ctx, a.ID, time.Now().UTC()))

	links, err := repo.Dump(ctx)
	require.NoError(t, err)
	require.Len(t, links, 2)
	assert.Equal(t, "dumpa", links[0].Slug)
	assert.True(t, links[0].IsDeleted)
	assert.NotNil(t, links[0].DeletedAt)
	assert.False(t, links[1].IsDeleted)
}
