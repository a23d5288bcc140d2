package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wadjakorntonsri/shortlink-analytics/pkg/adapters/repository/sqlite"
	"github.com/wadjakorntonsri/shortlink-analytics/pkg/core/domain"
)

func newRepo(t *testing.T, name string) *sqlite.SQLiteRepository {
	t.Helper()
	repo, err := sqlite.NewSQLiteRepository("file:" + name + "?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestExportImportRoundTrip(t *testing.T) {
	ctx := context.Background()
	src := newRepo(t, "cli_src")
	created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	live := &domain.Link{Slug: "alive", OriginalURL: "https://example.com/a", OwnerID: "a@example.com", TotalVisits: 7, CreatedAt: created}
	gone := &domain.Link{Slug: "gone1", OriginalURL: "https://example.com/b", OwnerID: "b@example.com", CreatedAt: created}
	require.NoError(t, src.Create(ctx, live))
	require.NoError(t, src.Create(ctx, gone))
	require.NoError(t, src.SoftDelete(ctx, gone.ID, created.Add(time.Hour)))

	var buf bytes.Buffer
	n, err := exportLinks(ctx, src, &buf)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	dst := newRepo(t, "cli_dst")
	require.NoError(t, dst.Create(ctx, &domain.Link{Slug: "gone1", OriginalURL: "https://other.example", OwnerID: "c@example.com", CreatedAt: created}))

	res, err := importLinks(ctx, dst, bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, importResult{Imported: 1, Skipped: 1}, res)

	got, err := dst.GetBySlug(ctx, "alive")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, int64(7), got.TotalVisits)
	assert.Equal(t, "a@example.com", got.OwnerID)
	assert.True(t, created.Equal(got.CreatedAt))
}

func TestImport_PreservesDeletion(t *testing.T) {
	ctx := context.Background()
	dst := newRepo(t, "cli_deleted")

	input := `[{"slug":"oldie","original_url":"https://example.com","owner_id":"a@example.com","total_visits":2,"created_at":"2024-01-01T00:00:00Z","is_deleted":true,"deleted_at":"2024-02-01T00:00:00Z"},
	{"slug":"no","original_url":"https://example.com","owner_id":"a@example.com","created_at":"2024-01-01T00:00:00Z"}]`
	res, err := importLinks(ctx, dst, strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, importResult{Imported: 1, Failed: 1}, res)

	active, err := dst.GetBySlug(ctx, "oldie")
	require.NoError(t, err)
	assert.Nil(t, active)

	exists, err := dst.SlugExists(ctx, "oldie")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestImport_RejectsInvalidRows(t *testing.T) {
	ctx := context.Background()
	dst := newRepo(t, "cli_invalid")

	input := `[{"slug":"ftplink","original_url":"ftp://example.com/file","owner_id":"a@example.com","created_at":"2024-01-01T00:00:00Z"},
	{"slug":"nohost","original_url":"https://","owner_id":"a@example.com","created_at":"2024-01-01T00:00:00Z"},
	{"slug":"orphan","original_url":"https://example.com","owner_id":"","created_at":"2024-01-01T00:00:00Z"},
	{"slug":"keeper","original_url":"https://example.com/k","owner_id":"a@example.com","created_at":"2024-01-01T00:00:00Z"}]`
	res, err := importLinks(ctx, dst, strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, importResult{Imported: 1, Failed: 3}, res)

	for _, slug := range []string{"ftplink", "nohost", "orphan"} {
		exists, err := dst.SlugExists(ctx, slug)
		require.NoError(t, err)
		assert.False(t, exists, slug)
	}
	got, err := dst.GetBySlug(ctx, "keeper")
	require.NoError(t, err)
	assert.NotNil(t, got)
}

func TestImport_BadJSON(t *testing.T) {
	_, err := importLinks(context.Background(), newRepo(t, "cli_bad"), strings.NewReader("{"))
	assert.Error(t, err)
}
