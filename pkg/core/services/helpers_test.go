package services

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wadjakorntonsri/shortlink-analytics/pkg/adapters/repository/sqlite"
)

func newTestStore(t *testing.T) *sqlite.SQLiteRepository {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	repo, err := sqlite.NewSQLiteRepository("file:svc_" + name + "?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func newTestAllocator(t *testing.T, checker SlugChecker, reserved ...string) *SlugAllocator {
	t.Helper()
	cfg := DefaultAllocatorConfig()
	cfg.Reserved = reserved
	a, err := NewSlugAllocator(checker, cfg)
	require.NoError(t, err)
	return a
}
