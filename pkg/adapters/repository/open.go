// Package repository selects a store backend from a database URL.
package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/wadjakorntonsri/shortlink-analytics/pkg/adapters/repository/postgres"
	"github.com/wadjakorntonsri/shortlink-analytics/pkg/adapters/repository/sqlite"
	"github.com/wadjakorntonsri/shortlink-analytics/pkg/ports"
)

// Open returns a PostgreSQL store for postgres:// URLs and a SQLite or
// libSQL store for everything else.
func Open(ctx context.Context, databaseURL string) (ports.Repository, error) {
	if IsPostgres(databaseURL) {
		repo, err := postgres.NewRepository(ctx, databaseURL)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		return repo, nil
	}

	repo, err := sqlite.NewSQLiteRepository(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	return repo, nil
}

func IsPostgres(databaseURL string) bool {
	return strings.HasPrefix(databaseURL, "postgres://") || strings.HasPrefix(databaseURL, "postgresql://")
}
