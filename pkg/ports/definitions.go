package ports

import (
	"context"
	"errors"
	"time"

	"github.com/wadjakorntonsri/shortlink-analytics/pkg/core/domain"
)

// ErrSlugTaken is returned by storage when an insert or update hits the
// unique constraint on slug.
var ErrSlugTaken = errors.New("slug taken")

// LinkRepository defines storage operations for links.
// Lookups return (nil, nil) when no row matches.
type LinkRepository interface {
	Create(ctx context.Context, link *domain.Link) error
	GetBySlug(ctx context.Context, slug string) (*domain.Link, error)                // active rows only
	GetOwned(ctx context.Context, slug, ownerID string) (*domain.Link, error)       // active rows only
	SlugExists(ctx context.Context, slug string) (bool, error)                      // includes soft-deleted rows
	ListByOwner(ctx context.Context, ownerID string) ([]domain.Link, error)         // newest first
	UpdateSlug(ctx context.Context, id int64, newSlug string) error
	SoftDelete(ctx context.Context, id int64, at time.Time) error
	Dump(ctx context.Context) ([]domain.Link, error) // For migration
}

// VisitRepository defines storage operations for visit events.
type VisitRepository interface {
	// RecordVisit appends the visit and bumps the link counter by one in a
	// single transaction.
	RecordVisit(ctx context.Context, visit *domain.Visit) error
	// ListVisits returns visits with from <= occurred_at < to, oldest first.
	ListVisits(ctx context.Context, linkID int64, from, to time.Time) ([]domain.Visit, error)
}

// Repository is a complete store backend.
type Repository interface {
	LinkRepository
	VisitRepository
	Ping(ctx context.Context) error
	Close() error
}

// LinkCache caches slug -> destination for the redirect path.
type LinkCache interface {
	GetURL(ctx context.Context, slug string) (string, bool, error)
	SetURL(ctx context.Context, slug, originalURL string) error
	Delete(ctx context.Context, slug string) error
}

// LinkService defines the link lifecycle operations
type LinkService interface {
	Create(ctx context.Context, originalURL, customSlug, ownerID string) (*domain.Link, error)
	List(ctx context.Context, ownerID string) ([]domain.Link, error)
	Lookup(ctx context.Context, slug string) (*domain.Link, error)
	Resolve(ctx context.Context, slug string) (string, error)
	Rename(ctx context.Context, slug, newSlug, ownerID string) (*domain.Link, error)
	SoftDelete(ctx context.Context, slug, ownerID string) error
}

// VisitRecorder logs redirects without blocking the caller.
type VisitRecorder interface {
	Dispatch(slug, userAgent string)
}

// AnalyticsService aggregates visits for an owned link.
type AnalyticsService interface {
	Query(ctx context.Context, slug, ownerID, timeFilter string) (*domain.AnalyticsReport, error)
}
