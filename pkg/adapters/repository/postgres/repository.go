// Package postgres implements the link and visit store on PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wadjakorntonsri/shortlink-analytics/pkg/core/domain"
	"github.com/wadjakorntonsri/shortlink-analytics/pkg/ports"
)

// uniqueViolation is the SQLSTATE for unique_violation.
const uniqueViolation = "23505"

type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository migrates the schema and opens a pool on databaseURL.
func NewRepository(ctx context.Context, databaseURL string) (*Repository, error) {
	if err := Migrate(databaseURL); err != nil {
		return nil, err
	}

	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	cfg.MaxConnLifetime = 30 * time.Minute
	cfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Repository{pool: pool}, nil
}

const linkColumns = `id, slug, original_url, owner_id, total_visits, created_at, is_deleted, deleted_at`

func scanLink(row pgx.Row) (*domain.Link, error) {
	var l domain.Link
	if err := row.Scan(&l.ID, &l.Slug, &l.OriginalURL, &l.OwnerID, &l.TotalVisits, &l.CreatedAt, &l.IsDeleted, &l.DeletedAt); err != nil {
		return nil, err
	}
	l.CreatedAt = l.CreatedAt.UTC()
	if l.DeletedAt != nil {
		t := l.DeletedAt.UTC()
		l.DeletedAt = &t
	}
	return &l, nil
}

func (r *Repository) queryLink(ctx context.Context, query string, args ...any) (*domain.Link, error) {
	link, err := scanLink(r.pool.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return link, err
}

func (r *Repository) Create(ctx context.Context, link *domain.Link) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO links (slug, original_url, owner_id, total_visits, created_at, is_deleted, deleted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`,
		link.Slug, link.OriginalURL, link.OwnerID, link.TotalVisits, link.CreatedAt, link.IsDeleted, link.DeletedAt,
	).Scan(&link.ID)
	if isUniqueViolation(err) {
		return ports.ErrSlugTaken
	}
	return err
}

func (r *Repository) GetBySlug(ctx context.Context, slug string) (*domain.Link, error) {
	return r.queryLink(ctx, `SELECT `+linkColumns+` FROM links WHERE slug = $1 AND NOT is_deleted`, slug)
}

func (r *Repository) GetOwned(ctx context.Context, slug, ownerID string) (*domain.Link, error) {
	return r.queryLink(ctx, `SELECT `+linkColumns+` FROM links WHERE slug = $1 AND owner_id = $2 AND NOT is_deleted`, slug, ownerID)
}

func (r *Repository) SlugExists(ctx context.Context, slug string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM links WHERE slug = $1)`, slug).Scan(&exists)
	return exists, err
}

func (r *Repository) ListByOwner(ctx context.Context, ownerID string) ([]domain.Link, error) {
	return r.listLinks(ctx, `SELECT `+linkColumns+` FROM links
		WHERE owner_id = $1 AND NOT is_deleted
		ORDER BY created_at DESC, id DESC`, ownerID)
}

func (r *Repository) UpdateSlug(ctx context.Context, id int64, newSlug string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE links SET slug = $1 WHERE id = $2 AND NOT is_deleted`, newSlug, id)
	if err != nil {
		if isUniqueViolation(err) {
			return ports.ErrSlugTaken
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrLinkNotFound
	}
	return nil
}

func (r *Repository) SoftDelete(ctx context.Context, id int64, at time.Time) error {
	tag, err := r.pool.Exec(ctx, `UPDATE links SET is_deleted = TRUE, deleted_at = $1 WHERE id = $2 AND NOT is_deleted`, at, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrLinkNotFound
	}
	return nil
}

func (r *Repository) Dump(ctx context.Context) ([]domain.Link, error) {
	return r.listLinks(ctx, `SELECT `+linkColumns+` FROM links ORDER BY id`)
}

func (r *Repository) listLinks(ctx context.Context, query string, args ...any) ([]domain.Link, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var links []domain.Link
	for rows.Next() {
		l, err := scanLink(rows)
		if err != nil {
			return nil, err
		}
		links = append(links, *l)
	}
	return links, rows.Err()
}

func (r *Repository) RecordVisit(ctx context.Context, visit *domain.Visit) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `UPDATE links SET total_visits = total_visits + 1 WHERE id = $1`, visit.LinkID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrLinkNotFound
		}
		return tx.QueryRow(ctx, `
			INSERT INTO visits (link_id, occurred_at, day, month, year, hour, browser, device, os)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			RETURNING id`,
			visit.LinkID, visit.OccurredAt, visit.Day, visit.Month, visit.Year, visit.Hour,
			visit.Browser, visit.Device, visit.OS,
		).Scan(&visit.ID)
	})
}

func (r *Repository) ListVisits(ctx context.Context, linkID int64, from, to time.Time) ([]domain.Visit, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, link_id, occurred_at, day, month, year, hour, browser, device, os
		FROM visits
		WHERE link_id = $1 AND occurred_at >= $2 AND occurred_at < $3
		ORDER BY occurred_at ASC, id ASC`, linkID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var visits []domain.Visit
	for rows.Next() {
		var v domain.Visit
		if err := rows.Scan(&v.ID, &v.LinkID, &v.OccurredAt, &v.Day, &v.Month, &v.Year, &v.Hour, &v.Browser, &v.Device, &v.OS); err != nil {
			return nil, err
		}
		v.OccurredAt = v.OccurredAt.UTC()
		visits = append(visits, v)
	}
	return visits, rows.Err()
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func (r *Repository) Close() error {
	r.pool.Close()
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

var _ ports.Repository = (*Repository)(nil)
