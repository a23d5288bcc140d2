package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	_ "github.com/tursodatabase/libsql-client-go/libsql" // Turso driver
	_ "modernc.org/sqlite"                               // Local SQLite driver

	"github.com/wadjakorntonsri/shortlink-analytics/pkg/core/domain"
	"github.com/wadjakorntonsri/shortlink-analytics/pkg/ports"
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbURL string) (*SQLiteRepository, error) {
	driverName := "sqlite"
	if strings.Contains(dbURL, "libsql://") || strings.Contains(dbURL, "wss://") {
		driverName = "libsql"
	}

	db, err := sql.Open(driverName, dbURL)
	if err != nil {
		return nil, err
	}
	if driverName == "sqlite" {
		// Single writer.
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteRepository{db: db}, nil
}

func migrate(db *sql.DB) error {
	// Timestamps are unix milliseconds (UTC).
	query := `
	CREATE TABLE IF NOT EXISTS links (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		slug TEXT NOT NULL UNIQUE,
		original_url TEXT NOT NULL,
		owner_id TEXT NOT NULL,
		total_visits INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL,
		is_deleted INTEGER NOT NULL DEFAULT 0,
		deleted_at INTEGER
	);
	CREATE INDEX IF NOT EXISTS idx_links_owner ON links(owner_id, is_deleted, created_at);

	CREATE TABLE IF NOT EXISTS visits (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		link_id INTEGER NOT NULL,
		occurred_at INTEGER NOT NULL,
		day INTEGER NOT NULL,
		month INTEGER NOT NULL,
		year INTEGER NOT NULL,
		hour INTEGER NOT NULL,
		browser TEXT,
		device TEXT,
		os TEXT,
		FOREIGN KEY(link_id) REFERENCES links(id)
	);
	CREATE INDEX IF NOT EXISTS idx_visits_link_time ON visits(link_id, occurred_at);
	`
	_, err := db.Exec(query)
	return err
}

const linkColumns = `id, slug, original_url, owner_id, total_visits, created_at, is_deleted, deleted_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLink(row rowScanner) (*domain.Link, error) {
	var (
		l         domain.Link
		createdAt int64
		deletedAt sql.NullInt64
	)
	if err := row.Scan(&l.ID, &l.Slug, &l.OriginalURL, &l.OwnerID, &l.TotalVisits, &createdAt, &l.IsDeleted, &deletedAt); err != nil {
		return nil, err
	}
	l.CreatedAt = time.UnixMilli(createdAt).UTC()
	if deletedAt.Valid {
		t := time.UnixMilli(deletedAt.Int64).UTC()
		l.DeletedAt = &t
	}
	return &l, nil
}

func (r *SQLiteRepository) queryLink(ctx context.Context, query string, args ...any) (*domain.Link, error) {
	link, err := scanLink(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return link, err
}

func (r *SQLiteRepository) Create(ctx context.Context, link *domain.Link) error {
	query := `INSERT INTO links (slug, original_url, owner_id, total_visits, created_at, is_deleted, deleted_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?)`

	var deletedAt sql.NullInt64
	if link.DeletedAt != nil {
		deletedAt = sql.NullInt64{Int64: link.DeletedAt.UnixMilli(), Valid: true}
	}

	res, err := r.db.ExecContext(ctx, query, link.Slug, link.OriginalURL, link.OwnerID,
		link.TotalVisits, link.CreatedAt.UnixMilli(), link.IsDeleted, deletedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ports.ErrSlugTaken
		}
		return err
	}

	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	link.ID = id
	return nil
}

func (r *SQLiteRepository) GetBySlug(ctx context.Context, slug string) (*domain.Link, error) {
	return r.queryLink(ctx, `SELECT `+linkColumns+` FROM links WHERE slug = ? AND is_deleted = 0`, slug)
}

func (r *SQLiteRepository) GetOwned(ctx context.Context, slug, ownerID string) (*domain.Link, error) {
	return r.queryLink(ctx, `SELECT `+linkColumns+` FROM links WHERE slug = ? AND owner_id = ? AND is_deleted = 0`, slug, ownerID)
}

func (r *SQLiteRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM links WHERE slug = ?)`, slug).Scan(&exists)
	return exists, err
}

func (r *SQLiteRepository) ListByOwner(ctx context.Context, ownerID string) ([]domain.Link, error) {
	return r.listLinks(ctx, `SELECT `+linkColumns+` FROM links
		WHERE owner_id = ? AND is_deleted = 0
		ORDER BY created_at DESC, id DESC`, ownerID)
}

func (r *SQLiteRepository) UpdateSlug(ctx context.Context, id int64, newSlug string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE links SET slug = ? WHERE id = ? AND is_deleted = 0`, newSlug, id)
	if err != nil {
		if isUniqueViolation(err) {
			return ports.ErrSlugTaken
		}
		return err
	}
	return expectOneRow(res)
}

func (r *SQLiteRepository) SoftDelete(ctx context.Context, id int64, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `UPDATE links SET is_deleted = 1, deleted_at = ? WHERE id = ? AND is_deleted = 0`, at.UnixMilli(), id)
	if err != nil {
		return err
	}
	return expectOneRow(res)
}

func (r *SQLiteRepository) Dump(ctx context.Context) ([]domain.Link, error) {
	return r.listLinks(ctx, `SELECT `+linkColumns+` FROM links ORDER BY id`)
}

func (r *SQLiteRepository) listLinks(ctx context.Context, query string, args ...any) ([]domain.Link, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
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

func (r *SQLiteRepository) RecordVisit(ctx context.Context, visit *domain.Visit) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// 1. Increment Link Counter (Atomic)
	res, err := tx.ExecContext(ctx, `UPDATE links SET total_visits = total_visits + 1 WHERE id = ?`, visit.LinkID)
	if err != nil {
		return err
	}
	if err := expectOneRow(res); err != nil {
		return err
	}

	// 2. Insert Visit Record
	res, err = tx.ExecContext(ctx, `INSERT INTO visits (link_id, occurred_at, day, month, year, hour, browser, device, os)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		visit.LinkID, visit.OccurredAt.UnixMilli(), visit.Day, visit.Month, visit.Year, visit.Hour,
		optionalString(visit.Browser), optionalString(visit.Device), optionalString(visit.OS))
	if err != nil {
		return err
	}
	if visit.ID, err = res.LastInsertId(); err != nil {
		return err
	}

	return tx.Commit()
}

func (r *SQLiteRepository) ListVisits(ctx context.Context, linkID int64, from, to time.Time) ([]domain.Visit, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, link_id, occurred_at, day, month, year, hour, browser, device, os
		FROM visits
		WHERE link_id = ? AND occurred_at >= ? AND occurred_at < ?
		ORDER BY occurred_at ASC, id ASC`, linkID, from.UnixMilli(), to.UnixMilli())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var visits []domain.Visit
	for rows.Next() {
		var (
			v                   domain.Visit
			occurredAt          int64
			browser, device, os sql.NullString
		)
		if err := rows.Scan(&v.ID, &v.LinkID, &occurredAt, &v.Day, &v.Month, &v.Year, &v.Hour, &browser, &device, &os); err != nil {
			return nil, err
		}
		v.OccurredAt = time.UnixMilli(occurredAt).UTC()
		v.Browser = nullableString(browser)
		v.Device = nullableString(device)
		v.OS = nullableString(os)
		visits = append(visits, v)
	}
	return visits, rows.Err()
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrLinkNotFound
	}
	return nil
}

func optionalString(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}

func nullableString(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	return &s.String
}

// Ensure interface compliance
var _ ports.Repository = (*SQLiteRepository)(nil)
