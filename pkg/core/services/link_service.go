package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/wadjakorntonsri/shortlink-analytics/pkg/core/domain"
	"github.com/wadjakorntonsri/shortlink-analytics/pkg/ports"
)

// lookupTimeout bounds a shared redirect lookup once it is detached from
// the caller that started it.
const lookupTimeout = 5 * time.Second

type LinkService struct {
	repo      ports.LinkRepository
	allocator *SlugAllocator
	cache     ports.LinkCache
	lookups   singleflight.Group
	now       func() time.Time
	log       zerolog.Logger

	// cacheMu orders cache fills against evictions; generations counts
	// evictions per slug so a fill that raced one is dropped.
	cacheMu     sync.Mutex
	generations map[string]uint64
}

// NewLinkService wires the link lifecycle. cache may be nil.
func NewLinkService(repo ports.LinkRepository, allocator *SlugAllocator, cache ports.LinkCache) *LinkService {
	return &LinkService{
		repo:      repo,
		allocator: allocator,
		cache:     cache,
		now:       time.Now,
		log:       log.With().Str("component", "link_service").Logger(),

		generations: make(map[string]uint64),
	}
}

func (s *LinkService) Create(ctx context.Context, originalURL, customSlug, ownerID string) (*domain.Link, error) {
	if err := ValidateURL(originalURL); err != nil {
		return nil, err
	}
	if ownerID == "" {
		return nil, domain.ErrOwnerRequired
	}

	var created *domain.Link
	_, err := s.allocator.Allocate(ctx, customSlug, func(ctx context.Context, slug string) error {
		link := &domain.Link{
			Slug:        slug,
			OriginalURL: originalURL,
			OwnerID:     ownerID,
			CreatedAt:   s.now().UTC().Truncate(time.Millisecond),
		}
		if err := s.repo.Create(ctx, link); err != nil {
			return err
		}
		created = link
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().Str("slug", created.Slug).Int64("link_id", created.ID).Msg("link created")
	return created, nil
}

func (s *LinkService) List(ctx context.Context, ownerID string) ([]domain.Link, error) {
	if ownerID == "" {
		return nil, domain.ErrOwnerRequired
	}
	links, err := s.repo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list links: %w", err)
	}
	if links == nil {
		links = []domain.Link{}
	}
	return links, nil
}

// Lookup returns the active link for slug or domain.ErrLinkNotFound.
func (s *LinkService) Lookup(ctx context.Context, slug string) (*domain.Link, error) {
	if !IsValidSlug(slug) {
		return nil, domain.ErrLinkNotFound
	}
	link, err := s.repo.GetBySlug(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("lookup %q: %w", slug, err)
	}
	if link == nil {
		return nil, domain.ErrLinkNotFound
	}
	return link, nil
}

// Resolve returns the destination for slug, going through the cache when
// one is configured. Concurrent misses for the same slug share one lookup.
func (s *LinkService) Resolve(ctx context.Context, slug string) (string, error) {
	if s.cache != nil {
		target, ok, err := s.cache.GetURL(ctx, slug)
		if err != nil {
			s.log.Warn().Err(err).Str("slug", slug).Msg("cache get failed")
		} else if ok {
			return target, nil
		}
	}

	v, err, _ := s.lookups.Do(slug, func() (any, error) {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), lookupTimeout)
		defer cancel()

		gen := s.generation(slug)
		link, err := s.Lookup(ctx, slug)
		if err != nil {
			return nil, err
		}
		s.fill(ctx, slug, gen, link.OriginalURL)
		return link, nil
	})
	if err != nil {
		return "", err
	}
	return v.(*domain.Link).OriginalURL, nil
}

func (s *LinkService) generation(slug string) uint64 {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	return s.generations[slug]
}

// fill caches slug unless it was evicted after gen was read.
func (s *LinkService) fill(ctx context.Context, slug string, gen uint64, target string) {
	if s.cache == nil {
		return
	}
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	if s.generations[slug] != gen {
		return
	}
	if err := s.cache.SetURL(ctx, slug, target); err != nil {
		s.log.Warn().Err(err).Str("slug", slug).Msg("cache set failed")
	}
}

func (s *LinkService) Rename(ctx context.Context, slug, newSlug, ownerID string) (*domain.Link, error) {
	link, err := s.owned(ctx, slug, ownerID)
	if err != nil {
		return nil, err
	}
	if err := ValidateSlug(newSlug); err != nil {
		return nil, err
	}
	if s.allocator.IsReserved(newSlug) {
		return nil, domain.ErrSlugReserved
	}
	// Deleted slugs stay reserved, so the check is unscoped.
	taken, err := s.repo.SlugExists(ctx, newSlug)
	if err != nil {
		return nil, fmt.Errorf("check slug availability: %w", err)
	}
	if taken {
		return nil, domain.ErrSlugInUse
	}

	if err := s.repo.UpdateSlug(ctx, link.ID, newSlug); err != nil {
		switch {
		case errors.Is(err, ports.ErrSlugTaken):
			return nil, domain.ErrSlugInUse
		case errors.Is(err, domain.ErrNotFound):
			return nil, domain.ErrLinkNotFound
		}
		return nil, fmt.Errorf("rename %q: %w", slug, err)
	}
	s.evict(ctx, slug)

	s.log.Info().Str("slug", slug).Str("new_slug", newSlug).Int64("link_id", link.ID).Msg("link renamed")
	link.Slug = newSlug
	return link, nil
}

func (s *LinkService) SoftDelete(ctx context.Context, slug, ownerID string) error {
	link, err := s.owned(ctx, slug, ownerID)
	if err != nil {
		return err
	}
	if err := s.repo.SoftDelete(ctx, link.ID, s.now().UTC().Truncate(time.Millisecond)); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrLinkNotFound
		}
		return fmt.Errorf("delete %q: %w", slug, err)
	}
	s.evict(ctx, slug)

	s.log.Info().Str("slug", slug).Int64("link_id", link.ID).Msg("link deleted")
	return nil
}

func (s *LinkService) owned(ctx context.Context, slug, ownerID string) (*domain.Link, error) {
	if ownerID == "" || !IsValidSlug(slug) {
		return nil, domain.ErrLinkNotFound
	}
	link, err := s.repo.GetOwned(ctx, slug, ownerID)
	if err != nil {
		return nil, fmt.Errorf("lookup %q: %w", slug, err)
	}
	if link == nil {
		return nil, domain.ErrLinkNotFound
	}
	return link, nil
}

func (s *LinkService) evict(ctx context.Context, slug string) {
	s.lookups.Forget(slug)
	if s.cache == nil {
		return
	}
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	s.generations[slug]++
	if err := s.cache.Delete(ctx, slug); err != nil {
		s.log.Warn().Err(err).Str("slug", slug).Msg("cache evict failed")
	}
}

var _ ports.LinkService = (*LinkService)(nil)
