package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	nanoid "github.com/jaevor/go-nanoid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/wadjakorntonsri/shortlink-analytics/pkg/core/domain"
	"github.com/wadjakorntonsri/shortlink-analytics/pkg/ports"
)

// SlugChecker is the advisory existence check used before claiming a slug.
// It must count soft-deleted rows as taken.
type SlugChecker interface {
	SlugExists(ctx context.Context, slug string) (bool, error)
}

// ClaimFunc persists a candidate slug. Returning ports.ErrSlugTaken makes
// the allocator treat the candidate as a collision.
type ClaimFunc func(ctx context.Context, slug string) error

// AllocatorConfig bounds generated slug search.
type AllocatorConfig struct {
	InitialLength     int
	MaxLength         int
	AttemptsPerLength int
	MaxAttempts       int // absolute ceiling across all lengths
	Reserved          []string
}

// DefaultAllocatorConfig starts at 5 characters and may widen up to 12.
func DefaultAllocatorConfig() AllocatorConfig {
	return AllocatorConfig{
		InitialLength:     MinSlugLength,
		MaxLength:         MaxSlugLength,
		AttemptsPerLength: 10,
		MaxAttempts:       (MaxSlugLength - MinSlugLength + 1) * 10,
	}
}

// SlugAllocator hands out collision-free slugs for custom and generated requests.
type SlugAllocator struct {
	checker  SlugChecker
	cfg      AllocatorConfig
	reserved map[string]struct{}
	log      zerolog.Logger

	mu         sync.Mutex
	generators map[int]func() string
}

// NewSlugAllocator builds an allocator. Zero config fields take defaults.
func NewSlugAllocator(checker SlugChecker, cfg AllocatorConfig) (*SlugAllocator, error) {
	def := DefaultAllocatorConfig()
	if cfg.InitialLength < MinSlugLength || cfg.InitialLength > MaxSlugLength {
		cfg.InitialLength = def.InitialLength
	}
	if cfg.MaxLength < cfg.InitialLength || cfg.MaxLength > MaxSlugLength {
		cfg.MaxLength = def.MaxLength
	}
	if cfg.AttemptsPerLength <= 0 {
		cfg.AttemptsPerLength = def.AttemptsPerLength
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = (cfg.MaxLength - cfg.InitialLength + 1) * cfg.AttemptsPerLength
	}

	a := &SlugAllocator{
		checker:    checker,
		cfg:        cfg,
		reserved:   make(map[string]struct{}, len(cfg.Reserved)),
		log:        log.With().Str("component", "slug_allocator").Logger(),
		generators: make(map[int]func() string),
	}
	for _, r := range cfg.Reserved {
		if r = strings.TrimSpace(r); r != "" {
			a.reserved[strings.ToLower(r)] = struct{}{}
		}
	}
	// nanoid's standard alphabet is exactly A-Za-z0-9_-
	for n := cfg.InitialLength; n <= cfg.MaxLength; n++ {
		gen, err := nanoid.Standard(n)
		if err != nil {
			return nil, fmt.Errorf("slug generator for length %d: %w", n, err)
		}
		a.generators[n] = gen
	}
	return a, nil
}

// IsReserved reports whether slug collides with a configured reserved word.
func (a *SlugAllocator) IsReserved(slug string) bool {
	_, ok := a.reserved[strings.ToLower(slug)]
	return ok
}

// Allocate picks a slug and, when claim is non-nil, persists it through claim.
//
// A non-empty custom slug is validated and returned unchanged, or rejected
// with a validation or conflict error. Otherwise random candidates are drawn,
// AttemptsPerLength at a time per length, widening by one character each
// time the budget runs out, until MaxAttempts is hit.
func (a *SlugAllocator) Allocate(ctx context.Context, custom string, claim ClaimFunc) (string, error) {
	if custom != "" {
		return a.allocateCustom(ctx, custom, claim)
	}

	length := a.cfg.InitialLength
	tries := 0
	for attempt := 0; attempt < a.cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if tries == a.cfg.AttemptsPerLength {
			if length == a.cfg.MaxLength {
				break
			}
			length++
			tries = 0
			a.log.Warn().Int("length", length).Msg("slug collisions exhausted budget, widening")
		}
		tries++

		candidate := a.generate(length)
		if a.IsReserved(candidate) {
			continue
		}
		taken, err := a.checker.SlugExists(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("check slug availability: %w", err)
		}
		if taken {
			continue
		}
		if claim == nil {
			return candidate, nil
		}
		if err := claim(ctx, candidate); err != nil {
			if errors.Is(err, ports.ErrSlugTaken) {
				a.log.Debug().Str("slug", candidate).Msg("lost insert race, retrying")
				continue
			}
			return "", err
		}
		return candidate, nil
	}
	return "", domain.ErrSlugSpaceExhausted
}

func (a *SlugAllocator) allocateCustom(ctx context.Context, slug string, claim ClaimFunc) (string, error) {
	if err := ValidateSlug(slug); err != nil {
		return "", err
	}
	if a.IsReserved(slug) {
		return "", domain.ErrSlugReserved
	}
	taken, err := a.checker.SlugExists(ctx, slug)
	if err != nil {
		return "", fmt.Errorf("check slug availability: %w", err)
	}
	if taken {
		return "", domain.ErrSlugInUse
	}
	if claim == nil {
		return slug, nil
	}
	if err := claim(ctx, slug); err != nil {
		if errors.Is(err, ports.ErrSlugTaken) {
			return "", domain.ErrSlugInUse
		}
		return "", err
	}
	return slug, nil
}

func (a *SlugAllocator) generate(length int) string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.generators[length]()
}
