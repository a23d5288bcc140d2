// Package app assembles the store, services and HTTP router from Config.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/wadjakorntonsri/shortlink-analytics/pkg/adapters/cache"
	"github.com/wadjakorntonsri/shortlink-analytics/pkg/adapters/handler"
	"github.com/wadjakorntonsri/shortlink-analytics/pkg/adapters/repository"
	"github.com/wadjakorntonsri/shortlink-analytics/pkg/config"
	"github.com/wadjakorntonsri/shortlink-analytics/pkg/core/services"
	"github.com/wadjakorntonsri/shortlink-analytics/pkg/ports"
)

type App struct {
	Handler   http.Handler
	Repo      ports.Repository
	Links     *services.LinkService
	Recorder  *services.VisitRecorder
	Analytics *services.AnalyticsService

	cache *cache.RedisCache
}

// New opens the store (and Redis when configured) and wires every service.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	repo, err := repository.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	a := &App{Repo: repo}
	var linkCache ports.LinkCache
	if cfg.RedisURL != "" {
		rc, err := cache.Connect(ctx, cfg.RedisURL, cfg.CacheTTL)
		if err != nil {
			repo.Close()
			return nil, err
		}
		a.cache = rc
		linkCache = rc
		log.Info().Dur("ttl", cfg.CacheTTL).Msg("redirect cache enabled")
	}

	allocCfg := services.DefaultAllocatorConfig()
	allocCfg.Reserved = cfg.ReservedSlugs
	allocator, err := services.NewSlugAllocator(repo, allocCfg)
	if err != nil {
		a.closeStores()
		return nil, fmt.Errorf("slug allocator: %w", err)
	}

	a.Links = services.NewLinkService(repo, allocator, linkCache)
	a.Recorder = services.NewVisitRecorder(repo, services.RecorderConfig{
		Timeout:     cfg.VisitTimeout,
		MaxInFlight: cfg.VisitMaxInFlight,
		Retries:     cfg.VisitRetries,
		Location:    cfg.Location,
	})
	a.Analytics = services.NewAnalyticsService(repo, repo, cfg.Location)
	a.Handler = handler.NewRouter(cfg, handler.Services{
		Links:     a.Links,
		Recorder:  a.Recorder,
		Analytics: a.Analytics,
		Health:    repo,
	})
	return a, nil
}

// Close drains pending visits, then releases the cache and the store.
func (a *App) Close(ctx context.Context) error {
	err := a.Recorder.Close(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("visit recorder did not drain")
	}
	return errors.Join(err, a.closeStores())
}

func (a *App) closeStores() error {
	var errs []error
	if a.cache != nil {
		errs = append(errs, a.cache.Close())
	}
	errs = append(errs, a.Repo.Close())
	return errors.Join(errs...)
}
