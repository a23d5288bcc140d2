package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/rs/zerolog/log"

	"github.com/wadjakorntonsri/shortlink-analytics/pkg/app"
	"github.com/wadjakorntonsri/shortlink-analytics/pkg/config"
	"github.com/wadjakorntonsri/shortlink-analytics/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Initialize("info", "console")
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	logger.Initialize(cfg.LogLevel, cfg.LogFormat)

	application, err := app.New(context.Background(), cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to start application")
	}

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      application.Handler,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Str("env", cfg.AppEnv).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		cfg.ShutdownTimeout,
		map[string]gfshutdown.Operation{
			"shortlink-server": func(ctx context.Context) error {
				log.Info().Msg("graceful shutdown initiated")
				err := server.Shutdown(ctx)
				closeErr := application.Close(ctx)
				stats := application.Recorder.Stats()
				log.Info().
					Int64("recorded", stats.Recorded).
					Int64("failed", stats.Failed).
					Int64("dropped", stats.Dropped).
					Msg("visit recorder stopped")
				return errors.Join(err, closeErr)
			},
		},
	)

	exitCode := <-wait
	log.Info().Int("code", exitCode).Msg("server exited")
	os.Exit(exitCode)
}
