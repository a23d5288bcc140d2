package handler

import (
	"context"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/wadjakorntonsri/shortlink-analytics/pkg/app"
	"github.com/wadjakorntonsri/shortlink-analytics/pkg/config"
	"github.com/wadjakorntonsri/shortlink-analytics/pkg/logger"
)

var mux http.Handler

func init() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	logger.Initialize(cfg.LogLevel, "json")

	// Note: On Vercel, db.sqlite is ephemeral unless DATABASE_URL points at Turso or Postgres
	application, err := app.New(context.Background(), cfg)
	if err != nil {
		log.Error().Err(err).Msg("failed to start application")
		panic(err)
	}
	mux = application.Handler
}

// Handler is the entrypoint for Vercel
func Handler(w http.ResponseWriter, r *http.Request) {
	mux.ServeHTTP(w, r)
}
