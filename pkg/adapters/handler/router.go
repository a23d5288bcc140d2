package handler

import (
	"net/http"

	"github.com/wadjakorntonsri/shortlink-analytics/pkg/config"
)

// NewRouter creates and configures the main application router
func NewRouter(cfg *config.Config, svc Services) http.Handler {
	h := NewHTTPHandler(svc, cfg.BaseURL)
	mw := NewMiddleware(cfg.JWTSecret)
	authHandler := NewAuthHandler(cfg)

	mux := http.NewServeMux()

	// Public Routes
	mux.HandleFunc("GET /healthz", h.Health)
	mux.HandleFunc("GET /open/{slug}", h.Redirect)
	mux.HandleFunc("GET /auth/google/login", authHandler.Login)
	mux.HandleFunc("GET /auth/google/callback", authHandler.Callback)
	mux.HandleFunc("GET /auth/logout", authHandler.Logout)

	// Protected Routes
	protectedMux := http.NewServeMux()
	protectedMux.HandleFunc("POST /api/v1/links", h.Create)
	protectedMux.HandleFunc("GET /api/v1/links", h.List)
	protectedMux.HandleFunc("PUT /api/v1/links/{slug}", h.Rename)
	protectedMux.HandleFunc("DELETE /api/v1/links/{slug}", h.Delete)
	protectedMux.HandleFunc("GET /api/v1/links/{slug}/analytics", h.Analytics)

	mux.Handle("/api/v1/", mw.AuthMiddleware(protectedMux))

	return RequestID(AccessLog(mux))
}
