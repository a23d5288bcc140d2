package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/wadjakorntonsri/shortlink-analytics/pkg/core/domain"
	"github.com/wadjakorntonsri/shortlink-analytics/pkg/ports"
)

// HealthChecker reports whether the backing store is reachable.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// Services are the collaborators the HTTP layer dispatches to.
type Services struct {
	Links     ports.LinkService
	Recorder  ports.VisitRecorder
	Analytics ports.AnalyticsService
	Health    HealthChecker
}

type HTTPHandler struct {
	svc     Services
	baseURL string
}

func NewHTTPHandler(svc Services, baseURL string) *HTTPHandler {
	return &HTTPHandler{svc: svc, baseURL: baseURL}
}

// CreateLinkRequest payload
type CreateLinkRequest struct {
	OriginalURL string `json:"original_url"`
	CustomSlug  string `json:"custom_slug,omitempty"`
}

// RenameLinkRequest payload
type RenameLinkRequest struct {
	Slug string `json:"slug"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *HTTPHandler) Health(w http.ResponseWriter, r *http.Request) {
	if h.svc.Health != nil {
		if err := h.svc.Health.Ping(r.Context()); err != nil {
			log.Ctx(r.Context()).Error().Err(err).Msg("health check failed")
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"message": "store unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "ok"})
}

// Create Link
func (h *HTTPHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateLinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	link, err := h.svc.Links.Create(r.Context(), req.OriginalURL, req.CustomSlug, OwnerFromContext(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, link.View(h.baseURL))
}

// List Links
func (h *HTTPHandler) List(w http.ResponseWriter, r *http.Request) {
	links, err := h.svc.Links.List(r.Context(), OwnerFromContext(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}

	views := make([]domain.LinkView, 0, len(links))
	for i := range links {
		views = append(views, links[i].View(h.baseURL))
	}
	writeJSON(w, http.StatusOK, views)
}

// Rename changes the slug of an owned link.
func (h *HTTPHandler) Rename(w http.ResponseWriter, r *http.Request) {
	var req RenameLinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	link, err := h.svc.Links.Rename(r.Context(), r.PathValue("slug"), req.Slug, OwnerFromContext(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, link.View(h.baseURL))
}

// Delete Link
func (h *HTTPHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Links.SoftDelete(r.Context(), r.PathValue("slug"), OwnerFromContext(r.Context())); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Analytics for an owned link
func (h *HTTPHandler) Analytics(w http.ResponseWriter, r *http.Request) {
	report, err := h.svc.Analytics.Query(r.Context(), r.PathValue("slug"), OwnerFromContext(r.Context()), r.URL.Query().Get("timeFilter"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// Redirect to original URL
func (h *HTTPHandler) Redirect(w http.ResponseWriter, r *http.Request) {
	slug := r.PathValue("slug")

	originalURL, err := h.svc.Links.Resolve(r.Context(), slug)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			http.Error(w, "Link not found", http.StatusNotFound)
			return
		}
		writeError(w, r, err)
		return
	}

	// Skip tracking when ?no_stat is present
	if !r.URL.Query().Has("no_stat") && h.svc.Recorder != nil {
		h.svc.Recorder.Dispatch(slug, r.UserAgent())
	}

	http.Redirect(w, r, originalURL, http.StatusFound)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("encode response")
	}
}

// writeError maps the domain error kinds to HTTP statuses. Unclassified
// errors are logged and hidden behind a generic message.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		log.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		msg = "internal server error"
	}
	writeJSON(w, status, errorResponse{Error: msg})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrResourceExhausted):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
