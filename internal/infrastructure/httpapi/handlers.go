package httpapi

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"NewsAggregator/internal/domain"
	"NewsAggregator/internal/infrastructure/storage"
	"NewsAggregator/internal/ports"
)

type handler struct {
	service ports.NewsService
	repo    ports.NewsRepository
	logger  *slog.Logger
}

func (h *handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// listNews always answers 200; pipeline failures travel in the body.
func (h *handler) listNews(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filters := domain.Filters{
		Category: q.Get("category"),
		Priority: q.Get("priority"),
		Source:   q.Get("source"),
	}
	writeJSON(w, http.StatusOK, h.service.GetNews(r.Context(), filters))
}

func (h *handler) categories(w http.ResponseWriter, r *http.Request) {
	if h.repo == nil {
		writeJSON(w, http.StatusOK, map[string][]string{"categories": {}})
		return
	}
	categories, err := h.repo.Categories(r.Context())
	if err != nil {
		h.fail(w, "fetch categories", err)
		return
	}
	if categories == nil {
		categories = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"categories": categories})
}

func (h *handler) sources(w http.ResponseWriter, r *http.Request) {
	if h.repo == nil {
		writeJSON(w, http.StatusOK, map[string][]string{"sources": {}})
		return
	}
	sources, err := h.repo.Sources(r.Context())
	if err != nil {
		h.fail(w, "fetch sources", err)
		return
	}
	if sources == nil {
		sources = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"sources": sources})
}

func (h *handler) deleteNews(w http.ResponseWriter, r *http.Request) {
	if h.repo == nil {
		writeError(w, http.StatusServiceUnavailable, "storage is not configured")
		return
	}
	id := chi.URLParam(r, "id")
	err := h.repo.Delete(r.Context(), id)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, "news item not found")
	case err != nil:
		h.fail(w, "delete news item", err)
	default:
		writeJSON(w, http.StatusOK, map[string]bool{"success": true})
	}
}

func (h *handler) fail(w http.ResponseWriter, action string, err error) {
	h.logger.Error(action+" failed", "error", err)
	writeError(w, http.StatusInternalServerError, "failed to "+action)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
