package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"docsearch/search"
)

// Searcher runs one query against the corpus.
type Searcher interface {
	Search(ctx context.Context, query string, fullText bool) ([]search.Result, error)
}

// Handler contains HTTP handlers for the API
type Handler struct {
	searcher Searcher
	corpus   string
	logger   zerolog.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(searcher Searcher, corpus string, logger zerolog.Logger) *Handler {
	return &Handler{
		searcher: searcher,
		corpus:   corpus,
		logger:   logger,
	}
}

// HandleSearch serves GET /api/search?q=&fullText=. A blank query yields an
// empty array; fullText is enabled only by the literal "true".
func (h *Handler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	fullText := r.URL.Query().Get("fullText") == "true"

	if strings.TrimSpace(q) == "" {
		writeJSON(w, http.StatusOK, []search.Result{})
		return
	}

	results, err := h.searcher.Search(r.Context(), q, fullText)
	if err != nil {
		h.logger.Error().
			Err(err).
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("query", q).
			Bool("full_text", fullText).
			Msg("search failed")
		writeError(w, http.StatusInternalServerError, "search failed", "SEARCH_FAILED")
		return
	}
	if results == nil {
		results = []search.Result{}
	}

	writeJSON(w, http.StatusOK, results)
}

// HandleHealth reports liveness.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", Corpus: h.corpus})
}

// Helper functions used across all handlers

// writeJSON writes a JSON response with the given status code
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes an error response with the given status code
func writeError(w http.ResponseWriter, status int, message, code string) {
	writeJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}
