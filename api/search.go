package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/notelace/notelace/internal/search"
)

// Searcher runs hybrid queries, either to completion or with progressive
// delivery.
type Searcher interface {
	Search(ctx context.Context, query string, categoryID *uuid.UUID) ([]search.Result, error)
	StreamSearch(ctx context.Context, query string, categoryID *uuid.UUID, apply func(search.Update)) error
}

// SearchHandler serves hybrid search queries.
type SearchHandler struct {
	searcher Searcher
	logger   *slog.Logger
}

// NewSearchHandler creates a search handler.
func NewSearchHandler(searcher Searcher, logger *slog.Logger) *SearchHandler {
	return &SearchHandler{searcher: searcher, logger: logger}
}

// RegisterRoutes registers search routes on mux.
func (h *SearchHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/search", h.search)
	mux.HandleFunc("GET /api/search/stream", h.stream)
}

type searchResponse struct {
	Results []search.Result `json:"results"`
}

func (h *SearchHandler) search(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		writeJSON(w, http.StatusOK, searchResponse{Results: []search.Result{}})
		return
	}

	var categoryID *uuid.UUID
	if raw := r.URL.Query().Get("category"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_category", "category must be a UUID")
			return
		}
		categoryID = &id
	}

	results, err := h.searcher.Search(r.Context(), query, categoryID)
	if err != nil {
		h.logger.Error("search failed", "query", query, "error", err)
		writeError(w, http.StatusInternalServerError, "search_failed", "search is unavailable")
		return
	}
	if results == nil {
		results = []search.Result{}
	}
	writeJSON(w, http.StatusOK, searchResponse{Results: results})
}

type streamEvent struct {
	Results  []search.Result `json:"results"`
	Semantic bool            `json:"semantic"`
}

// stream serves a hybrid query over SSE: a "results" event per delivery
// (lexical first, then the superseding semantic view), closed by a "done"
// event. The interim view lets a search box paint something while the
// vector query is still running.
func (h *SearchHandler) stream(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "q is required")
		return
	}

	var categoryID *uuid.UUID
	if raw := r.URL.Query().Get("category"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_category", "category must be a UUID")
			return
		}
		categoryID = &id
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming_unsupported", "response writer cannot stream")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	err := h.searcher.StreamSearch(r.Context(), query, categoryID, func(u search.Update) {
		results := u.Results
		if results == nil {
			results = []search.Result{}
		}
		h.writeEvent(w, flusher, "results", streamEvent{Results: results, Semantic: u.Semantic})
	})
	if err != nil {
		h.writeEvent(w, flusher, "error", ErrorResponse{Error: "search_failed", Message: "search is unavailable"})
		return
	}
	h.writeEvent(w, flusher, "done", struct{}{})
}

// writeEvent emits one SSE event with a JSON payload.
func (h *SearchHandler) writeEvent(w http.ResponseWriter, flusher http.Flusher, event string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.logger.Error("encoding SSE payload failed", "event", event, "error", err)
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
	flusher.Flush()
}
