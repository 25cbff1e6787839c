package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/notelace/notelace/internal/links"
	"github.com/notelace/notelace/internal/notes"
)

// NoteStore is the slice of the note store the handler needs.
type NoteStore interface {
	Create(ctx context.Context, arg notes.CreateParams) (notes.Note, error)
	Update(ctx context.Context, arg notes.UpdateParams) (notes.Note, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Get(ctx context.Context, id uuid.UUID) (notes.Note, error)
	ListCategories(ctx context.Context) ([]notes.Category, error)
}

// LinkReader serves the reference graph views.
type LinkReader interface {
	Outlinks(ctx context.Context, sourceID uuid.UUID) ([]links.Outlink, error)
	Backlinks(ctx context.Context, targetID uuid.UUID) ([]links.Backlink, error)
}

// Notifier receives note lifecycle events for background enrichment.
type Notifier interface {
	NoteSaved(noteID uuid.UUID, title string, content []byte)
	NoteDeleted(noteID uuid.UUID)
}

// NotesHandler serves note CRUD, categories, and the link graph views.
type NotesHandler struct {
	store    NoteStore
	graph    LinkReader
	notifier Notifier
	logger   *slog.Logger
}

// NewNotesHandler creates a notes handler.
func NewNotesHandler(store NoteStore, graph LinkReader, notifier Notifier, logger *slog.Logger) *NotesHandler {
	return &NotesHandler{store: store, graph: graph, notifier: notifier, logger: logger}
}

// RegisterRoutes registers note routes on mux.
func (h *NotesHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/notes", h.create)
	mux.HandleFunc("GET /api/notes/{id}", h.get)
	mux.HandleFunc("PUT /api/notes/{id}", h.update)
	mux.HandleFunc("DELETE /api/notes/{id}", h.delete)
	mux.HandleFunc("GET /api/notes/{id}/outlinks", h.outlinks)
	mux.HandleFunc("GET /api/notes/{id}/backlinks", h.backlinks)
	mux.HandleFunc("GET /api/categories", h.categories)
}

type createNoteRequest struct {
	OwnerID    uuid.UUID       `json:"ownerId"`
	CategoryID *uuid.UUID      `json:"categoryId"`
	Title      string          `json:"title"`
	Content    json.RawMessage `json:"content"`
}

type updateNoteRequest struct {
	CategoryID *uuid.UUID      `json:"categoryId"`
	Title      string          `json:"title"`
	Content    json.RawMessage `json:"content"`
}

type noteResponse struct {
	ID         uuid.UUID       `json:"id"`
	OwnerID    uuid.UUID       `json:"ownerId"`
	CategoryID *uuid.UUID      `json:"categoryId,omitempty"`
	Title      string          `json:"title"`
	Content    json.RawMessage `json:"content"`
	CreatedAt  time.Time       `json:"createdAt"`
	UpdatedAt  time.Time       `json:"updatedAt"`
}

func toNoteResponse(n notes.Note) noteResponse {
	return noteResponse{
		ID:         n.ID,
		OwnerID:    n.OwnerID,
		CategoryID: n.CategoryID,
		Title:      n.Title,
		Content:    n.Content,
		CreatedAt:  n.CreatedAt,
		UpdatedAt:  n.UpdatedAt,
	}
}

func (h *NotesHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createNoteRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "title is required")
		return
	}
	if req.OwnerID == uuid.Nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "ownerId is required")
		return
	}

	note, err := h.store.Create(r.Context(), notes.CreateParams{
		OwnerID:    req.OwnerID,
		CategoryID: req.CategoryID,
		Title:      req.Title,
		Content:    req.Content,
	})
	if err != nil {
		h.logger.Error("creating note failed", "error", err)
		writeError(w, http.StatusInternalServerError, "create_failed", "could not create note")
		return
	}

	// Derived artifacts follow in the background; the write is done.
	h.notifier.NoteSaved(note.ID, note.Title, note.Content)

	writeJSON(w, http.StatusCreated, toNoteResponse(note))
}

func (h *NotesHandler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	note, err := h.store.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, notes.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "note not found")
			return
		}
		h.logger.Error("getting note failed", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "get_failed", "could not load note")
		return
	}
	writeJSON(w, http.StatusOK, toNoteResponse(note))
}

func (h *NotesHandler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req updateNoteRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "title is required")
		return
	}

	note, err := h.store.Update(r.Context(), notes.UpdateParams{
		ID:         id,
		CategoryID: req.CategoryID,
		Title:      req.Title,
		Content:    req.Content,
	})
	if err != nil {
		if errors.Is(err, notes.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "note not found")
			return
		}
		h.logger.Error("updating note failed", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "update_failed", "could not update note")
		return
	}

	h.notifier.NoteSaved(note.ID, note.Title, note.Content)

	writeJSON(w, http.StatusOK, toNoteResponse(note))
}

func (h *NotesHandler) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.store.Delete(r.Context(), id); err != nil {
		if errors.Is(err, notes.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "note not found")
			return
		}
		h.logger.Error("deleting note failed", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "delete_failed", "could not delete note")
		return
	}

	h.notifier.NoteDeleted(id)

	w.WriteHeader(http.StatusNoContent)
}

type outlinkResponse struct {
	TargetID    uuid.UUID `json:"targetId"`
	TargetTitle string    `json:"targetTitle"`
}

func (h *NotesHandler) outlinks(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	out, err := h.graph.Outlinks(r.Context(), id)
	if err != nil {
		h.logger.Error("listing outlinks failed", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "links_failed", "could not load outlinks")
		return
	}
	resp := make([]outlinkResponse, len(out))
	for i, o := range out {
		resp[i] = outlinkResponse{TargetID: o.TargetID, TargetTitle: o.TargetTitle}
	}
	writeJSON(w, http.StatusOK, resp)
}

type backlinkResponse struct {
	SourceID         uuid.UUID  `json:"sourceId"`
	SourceTitle      string     `json:"sourceTitle"`
	SourceCategoryID *uuid.UUID `json:"sourceCategoryId,omitempty"`
}

func (h *NotesHandler) backlinks(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	back, err := h.graph.Backlinks(r.Context(), id)
	if err != nil {
		h.logger.Error("listing backlinks failed", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "links_failed", "could not load backlinks")
		return
	}
	resp := make([]backlinkResponse, len(back))
	for i, b := range back {
		resp[i] = backlinkResponse{
			SourceID:         b.SourceID,
			SourceTitle:      b.SourceTitle,
			SourceCategoryID: b.SourceCategoryID,
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

type categoryResponse struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
	Icon string    `json:"icon"`
}

func (h *NotesHandler) categories(w http.ResponseWriter, r *http.Request) {
	cats, err := h.store.ListCategories(r.Context())
	if err != nil {
		h.logger.Error("listing categories failed", "error", err)
		writeError(w, http.StatusInternalServerError, "categories_failed", "could not load categories")
		return
	}
	resp := make([]categoryResponse, len(cats))
	for i, c := range cats {
		resp[i] = categoryResponse{ID: c.ID, Name: c.Name, Icon: c.Icon}
	}
	writeJSON(w, http.StatusOK, resp)
}

// pathID parses the {id} path segment, writing a 400 on failure.
func pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_id", "id must be a UUID")
		return uuid.Nil, false
	}
	return id, true
}
