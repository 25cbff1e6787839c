package api

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/notelace/notelace/internal/answer"
)

// Asker answers questions over the note corpus and proposes questions.
type Asker interface {
	Answer(ctx context.Context, question string, forcedNoteIDs []uuid.UUID) (answer.Response, error)
	SuggestedQuestions(ctx context.Context) []string
	FollowUps(ctx context.Context, question, answerText string) []string
}

// AskHandler serves grounded question answering.
type AskHandler struct {
	asker  Asker
	logger *slog.Logger
}

// NewAskHandler creates an ask handler.
func NewAskHandler(asker Asker, logger *slog.Logger) *AskHandler {
	return &AskHandler{asker: asker, logger: logger}
}

// RegisterRoutes registers ask routes on mux.
func (h *AskHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/ask", h.ask)
	mux.HandleFunc("GET /api/questions/suggested", h.suggested)
	mux.HandleFunc("POST /api/questions/followups", h.followUps)
}

type askRequest struct {
	Question string      `json:"question"`
	NoteIDs  []uuid.UUID `json:"noteIds"`
}

func (h *AskHandler) ask(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "question is required")
		return
	}

	resp, err := h.asker.Answer(r.Context(), req.Question, req.NoteIDs)
	if err != nil {
		h.logger.Error("answering failed", "error", err)
		writeError(w, http.StatusInternalServerError, "answer_failed", "could not answer the question")
		return
	}
	if resp.Sources == nil {
		resp.Sources = []answer.Source{}
	}
	writeJSON(w, http.StatusOK, resp)
}

type questionsResponse struct {
	Questions []string `json:"questions"`
}

func (h *AskHandler) suggested(w http.ResponseWriter, r *http.Request) {
	questions := h.asker.SuggestedQuestions(r.Context())
	writeJSON(w, http.StatusOK, questionsResponse{Questions: questions})
}

type followUpsRequest struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

func (h *AskHandler) followUps(w http.ResponseWriter, r *http.Request) {
	var req followUpsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	questions := h.asker.FollowUps(r.Context(), req.Question, req.Answer)
	if questions == nil {
		questions = []string{}
	}
	writeJSON(w, http.StatusOK, questionsResponse{Questions: questions})
}
