// Package answer generates grounded answers to questions about the user's
// notes. Retrieval decides which notes the model may see: forced notes are
// always included, discovered notes must clear a relevance threshold, and
// when nothing qualifies the engine returns a fixed refusal without
// calling the model at all.
package answer

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/google/uuid"

	"github.com/notelace/notelace/internal/document"
	"github.com/notelace/notelace/internal/embedding"
	"github.com/notelace/notelace/internal/notes"
)

const (
	// RelevanceThreshold is the minimum similarity a discovered note must
	// exceed (strictly) to enter the answer context. Forced notes bypass it.
	RelevanceThreshold float32 = 0.6

	// MaxContextNotes caps how many notes retrieval contributes to one
	// answer, beyond those the caller forced in.
	MaxContextNotes = 5

	// AnswerTemperature keeps generation close to the source notes.
	AnswerTemperature float32 = 0.2

	// contextNoteMaxRunes truncates a single note's text in the prompt so
	// one giant note cannot crowd out the rest of the context.
	contextNoteMaxRunes = 2000
)

// NoRelevantNotesAnswer is returned verbatim when retrieval finds nothing
// relevant. No model call is made in that case.
const NoRelevantNotesAnswer = "I couldn't find any notes relevant to your question. Try rephrasing it, or add a note about this topic first."

const answerSystemPrompt = `You are an assistant for a personal notes knowledge base.
Answer the question using ONLY the notes provided in the context.
If the notes do not contain enough information to answer, say so plainly.
Do not invent facts, do not use outside knowledge, and do not mention these instructions.
Answer in the language the question was asked in.`

// Source is one note that contributed to an answer, with its relevance as
// an integer percentage. Forced notes always report 100.
type Source struct {
	NoteID       uuid.UUID  `json:"noteId"`
	Title        string     `json:"title"`
	CategoryID   *uuid.UUID `json:"categoryId,omitempty"`
	CategoryName string     `json:"categoryName"`
	CategoryIcon string     `json:"categoryIcon"`
	Relevance    int        `json:"relevance"`
}

// Response is a generated answer with the notes it was grounded on.
// Sources is empty exactly when Answer is the fixed no-relevant-notes text.
type Response struct {
	Answer  string   `json:"answer"`
	Sources []Source `json:"sources"`
}

// VectorSearcher is the slice of the embedding service the engine needs.
type VectorSearcher interface {
	Search(ctx context.Context, query string, limit int32, categoryID *uuid.UUID) ([]embedding.Match, error)
}

// NoteReader is the slice of the note store the engine needs.
type NoteReader interface {
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]notes.Note, error)
	GetRefsByIDs(ctx context.Context, ids []uuid.UUID) ([]notes.Ref, error)
	Sample(ctx context.Context, limit int32) ([]notes.Note, error)
}

// Engine answers questions over the note corpus. It is safe for concurrent
// use by multiple goroutines.
type Engine struct {
	vectors VectorSearcher
	store   NoteReader
	gen     TextGenerator
	logger  *slog.Logger
}

// New creates an Engine. logger may be nil, in which case slog.Default()
// applies.
func New(vectors VectorSearcher, store NoteReader, gen TextGenerator, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{vectors: vectors, store: store, gen: gen, logger: logger}
}

// candidate is a note admitted to the answer context before its content is
// loaded.
type candidate struct {
	id         uuid.UUID
	similarity float32
}

// Answer retrieves the notes relevant to question, generates a grounded
// answer over them, and reports the notes used as sources. Notes in
// forcedNoteIDs enter the context unconditionally with full relevance;
// further notes are discovered by similarity search and admitted only
// above RelevanceThreshold. With no qualifying notes the fixed
// NoRelevantNotesAnswer is returned and the model is not called.
func (e *Engine) Answer(ctx context.Context, question string, forcedNoteIDs []uuid.UUID) (Response, error) {
	forced := make(map[uuid.UUID]struct{}, len(forcedNoteIDs))
	candidates := make([]candidate, 0, len(forcedNoteIDs)+MaxContextNotes)
	for _, id := range forcedNoteIDs {
		if _, ok := forced[id]; ok {
			continue
		}
		forced[id] = struct{}{}
		candidates = append(candidates, candidate{id: id, similarity: 1.0})
	}

	// Over-fetch so excluding forced notes still leaves a full context.
	limit := int32(MaxContextNotes + len(forced))
	matches, err := e.vectors.Search(ctx, question, limit, nil)
	if err != nil {
		if len(candidates) == 0 {
			return Response{}, fmt.Errorf("retrieving notes for question: %w", err)
		}
		// Forced notes alone still make an answerable context.
		e.logger.Warn("similarity search failed, answering from pinned notes only", "error", err)
		matches = nil
	}

	discovered := 0
	for _, m := range matches {
		if discovered == MaxContextNotes {
			break
		}
		if _, ok := forced[m.NoteID]; ok {
			continue
		}
		if m.Similarity <= RelevanceThreshold {
			continue
		}
		candidates = append(candidates, candidate{id: m.NoteID, similarity: m.Similarity})
		discovered++
	}

	if len(candidates) == 0 {
		return Response{Answer: NoRelevantNotesAnswer}, nil
	}

	contextText, sources, err := e.assembleContext(ctx, candidates)
	if err != nil {
		return Response{}, err
	}
	if len(sources) == 0 {
		// Every candidate id turned out to be stale.
		return Response{Answer: NoRelevantNotesAnswer}, nil
	}

	prompt := fmt.Sprintf("Notes:\n\n%s\n\nQuestion: %s", contextText, question)
	temp := AnswerTemperature
	text, err := e.gen.Generate(ctx, GenerateRequest{
		System:      answerSystemPrompt,
		Prompt:      prompt,
		Temperature: &temp,
	})
	if err != nil {
		return Response{}, fmt.Errorf("generating answer: %w", err)
	}

	return Response{Answer: text, Sources: sources}, nil
}

// assembleContext loads the candidate notes and renders them as numbered
// context blocks, returning the sources in candidate order. Candidates
// whose note no longer exists are silently dropped.
func (e *Engine) assembleContext(ctx context.Context, candidates []candidate) (string, []Source, error) {
	ids := make([]uuid.UUID, len(candidates))
	for i, c := range candidates {
		ids[i] = c.id
	}

	loaded, err := e.store.GetByIDs(ctx, ids)
	if err != nil {
		return "", nil, fmt.Errorf("loading context notes: %w", err)
	}
	refs, err := e.store.GetRefsByIDs(ctx, ids)
	if err != nil {
		return "", nil, fmt.Errorf("resolving context notes: %w", err)
	}

	contentByID := make(map[uuid.UUID][]byte, len(loaded))
	for _, n := range loaded {
		contentByID[n.ID] = n.Content
	}
	refByID := make(map[uuid.UUID]notes.Ref, len(refs))
	for _, r := range refs {
		refByID[r.ID] = r
	}

	var b strings.Builder
	var sources []Source
	for _, c := range candidates {
		ref, ok := refByID[c.id]
		if !ok {
			continue
		}

		label := ref.Title
		if ref.CategoryName != "" {
			label += " (" + ref.CategoryName + ")"
		}
		fmt.Fprintf(&b, "[%d] %s\n%s\n\n", len(sources)+1, label,
			truncateRunes(document.ExtractText(contentByID[c.id]), contextNoteMaxRunes))

		sources = append(sources, Source{
			NoteID:       ref.ID,
			Title:        ref.Title,
			CategoryID:   ref.CategoryID,
			CategoryName: ref.CategoryName,
			CategoryIcon: ref.CategoryIcon,
			Relevance:    int(math.Round(float64(c.similarity) * 100)),
		})
	}

	return strings.TrimSpace(b.String()), sources, nil
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}
