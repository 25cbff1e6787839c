// Package embedding keeps a vector representation of every note in sync
// with its text and serves semantic similarity queries over those vectors.
//
// Vectors are derived artifacts: at most one row per note, written only as
// a side effect of a note save and removed with the note. Absence of a
// vector never blocks anything else, so callers treat Upsert and Delete as
// best-effort enhancements (see internal/enrich for the error boundary).
package embedding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"google.golang.org/genai"

	"github.com/notelace/notelace/internal/document"
)

// VectorDimension is the fixed dimensionality of stored embeddings. The
// schema's vector(768) column and the embedder's output must both match it.
const VectorDimension = 768

// searchTimeout bounds vector similarity queries so a slow scan cannot
// block an interactive search indefinitely.
const searchTimeout = 10 * time.Second

// UpsertParams carry one embedding row write.
type UpsertParams struct {
	NoteID    uuid.UUID
	Embedding pgvector.Vector
}

// SearchParams configure a vector similarity query.
type SearchParams struct {
	Embedding  pgvector.Vector
	Limit      int32
	CategoryID *uuid.UUID
}

// Match is a semantic search hit: a note reference with its cosine
// similarity normalized to [0,1].
type Match struct {
	NoteID       uuid.UUID
	Title        string
	CategoryID   *uuid.UUID
	CategoryName string
	CategoryIcon string
	Similarity   float32
}

// Querier defines the database operations the service needs. Production
// uses the pgx implementation from NewQueries; tests substitute a mock.
type Querier interface {
	UpsertEmbedding(ctx context.Context, arg UpsertParams) error
	DeleteEmbedding(ctx context.Context, noteID uuid.UUID) error
	SearchEmbeddings(ctx context.Context, arg SearchParams) ([]Match, error)
}

// Service generates and stores note embeddings and answers similarity
// queries. It is safe for concurrent use by multiple goroutines.
type Service struct {
	q         Querier
	embedder  ai.Embedder
	embedOpts any
	logger    *slog.Logger
}

// New creates a Service. embedOpts are provider-specific options forwarded
// on every embed request; nil when the provider needs none. logger may be
// nil, in which case slog.Default() applies.
func New(q Querier, embedder ai.Embedder, embedOpts any, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{q: q, embedder: embedder, embedOpts: embedOpts, logger: logger}
}

// GeminiEmbedOptions truncates Gemini embeddings to the schema's
// dimensionality. Gemini embedding models emit 3072 dimensions unless told
// otherwise; the vector column stores VectorDimension.
func GeminiEmbedOptions() *genai.EmbedContentConfig {
	return &genai.EmbedContentConfig{
		OutputDimensionality: genai.Ptr(int32(VectorDimension)),
	}
}

// Upsert regenerates the embedding for a note from its title and content
// and replaces any prior vector for that id. Content is flattened to plain
// text first; a note with no extractable text and an empty title gets its
// row removed instead, so an emptied note stops serving semantic hits from
// text it no longer contains.
func (s *Service) Upsert(ctx context.Context, noteID uuid.UUID, title string, content []byte) error {
	text := strings.TrimSpace(title + "\n" + document.ExtractText(content))
	if text == "" {
		if err := s.q.DeleteEmbedding(ctx, noteID); err != nil {
			return fmt.Errorf("removing embedding for emptied note %s: %w", noteID, err)
		}
		s.logger.Debug("removed embedding for empty note", "note_id", noteID)
		return nil
	}

	vec, err := s.embed(ctx, text)
	if err != nil {
		return fmt.Errorf("embedding note %s: %w", noteID, err)
	}

	if err := s.q.UpsertEmbedding(ctx, UpsertParams{NoteID: noteID, Embedding: vec}); err != nil {
		return fmt.Errorf("storing embedding for note %s: %w", noteID, err)
	}

	s.logger.Debug("upserted embedding", "note_id", noteID, "text_length", len(text))
	return nil
}

// Delete removes the embedding row for a note. A missing row is not an
// error.
func (s *Service) Delete(ctx context.Context, noteID uuid.UUID) error {
	if err := s.q.DeleteEmbedding(ctx, noteID); err != nil {
		return fmt.Errorf("deleting embedding for note %s: %w", noteID, err)
	}
	s.logger.Debug("deleted embedding", "note_id", noteID)
	return nil
}

// Search embeds the query text and returns the limit highest-similarity
// notes, optionally restricted to a category. Results are ordered by
// descending similarity.
func (s *Service) Search(ctx context.Context, query string, limit int32, categoryID *uuid.UUID) ([]Match, error) {
	queryCtx, cancel := context.WithTimeout(ctx, searchTimeout)
	defer cancel()

	vec, err := s.embed(queryCtx, query)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("query embedding timeout: %w", err)
		}
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	matches, err := s.q.SearchEmbeddings(queryCtx, SearchParams{
		Embedding:  vec,
		Limit:      limit,
		CategoryID: categoryID,
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("similarity search timeout: %w", err)
		}
		return nil, fmt.Errorf("similarity search: %w", err)
	}
	return matches, nil
}

// embed runs the embedding model over text and validates the response.
func (s *Service) embed(ctx context.Context, text string) (pgvector.Vector, error) {
	resp, err := s.embedder.Embed(ctx, &ai.EmbedRequest{
		Input: []*ai.Document{
			ai.DocumentFromText(text, nil),
		},
		Options: s.embedOpts,
	})
	if err != nil {
		return pgvector.Vector{}, err
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Embedding) == 0 {
		return pgvector.Vector{}, errors.New("embedding model returned no vector")
	}
	// The vector column is fixed-width; a mismatched model configuration
	// must fail here, not as an opaque Postgres dimension error.
	vec := resp.Embeddings[0].Embedding
	if len(vec) != VectorDimension {
		return pgvector.Vector{}, fmt.Errorf("embedding model returned %d dimensions, want %d", len(vec), VectorDimension)
	}
	return pgvector.NewVector(vec), nil
}
