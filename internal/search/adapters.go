package search

import (
	"context"

	"github.com/google/uuid"

	"github.com/notelace/notelace/internal/embedding"
	"github.com/notelace/notelace/internal/notes"
)

// TitleSearcher is the slice of the note store the lexical strategy needs.
type TitleSearcher interface {
	SearchTitles(ctx context.Context, query string, limit int32, categoryID *uuid.UUID) ([]notes.Ref, error)
}

// VectorSearcher is the slice of the embedding service the semantic
// strategy needs.
type VectorSearcher interface {
	Search(ctx context.Context, query string, limit int32, categoryID *uuid.UUID) ([]embedding.Match, error)
}

// lexicalStrategy adapts title search to the Strategy interface.
type lexicalStrategy struct {
	store TitleSearcher
}

// NewLexical wraps a title searcher as a search strategy. Its results
// carry no similarity score.
func NewLexical(store TitleSearcher) Strategy {
	return &lexicalStrategy{store: store}
}

func (s *lexicalStrategy) Search(ctx context.Context, query string, limit int32, categoryID *uuid.UUID) ([]Result, error) {
	refs, err := s.store.SearchTitles(ctx, query, limit, categoryID)
	if err != nil {
		return nil, err
	}
	results := make([]Result, len(refs))
	for i, ref := range refs {
		results[i] = Result{
			ID:           ref.ID,
			Title:        ref.Title,
			CategoryID:   ref.CategoryID,
			CategoryName: ref.CategoryName,
			CategoryIcon: ref.CategoryIcon,
		}
	}
	return results, nil
}

// semanticStrategy adapts vector similarity search to the Strategy
// interface.
type semanticStrategy struct {
	vectors VectorSearcher
}

// NewSemantic wraps a vector searcher as a search strategy.
func NewSemantic(vectors VectorSearcher) Strategy {
	return &semanticStrategy{vectors: vectors}
}

func (s *semanticStrategy) Search(ctx context.Context, query string, limit int32, categoryID *uuid.UUID) ([]Result, error) {
	matches, err := s.vectors.Search(ctx, query, limit, categoryID)
	if err != nil {
		return nil, err
	}
	results := make([]Result, len(matches))
	for i, m := range matches {
		sim := m.Similarity
		results[i] = Result{
			ID:           m.NoteID,
			Title:        m.Title,
			CategoryID:   m.CategoryID,
			CategoryName: m.CategoryName,
			CategoryIcon: m.CategoryIcon,
			Similarity:   &sim,
		}
	}
	return results, nil
}
