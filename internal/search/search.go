// Package search serves interactive hybrid queries: a fast lexical title
// match and a slower semantic vector match run concurrently against the
// same query, and the semantic ranking supersedes the lexical one when it
// produces anything. The package never returns an error while either
// strategy succeeded; only a double failure surfaces.
package search

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Result limits per strategy. Fixed by product tuning, deliberately named
// rather than inlined.
const (
	// LexicalLimit caps the fast title-match result set.
	LexicalLimit int32 = 5

	// SemanticLimit caps the vector similarity result set.
	SemanticLimit int32 = 7
)

// Result is the uniform shape both strategies produce. Similarity is set
// for semantic hits only; lexical matches are rank-complete on arrival and
// carry none.
type Result struct {
	ID           uuid.UUID  `json:"id"`
	Title        string     `json:"title"`
	CategoryID   *uuid.UUID `json:"categoryId,omitempty"`
	CategoryName string     `json:"categoryName"`
	CategoryIcon string     `json:"categoryIcon"`
	Similarity   *float32   `json:"similarity,omitempty"`
}

// Strategy is one retrieval branch of a hybrid query.
type Strategy interface {
	Search(ctx context.Context, query string, limit int32, categoryID *uuid.UUID) ([]Result, error)
}

// Update is one delivery of results to an interactive caller. A query
// produces at most two: an interim lexical view, then a semantic view that
// supersedes it.
type Update struct {
	Results []Result
	// Semantic marks the superseding second delivery.
	Semantic bool
}

// Engine runs hybrid queries. It is safe for concurrent use.
type Engine struct {
	lexical  Strategy
	semantic Strategy
	logger   *slog.Logger
}

// New creates an Engine over the two strategies. logger may be nil, in
// which case slog.Default() applies.
func New(lexical, semantic Strategy, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{lexical: lexical, semantic: semantic, logger: logger}
}

// Search runs both strategies concurrently and returns the final merged
// view: the semantic ranking when it is non-empty, otherwise the lexical
// one. A failed branch degrades to the other; only both failing is an
// error. The category filter restricts both strategies.
func (e *Engine) Search(ctx context.Context, query string, categoryID *uuid.UUID) ([]Result, error) {
	var (
		lexResults, semResults []Result
		lexErr, semErr         error
	)

	// Both strategies start before either is awaited so their latencies
	// overlap rather than stack.
	var g errgroup.Group
	g.Go(func() error {
		lexResults, lexErr = e.lexical.Search(ctx, query, LexicalLimit, categoryID)
		return nil
	})
	g.Go(func() error {
		semResults, semErr = e.semantic.Search(ctx, query, SemanticLimit, categoryID)
		return nil
	})
	_ = g.Wait()

	return e.merge(query, lexResults, lexErr, semResults, semErr)
}

// StreamSearch runs both strategies concurrently and delivers results
// progressively through apply: the lexical view as soon as it arrives
// (unless a non-empty semantic view already superseded it), then the
// semantic view if it is non-empty. apply is never called concurrently and
// is called at most twice. The returned error follows the same degradation
// rules as Search.
func (e *Engine) StreamSearch(ctx context.Context, query string, categoryID *uuid.UUID, apply func(Update)) error {
	var (
		mu                sync.Mutex
		semanticDelivered bool
		lexResults        []Result
		semResults        []Result
		lexErr, semErr    error
	)

	var g errgroup.Group
	g.Go(func() error {
		lexResults, lexErr = e.lexical.Search(ctx, query, LexicalLimit, categoryID)
		if lexErr != nil {
			return nil
		}
		mu.Lock()
		defer mu.Unlock()
		// Only an actually-delivered semantic view supersedes the lexical
		// one. A semantic branch that failed or found nothing must leave
		// the lexical results as the final answer.
		if !semanticDelivered {
			apply(Update{Results: lexResults})
		}
		return nil
	})
	g.Go(func() error {
		semResults, semErr = e.semantic.Search(ctx, query, SemanticLimit, categoryID)
		mu.Lock()
		defer mu.Unlock()
		if semErr == nil && len(semResults) > 0 {
			semanticDelivered = true
			apply(Update{Results: semResults, Semantic: true})
		}
		return nil
	})
	_ = g.Wait()

	_, err := e.merge(query, lexResults, lexErr, semResults, semErr)
	return err
}

// merge applies the supersession rules shared by Search and StreamSearch.
func (e *Engine) merge(query string, lex []Result, lexErr error, sem []Result, semErr error) ([]Result, error) {
	switch {
	case semErr == nil && len(sem) > 0:
		return sem, nil
	case lexErr == nil && semErr != nil:
		e.logger.Warn("semantic search failed, serving lexical results",
			"query", query, "error", semErr)
		return lex, nil
	case lexErr == nil:
		// Semantic succeeded but found nothing; the lexical view stands.
		return lex, nil
	case semErr == nil:
		e.logger.Warn("lexical search failed, serving semantic results",
			"query", query, "error", lexErr)
		return sem, nil
	default:
		return nil, errors.Join(lexErr, semErr)
	}
}
