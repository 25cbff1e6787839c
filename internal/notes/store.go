// Package notes provides the note and category read/write model. The
// surrounding product owns full note CRUD; this service persists just
// enough of it to drive retrieval: titles for lexical search, content for
// text extraction, categories for result display, and random sampling for
// question generation.
package notes

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

// CreateParams are the fields required to store a new note.
type CreateParams struct {
	OwnerID    uuid.UUID
	CategoryID *uuid.UUID
	Title      string
	Content    json.RawMessage
}

// UpdateParams are the fields replaced on a note update.
type UpdateParams struct {
	ID         uuid.UUID
	CategoryID *uuid.UUID
	Title      string
	Content    json.RawMessage
}

// SearchTitlesParams configure a lexical title search.
type SearchTitlesParams struct {
	Query      string
	Limit      int32
	CategoryID *uuid.UUID
}

// Querier defines the database operations the store needs. Interfaces are
// defined by the consumer; production uses the pgx implementation from
// NewQueries, tests substitute a mock.
type Querier interface {
	InsertNote(ctx context.Context, arg CreateParams) (Note, error)
	UpdateNote(ctx context.Context, arg UpdateParams) (Note, error)
	DeleteNote(ctx context.Context, id uuid.UUID) error
	GetNote(ctx context.Context, id uuid.UUID) (Note, error)
	GetNotesByIDs(ctx context.Context, ids []uuid.UUID) ([]Note, error)
	GetRefsByIDs(ctx context.Context, ids []uuid.UUID) ([]Ref, error)
	SearchTitles(ctx context.Context, arg SearchTitlesParams) ([]Ref, error)
	SampleNotes(ctx context.Context, limit int32) ([]Note, error)
	CountNotes(ctx context.Context) (int64, error)
	ListCategories(ctx context.Context) ([]Category, error)
}

// Store manages note and category persistence.
// Store is safe for concurrent use by multiple goroutines.
type Store struct {
	q      Querier
	logger *slog.Logger
}

// New creates a Store. logger may be nil, in which case slog.Default()
// applies.
func New(q Querier, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{q: q, logger: logger}
}

// Create stores a new note and returns it with its generated id.
func (s *Store) Create(ctx context.Context, arg CreateParams) (Note, error) {
	note, err := s.q.InsertNote(ctx, arg)
	if err != nil {
		return Note{}, fmt.Errorf("creating note: %w", err)
	}
	s.logger.Debug("created note", "id", note.ID, "title", note.Title)
	return note, nil
}

// Update replaces a note's title, content, and category.
func (s *Store) Update(ctx context.Context, arg UpdateParams) (Note, error) {
	note, err := s.q.UpdateNote(ctx, arg)
	if err != nil {
		return Note{}, fmt.Errorf("updating note %s: %w", arg.ID, err)
	}
	s.logger.Debug("updated note", "id", note.ID)
	return note, nil
}

// Delete removes a note. Embedding and link rows follow via the storage
// layer's referential cascade.
func (s *Store) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.q.DeleteNote(ctx, id); err != nil {
		return fmt.Errorf("deleting note %s: %w", id, err)
	}
	s.logger.Debug("deleted note", "id", id)
	return nil
}

// Get retrieves a single note by id.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (Note, error) {
	note, err := s.q.GetNote(ctx, id)
	if err != nil {
		return Note{}, fmt.Errorf("getting note %s: %w", id, err)
	}
	return note, nil
}

// GetByIDs retrieves full notes for the given ids. Missing ids are simply
// absent from the result, not an error.
func (s *Store) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]Note, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	found, err := s.q.GetNotesByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("getting notes by ids: %w", err)
	}
	return found, nil
}

// GetRefsByIDs resolves the given ids to display references with category
// name and icon.
func (s *Store) GetRefsByIDs(ctx context.Context, ids []uuid.UUID) ([]Ref, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	refs, err := s.q.GetRefsByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("resolving note refs: %w", err)
	}
	return refs, nil
}

// SearchTitles performs a case-insensitive substring match against note
// titles, optionally restricted to a category. Results are ordered by
// recency; they carry no relevance score.
func (s *Store) SearchTitles(ctx context.Context, query string, limit int32, categoryID *uuid.UUID) ([]Ref, error) {
	if query == "" {
		return nil, nil
	}
	refs, err := s.q.SearchTitles(ctx, SearchTitlesParams{
		Query:      query,
		Limit:      limit,
		CategoryID: categoryID,
	})
	if err != nil {
		return nil, fmt.Errorf("searching titles: %w", err)
	}
	return refs, nil
}

// Sample returns up to limit notes in random order, used for suggested
// question generation.
func (s *Store) Sample(ctx context.Context, limit int32) ([]Note, error) {
	sampled, err := s.q.SampleNotes(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("sampling notes: %w", err)
	}
	return sampled, nil
}

// Count returns the total number of stored notes.
func (s *Store) Count(ctx context.Context) (int64, error) {
	n, err := s.q.CountNotes(ctx)
	if err != nil {
		return 0, fmt.Errorf("counting notes: %w", err)
	}
	return n, nil
}

// ListCategories returns all categories.
func (s *Store) ListCategories(ctx context.Context) ([]Category, error) {
	cats, err := s.q.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}
	return cats, nil
}
