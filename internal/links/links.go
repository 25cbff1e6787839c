// Package links maintains the directed reference graph derived from inline
// mentions between notes. Edges are owned collectively by the synchronizer:
// after Reconcile, the stored edge set for a source note equals exactly the
// mention targets present in its content. Edge rows vanish with either
// endpoint via the storage layer's referential cascade, so note deletion
// needs no handling here.
package links

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/notelace/notelace/internal/document"
)

// Outlink is a directed edge viewed from its source, resolved for display.
type Outlink struct {
	TargetID    uuid.UUID
	TargetTitle string
}

// Backlink is a directed edge viewed from its target: who references me,
// resolved to the source's title and category so the UI can deep-link.
type Backlink struct {
	SourceID         uuid.UUID
	SourceTitle      string
	SourceCategoryID *uuid.UUID
}

// Querier defines the database operations the synchronizer needs.
// Production uses the pgx implementation from NewQueries; tests substitute
// a mock.
type Querier interface {
	ListLinkTargets(ctx context.Context, sourceID uuid.UUID) ([]uuid.UUID, error)
	InsertLink(ctx context.Context, sourceID, targetID uuid.UUID) error
	DeleteLink(ctx context.Context, sourceID, targetID uuid.UUID) error
	ListOutlinks(ctx context.Context, sourceID uuid.UUID) ([]Outlink, error)
	ListBacklinks(ctx context.Context, targetID uuid.UUID) ([]Backlink, error)
}

// Synchronizer reconciles stored edges against note content and serves the
// graph's queries. It only ever writes edges whose source is the note it
// was given, so there is no cross-note contention.
type Synchronizer struct {
	q      Querier
	logger *slog.Logger
}

// New creates a Synchronizer. logger may be nil, in which case
// slog.Default() applies.
func New(q Querier, logger *slog.Logger) *Synchronizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Synchronizer{q: q, logger: logger}
}

// Reconcile extracts the mention targets from content and replaces the
// stored edge set for sourceID with them: stored edges no longer mentioned
// are deleted, edges in the new set but not in storage are inserted. A
// mention whose target note no longer exists is skipped. Reconciling
// identical content twice is a no-op on the second call.
func (s *Synchronizer) Reconcile(ctx context.Context, sourceID uuid.UUID, content []byte) error {
	mentions := document.ExtractMentions(content)

	wanted := make(map[uuid.UUID]struct{}, len(mentions))
	for _, m := range mentions {
		wanted[m.NoteID] = struct{}{}
	}

	stored, err := s.q.ListLinkTargets(ctx, sourceID)
	if err != nil {
		return fmt.Errorf("listing link targets for %s: %w", sourceID, err)
	}
	existing := make(map[uuid.UUID]struct{}, len(stored))
	for _, target := range stored {
		existing[target] = struct{}{}
	}

	// Stale edges go first: an insert can still fail on a mention whose
	// target was deleted, and that must not leave removed edges stored.
	var inserted, deleted int
	for _, target := range stored {
		if _, ok := wanted[target]; ok {
			continue
		}
		if err := s.q.DeleteLink(ctx, sourceID, target); err != nil {
			return fmt.Errorf("deleting link %s -> %s: %w", sourceID, target, err)
		}
		deleted++
	}
	for _, m := range mentions {
		if _, ok := existing[m.NoteID]; ok {
			continue
		}
		if err := s.q.InsertLink(ctx, sourceID, m.NoteID); err != nil {
			// A mention can outlive its target note; the dangling edge is
			// simply not stored.
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation {
				s.logger.Debug("skipping link to missing note",
					"source_id", sourceID, "target_id", m.NoteID)
				continue
			}
			return fmt.Errorf("inserting link %s -> %s: %w", sourceID, m.NoteID, err)
		}
		inserted++
	}

	if inserted > 0 || deleted > 0 {
		s.logger.Debug("reconciled links",
			"source_id", sourceID, "inserted", inserted, "deleted", deleted)
	}
	return nil
}

// Outlinks returns the notes sourceID references, ordered by target title.
func (s *Synchronizer) Outlinks(ctx context.Context, sourceID uuid.UUID) ([]Outlink, error) {
	out, err := s.q.ListOutlinks(ctx, sourceID)
	if err != nil {
		return nil, fmt.Errorf("listing outlinks for %s: %w", sourceID, err)
	}
	return out, nil
}

// Backlinks returns the notes referencing targetID.
func (s *Synchronizer) Backlinks(ctx context.Context, targetID uuid.UUID) ([]Backlink, error) {
	back, err := s.q.ListBacklinks(ctx, targetID)
	if err != nil {
		return nil, fmt.Errorf("listing backlinks for %s: %w", targetID, err)
	}
	return back, nil
}
