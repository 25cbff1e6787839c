// Package enrich is the error boundary between note writes and their
// derived artifacts. Saving or deleting a note triggers embedding and link
// maintenance in the background; those never delay or fail the write that
// triggered them. A note whose enrichment failed is merely missing from
// semantic search until its next save.
package enrich

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// dispatchTimeout bounds one background enrichment run. The embedding
// call dominates; anything slower than this is not worth finishing.
const dispatchTimeout = 30 * time.Second

// EmbeddingWriter maintains the vector for a note.
type EmbeddingWriter interface {
	Upsert(ctx context.Context, noteID uuid.UUID, title string, content []byte) error
	Delete(ctx context.Context, noteID uuid.UUID) error
}

// LinkReconciler maintains the mention edges of a note.
type LinkReconciler interface {
	Reconcile(ctx context.Context, sourceID uuid.UUID, content []byte) error
}

// Enricher runs derived-artifact maintenance in the background. It is safe
// for concurrent use by multiple goroutines.
type Enricher struct {
	embeddings EmbeddingWriter
	links      LinkReconciler
	logger     *slog.Logger
	wg         sync.WaitGroup
}

// New creates an Enricher. logger may be nil, in which case slog.Default()
// applies.
func New(embeddings EmbeddingWriter, links LinkReconciler, logger *slog.Logger) *Enricher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Enricher{embeddings: embeddings, links: links, logger: logger}
}

// NoteSaved schedules embedding regeneration and link reconciliation for a
// saved note and returns immediately. Failures are logged, never
// propagated; the note itself is already durably stored.
func (e *Enricher) NoteSaved(noteID uuid.UUID, title string, content []byte) {
	e.dispatch("note saved", noteID, func(ctx context.Context) {
		if err := e.embeddings.Upsert(ctx, noteID, title, content); err != nil {
			e.logger.Warn("embedding upsert failed", "note_id", noteID, "error", err)
		}
		if err := e.links.Reconcile(ctx, noteID, content); err != nil {
			e.logger.Warn("link reconciliation failed", "note_id", noteID, "error", err)
		}
	})
}

// NoteDeleted schedules removal of the note's embedding. Link edges vanish
// with the note row via the storage layer's referential cascade, so only
// the vector needs explicit cleanup.
func (e *Enricher) NoteDeleted(noteID uuid.UUID) {
	e.dispatch("note deleted", noteID, func(ctx context.Context) {
		if err := e.embeddings.Delete(ctx, noteID); err != nil {
			e.logger.Warn("embedding delete failed", "note_id", noteID, "error", err)
		}
	})
}

// dispatch runs fn on its own goroutine with a detached, bounded context.
// The request context that triggered the enrichment must not cancel it:
// the HTTP response returns long before the embedding call finishes.
func (e *Enricher) dispatch(event string, noteID uuid.UUID, fn func(ctx context.Context)) {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				e.logger.Error("enrichment panicked", "event", event, "note_id", noteID, "panic", r)
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), dispatchTimeout)
		defer cancel()
		fn(ctx)
	}()
}

// Close waits for all in-flight enrichment runs to finish. Called on
// shutdown so a final save's embedding still lands.
func (e *Enricher) Close() {
	e.wg.Wait()
}
