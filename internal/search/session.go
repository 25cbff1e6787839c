package search

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// Session serializes hybrid queries for one interactive consumer, such as
// a search box that fires a query per keystroke. Each query gets a
// monotonically increasing sequence number; deliveries belonging to a
// query that is no longer the latest are dropped, so a slow semantic
// response for an old query can never overwrite the results of a newer
// one.
type Session struct {
	engine *Engine
	apply  func(Update)

	seq atomic.Uint64

	// mu serializes apply calls across overlapping queries.
	mu sync.Mutex
	wg sync.WaitGroup
}

// NewSession creates a Session delivering updates through apply. apply is
// never called concurrently.
func NewSession(engine *Engine, apply func(Update)) *Session {
	return &Session{engine: engine, apply: apply}
}

// Search starts a hybrid query and returns immediately; results arrive
// asynchronously through the session's apply callback. Starting a new
// query invalidates all in-flight deliveries of previous ones.
func (s *Session) Search(ctx context.Context, query string, categoryID *uuid.UUID) {
	seq := s.seq.Add(1)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		err := s.engine.StreamSearch(ctx, query, categoryID, func(u Update) {
			s.mu.Lock()
			defer s.mu.Unlock()
			if s.seq.Load() != seq {
				return
			}
			s.apply(u)
		})
		if err != nil {
			s.engine.logger.Warn("hybrid search failed", "query", query, "error", err)
		}
	}()
}

// Wait blocks until all in-flight queries have finished. Deliveries for
// superseded queries are dropped, not awaited individually.
func (s *Session) Wait() {
	s.wg.Wait()
}
