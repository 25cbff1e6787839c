// Package api exposes the notes knowledge base over HTTP:
//
//	GET    /health                      liveness probe
//	GET    /ready                       readiness probe (pings the database)
//	POST   /api/notes                   create note
//	GET    /api/notes/{id}              fetch note
//	PUT    /api/notes/{id}              update note
//	DELETE /api/notes/{id}              delete note
//	GET    /api/notes/{id}/outlinks     notes this note references
//	GET    /api/notes/{id}/backlinks    notes referencing this note
//	GET    /api/categories              list categories
//	GET    /api/search                  hybrid search (?q=&category=)
//	POST   /api/ask                     grounded question answering
//	GET    /api/questions/suggested     questions to seed an empty chat
//	POST   /api/questions/followups     follow-ups for an exchange
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	// DefaultAddr is the default listen address.
	DefaultAddr = "127.0.0.1:3900"

	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	ShutdownTimeout = 10 * time.Second

	// ReadHeaderTimeout bounds header reads so slow clients cannot hold
	// connections open indefinitely.
	ReadHeaderTimeout = 10 * time.Second

	// ReadTimeout is the maximum duration for reading the entire request.
	ReadTimeout = 30 * time.Second

	// WriteTimeout is the maximum duration for writing the response. Ask
	// requests include a model round trip, so this is generous.
	WriteTimeout = 60 * time.Second

	// IdleTimeout applies to keep-alive connections between requests.
	IdleTimeout = 120 * time.Second
)

// Server routes HTTP requests to the domain services.
type Server struct {
	mux    *http.ServeMux
	logger *slog.Logger

	health *HealthHandler
	notes  *NotesHandler
	search *SearchHandler
	ask    *AskHandler
}

// NewServer creates a server with all routes registered. logger may be
// nil, in which case slog.Default() applies.
func NewServer(pool *pgxpool.Pool, store NoteStore, graph LinkReader, notifier Notifier, searcher Searcher, asker Asker, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	mux := http.NewServeMux()

	s := &Server{
		mux:    mux,
		logger: logger,
		health: NewHealthHandler(pool, logger),
		notes:  NewNotesHandler(store, graph, notifier, logger),
		search: NewSearchHandler(searcher, logger),
		ask:    NewAskHandler(asker, logger),
	}

	s.health.RegisterRoutes(mux)
	s.notes.RegisterRoutes(mux)
	s.search.RegisterRoutes(mux)
	s.ask.RegisterRoutes(mux)

	return s
}

// Handler returns the full handler chain: recovery → logging → routes.
func (s *Server) Handler() http.Handler {
	return chain(s.mux,
		recoveryMiddleware(s.logger),
		loggingMiddleware(s.logger),
	)
}

// Run serves HTTP on addr and blocks until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	if addr == "" {
		addr = DefaultAddr
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: ReadHeaderTimeout,
		ReadTimeout:       ReadTimeout,
		WriteTimeout:      WriteTimeout,
		IdleTimeout:       IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}
