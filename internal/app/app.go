// Package app wires the application together: configuration, database,
// AI provider, domain services, and their lifecycles.
package app

import (
	"log/slog"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/notelace/notelace/internal/answer"
	"github.com/notelace/notelace/internal/config"
	"github.com/notelace/notelace/internal/embedding"
	"github.com/notelace/notelace/internal/enrich"
	"github.com/notelace/notelace/internal/links"
	"github.com/notelace/notelace/internal/notes"
	"github.com/notelace/notelace/internal/search"
)

// App is the application container. Construct with Setup, release with
// Close.
type App struct {
	Config *config.Config
	Logger *slog.Logger

	Genkit   *genkit.Genkit
	Embedder ai.Embedder
	Pool     *pgxpool.Pool

	Notes      *notes.Store
	Links      *links.Synchronizer
	Embeddings *embedding.Service
	Enricher   *enrich.Enricher
	Search     *search.Engine
	Answer     *answer.Engine

	otelCleanup func()
}

// Close shuts down in dependency order: in-flight enrichment drains
// first while the pool is still usable, then the pool and the tracer go.
func (a *App) Close() error {
	a.Logger.Info("shutting down application")

	if a.Enricher != nil {
		a.Enricher.Close()
	}
	if a.Pool != nil {
		a.Pool.Close()
		a.Logger.Debug("database pool closed")
	}
	if a.otelCleanup != nil {
		a.otelCleanup()
	}
	return nil
}
