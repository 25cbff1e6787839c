package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/core/tracing"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	"github.com/firebase/genkit/go/plugins/ollama"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/notelace/notelace/db"
	"github.com/notelace/notelace/internal/answer"
	"github.com/notelace/notelace/internal/config"
	"github.com/notelace/notelace/internal/database"
	"github.com/notelace/notelace/internal/embedding"
	"github.com/notelace/notelace/internal/enrich"
	"github.com/notelace/notelace/internal/links"
	"github.com/notelace/notelace/internal/notes"
	"github.com/notelace/notelace/internal/search"
)

// Setup creates and initializes the application. On a setup error
// everything already initialized is released before returning.
func Setup(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *App, retErr error) {
	if logger == nil {
		logger = slog.Default()
	}
	a := &App{Config: cfg, Logger: logger}

	defer func() {
		if retErr != nil {
			if err := a.Close(); err != nil {
				logger.Warn("cleanup during setup failure", "error", err)
			}
		}
	}()

	a.otelCleanup = provideTracing(ctx, cfg, logger)

	pool, err := providePool(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.Pool = pool

	g, embedder, err := provideGenkit(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.Genkit = g
	a.Embedder = embedder

	a.Notes = notes.New(notes.NewQueries(pool), logger)
	a.Embeddings = embedding.New(embedding.NewQueries(pool), embedder, embedOptions(cfg), logger)
	a.Links = links.New(links.NewQueries(pool), logger)
	a.Enricher = enrich.New(a.Embeddings, a.Links, logger)

	a.Search = search.New(
		search.NewLexical(a.Notes),
		search.NewSemantic(a.Embeddings),
		logger,
	)

	generator := answer.NewGenerator(g, qualifiedModelName(cfg))
	a.Answer = answer.New(a.Embeddings, a.Notes, generator, logger)

	return a, nil
}

// providePool runs migrations and opens the connection pool.
func providePool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	if err := db.Migrate(cfg.PostgresURL()); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return database.Connect(ctx, cfg.PostgresConnectionString())
}

// provideGenkit initializes genkit with the configured AI provider and
// returns the embedder the provider registers.
func provideGenkit(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*genkit.Genkit, ai.Embedder, error) {
	switch cfg.Provider {
	case config.ProviderOllama:
		ollamaPlugin := &ollama.Ollama{ServerAddress: cfg.OllamaHost}
		g := genkit.Init(ctx, genkit.WithPlugins(ollamaPlugin))
		if g == nil {
			return nil, nil, errors.New("initializing genkit with ollama provider")
		}
		// Ollama has no auto-discovery; models register explicitly.
		ollamaPlugin.DefineModel(g, ollama.ModelDefinition{
			Name: cfg.ModelName,
			Type: "chat",
		}, nil)
		ollamaPlugin.DefineEmbedder(g, cfg.OllamaHost, cfg.EmbedderModel, nil)
		logger.Info("initialized genkit with ollama provider",
			"model", cfg.ModelName, "host", cfg.OllamaHost)
		return g, ollama.Embedder(g, cfg.OllamaHost), nil

	default: // gemini
		g := genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{}))
		if g == nil {
			return nil, nil, errors.New("initializing genkit with gemini provider")
		}
		logger.Info("initialized genkit with gemini provider", "model", cfg.ModelName)
		return g, googlegenai.GoogleAIEmbedder(g, cfg.EmbedderModel), nil
	}
}

// embedOptions returns the provider-specific embed request options.
// Gemini embedding models emit 3072-dimensional vectors unless truncated
// to the schema's width; Ollama embedders emit their native size and take
// no request options.
func embedOptions(cfg *config.Config) any {
	if cfg.Provider == config.ProviderOllama {
		return nil
	}
	return embedding.GeminiEmbedOptions()
}

// qualifiedModelName prefixes the configured model with its genkit
// provider namespace.
func qualifiedModelName(cfg *config.Config) string {
	if cfg.Provider == config.ProviderOllama {
		return "ollama/" + cfg.ModelName
	}
	return "googleai/" + cfg.ModelName
}

// provideTracing exports spans over OTLP HTTP to the configured collector.
// With no endpoint configured tracing stays off and the cleanup is a
// no-op.
func provideTracing(ctx context.Context, cfg *config.Config, logger *slog.Logger) func() {
	if cfg.TraceEndpoint == "" {
		return func() {}
	}

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(cfg.TraceEndpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		logger.Warn("creating trace exporter, tracing disabled", "error", err)
		return func() {}
	}

	processor := sdktrace.NewBatchSpanProcessor(exporter)
	tracing.TracerProvider().RegisterSpanProcessor(processor)

	logger.Debug("tracing enabled",
		"endpoint", cfg.TraceEndpoint,
		"service", cfg.ServiceName,
		"environment", cfg.Environment,
	)

	shutdown := tracing.TracerProvider().Shutdown
	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			logger.Warn("shutting down tracer provider", "error", err)
		}
	}
}
