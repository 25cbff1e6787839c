package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/notelace/notelace/api"
	"github.com/notelace/notelace/internal/app"
	"github.com/notelace/notelace/internal/config"
	"github.com/notelace/notelace/internal/log"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE:  runServe,
}

var serveAddr string

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}

	logger := newLogger()
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger.Info("starting notelace", "version", AppVersion)

	a, err := app.Setup(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			logger.Warn("shutdown error", "error", closeErr)
		}
	}()

	srv := api.NewServer(a.Pool, a.Notes, a.Links, a.Enricher, a.Search, a.Answer, logger)

	addr := serveAddr
	if addr == "" {
		addr = cfg.ListenAddr
	}
	return srv.Run(ctx, addr)
}

// newLogger builds the process logger from the environment.
// NOTELACE_LOG_LEVEL selects the level, NOTELACE_LOG_JSON switches to JSON
// output for log shippers.
func newLogger() *slog.Logger {
	level := slog.LevelInfo
	switch os.Getenv("NOTELACE_LOG_LEVEL") {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	return log.New(log.Config{
		Level: level,
		JSON:  os.Getenv("NOTELACE_LOG_JSON") == "true",
	})
}
