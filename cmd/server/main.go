package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/stupiduntilnot/chatrelay/internal/api"
	"github.com/stupiduntilnot/chatrelay/internal/chat"
	"github.com/stupiduntilnot/chatrelay/internal/config"
	"github.com/stupiduntilnot/chatrelay/internal/dummy"
	"github.com/stupiduntilnot/chatrelay/internal/history"
	"github.com/stupiduntilnot/chatrelay/internal/logging"
	modelpkg "github.com/stupiduntilnot/chatrelay/internal/model"
	"github.com/stupiduntilnot/chatrelay/internal/openai"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.IsDevelopment(), cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("server failed")
	}
}

func run(ctx context.Context, cfg config.Config, logger zerolog.Logger) error {
	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	// The router needs an untyped nil when persistence is off.
	var pinger api.Pinger
	if store != nil {
		defer store.Close()
		pinger = store
	}

	provider, err := newModelProvider(cfg, logger)
	if err != nil {
		return err
	}
	svc := chat.NewService(store, provider, chat.Options{
		UseContext:   cfg.UseContext,
		MaxHistory:   cfg.MaxHistory,
		SystemPrompt: cfg.SystemPrompt,
	}, logger)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      api.NewRouter(logger, svc, pinger),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().
			Str("port", cfg.Port).
			Str("env", cfg.Env).
			Str("model", cfg.Model).
			Bool("dry_run", cfg.DryRun).
			Bool("persistence", store != nil).
			Bool("use_context", cfg.UseContext).
			Int("max_history", cfg.MaxHistory).
			Msg("starting chatrelay server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info().Msg("server stopped")
	return nil
}

// openStore returns nil without error when persistence is disabled.
func openStore(ctx context.Context, cfg config.Config, logger zerolog.Logger) (history.Store, error) {
	if !cfg.EnableDB {
		logger.Warn().Msg("persistence disabled; history endpoints are stateless")
		return nil, nil
	}
	store, err := history.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("open history store: %w", err)
	}
	logger.Info().Msg("history store ready")
	return store, nil
}

// newModelProvider picks the dry-run provider whenever OPENAI_DRYRUN is on.
// DRYRUN_SCRIPT, when set, scripts its replies.
func newModelProvider(cfg config.Config, logger zerolog.Logger) (modelpkg.Provider, error) {
	if cfg.DryRun {
		p, err := dummy.NewProvider(cfg.DryRunScript)
		if err != nil {
			return nil, fmt.Errorf("DRYRUN_SCRIPT: %w", err)
		}
		return p, nil
	}
	if cfg.OpenAIAPIKey == "" {
		logger.Warn().Msg("OPENAI_API_KEY is empty; every ask will fail with upstream_error")
	}
	return openai.NewClient(openai.Options{
		APIKey:    cfg.OpenAIAPIKey,
		URL:       cfg.OpenAIChatCompURL,
		Model:     cfg.Model,
		MaxTokens: cfg.MaxTokensOutput,
		Logger:    logger,
	}), nil
}
