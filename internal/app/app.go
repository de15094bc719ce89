// Package app wires configuration, storage, the model client and the
// assistant into a runnable application.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/time/rate"

	"github.com/pensieve-ai/pensieve/db"
	"github.com/pensieve-ai/pensieve/internal/assistant"
	"github.com/pensieve-ai/pensieve/internal/config"
	"github.com/pensieve-ai/pensieve/internal/contextcache"
	"github.com/pensieve-ai/pensieve/internal/corpus"
	"github.com/pensieve-ai/pensieve/internal/llm"
	"github.com/pensieve-ai/pensieve/internal/log"
)

// completionsPerSecond throttles outbound model calls.
const completionsPerSecond = 2

// App holds the wired application.
type App struct {
	Config    *config.Config
	Logger    log.Logger
	Store     *corpus.Postgres
	Client    *llm.Client
	Assistant *assistant.Assistant
}

// Setup loads configuration, migrates and connects the database,
// initializes the model client and builds the assistant.
func Setup(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	return SetupWithConfig(ctx, cfg)
}

// SetupWithConfig wires the application from an already validated config.
func SetupWithConfig(ctx context.Context, cfg *config.Config) (*App, error) {
	logger := log.New(log.Config{
		Level: parseLevel(cfg.LogLevel),
		JSON:  cfg.LogJSON,
	})

	if err := db.Migrate(cfg.PostgresURL(), logger); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	store, err := corpus.NewPostgres(ctx, cfg.PostgresConnectionString(), logger)
	if err != nil {
		return nil, fmt.Errorf("connecting to corpus store: %w", err)
	}

	client, err := llm.New(ctx, llm.Config{
		ModelName:     cfg.ModelName,
		EmbedderModel: cfg.EmbedderModel,
		Temperature:   cfg.Temperature,
		Logger:        logger,
	})
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("initializing model client: %w", err)
	}

	asst, err := assistant.New(assistant.Config{
		Corpus:    store,
		Chunks:    store,
		Calendar:  store,
		Generator: client,
		Embedder:  client,
		Cache:     contextcache.New(contextcache.Config{}),
		Logger:    logger,
		Limiter:   rate.NewLimiter(rate.Limit(completionsPerSecond), 1),
	})
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("building assistant: %w", err)
	}

	return &App{
		Config:    cfg,
		Logger:    logger,
		Store:     store,
		Client:    client,
		Assistant: asst,
	}, nil
}

// Close releases held resources.
func (a *App) Close() {
	if a.Store != nil {
		a.Store.Close()
	}
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
