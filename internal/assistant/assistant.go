// Package assistant runs the full question-answering pipeline: route the
// query, reconcile and apply filters, retrieve and expand candidates, rank
// them, serialize the context and ask the model for a grounded answer.
package assistant

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/pensieve-ai/pensieve/internal/contextcache"
	"github.com/pensieve-ai/pensieve/internal/corpus"
	"github.com/pensieve-ai/pensieve/internal/query"
	"github.com/pensieve-ai/pensieve/internal/retrieval"
)

// Generator produces a chat completion for a fully assembled prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// RetryNotify is called before each retry wait with the attempt that just
// failed, the upcoming delay and the failure classification.
type RetryNotify func(attempt int, delay time.Duration, reason string)

// Config wires an Assistant's dependencies.
type Config struct {
	Corpus    corpus.Store
	Chunks    corpus.ChunkIndex
	Calendar  corpus.Calendar
	Generator Generator
	Embedder  retrieval.Embedder
	Cache     *contextcache.Cache
	Logger    *slog.Logger

	// Limiter throttles model calls. nil disables throttling.
	Limiter *rate.Limiter

	// OnRetry observes completion retries. Optional.
	OnRetry RetryNotify

	// Now overrides the clock, for tests. nil means time.Now.
	Now func() time.Time

	// Sleep overrides the retry wait, for tests. nil means a real wait.
	Sleep func(ctx context.Context, d time.Duration) error
}

func (c Config) validate() error {
	switch {
	case c.Corpus == nil:
		return errors.New("assistant: corpus store is required")
	case c.Generator == nil:
		return errors.New("assistant: generator is required")
	case c.Embedder == nil:
		return errors.New("assistant: embedder is required")
	case c.Cache == nil:
		return errors.New("assistant: context cache is required")
	}
	return nil
}

// Assistant answers questions grounded in the note corpus.
type Assistant struct {
	store     corpus.Store
	calendar  corpus.Calendar
	generator Generator
	cache     *contextcache.Cache
	router    *query.Router
	retriever *retrieval.Retriever
	logger    *slog.Logger
	limiter   *rate.Limiter
	onRetry   RetryNotify
	now       func() time.Time
	sleep     func(ctx context.Context, d time.Duration) error

	// currentReq guards cache writes: a slow request that finished after a
	// newer one started must not overwrite the newer request's context.
	mu         sync.Mutex
	currentReq uuid.UUID
}

// New creates an Assistant from cfg.
func New(cfg Config) (*Assistant, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Sleep == nil {
		cfg.Sleep = func(ctx context.Context, d time.Duration) error {
			timer := time.NewTimer(d)
			defer timer.Stop()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-timer.C:
				return nil
			}
		}
	}
	return &Assistant{
		store:     cfg.Corpus,
		calendar:  cfg.Calendar,
		generator: cfg.Generator,
		cache:     cfg.Cache,
		router:    query.NewRouter(cfg.Generator, cfg.Logger),
		retriever: retrieval.New(retrieval.Config{
			Embedder: cfg.Embedder,
			Chunks:   cfg.Chunks,
			Logger:   cfg.Logger,
			Now:      cfg.Now,
		}),
		logger:  cfg.Logger,
		limiter: cfg.Limiter,
		onRetry: cfg.OnRetry,
		now:     cfg.Now,
		sleep:   cfg.Sleep,
	}, nil
}
