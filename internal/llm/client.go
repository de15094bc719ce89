// Package llm bridges the pipeline's Generator and Embedder ports to
// Genkit with the Google AI plugin.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	"google.golang.org/genai"
)

// VectorDimension is the embedding width stored in the corpus schema.
// Must match the vector(768) column in db/migrations/000001_init.up.sql;
// gemini-embedding-001 truncates its 3072-dim default to this via
// OutputDimensionality.
const VectorDimension int32 = 768

// Config configures a Client.
type Config struct {
	// ModelName is the completion model, without provider prefix.
	ModelName string

	// EmbedderModel is the embedding model.
	EmbedderModel string

	// Temperature is passed through to the completion model.
	Temperature float32

	Logger *slog.Logger
}

// Client wraps a Genkit instance for completions and embeddings.
// Safe for concurrent use.
type Client struct {
	g           *genkit.Genkit
	embedder    ai.Embedder
	model       string
	temperature float32
	logger      *slog.Logger
}

// New initializes Genkit with the Google AI plugin. GEMINI_API_KEY must be
// set in the environment; the plugin reads it directly.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	g := genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{}))
	if g == nil {
		return nil, errors.New("initializing genkit with googleai provider")
	}

	embedder := googlegenai.GoogleAIEmbedder(g, cfg.EmbedderModel)
	if embedder == nil {
		return nil, fmt.Errorf("looking up embedder %q", cfg.EmbedderModel)
	}

	cfg.Logger.Info("initialized Genkit with googleai provider",
		"model", cfg.ModelName, "embedder", cfg.EmbedderModel)

	return &Client{
		g:           g,
		embedder:    embedder,
		model:       cfg.ModelName,
		temperature: cfg.Temperature,
		logger:      cfg.Logger,
	}, nil
}

// Generate produces a completion for prompt.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := genkit.Generate(ctx, c.g,
		ai.WithModelName("googleai/"+c.model),
		ai.WithPrompt(prompt),
		ai.WithConfig(map[string]any{"temperature": c.temperature}),
	)
	if err != nil {
		return "", fmt.Errorf("generating response: %w", err)
	}
	return resp.Text(), nil
}

// Embed returns the embedding vector for text, truncated to
// VectorDimension.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := c.embedder.Embed(ctx, embedRequest(text))
	if err != nil {
		return nil, fmt.Errorf("embedding text: %w", err)
	}
	if len(resp.Embeddings) == 0 {
		return nil, errors.New("embedder returned no embeddings")
	}
	return resp.Embeddings[0].Embedding, nil
}

// embedRequest builds the request for one text, pinning the output width
// to the schema's vector dimension.
func embedRequest(text string) *ai.EmbedRequest {
	dim := VectorDimension
	return &ai.EmbedRequest{
		Input: []*ai.Document{
			ai.DocumentFromText(text, nil),
		},
		Options: &genai.EmbedContentConfig{OutputDimensionality: &dim},
	}
}
