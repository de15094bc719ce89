package retrieval

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/pensieve-ai/pensieve/internal/corpus"
	"github.com/pensieve-ai/pensieve/internal/note"
	"github.com/pensieve-ai/pensieve/internal/query"
)

// Embedder is the slice of the embedding service retrieval needs.
// Defined by the consumer; the app wires a genkit-backed implementation.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Retrieval policy constants. These mirror the behavior of the production
// system and are not derived from anything.
const (
	// chunkScore is the fixed score for an exact chunk/tag hit.
	chunkScore = 0.95

	// chunkQueryLimit bounds one chunk index query.
	chunkQueryLimit = 20

	// semanticTopK is how many similarity-scored notes survive.
	semanticTopK = 15

	// Recency boosts, mutually exclusive, checked in this order.
	boostLastDay    = 0.15
	boostLast7Days  = 0.08
	boostLast30Days = 0.04

	// titleBoost applies when the note's title appears verbatim in the
	// embedding query.
	titleBoost = 0.3

	// shortQueryRunes is the length under which recent conversation turns
	// are appended to the embedding query for extra signal.
	shortQueryRunes = 40

	// maxHistoryTurns is how many recent user turns may be appended.
	maxHistoryTurns = 2
)

// Retriever runs the two candidate-producing strategies.
type Retriever struct {
	embedder Embedder
	chunks   corpus.ChunkIndex
	logger   *slog.Logger
	now      func() time.Time
}

// Config configures a Retriever.
type Config struct {
	Embedder Embedder
	Chunks   corpus.ChunkIndex
	Logger   *slog.Logger

	// Now overrides the clock, for tests. nil means time.Now.
	Now func() time.Time
}

// New creates a Retriever.
func New(cfg Config) *Retriever {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Retriever{
		embedder: cfg.Embedder,
		chunks:   cfg.Chunks,
		logger:   cfg.Logger,
		now:      cfg.Now,
	}
}

// ChunkMatches runs the exact chunk/tag strategy: chunks whose block tags
// intersect the reconciled tag list become candidates at a fixed high
// score, carrying only the chunk's own text as focused content. Chunks
// whose parent note no longer resolves are dropped.
//
// Index errors degrade to an empty result; the caller falls through to the
// semantic strategy.
func (r *Retriever) ChunkMatches(ctx context.Context, tags []string, byID map[string]note.Note) []Candidate {
	if len(tags) == 0 || r.chunks == nil {
		return nil
	}

	normalized := make([]string, 0, len(tags))
	for _, t := range tags {
		if nt := note.NormalizeTag(t); nt != "" {
			normalized = append(normalized, nt)
		}
	}
	if len(normalized) == 0 {
		return nil
	}

	chunks, err := r.chunks.ChunksByTags(ctx, normalized, chunkQueryLimit)
	if err != nil {
		r.logger.Warn("chunk index query failed (continuing without chunk hits)",
			"error", err, "tags", normalized)
		return nil
	}

	reason := "chunk_tag_match:" + strings.Join(normalized, ",")
	out := make([]Candidate, 0, len(chunks))
	for _, c := range chunks {
		parent, ok := byID[c.ParentID]
		if !ok {
			r.logger.Debug("dropping orphan chunk", "chunk_id", c.ID, "parent_id", c.ParentID)
			continue
		}
		out = append(out, Candidate{
			Note:           parent,
			Score:          chunkScore,
			Kind:           KindChunk,
			Reason:         reason,
			FocusedContent: c.Content,
		})
	}

	if len(out) > 0 {
		r.logger.Debug("chunk strategy produced candidates", "count", len(out))
	}
	return out
}

// Semantic runs the embedding similarity strategy over the filtered notes:
// cosine similarity against the query vector, plus recency and
// title-mention boosts, keeping the top candidates by score.
//
// recentUserInputs are the user's latest turns, newest last; they are
// appended to very short queries so follow-ups like "and yesterday?" still
// embed something meaningful. Embedding failures degrade to an empty list.
func (r *Retriever) Semantic(ctx context.Context, a query.Analysis, recentUserInputs []string, notes []note.Note) []Candidate {
	embedQuery := buildEmbedQuery(a.SearchQuery, recentUserInputs)

	vector, err := r.embedder.Embed(ctx, embedQuery)
	if err != nil {
		r.logger.Warn("query embedding failed (continuing without semantic hits)",
			"error", err, "query_length", len(embedQuery))
		return nil
	}

	now := r.now()
	queryLower := strings.ToLower(embedQuery)

	out := make([]Candidate, 0, len(notes))
	for _, n := range notes {
		if len(n.Embedding) == 0 {
			out = append(out, Candidate{Note: n, Kind: KindSemantic, Reason: ReasonNoEmbedding})
			continue
		}

		score := cosineSimilarity(vector, n.Embedding)
		score += recencyBoost(now.Sub(n.UpdatedAt))
		if n.Title != "" && strings.Contains(queryLower, strings.ToLower(n.Title)) {
			score += titleBoost
		}

		out = append(out, Candidate{
			Note:   n,
			Score:  score,
			Kind:   KindSemantic,
			Reason: "semantic",
		})
	}

	slices.SortStableFunc(out, func(a, b Candidate) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		default:
			return 0
		}
	})
	if len(out) > semanticTopK {
		out = out[:semanticTopK]
	}

	r.logger.Debug("semantic strategy produced candidates", "count", len(out))
	return out
}

// recencyBoost rewards recently updated notes. Windows are exclusive and
// checked most-recent first.
func recencyBoost(age time.Duration) float64 {
	switch {
	case age <= 24*time.Hour:
		return boostLastDay
	case age <= 7*24*time.Hour:
		return boostLast7Days
	case age <= 30*24*time.Hour:
		return boostLast30Days
	default:
		return 0
	}
}

// buildEmbedQuery augments very short queries with the most recent user
// turns, newest last, so the embedding has enough signal to work with.
func buildEmbedQuery(searchQuery string, recentUserInputs []string) string {
	if len([]rune(searchQuery)) >= shortQueryRunes || len(recentUserInputs) == 0 {
		return searchQuery
	}

	start := len(recentUserInputs) - maxHistoryTurns
	if start < 0 {
		start = 0
	}

	parts := []string{searchQuery}
	for _, turn := range recentUserInputs[start:] {
		if turn = strings.TrimSpace(turn); turn != "" {
			parts = append(parts, turn)
		}
	}
	return strings.Join(parts, "\n")
}
