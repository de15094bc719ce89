package retrieval

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/pensieve-ai/pensieve/internal/corpus"
	"github.com/pensieve-ai/pensieve/internal/log"
	"github.com/pensieve-ai/pensieve/internal/note"
	"github.com/pensieve-ai/pensieve/internal/query"
)

var retNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

// fakeEmbedder returns a fixed vector or error.
type fakeEmbedder struct {
	vector []float32
	err    error
	texts  []string
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	f.texts = append(f.texts, text)
	if f.err != nil {
		return nil, f.err
	}
	return f.vector, nil
}

// failingChunkIndex always errors.
type failingChunkIndex struct{}

func (failingChunkIndex) ChunksByTags(context.Context, []string, int) ([]note.Chunk, error) {
	return nil, errors.New("index offline")
}

func newRetriever(e Embedder, ci corpus.ChunkIndex) *Retriever {
	return New(Config{
		Embedder: e,
		Chunks:   ci,
		Logger:   log.NewNop(),
		Now:      func() time.Time { return retNow },
	})
}

func TestCosineSimilarity(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{name: "identical", a: []float32{1, 0}, b: []float32{1, 0}, want: 1},
		{name: "orthogonal", a: []float32{1, 0}, b: []float32{0, 1}, want: 0},
		{name: "opposite", a: []float32{1, 0}, b: []float32{-1, 0}, want: -1},
		{name: "zero norm", a: []float32{0, 0}, b: []float32{1, 1}, want: 0},
		{name: "empty", a: nil, b: []float32{1}, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := cosineSimilarity(tt.a, tt.b)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("cosineSimilarity = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestChunkMatches(t *testing.T) {
	t.Parallel()

	parent := note.Note{ID: "n1", Title: "Budget 2025"}
	byID := map[string]note.Note{"n1": parent}

	index := corpus.NewMemory(nil, nil, []note.Chunk{
		{ID: "c1", ParentID: "n1", Content: "Q1 spend was under plan", TagsInBlock: []string{"budget"}},
		{ID: "c2", ParentID: "ghost", Content: "orphan", TagsInBlock: []string{"budget"}},
		{ID: "c3", ParentID: "n1", Content: "unrelated", TagsInBlock: []string{"travel"}},
	}, nil)

	r := newRetriever(&fakeEmbedder{}, index)
	got := r.ChunkMatches(context.Background(), []string{"#Budget"}, byID)

	if len(got) != 1 {
		t.Fatalf("got %d candidates, want 1 (orphan dropped, non-matching tag skipped)", len(got))
	}
	c := got[0]
	if c.Note.ID != "n1" {
		t.Errorf("candidate note = %q, want n1", c.Note.ID)
	}
	if c.Score != 0.95 {
		t.Errorf("score = %v, want 0.95", c.Score)
	}
	if c.Kind != KindChunk {
		t.Errorf("kind = %q, want %q", c.Kind, KindChunk)
	}
	if !strings.HasPrefix(c.Reason, "chunk_tag_match:") || !strings.Contains(c.Reason, "budget") {
		t.Errorf("reason = %q, want chunk_tag_match with normalized tag", c.Reason)
	}
	if c.FocusedContent != "Q1 spend was under plan" {
		t.Errorf("focused content = %q, want the chunk text", c.FocusedContent)
	}
}

func TestChunkMatchesNoTags(t *testing.T) {
	t.Parallel()

	r := newRetriever(&fakeEmbedder{}, corpus.NewMemory(nil, nil, nil, nil))
	if got := r.ChunkMatches(context.Background(), nil, nil); got != nil {
		t.Errorf("expected nil candidates without tags, got %v", got)
	}
}

func TestChunkMatchesIndexErrorDegrades(t *testing.T) {
	t.Parallel()

	r := newRetriever(&fakeEmbedder{}, failingChunkIndex{})
	got := r.ChunkMatches(context.Background(), []string{"budget"}, nil)
	if len(got) != 0 {
		t.Errorf("expected empty result on index error, got %v", got)
	}
}

func TestSemanticScoring(t *testing.T) {
	t.Parallel()

	notes := []note.Note{
		{
			ID: "fresh", Title: "Fresh note",
			Embedding: []float32{1, 0},
			UpdatedAt: retNow.Add(-2 * time.Hour), // +0.15
		},
		{
			ID: "week", Title: "Week-old note",
			Embedding: []float32{1, 0},
			UpdatedAt: retNow.Add(-3 * 24 * time.Hour), // +0.08
		},
		{
			ID: "month", Title: "Month-old note",
			Embedding: []float32{1, 0},
			UpdatedAt: retNow.Add(-20 * 24 * time.Hour), // +0.04
		},
		{
			ID: "ancient", Title: "Ancient note",
			Embedding: []float32{1, 0},
			UpdatedAt: retNow.Add(-90 * 24 * time.Hour), // no boost
		},
		{
			ID: "unembedded", Title: "Unembedded note",
			UpdatedAt: retNow,
		},
	}

	r := newRetriever(&fakeEmbedder{vector: []float32{1, 0}}, nil)
	a := query.Analysis{SearchQuery: "completely unrelated text long enough to skip history"}
	got := r.Semantic(context.Background(), a, nil, notes)

	scores := make(map[string]float64, len(got))
	reasons := make(map[string]string, len(got))
	for _, c := range got {
		scores[c.Note.ID] = c.Score
		reasons[c.Note.ID] = c.Reason
	}

	approx := func(id string, want float64) {
		t.Helper()
		if math.Abs(scores[id]-want) > 1e-9 {
			t.Errorf("score[%s] = %v, want %v", id, scores[id], want)
		}
	}
	approx("fresh", 1.15)
	approx("week", 1.08)
	approx("month", 1.04)
	approx("ancient", 1.0)
	approx("unembedded", 0)

	if reasons["unembedded"] != ReasonNoEmbedding {
		t.Errorf("reason[unembedded] = %q, want %q", reasons["unembedded"], ReasonNoEmbedding)
	}

	// Sorted descending.
	for i := 1; i < len(got); i++ {
		if got[i].Score > got[i-1].Score {
			t.Errorf("candidates not sorted: %v before %v", got[i-1].Score, got[i].Score)
		}
	}
}

func TestSemanticTitleBoost(t *testing.T) {
	t.Parallel()

	notes := []note.Note{
		{
			ID: "alpha", Title: "Project Alpha",
			Embedding: []float32{1, 0},
			UpdatedAt: retNow.Add(-90 * 24 * time.Hour),
		},
	}

	r := newRetriever(&fakeEmbedder{vector: []float32{1, 0}}, nil)
	a := query.Analysis{SearchQuery: "how is project alpha doing this quarter, any updates"}
	got := r.Semantic(context.Background(), a, nil, notes)

	if len(got) != 1 {
		t.Fatalf("got %d candidates, want 1", len(got))
	}
	if math.Abs(got[0].Score-1.3) > 1e-9 {
		t.Errorf("score = %v, want 1.3 (cosine 1.0 + title boost 0.3)", got[0].Score)
	}
}

func TestSemanticTopKTruncation(t *testing.T) {
	t.Parallel()

	notes := make([]note.Note, 0, 25)
	for i := 0; i < 25; i++ {
		notes = append(notes, note.Note{
			ID:        string(rune('a' + i)),
			Embedding: []float32{1, 0},
			UpdatedAt: retNow.Add(-90 * 24 * time.Hour),
		})
	}

	r := newRetriever(&fakeEmbedder{vector: []float32{1, 0}}, nil)
	a := query.Analysis{SearchQuery: "a query long enough to not pull any history turns"}
	got := r.Semantic(context.Background(), a, nil, notes)

	if len(got) != 15 {
		t.Errorf("got %d candidates, want top 15", len(got))
	}
}

func TestSemanticEmbedErrorDegrades(t *testing.T) {
	t.Parallel()

	r := newRetriever(&fakeEmbedder{err: errors.New("quota exceeded")}, nil)
	got := r.Semantic(context.Background(), query.Analysis{SearchQuery: "x"}, nil, []note.Note{{ID: "1"}})
	if len(got) != 0 {
		t.Errorf("expected empty result on embed error, got %v", got)
	}
}

func TestBuildEmbedQuery(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		query   string
		history []string
		want    string
	}{
		{
			name:    "long query ignores history",
			query:   "a query comfortably longer than the short-query threshold is",
			history: []string{"earlier turn"},
			want:    "a query comfortably longer than the short-query threshold is",
		},
		{
			name:    "short query appends last two turns",
			query:   "and yesterday?",
			history: []string{"first", "second", "third"},
			want:    "and yesterday?\nsecond\nthird",
		},
		{
			name:    "short query with no history",
			query:   "status?",
			history: nil,
			want:    "status?",
		},
		{
			name:    "blank history turns skipped",
			query:   "more?",
			history: []string{"useful turn", "   "},
			want:    "more?\nuseful turn",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := buildEmbedQuery(tt.query, tt.history); got != tt.want {
				t.Errorf("buildEmbedQuery = %q, want %q", got, tt.want)
			}
		})
	}
}
