// Package retrieval produces scored note candidates for a routed query.
// Two strategies feed the pipeline: exact chunk/tag lookup against the
// secondary index, and embedding similarity with recency and title boosts
// over the filtered corpus. Both degrade to an empty candidate list on
// failure — retrieval errors never abort a chat turn.
package retrieval

import "github.com/pensieve-ai/pensieve/internal/note"

// Kind tags how a candidate was produced, so downstream merge logic can
// branch on provenance instead of sniffing optional fields.
type Kind string

// Candidate provenance kinds.
const (
	KindCached   Kind = "cached"
	KindChunk    Kind = "chunk"
	KindSemantic Kind = "semantic"
	KindLinked   Kind = "linked"
	KindBacklink Kind = "backlink"
)

// Candidate is a note with a relevance score and provenance. Scores are
// unbounded; only relative order matters, apart from the fixed policy
// thresholds in the graph and assemble packages.
type Candidate struct {
	Note   note.Note
	Score  float64
	Kind   Kind
	Reason string // human-readable provenance for diagnostics

	// FocusedContent, when set, replaces the note's full content in the
	// serialized block: a chunk hit carries only the matching excerpt.
	FocusedContent string
}

// Scores and reasons assigned by non-strategy stages.
const (
	// CachedScore is the fixed score for candidates resolved from cache.
	CachedScore = 1.0

	// ReasonCached marks candidates resolved from a cache hit.
	ReasonCached = "cached"

	// ReasonNoEmbedding marks notes that could not be scored for
	// similarity because they have no stored vector.
	ReasonNoEmbedding = "no_embedding"
)

// FromCache converts a cached note-ID list back into candidates, dropping
// IDs that no longer resolve in the corpus (the note was deleted since the
// entry was written).
func FromCache(noteIDs []string, byID map[string]note.Note) []Candidate {
	out := make([]Candidate, 0, len(noteIDs))
	for _, id := range noteIDs {
		n, ok := byID[id]
		if !ok {
			continue
		}
		out = append(out, Candidate{
			Note:   n,
			Score:  CachedScore,
			Kind:   KindCached,
			Reason: ReasonCached,
		})
	}
	return out
}
