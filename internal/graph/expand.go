// Package graph widens a candidate set by one hop along the note link
// graph: notes linked from (or backlinking to) a strong candidate are
// usually relevant context even when they match nothing in the query
// themselves.
package graph

import (
	"github.com/pensieve-ai/pensieve/internal/note"
	"github.com/pensieve-ai/pensieve/internal/retrieval"
)

// Expansion policy constants.
const (
	// ExpandThreshold gates which candidates are worth expanding. Only
	// scores strictly above it produce neighbors.
	ExpandThreshold = 0.75

	// linkDiscount scores an outgoing-link neighbor relative to its source.
	linkDiscount = 0.9

	// backlinkDiscount scores a backlink neighbor relative to its source.
	backlinkDiscount = 0.85
)

// Provenance reasons attached to expansion candidates.
const (
	ReasonLinked   = "linked_to_result"
	ReasonBacklink = "backlink_to_result"
)

// Expand returns additional candidates reached by exactly one hop from the
// high-scoring members of candidates. The input is not modified and its
// members are not re-scored.
//
// The processed set starts as the input candidate IDs and grows as
// neighbors are added, so a note reachable from two sources is added once,
// at whichever discounted score arrives first. Expanded notes are not
// themselves expanded. Link IDs that do not resolve in the corpus are
// skipped.
func Expand(candidates []retrieval.Candidate, byID map[string]note.Note) []retrieval.Candidate {
	processed := make(map[string]struct{}, len(candidates))
	for _, c := range candidates {
		processed[c.Note.ID] = struct{}{}
	}

	var out []retrieval.Candidate
	for _, c := range candidates {
		if c.Score <= ExpandThreshold {
			continue
		}
		out = appendNeighbors(out, processed, c.Note.Links, byID,
			c.Score*linkDiscount, retrieval.KindLinked, ReasonLinked)
		out = appendNeighbors(out, processed, c.Note.Backlinks, byID,
			c.Score*backlinkDiscount, retrieval.KindBacklink, ReasonBacklink)
	}
	return out
}

func appendNeighbors(out []retrieval.Candidate, processed map[string]struct{}, ids []string, byID map[string]note.Note, score float64, kind retrieval.Kind, reason string) []retrieval.Candidate {
	for _, id := range ids {
		if _, seen := processed[id]; seen {
			continue
		}
		n, ok := byID[id]
		if !ok {
			continue
		}
		processed[id] = struct{}{}
		out = append(out, retrieval.Candidate{
			Note:   n,
			Score:  score,
			Kind:   kind,
			Reason: reason,
		})
	}
	return out
}
