// Package rank deduplicates candidates produced by the retrieval strategies
// and graph expansion, merges focused content fragments for notes reached
// more than once, and truncates the result to the context budget.
package rank

import (
	"slices"

	"github.com/pensieve-ai/pensieve/internal/retrieval"
)

// MaxContextNotes bounds how many ranked notes go into the prompt,
// regardless of how many candidates the earlier stages produced.
const MaxContextNotes = 30

// FragmentSeparator joins focused-content fragments when the same note was
// reached through more than one chunk.
const FragmentSeparator = "\n\n[...]\n\n"

// MergeAndRank deduplicates primary and expanded candidates by note ID,
// sorts descending by score, and truncates to MaxContextNotes. It is pure:
// inputs are not modified.
//
// Dedup iterates primary first, then expanded. The first occurrence of a
// note is kept as-is. A later occurrence only matters when it carries
// focused content: if the kept entry has none yet, the fragment is adopted
// and the score raised to the max of the two; if it already has some, the
// new fragment is appended under a separator and the score left alone.
// Later occurrences without focused content change nothing.
func MergeAndRank(primary, expanded []retrieval.Candidate) []retrieval.Candidate {
	merged := make(map[string]*retrieval.Candidate, len(primary)+len(expanded))
	order := make([]string, 0, len(primary)+len(expanded))

	absorb := func(c retrieval.Candidate) {
		id := c.Note.ID
		kept, seen := merged[id]
		if !seen {
			cp := c
			merged[id] = &cp
			order = append(order, id)
			return
		}
		if c.FocusedContent == "" {
			return
		}
		if kept.FocusedContent == "" {
			kept.FocusedContent = c.FocusedContent
			if c.Score > kept.Score {
				kept.Score = c.Score
			}
			return
		}
		kept.FocusedContent += FragmentSeparator + c.FocusedContent
	}

	for _, c := range primary {
		absorb(c)
	}
	for _, c := range expanded {
		absorb(c)
	}

	out := make([]retrieval.Candidate, 0, len(order))
	for _, id := range order {
		out = append(out, *merged[id])
	}

	slices.SortStableFunc(out, func(a, b retrieval.Candidate) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		default:
			return 0
		}
	})

	if len(out) > MaxContextNotes {
		out = out[:MaxContextNotes]
	}
	return out
}
