package query

import (
	"strings"
)

// minRecoveredTitleWords is the minimum word count for a corpus title to be
// recovered as a tag when the router guessed none. Single-word titles match
// too many ordinary query words to be useful.
const minRecoveredTitleWords = 2

// ReconcileTags corrects the router's tag guesses against actual corpus
// titles, mutating a.Filters.Tags in place. The router classifies without
// any grounding in the corpus; this is the cheap deterministic correction
// layer that fixes its spelling of entities the user actually has.
//
// With guesses present, each guess is replaced by the first title that
// passes any of four lowercase containment tests: exact equality, title
// contains guess, guess contains title, or the raw query contains the title
// verbatim. First match in corpus iteration order wins — deliberately not
// best-match-by-length, so results stay identical across runs regardless of
// how close the runner-up was. Unmatched guesses are kept verbatim.
//
// With no guesses at all, every multi-word title appearing as a substring of
// the lowercased raw query or cleaned search query becomes a tag. This
// recovers named-entity references the router missed entirely.
func ReconcileTags(a *Analysis, rawQuery string, titles []string) {
	rawLower := strings.ToLower(rawQuery)

	if len(a.Filters.Tags) > 0 {
		reconciled := make([]string, 0, len(a.Filters.Tags))
		for _, guess := range a.Filters.Tags {
			reconciled = append(reconciled, matchGuess(guess, rawLower, titles))
		}
		a.Filters.Tags = reconciled
		return
	}

	searchLower := strings.ToLower(a.SearchQuery)
	for _, title := range titles {
		t := strings.ToLower(strings.TrimSpace(title))
		if t == "" || len(strings.Fields(t)) < minRecoveredTitleWords {
			continue
		}
		if strings.Contains(rawLower, t) || strings.Contains(searchLower, t) {
			a.Filters.Tags = append(a.Filters.Tags, title)
		}
	}
}

// matchGuess finds the first corpus title matching the guess, or returns the
// guess unchanged.
func matchGuess(guess, rawLower string, titles []string) string {
	g := strings.ToLower(strings.TrimSpace(guess))
	if g == "" {
		return guess
	}
	for _, title := range titles {
		t := strings.ToLower(strings.TrimSpace(title))
		if t == "" {
			continue
		}
		if t == g || strings.Contains(t, g) || strings.Contains(g, t) || strings.Contains(rawLower, t) {
			return title
		}
	}
	return guess
}
