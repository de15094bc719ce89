package query

import (
	"strings"
	"time"

	"github.com/pensieve-ai/pensieve/internal/note"
)

// Hours per recency window.
const (
	last7DaysHours  = 7 * 24
	last30DaysHours = 30 * 24
)

// Filter applies the structured filters to the corpus and returns the
// surviving notes. Filters are conjunctive: a note must pass every
// configured filter.
//
// If the combined filters eliminate every note, Filter returns the whole
// corpus unfiltered — an overzealous filter must never leave the pipeline
// with no context at all.
func Filter(corpus []note.Note, f Filters, registry []note.ObjectType, now time.Time) []note.Note {
	if f.Type == "" && f.DateRange == DateRangeNone && len(f.Tags) == 0 {
		return corpus
	}

	titleByID := make(map[string]string, len(corpus))
	for _, n := range corpus {
		titleByID[n.ID] = n.Title
	}

	typeID, typeResolved := resolveType(f.Type, registry)

	normTags := make([]string, 0, len(f.Tags))
	for _, t := range f.Tags {
		if nt := note.NormalizeTag(t); nt != "" {
			normTags = append(normTags, nt)
		}
	}

	var out []note.Note
	for _, n := range corpus {
		if f.Type != "" && !matchesType(n, f.Type, typeID, typeResolved) {
			continue
		}
		if !matchesDateRange(n, f.DateRange, now) {
			continue
		}
		if len(normTags) > 0 && !matchesTags(n, normTags, titleByID) {
			continue
		}
		out = append(out, n)
	}

	if len(out) == 0 {
		return corpus
	}
	return out
}

// resolveType matches the filter's type name against the registry by
// case-insensitive equality on singular or plural display name. Returns the
// resolved type id and whether resolution succeeded.
func resolveType(name string, registry []note.ObjectType) (string, bool) {
	if name == "" {
		return "", false
	}
	lower := strings.ToLower(name)
	for _, t := range registry {
		if strings.ToLower(t.Name) == lower || strings.ToLower(t.Plural) == lower {
			return t.ID, true
		}
	}
	return "", false
}

// matchesType keeps notes of the resolved type id; when the registry could
// not resolve the name, it falls back to a case-insensitive substring match
// against the raw type id.
func matchesType(n note.Note, rawType, typeID string, resolved bool) bool {
	if resolved {
		return n.Type == typeID
	}
	return strings.Contains(strings.ToLower(n.Type), strings.ToLower(rawType))
}

// matchesDateRange keeps notes updated within the requested window.
func matchesDateRange(n note.Note, dr DateRange, now time.Time) bool {
	switch dr {
	case DateRangeLast7Days:
		return now.Sub(n.UpdatedAt).Hours() <= last7DaysHours
	case DateRangeLast30Days:
		return now.Sub(n.UpdatedAt).Hours() <= last30DaysHours
	default:
		return true
	}
}

// matchesTags reports whether any reconciled tag fuzzily matches any of the
// note's three tag provenance sources: its declared tags, hashtags inlined
// in its content, and the titles of notes it references via object: links.
// "Fuzzy" is substring containment in either direction, after
// normalization.
func matchesTags(n note.Note, normTags []string, titleByID map[string]string) bool {
	sources := make([]string, 0, len(n.Tags)+4)
	for _, t := range n.Tags {
		sources = append(sources, note.NormalizeTag(t))
	}
	for _, h := range note.ExtractHashtags(n.Content) {
		sources = append(sources, note.NormalizeTag(h))
	}
	for _, id := range note.ExtractObjectLinks(n.Content) {
		if title, ok := titleByID[id]; ok {
			sources = append(sources, note.NormalizeTag(title))
		}
	}

	for _, want := range normTags {
		for _, have := range sources {
			if have == "" {
				continue
			}
			if strings.Contains(have, want) || strings.Contains(want, have) {
				return true
			}
		}
	}
	return false
}
