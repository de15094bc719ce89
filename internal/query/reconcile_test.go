package query

import (
	"reflect"
	"testing"
)

func TestReconcileTagsWithGuesses(t *testing.T) {
	t.Parallel()

	titles := []string{"Project Alpha", "Weekly Review", "Budget 2025", "Inbox"}

	tests := []struct {
		name     string
		guesses  []string
		rawQuery string
		want     []string
	}{
		{
			name:     "exact match",
			guesses:  []string{"inbox"},
			rawQuery: "show my inbox",
			want:     []string{"Inbox"},
		},
		{
			name:     "title contains guess",
			guesses:  []string{"alpha"},
			rawQuery: "what about alpha?",
			want:     []string{"Project Alpha"},
		},
		{
			name:     "guess contains title",
			guesses:  []string{"inbox zero method"},
			rawQuery: "notes on inbox zero",
			want:     []string{"Inbox"},
		},
		{
			name:     "query contains title verbatim",
			guesses:  []string{"spending"},
			rawQuery: "how is budget 2025 looking",
			want:     []string{"Budget 2025"},
		},
		{
			name:     "unmatched guess kept",
			guesses:  []string{"groceries"},
			rawQuery: "groceries list",
			want:     []string{"groceries"},
		},
		{
			name:     "first match wins over later better match",
			guesses:  []string{"review"},
			rawQuery: "review please",
			want:     []string{"Weekly Review"},
		},
		{
			name:     "multiple guesses reconciled independently",
			guesses:  []string{"alpha", "nonsense"},
			rawQuery: "alpha things",
			want:     []string{"Project Alpha", "nonsense"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			a := Analysis{
				Filters:     Filters{Tags: tt.guesses},
				SearchQuery: tt.rawQuery,
			}
			ReconcileTags(&a, tt.rawQuery, titles)
			if !reflect.DeepEqual(a.Filters.Tags, tt.want) {
				t.Errorf("tags = %v, want %v", a.Filters.Tags, tt.want)
			}
		})
	}
}

func TestReconcileTagsRecoversTitlesWithoutGuesses(t *testing.T) {
	t.Parallel()

	titles := []string{"Project Alpha", "Weekly Review", "Inbox", "Budget 2025"}

	tests := []struct {
		name        string
		rawQuery    string
		searchQuery string
		want        []string
	}{
		{
			name:        "multi-word title in raw query",
			rawQuery:    "how is project alpha going?",
			searchQuery: "status",
			want:        []string{"Project Alpha"},
		},
		{
			name:        "multi-word title in cleaned query only",
			rawQuery:    "hmm",
			searchQuery: "weekly review highlights",
			want:        []string{"Weekly Review"},
		},
		{
			name:        "single-word title never recovered",
			rawQuery:    "check my inbox",
			searchQuery: "inbox",
			want:        nil,
		},
		{
			name:        "multiple titles recovered",
			rawQuery:    "compare project alpha with budget 2025",
			searchQuery: "compare",
			want:        []string{"Project Alpha", "Budget 2025"},
		},
		{
			name:        "no titles present",
			rawQuery:    "what did I eat yesterday",
			searchQuery: "food yesterday",
			want:        nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			a := Analysis{SearchQuery: tt.searchQuery}
			ReconcileTags(&a, tt.rawQuery, titles)
			if !reflect.DeepEqual(a.Filters.Tags, tt.want) {
				t.Errorf("tags = %v, want %v", a.Filters.Tags, tt.want)
			}
		})
	}
}
