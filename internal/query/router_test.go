package query

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/pensieve-ai/pensieve/internal/log"
	"github.com/pensieve-ai/pensieve/internal/note"
)

// fakeGenerator returns a canned response or error.
type fakeGenerator struct {
	response string
	err      error
	prompts  []string
}

func (f *fakeGenerator) Generate(_ context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

var testTypes = []note.ObjectType{
	{ID: "task", Name: "Task", Plural: "Tasks"},
	{ID: "project", Name: "Project", Plural: "Projects"},
}

func TestAnalyzeParsesStrictJSON(t *testing.T) {
	t.Parallel()

	gen := &fakeGenerator{response: `{
		"filters": {"type": "Task", "tags": ["budget", " planning "], "dateRange": "last_7_days"},
		"searchQuery": "open tasks",
		"intent": "search"
	}`}
	r := NewRouter(gen, log.NewNop())

	got := r.Analyze(context.Background(), "what tasks are open this week?", testTypes)

	want := Analysis{
		Filters: Filters{
			Type:      "Task",
			Tags:      []string{"budget", "planning"},
			DateRange: DateRangeLast7Days,
		},
		SearchQuery: "open tasks",
		Intent:      IntentSearch,
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Analyze() = %+v, want %+v", got, want)
	}
}

func TestAnalyzeFallsBackOnGeneratorError(t *testing.T) {
	t.Parallel()

	// Scenario: the model call fails entirely. The raw query must pass
	// through unchanged with empty filters and search intent.
	gen := &fakeGenerator{err: errors.New("model unavailable")}
	r := NewRouter(gen, log.NewNop())

	raw := "meetings this week"
	got := r.Analyze(context.Background(), raw, testTypes)

	want := Analysis{SearchQuery: raw, Intent: IntentSearch}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Analyze() = %+v, want fallback %+v", got, want)
	}
}

func TestAnalyzeFallsBackOnMalformedJSON(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		response string
	}{
		{name: "not json", response: "I think you want tasks"},
		{name: "empty response", response: ""},
		{name: "truncated json", response: `{"filters": {"type":`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			gen := &fakeGenerator{response: tt.response}
			r := NewRouter(gen, log.NewNop())

			got := r.Analyze(context.Background(), "find my notes", testTypes)
			want := Analysis{SearchQuery: "find my notes", Intent: IntentSearch}
			if !reflect.DeepEqual(got, want) {
				t.Errorf("Analyze() = %+v, want fallback %+v", got, want)
			}
		})
	}
}

func TestAnalyzeStripsCodeFences(t *testing.T) {
	t.Parallel()

	gen := &fakeGenerator{response: "```json\n{\"filters\": {}, \"searchQuery\": \"alpha status\", \"intent\": \"summary\"}\n```"}
	r := NewRouter(gen, log.NewNop())

	got := r.Analyze(context.Background(), "summarize project alpha", testTypes)
	if got.SearchQuery != "alpha status" {
		t.Errorf("SearchQuery = %q, want %q", got.SearchQuery, "alpha status")
	}
	if got.Intent != IntentSummary {
		t.Errorf("Intent = %q, want %q", got.Intent, IntentSummary)
	}
}

func TestAnalyzeDegradesUnknownEnumValues(t *testing.T) {
	t.Parallel()

	gen := &fakeGenerator{response: `{
		"filters": {"type": "", "tags": [], "dateRange": "last_year"},
		"searchQuery": "",
		"intent": "hallucinate"
	}`}
	r := NewRouter(gen, log.NewNop())

	got := r.Analyze(context.Background(), "everything ever", testTypes)
	if got.Filters.DateRange != DateRangeNone {
		t.Errorf("DateRange = %q, want none", got.Filters.DateRange)
	}
	if got.Intent != IntentSearch {
		t.Errorf("Intent = %q, want search", got.Intent)
	}
	// Empty cleaned query falls back to the raw query.
	if got.SearchQuery != "everything ever" {
		t.Errorf("SearchQuery = %q, want raw query", got.SearchQuery)
	}
}

func TestAnalyzePromptEnumeratesTypes(t *testing.T) {
	t.Parallel()

	gen := &fakeGenerator{response: `{"filters": {}, "searchQuery": "x", "intent": "search"}`}
	r := NewRouter(gen, log.NewNop())

	r.Analyze(context.Background(), "x", testTypes)

	if len(gen.prompts) != 1 {
		t.Fatalf("expected 1 prompt, got %d", len(gen.prompts))
	}
	for _, name := range []string{"Task", "Project"} {
		if !strings.Contains(gen.prompts[0], name) {
			t.Errorf("prompt missing type name %q", name)
		}
	}
}
