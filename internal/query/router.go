package query

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pensieve-ai/pensieve/internal/note"
)

// Generator is the slice of the language model the router needs: one prompt
// in, one text completion out. Defined by the consumer so tests can use a
// canned fake.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// maxRouterResponseBytes limits the model response size before JSON parsing.
const maxRouterResponseBytes = 8 * 1024

// routerPrompt instructs the model to classify a query into strict JSON.
// %s placeholders: (1) comma-separated type names, (2) the user query.
const routerPrompt = `You are a query classification system for a personal note database.
Classify the user query below into a JSON object with this exact shape:

{"filters": {"type": "", "tags": [], "dateRange": ""}, "searchQuery": "", "intent": ""}

Rules:
- "type": one of these exact type names if the query clearly refers to one, else "": %s
- "tags": topic or entity names mentioned in the query, as plain strings
- "dateRange": "last_7_days", "last_30_days", or ""
- "searchQuery": the query cleaned of filter words, suitable for semantic search
- "intent": "search", "summary", or "count"
- Output ONLY the JSON object. No prose, no code fences.

Query: %s

JSON:`

// routerResponse is the wire shape of the model's classification.
type routerResponse struct {
	Filters struct {
		Type      string   `json:"type"`
		Tags      []string `json:"tags"`
		DateRange string   `json:"dateRange"`
	} `json:"filters"`
	SearchQuery string `json:"searchQuery"`
	Intent      string `json:"intent"`
}

// Router classifies free-text queries into an Analysis via the language
// model, degrading to a pass-through Analysis on any failure.
type Router struct {
	gen    Generator
	logger *slog.Logger
}

// NewRouter creates a Router. logger may be nil (defaults to slog.Default).
func NewRouter(gen Generator, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{gen: gen, logger: logger}
}

// Analyze classifies rawQuery against the available object types.
//
// Analyze never fails: any model error, oversized response, or malformed
// JSON degrades to the fallback Analysis (no filters, raw query, search
// intent) so retrieval always has something to work with.
func (r *Router) Analyze(ctx context.Context, rawQuery string, types []note.ObjectType) Analysis {
	names := make([]string, 0, len(types))
	for _, t := range types {
		names = append(names, t.Name)
	}

	prompt := fmt.Sprintf(routerPrompt, strings.Join(names, ", "), rawQuery)

	text, err := r.gen.Generate(ctx, prompt)
	if err != nil {
		r.logger.Warn("query routing failed, using raw query", "error", err)
		return fallbackAnalysis(rawQuery)
	}

	analysis, err := parseRouterResponse(text, rawQuery)
	if err != nil {
		r.logger.Warn("query routing returned malformed response, using raw query",
			"error", err)
		return fallbackAnalysis(rawQuery)
	}

	r.logger.Debug("routed query",
		"type", analysis.Filters.Type,
		"tags", analysis.Filters.Tags,
		"date_range", string(analysis.Filters.DateRange),
		"intent", string(analysis.Intent))
	return analysis
}

// parseRouterResponse validates and converts the model's raw text into an
// Analysis. Unknown enum values degrade field-wise rather than failing the
// whole response.
func parseRouterResponse(text, rawQuery string) (Analysis, error) {
	text = stripCodeFences(strings.TrimSpace(text))
	if text == "" {
		return Analysis{}, fmt.Errorf("empty response")
	}
	if len(text) > maxRouterResponseBytes {
		return Analysis{}, fmt.Errorf("response too large: %d bytes", len(text))
	}

	var resp routerResponse
	if err := json.Unmarshal([]byte(text), &resp); err != nil {
		return Analysis{}, fmt.Errorf("parsing router response: %w", err)
	}

	a := Analysis{
		Filters: Filters{
			Type:      strings.TrimSpace(resp.Filters.Type),
			DateRange: DateRange(resp.Filters.DateRange),
		},
		SearchQuery: strings.TrimSpace(resp.SearchQuery),
		Intent:      Intent(resp.Intent),
	}
	for _, tag := range resp.Filters.Tags {
		if tag = strings.TrimSpace(tag); tag != "" {
			a.Filters.Tags = append(a.Filters.Tags, tag)
		}
	}
	if !a.Filters.DateRange.valid() {
		a.Filters.DateRange = DateRangeNone
	}
	if !a.Intent.valid() {
		a.Intent = IntentSearch
	}
	if a.SearchQuery == "" {
		a.SearchQuery = rawQuery
	}
	return a, nil
}

// stripCodeFences removes ```json ... ``` wrapping from model output.
func stripCodeFences(s string) string {
	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		}
		if idx := strings.LastIndex(s, "```"); idx != -1 {
			s = s[:idx]
		}
		s = strings.TrimSpace(s)
	}
	return s
}
