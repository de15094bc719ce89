// Package query turns a free-text user question into a structured retrieval
// plan: an LLM-backed router classifies the query, a deterministic
// reconciler corrects the router's tag guesses against real note titles, and
// a hard filter stage narrows the corpus before scoring.
package query

// Intent classifies what the user is asking for. It is diagnostic only;
// retrieval does not branch on it.
type Intent string

// Known intents.
const (
	IntentSearch  Intent = "search"
	IntentSummary Intent = "summary"
	IntentCount   Intent = "count"
)

// valid reports whether the intent is one of the known labels.
func (i Intent) valid() bool {
	switch i {
	case IntentSearch, IntentSummary, IntentCount:
		return true
	}
	return false
}

// DateRange is a coarse recency filter over note update times.
type DateRange string

// Known date ranges. The empty string means no date filtering.
const (
	DateRangeNone       DateRange = ""
	DateRangeLast7Days  DateRange = "last_7_days"
	DateRangeLast30Days DateRange = "last_30_days"
)

// valid reports whether the range is one of the known values.
func (d DateRange) valid() bool {
	switch d {
	case DateRangeNone, DateRangeLast7Days, DateRangeLast30Days:
		return true
	}
	return false
}

// Filters is the structured part of a routed query.
type Filters struct {
	// Type is an object type name or plural as guessed by the router.
	// Empty means no type filter.
	Type string

	// Tags are free-text tag guesses. The reconciler rewrites these in
	// place against actual corpus titles.
	Tags []string

	// DateRange restricts by note update recency.
	DateRange DateRange
}

// Analysis is the router's structured reading of one user query. It lives
// for a single turn and is never persisted.
type Analysis struct {
	Filters     Filters
	SearchQuery string // cleaned text used for similarity search
	Intent      Intent
}

// fallbackAnalysis is what every router failure degrades to: no filters,
// the raw query as the search string, search intent. Retrieval must always
// be able to proceed from here.
func fallbackAnalysis(rawQuery string) Analysis {
	return Analysis{
		Filters:     Filters{},
		SearchQuery: rawQuery,
		Intent:      IntentSearch,
	}
}
