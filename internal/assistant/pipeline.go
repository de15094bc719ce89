package assistant

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pensieve-ai/pensieve/internal/assemble"
	"github.com/pensieve-ai/pensieve/internal/graph"
	"github.com/pensieve-ai/pensieve/internal/note"
	"github.com/pensieve-ai/pensieve/internal/query"
	"github.com/pensieve-ai/pensieve/internal/rank"
	"github.com/pensieve-ai/pensieve/internal/retrieval"
	"github.com/pensieve-ai/pensieve/internal/session"
)

// recentInputTurns is how many previous user turns feed the embedding
// query for short follow-up questions.
const recentInputTurns = 2

const promptPreamble = "You are an assistant answering questions about the user's personal notes.\n" +
	"Ground every answer in the context below. When you reference a note, cite it " +
	"as a markdown link using its object URI, for example [Title](object:ID). " +
	"If the context does not contain the answer, say so instead of guessing."

// Answer runs the full pipeline for one user message and returns the
// model's grounded reply. history may be nil for a one-shot question.
func (a *Assistant) Answer(ctx context.Context, message string, history *session.History) (string, error) {
	reqID := uuid.New()
	a.mu.Lock()
	a.currentReq = reqID
	a.mu.Unlock()

	now := a.now()

	notes, registry := a.loadCorpus(ctx)
	byID := make(map[string]note.Note, len(notes))
	titles := make([]string, 0, len(notes))
	for _, n := range notes {
		byID[n.ID] = n
		titles = append(titles, n.Title)
	}

	analysis := a.router.Analyze(ctx, message, registry)
	query.ReconcileTags(&analysis, message, titles)

	filtered := query.Filter(notes, analysis.Filters, registry, now)

	ranked := a.buildContext(ctx, analysis, history, notes, filtered, byID)

	// Record the ranked IDs unless a newer request has taken over.
	ids := make([]string, len(ranked))
	for i, c := range ranked {
		ids[i] = c.Note.ID
	}
	a.mu.Lock()
	if a.currentReq == reqID {
		a.cache.Put(analysis.SearchQuery, ids)
	}
	a.mu.Unlock()

	events := a.loadEvents(ctx, now)
	blocks := assemble.Blocks(ranked, events, notes, registry, now)

	var turns []session.Turn
	if history != nil {
		turns = history.Turns()
	}
	prompt := buildPrompt(blocks, turns, message)

	return a.completeWithRetry(ctx, prompt)
}

// buildContext produces the ranked candidate set: cached IDs when a fresh
// unfiltered entry exists, otherwise chunk matches or semantic retrieval
// followed by one-hop graph expansion.
func (a *Assistant) buildContext(ctx context.Context, analysis query.Analysis, history *session.History, notes, filtered []note.Note, byID map[string]note.Note) []retrieval.Candidate {
	// Tag-filtered queries always recompute. A cached context was built
	// without the tag constraint and would surface the wrong notes.
	if len(analysis.Filters.Tags) == 0 {
		if ids, ok := a.cache.Get(analysis.SearchQuery); ok {
			if cached := retrieval.FromCache(ids, byID); len(cached) > 0 {
				a.logger.Debug("context cache hit",
					"query", analysis.SearchQuery,
					"notes", len(cached))
				// Cached candidates go through expansion like any other
				// primary set; only retrieval itself is skipped.
				return rank.MergeAndRank(cached, graph.Expand(cached, byID))
			}
		}
	}

	primary := a.retriever.ChunkMatches(ctx, analysis.Filters.Tags, byID)
	if len(primary) == 0 {
		var recent []string
		if history != nil {
			recent = history.RecentUserInputs(recentInputTurns)
		}
		primary = a.retriever.Semantic(ctx, analysis, recent, filtered)
	}

	expanded := graph.Expand(primary, byID)
	return rank.MergeAndRank(primary, expanded)
}

// loadCorpus reads notes and the type registry, degrading to empty on
// error so a storage hiccup yields an ungrounded answer rather than none.
func (a *Assistant) loadCorpus(ctx context.Context) ([]note.Note, []note.ObjectType) {
	notes, err := a.store.Notes(ctx)
	if err != nil {
		a.logger.Warn("reading corpus failed, answering without context", "error", err)
		notes = nil
	}
	registry, err := a.store.Types(ctx)
	if err != nil {
		a.logger.Warn("reading type registry failed", "error", err)
		registry = nil
	}
	return notes, registry
}

func (a *Assistant) loadEvents(ctx context.Context, now time.Time) []note.CalendarEvent {
	if a.calendar == nil {
		return nil
	}
	events, err := a.calendar.UpcomingEvents(ctx, now)
	if err != nil {
		a.logger.Warn("reading calendar failed, omitting events", "error", err)
		return nil
	}
	return events
}

// buildPrompt joins the preamble, context blocks, prior conversation and
// the current message into the completion prompt.
func buildPrompt(blocks []string, turns []session.Turn, message string) string {
	var b strings.Builder
	b.WriteString(promptPreamble)
	b.WriteString("\n\n")
	b.WriteString(strings.Join(blocks, "\n\n"))

	if len(turns) > 0 {
		b.WriteString("\n\n=== CONVERSATION ===")
		for _, t := range turns {
			switch t.Role {
			case session.RoleUser:
				b.WriteString("\nUser: ")
			case session.RoleAssistant:
				b.WriteString("\nAssistant: ")
			default:
				continue
			}
			b.WriteString(t.Content)
		}
	}

	b.WriteString("\n\nUser: ")
	b.WriteString(message)
	b.WriteString("\nAssistant:")
	return b.String()
}
