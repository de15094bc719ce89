// Package assemble serializes a ranked candidate set into the text blocks
// injected into the model prompt: one corpus metadata block, one calendar
// block, then one block per note in rank order. Block order is significant
// — it establishes the importance bias the downstream model reads.
package assemble

import (
	"encoding/json"
	"fmt"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/pensieve-ai/pensieve/internal/note"
	"github.com/pensieve-ai/pensieve/internal/retrieval"
)

// Serialization policy constants.
const (
	// FocusScoreThreshold grants the larger content budget: a candidate
	// at or above it is a "focus" note the user almost certainly asked
	// about directly.
	FocusScoreThreshold = 3.0

	// focusContentRunes is the content budget for focus notes.
	focusContentRunes = 8000

	// normalContentRunes is the content budget for everything else.
	normalContentRunes = 3000

	// maxCalendarEvents caps the calendar block.
	maxCalendarEvents = 50

	// emptyContentPlaceholder stands in for notes whose content strips
	// down to nothing.
	emptyContentPlaceholder = "(this note has no text content)"
)

// relationsPrefix marks a relations line inside focused chunk content.
const relationsPrefix = "[RELATIONS:"

// Blocks renders the final prompt context. corpusNotes is the full corpus
// (for metadata counts and resolving object-link titles), not just the
// ranked candidates.
func Blocks(ranked []retrieval.Candidate, events []note.CalendarEvent, corpusNotes []note.Note, registry []note.ObjectType, now time.Time) []string {
	blocks := make([]string, 0, len(ranked)+2)
	blocks = append(blocks, metadataBlock(corpusNotes, registry, now))

	if cal := calendarBlock(events, now); cal != "" {
		blocks = append(blocks, cal)
	}

	titleByID := make(map[string]string, len(corpusNotes))
	for _, n := range corpusNotes {
		titleByID[n.ID] = n.Title
	}
	nameByType := make(map[string]string, len(registry))
	for _, t := range registry {
		nameByType[t.ID] = t.Name
	}

	for _, c := range ranked {
		blocks = append(blocks, noteBlock(c, titleByID, nameByType))
	}
	return blocks
}

// metadataBlock summarizes the corpus and tells the model how to cite.
func metadataBlock(corpusNotes []note.Note, registry []note.ObjectType, now time.Time) string {
	counts := make(map[string]int, len(registry))
	for _, n := range corpusNotes {
		counts[n.Type]++
	}

	// Registry order first, then unknown type ids alphabetically, so the
	// block is deterministic.
	var byType []string
	seen := make(map[string]bool, len(counts))
	for _, t := range registry {
		if c := counts[t.ID]; c > 0 {
			byType = append(byType, fmt.Sprintf("%s: %d", t.Name, c))
			seen[t.ID] = true
		}
	}
	var leftover []string
	for id := range counts {
		if !seen[id] {
			leftover = append(leftover, id)
		}
	}
	sort.Strings(leftover)
	for _, id := range leftover {
		byType = append(byType, fmt.Sprintf("%s: %d", id, counts[id]))
	}

	var b strings.Builder
	b.WriteString("=== KNOWLEDGE BASE ===\n")
	fmt.Fprintf(&b, "Total notes: %d\n", len(corpusNotes))
	if len(byType) > 0 {
		fmt.Fprintf(&b, "By type: %s\n", strings.Join(byType, ", "))
	}
	fmt.Fprintf(&b, "Current date: %s\n", now.Format("Monday, January 2, 2006"))
	b.WriteString("When citing a note from the context, render it as a markdown link " +
		"using the object scheme: [Note Title](object:NOTE_ID). " +
		"Cite only notes that appear in the context blocks below.")
	return b.String()
}

// calendarBlock renders upcoming and ongoing events, soonest first.
// Returns "" when there is nothing upcoming.
func calendarBlock(events []note.CalendarEvent, now time.Time) string {
	upcoming := make([]note.CalendarEvent, 0, len(events))
	for _, e := range events {
		if !e.Start.Before(now) || !e.End.Before(now) {
			upcoming = append(upcoming, e)
		}
	}
	if len(upcoming) == 0 {
		return ""
	}

	slices.SortStableFunc(upcoming, func(a, b note.CalendarEvent) int {
		return a.Start.Compare(b.Start)
	})
	if len(upcoming) > maxCalendarEvents {
		upcoming = upcoming[:maxCalendarEvents]
	}

	var b strings.Builder
	b.WriteString("=== UPCOMING CALENDAR ===")
	for _, e := range upcoming {
		fmt.Fprintf(&b, "\n- %s: %s", e.Start.Format("Mon, 02 Jan 2006 15:04"), e.Title)
	}
	return b.String()
}

// noteBlock renders one ranked candidate.
func noteBlock(c retrieval.Candidate, titleByID map[string]string, nameByType map[string]string) string {
	n := c.Note

	typeName := nameByType[n.Type]
	if typeName == "" {
		typeName = n.Type
	}

	relations := extractRelations(c.FocusedContent)
	tags := effectiveTags(n, relations, titleByID)
	links := effectiveLinks(n, relations)

	content := c.FocusedContent
	if content == "" {
		content = note.StripHTML(n.Content)
	}
	if strings.TrimSpace(content) == "" {
		content = emptyContentPlaceholder
	}
	budget := normalContentRunes
	if c.Score >= FocusScoreThreshold {
		budget = focusContentRunes
	}
	content = truncateRunes(content, budget)

	props := "{}"
	if len(n.Properties) > 0 {
		if raw, err := json.Marshal(n.Properties); err == nil {
			props = string(raw)
		}
	}

	var b strings.Builder
	b.WriteString("=== NOTE ===\n")
	fmt.Fprintf(&b, "ID: %s\n", n.ID)
	fmt.Fprintf(&b, "Type: %s\n", typeName)
	fmt.Fprintf(&b, "Title: %s\n", n.Title)
	fmt.Fprintf(&b, "Properties: %s\n", props)
	fmt.Fprintf(&b, "Tags: %s\n", strings.Join(tags, ", "))
	fmt.Fprintf(&b, "Links: %s\n", strings.Join(links, ", "))
	b.WriteString("Content:\n")
	b.WriteString(content)
	return b.String()
}

// effectiveTags unifies the four tag provenance sources: declared tags,
// inline hashtags, titles of object-linked notes, and relations carried in
// focused content. Deduplicated case-insensitively, first casing wins.
func effectiveTags(n note.Note, relations []string, titleByID map[string]string) []string {
	var out []string
	seen := make(map[string]bool)
	add := func(tag string) {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			return
		}
		key := strings.ToLower(tag)
		if !seen[key] {
			seen[key] = true
			out = append(out, tag)
		}
	}

	for _, t := range n.Tags {
		add(t)
	}
	for _, h := range note.ExtractHashtags(n.Content) {
		add(h)
	}
	for _, id := range note.ExtractObjectLinks(n.Content) {
		if title := titleByID[id]; title != "" {
			add(title)
		}
	}
	for _, r := range relations {
		add(r)
	}
	return out
}

// effectiveLinks unifies declared outgoing links with relations from
// focused content.
func effectiveLinks(n note.Note, relations []string) []string {
	var out []string
	seen := make(map[string]bool)
	add := func(link string) {
		link = strings.TrimSpace(link)
		if link == "" {
			return
		}
		key := strings.ToLower(link)
		if !seen[key] {
			seen[key] = true
			out = append(out, link)
		}
	}
	for _, id := range n.Links {
		add(id)
	}
	for _, r := range relations {
		add(r)
	}
	return out
}

// extractRelations pulls entries from a "[RELATIONS: a, b, c]" line inside
// focused chunk content. The chunk indexer writes this prefix line so block
// relations survive into the prompt.
func extractRelations(focused string) []string {
	if focused == "" {
		return nil
	}
	for _, line := range strings.Split(focused, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, relationsPrefix) {
			continue
		}
		body := strings.TrimPrefix(line, relationsPrefix)
		if end := strings.Index(body, "]"); end >= 0 {
			body = body[:end]
		}
		var out []string
		for _, part := range strings.Split(body, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		return out
	}
	return nil
}

// truncateRunes caps s at n runes.
func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
