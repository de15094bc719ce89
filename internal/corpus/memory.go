package corpus

import (
	"context"
	"sync"
	"time"

	"github.com/pensieve-ai/pensieve/internal/note"
)

// Memory is an in-memory corpus holding notes, types, chunks, and events.
// It implements Store, ChunkIndex, and Calendar.
//
// Memory is safe for concurrent use. Accessors return copies of the slices
// (but not deep copies of the notes themselves — notes are treated as
// immutable by convention).
type Memory struct {
	mu     sync.RWMutex
	notes  []note.Note
	types  []note.ObjectType
	chunks []note.Chunk
	events []note.CalendarEvent
}

// NewMemory creates an in-memory corpus from the given fixtures.
// Any slice may be nil.
func NewMemory(notes []note.Note, types []note.ObjectType, chunks []note.Chunk, events []note.CalendarEvent) *Memory {
	return &Memory{
		notes:  notes,
		types:  types,
		chunks: chunks,
		events: events,
	}
}

// Notes returns all notes in insertion order.
func (m *Memory) Notes(_ context.Context) ([]note.Note, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]note.Note, len(m.notes))
	copy(out, m.notes)
	return out, nil
}

// Types returns the object type registry.
func (m *Memory) Types(_ context.Context) ([]note.ObjectType, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]note.ObjectType, len(m.types))
	copy(out, m.types)
	return out, nil
}

// ChunksByTags returns chunks whose block tags intersect tags, up to limit.
// Matching is by normalized equality; the caller is expected to pass
// already-normalized tags (see note.NormalizeTag).
func (m *Memory) ChunksByTags(_ context.Context, tags []string, limit int) ([]note.Chunk, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	want := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		want[note.NormalizeTag(t)] = struct{}{}
	}

	var out []note.Chunk
	for _, c := range m.chunks {
		for _, bt := range c.TagsInBlock {
			if _, ok := want[note.NormalizeTag(bt)]; ok {
				out = append(out, c)
				break
			}
		}
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// UpcomingEvents returns events that start or end at or after now,
// in stored order (callers sort).
func (m *Memory) UpcomingEvents(_ context.Context, now time.Time) ([]note.CalendarEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []note.CalendarEvent
	for _, e := range m.events {
		if !e.Start.Before(now) || !e.End.Before(now) {
			out = append(out, e)
		}
	}
	return out, nil
}

// SetNotes replaces the note set. Used by the import CLI when building a
// corpus from a JSON export.
func (m *Memory) SetNotes(notes []note.Note) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notes = make([]note.Note, len(notes))
	copy(m.notes, notes)
}
