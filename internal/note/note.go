// Package note defines the domain model for the knowledge corpus: notes,
// content chunks, object types, and calendar events, plus the content helpers
// (hashtag and object-link extraction, HTML stripping) shared by the
// retrieval pipeline.
package note

import "time"

// Note is a single knowledge item. Notes are read-only inputs to the
// pipeline; mutation happens in the editing application, not here.
type Note struct {
	ID         string
	Type       string // object type id, resolved against the type registry for display
	Title      string
	Content    string // rich HTML as authored
	Tags       []string
	Properties map[string]any
	Embedding  []float32 // nil when the note has not been embedded yet
	Links      []string  // outgoing note IDs
	Backlinks  []string  // incoming note IDs; not necessarily symmetric with Links
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Chunk is a sub-section of a note's content kept in a secondary granular
// index. Chunks carry their own tags so a query can land on a small,
// highly relevant excerpt instead of the whole parent note.
type Chunk struct {
	ID          string
	ParentID    string // Note.ID of the owning note
	Content     string
	TagsInBlock []string
}

// ObjectType is a registry entry mapping a type id to its display names.
type ObjectType struct {
	ID     string
	Name   string // singular display name, e.g. "Project"
	Plural string // plural display name, e.g. "Projects"
}

// CalendarEvent is an upcoming or ongoing calendar entry surfaced alongside
// note context.
type CalendarEvent struct {
	ID    string
	Title string
	Start time.Time
	End   time.Time
}
