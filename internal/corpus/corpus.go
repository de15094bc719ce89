// Package corpus defines the ports through which the context-assembly
// pipeline reads the user's knowledge base, plus two implementations: an
// in-memory store for tests and one-shot CLI runs, and a PostgreSQL store
// (pgx + pgvector) for the full application.
//
// The pipeline never mutates the corpus; all ports are read-only except the
// upsert methods used by the import job.
package corpus

import (
	"context"
	"time"

	"github.com/pensieve-ai/pensieve/internal/note"
)

// Store provides read access to the full note corpus and its type registry.
//
// Interfaces are defined here, by the consumer, so the pipeline can be
// tested against fakes without a database.
type Store interface {
	// Notes returns every note in the corpus.
	Notes(ctx context.Context) ([]note.Note, error)

	// Types returns the object type registry.
	Types(ctx context.Context) ([]note.ObjectType, error)
}

// ChunkIndex provides granular tag-based lookup against the secondary chunk
// index. Tags are matched with any-of semantics.
type ChunkIndex interface {
	// ChunksByTags returns up to limit chunks whose block tags intersect
	// the given tag list.
	ChunksByTags(ctx context.Context, tags []string, limit int) ([]note.Chunk, error)
}

// Calendar provides read access to upcoming and ongoing calendar events.
type Calendar interface {
	// UpcomingEvents returns events that start or end at or after now.
	UpcomingEvents(ctx context.Context, now time.Time) ([]note.CalendarEvent, error)
}
