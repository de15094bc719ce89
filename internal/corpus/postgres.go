package corpus

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"
	pgxvector "github.com/pgvector/pgvector-go/pgx"

	"github.com/pensieve-ai/pensieve/internal/note"
)

// Postgres implements Store, ChunkIndex and Calendar over PostgreSQL with
// the pgvector extension. Safe for concurrent use.
type Postgres struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

var (
	_ Store      = (*Postgres)(nil)
	_ ChunkIndex = (*Postgres)(nil)
	_ Calendar   = (*Postgres)(nil)
)

// NewPostgres connects a pool to connString and registers the pgvector
// types on every connection.
func NewPostgres(ctx context.Context, connString string, logger *slog.Logger) (*Postgres, error) {
	if logger == nil {
		logger = slog.Default()
	}

	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parsing connection string: %w", err)
	}
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvector.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return &Postgres{pool: pool, logger: logger}, nil
}

// Close releases the connection pool.
func (p *Postgres) Close() {
	p.pool.Close()
}

// Notes returns every note in the corpus.
func (p *Postgres) Notes(ctx context.Context) ([]note.Note, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT id, type, title, content, tags, properties, embedding,
		       links, backlinks, created_at, updated_at
		FROM notes`)
	if err != nil {
		return nil, fmt.Errorf("querying notes: %w", err)
	}
	defer rows.Close()

	var notes []note.Note
	for rows.Next() {
		var n note.Note
		var emb *pgvector.Vector
		if err := rows.Scan(&n.ID, &n.Type, &n.Title, &n.Content, &n.Tags,
			&n.Properties, &emb, &n.Links, &n.Backlinks, &n.CreatedAt, &n.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning note: %w", err)
		}
		if emb != nil {
			n.Embedding = emb.Slice()
		}
		notes = append(notes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating notes: %w", err)
	}
	return notes, nil
}

// Types returns the object type registry.
func (p *Postgres) Types(ctx context.Context) ([]note.ObjectType, error) {
	rows, err := p.pool.Query(ctx, `SELECT id, name, plural FROM object_types ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("querying object types: %w", err)
	}
	defer rows.Close()

	var types []note.ObjectType
	for rows.Next() {
		var t note.ObjectType
		if err := rows.Scan(&t.ID, &t.Name, &t.Plural); err != nil {
			return nil, fmt.Errorf("scanning object type: %w", err)
		}
		types = append(types, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating object types: %w", err)
	}
	return types, nil
}

// ChunksByTags returns up to limit chunks whose block tags intersect tags.
func (p *Postgres) ChunksByTags(ctx context.Context, tags []string, limit int) ([]note.Chunk, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT id, parent_id, content, tags_in_block
		FROM chunks
		WHERE tags_in_block && $1
		LIMIT $2`, tags, limit)
	if err != nil {
		return nil, fmt.Errorf("querying chunks by tags: %w", err)
	}
	defer rows.Close()

	var chunks []note.Chunk
	for rows.Next() {
		var c note.Chunk
		if err := rows.Scan(&c.ID, &c.ParentID, &c.Content, &c.TagsInBlock); err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}
		chunks = append(chunks, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", err)
	}
	return chunks, nil
}

// UpcomingEvents returns events that start or end at or after now, soonest
// first.
func (p *Postgres) UpcomingEvents(ctx context.Context, now time.Time) ([]note.CalendarEvent, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT id, title, start_at, end_at
		FROM calendar_events
		WHERE start_at >= $1 OR end_at >= $1
		ORDER BY start_at`, now)
	if err != nil {
		return nil, fmt.Errorf("querying calendar events: %w", err)
	}
	defer rows.Close()

	var events []note.CalendarEvent
	for rows.Next() {
		var e note.CalendarEvent
		if err := rows.Scan(&e.ID, &e.Title, &e.Start, &e.End); err != nil {
			return nil, fmt.Errorf("scanning calendar event: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating calendar events: %w", err)
	}
	return events, nil
}

// UpsertNote inserts or replaces a note. Used by the import job.
func (p *Postgres) UpsertNote(ctx context.Context, n note.Note) error {
	var emb any
	if len(n.Embedding) > 0 {
		emb = pgvector.NewVector(n.Embedding)
	}
	_, err := p.pool.Exec(ctx, `
		INSERT INTO notes (id, type, title, content, tags, properties,
		                   embedding, links, backlinks, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			type = EXCLUDED.type,
			title = EXCLUDED.title,
			content = EXCLUDED.content,
			tags = EXCLUDED.tags,
			properties = EXCLUDED.properties,
			embedding = EXCLUDED.embedding,
			links = EXCLUDED.links,
			backlinks = EXCLUDED.backlinks,
			updated_at = EXCLUDED.updated_at`,
		n.ID, n.Type, n.Title, n.Content, n.Tags, n.Properties,
		emb, n.Links, n.Backlinks, n.CreatedAt, n.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upserting note %s: %w", n.ID, err)
	}
	return nil
}

// UpsertType inserts or replaces an object type.
func (p *Postgres) UpsertType(ctx context.Context, t note.ObjectType) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO object_types (id, name, plural)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			plural = EXCLUDED.plural`,
		t.ID, t.Name, t.Plural)
	if err != nil {
		return fmt.Errorf("upserting object type %s: %w", t.ID, err)
	}
	return nil
}

// UpsertChunk inserts or replaces an index chunk. Block tags are
// normalized before storage so the overlap query in ChunksByTags
// matches the lowercased tags the retriever passes in.
func (p *Postgres) UpsertChunk(ctx context.Context, c note.Chunk) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO chunks (id, parent_id, content, tags_in_block)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			parent_id = EXCLUDED.parent_id,
			content = EXCLUDED.content,
			tags_in_block = EXCLUDED.tags_in_block`,
		c.ID, c.ParentID, c.Content, normalizeTags(c.TagsInBlock))
	if err != nil {
		return fmt.Errorf("upserting chunk %s: %w", c.ID, err)
	}
	return nil
}

func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if n := note.NormalizeTag(t); n != "" {
			out = append(out, n)
		}
	}
	return out
}

// UpsertEvent inserts or replaces a calendar event.
func (p *Postgres) UpsertEvent(ctx context.Context, e note.CalendarEvent) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO calendar_events (id, title, start_at, end_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			start_at = EXCLUDED.start_at,
			end_at = EXCLUDED.end_at`,
		e.ID, e.Title, e.Start, e.End)
	if err != nil {
		return fmt.Errorf("upserting calendar event %s: %w", e.ID, err)
	}
	return nil
}
