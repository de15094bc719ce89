// Package contextcache provides a small, time-boxed cache of retrieval
// results keyed by a normalized-query hash. It exists to avoid repeating
// expensive embedding searches when the user asks the same thing twice in
// quick succession.
//
// The cache stores note IDs, not notes: entries stay valid across note
// edits, and IDs that no longer resolve are dropped by the caller on the
// way out. Expiry is lazy — a stale entry reads as a miss and is only
// physically removed when an upsert replaces it or the size bound trims it.
//
// A Cache is scoped to one user session and must never be shared across
// sessions.
package contextcache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"sync"
	"time"
)

// Defaults for the cache bounds.
const (
	// DefaultTTL is how long an entry stays valid.
	DefaultTTL = 30 * time.Minute

	// DefaultMaxEntries is the number of most recent entries retained.
	DefaultMaxEntries = 50

	// keyLength is the hex length of a cache key derived from the query.
	keyLength = 16
)

// Config configures a Cache. Zero values use the defaults above.
type Config struct {
	TTL        time.Duration
	MaxEntries int

	// Now overrides the clock, for tests. nil means time.Now.
	Now func() time.Time
}

type entry struct {
	noteIDs  []string
	storedAt time.Time
}

// Cache is a bounded key→note-ID mapping with lazy TTL expiry.
// It is safe for concurrent use.
type Cache struct {
	mu      sync.Mutex
	ttl     time.Duration
	maxSize int
	now     func() time.Time

	entries map[string]entry
	order   []string // keys by insertion, oldest first
}

// New creates a Cache with the given configuration.
func New(cfg Config) *Cache {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = DefaultMaxEntries
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Cache{
		ttl:     cfg.TTL,
		maxSize: cfg.MaxEntries,
		now:     cfg.Now,
		entries: make(map[string]entry),
	}
}

// Get returns the note IDs cached for query, or (nil, false) on a miss.
// An entry older than the TTL counts as a miss; it is not removed here.
func (c *Cache) Get(query string) ([]string, bool) {
	key := Key(query)

	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.now().Sub(e.storedAt) >= c.ttl {
		return nil, false
	}

	out := make([]string, len(e.noteIDs))
	copy(out, e.noteIDs)
	return out, true
}

// Put upserts the note IDs for query, replacing any existing entry for the
// same key, then trims the cache to its size bound, oldest first.
func (c *Cache) Put(query string, noteIDs []string) {
	key := Key(query)
	ids := make([]string, len(noteIDs))
	copy(ids, noteIDs)

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; exists {
		c.removeFromOrder(key)
	}
	c.entries[key] = entry{noteIDs: ids, storedAt: c.now()}
	c.order = append(c.order, key)

	for len(c.order) > c.maxSize {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}
}

// Len returns the number of stored entries, stale ones included.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache) removeFromOrder(key string) {
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			return
		}
	}
}

// Key derives the cache key for a raw query: lowercase, whitespace
// collapsed, hashed to a short hex string.
func Key(query string) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(query)), " ")
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])[:keyLength]
}
