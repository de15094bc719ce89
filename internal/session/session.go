// Package session keeps in-memory conversation state for a chat session.
//
// Thread Safety: History is safe for concurrent use.
package session

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Role identifies who produced a turn.
type Role string

// Valid turn roles.
const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is a single conversation turn.
type Turn struct {
	Role    Role
	Content string
}

// Session identifies one conversation.
type Session struct {
	ID        uuid.UUID
	Title     string
	CreatedAt time.Time
}

// NewSession creates a session with a fresh identity.
func NewSession(title string) Session {
	return Session{
		ID:        uuid.New(),
		Title:     title,
		CreatedAt: time.Now(),
	}
}

// History encapsulates conversation history with thread-safe access.
//
// Note: The zero value is NOT useful - use NewHistory() to create instances.
type History struct {
	mu    sync.RWMutex
	turns []Turn
}

// NewHistory creates a new History instance.
func NewHistory() *History {
	return &History{
		turns: make([]Turn, 0),
	}
}

// AddExchange appends a user turn and the assistant's reply.
func (h *History) AddExchange(userInput, assistantReply string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.turns = append(h.turns,
		Turn{Role: RoleUser, Content: userInput},
		Turn{Role: RoleAssistant, Content: assistantReply},
	)
}

// Add appends a single turn.
func (h *History) Add(turn Turn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.turns = append(h.turns, turn)
}

// SetTurns replaces the history wholesale.
// Makes a defensive copy to prevent external modification.
func (h *History) SetTurns(turns []Turn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.turns = make([]Turn, len(turns))
	copy(h.turns, turns)
}

// Turns returns a copy of all turns for thread-safe access.
func (h *History) Turns() []Turn {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]Turn, len(h.turns))
	copy(out, h.turns)
	return out
}

// RecentUserInputs returns up to n of the most recent non-blank user turns,
// oldest first.
func (h *History) RecentUserInputs(n int) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if n <= 0 {
		return nil
	}
	var out []string
	for i := len(h.turns) - 1; i >= 0 && len(out) < n; i-- {
		t := h.turns[i]
		if t.Role != RoleUser || strings.TrimSpace(t.Content) == "" {
			continue
		}
		out = append(out, t.Content)
	}
	// Collected newest-first, callers want chronological order.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// Len returns the number of turns.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.turns)
}

// Clear removes all turns.
func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.turns = make([]Turn, 0)
}
