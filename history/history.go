// Package history keeps a bounded per-session record of runner events that
// agents receive as execution history.
package history

import (
	"sync"

	"github.com/hupe1980/testmesh/core"
)

// DefaultCapacity bounds the entries kept per session.
const DefaultCapacity = 100

// Store records events per session.
type Store interface {
	Append(sessionID string, ev core.Event)
	// Recent returns up to n entries, oldest first.
	Recent(sessionID string, n int) []core.HistoryEntry
	Clear(sessionID string)
}

// InMemoryStore is a volatile Store. It is safe for concurrent access and
// drops the oldest entries of a session once capacity is reached. Returned
// slices are copies.
type InMemoryStore struct {
	mu       sync.RWMutex
	capacity int
	sessions map[string][]core.HistoryEntry
}

// NewInMemoryStore constructs an empty store; capacity <= 0 selects DefaultCapacity.
func NewInMemoryStore(capacity int) *InMemoryStore {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &InMemoryStore{capacity: capacity, sessions: make(map[string][]core.HistoryEntry)}
}

// Append adds an event to the session's history.
func (s *InMemoryStore) Append(sessionID string, ev core.Event) {
	entry := core.HistoryEntry{
		Trigger:   ev.Trigger(),
		Name:      ev.Name,
		Status:    string(ev.Status),
		Message:   ev.Message,
		Timestamp: ev.Timestamp,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	entries := append(s.sessions[sessionID], entry)
	if over := len(entries) - s.capacity; over > 0 {
		entries = append(entries[:0:0], entries[over:]...)
	}
	s.sessions[sessionID] = entries
}

// Recent returns the last n entries of a session; n <= 0 returns none.
func (s *InMemoryStore) Recent(sessionID string, n int) []core.HistoryEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries := s.sessions[sessionID]
	if n <= 0 || len(entries) == 0 {
		return []core.HistoryEntry{}
	}
	if n > len(entries) {
		n = len(entries)
	}
	return append([]core.HistoryEntry(nil), entries[len(entries)-n:]...)
}

// Clear drops the history of a session.
func (s *InMemoryStore) Clear(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
}
