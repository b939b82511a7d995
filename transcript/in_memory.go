package transcript

import (
	"sort"
	"sync"
)

// InMemoryStore keeps transcripts in a process local map guarded by an
// RWMutex. Useful for tests and short-lived runs.
//
// Layout: sessionID -> recordID -> record
type InMemoryStore struct {
	mu      sync.RWMutex
	records map[string]map[string]Record
}

// NewInMemoryStore returns an empty in-memory transcript store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{records: make(map[string]map[string]Record)}
}

// Save stores rec, assigning ID and Timestamp when missing.
func (s *InMemoryStore) Save(rec Record) (Record, error) {
	rec = normalize(rec)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[rec.SessionID]; !ok {
		s.records[rec.SessionID] = make(map[string]Record)
	}
	s.records[rec.SessionID][rec.ID] = rec
	return rec, nil
}

// Get returns a record or ErrNotFound.
func (s *InMemoryStore) Get(sessionID, id string) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[sessionID][id]
	if !ok {
		return Record{}, ErrNotFound
	}
	return rec, nil
}

// List returns the session's records ordered by timestamp.
func (s *InMemoryStore) List(sessionID string) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Record, 0, len(s.records[sessionID]))
	for _, rec := range s.records[sessionID] {
		out = append(out, rec)
	}
	sortRecords(out)
	return out, nil
}

func sortRecords(recs []Record) {
	sort.SliceStable(recs, func(i, j int) bool {
		if recs[i].Timestamp.Equal(recs[j].Timestamp) {
			return recs[i].ID < recs[j].ID
		}
		return recs[i].Timestamp.Before(recs[j].Timestamp)
	})
}
