package transcript

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// DirStore writes one JSON file per record under <root>/<session>/<id>.json.
type DirStore struct {
	root string
	mu   sync.Mutex
}

// NewDirStore creates the root directory if needed.
func NewDirStore(root string) (*DirStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create transcript dir: %w", err)
	}
	return &DirStore{root: root}, nil
}

// Root returns the store's root directory.
func (d *DirStore) Root() string { return d.root }

// Save writes rec, assigning ID and Timestamp when missing.
func (d *DirStore) Save(rec Record) (Record, error) {
	rec = normalize(rec)
	dir, err := d.sessionDir(rec.SessionID)
	if err != nil {
		return Record{}, err
	}
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return Record{}, fmt.Errorf("failed to encode transcript: %w", err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Record{}, fmt.Errorf("failed to create session dir: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, rec.ID+".json"), data, 0o644); err != nil {
		return Record{}, fmt.Errorf("failed to write transcript: %w", err)
	}
	return rec, nil
}

// Get reads a record or returns ErrNotFound.
func (d *DirStore) Get(sessionID, id string) (Record, error) {
	dir, err := d.sessionDir(sessionID)
	if err != nil {
		return Record{}, err
	}
	if !safeName(id) {
		return Record{}, ErrNotFound
	}
	return readRecord(filepath.Join(dir, id+".json"))
}

// List reads all records of a session ordered by timestamp.
func (d *DirStore) List(sessionID string) ([]Record, error) {
	dir, err := d.sessionDir(sessionID)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []Record{}, nil
		}
		return nil, err
	}

	out := make([]Record, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		rec, err := readRecord(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	sortRecords(out)
	return out, nil
}

func (d *DirStore) sessionDir(sessionID string) (string, error) {
	if sessionID == "" {
		sessionID = "_no_session"
	}
	if !safeName(sessionID) {
		return "", fmt.Errorf("invalid session id %q", sessionID)
	}
	return filepath.Join(d.root, sessionID), nil
}

func safeName(s string) bool {
	return s != "" && s != "." && s != ".." && !strings.ContainsAny(s, `/\`)
}

func readRecord(path string) (Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Record{}, ErrNotFound
		}
		return Record{}, err
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Record{}, fmt.Errorf("failed to decode transcript %s: %w", filepath.Base(path), err)
	}
	return rec, nil
}
