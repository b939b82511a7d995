// Package transcript stores prompt/response exchanges with language models,
// keyed by runner session, for later review of what agents were asked and
// what they answered.
package transcript

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a record does not exist for a session.
var ErrNotFound = errors.New("transcript not found")

// Record is one model exchange.
type Record struct {
	ID        string        `json:"id"`
	SessionID string        `json:"session_id"`
	Agent     string        `json:"agent"`
	Trigger   string        `json:"trigger,omitempty"`
	System    string        `json:"system,omitempty"`
	User      string        `json:"user"`
	Response  string        `json:"response,omitempty"`
	Error     string        `json:"error,omitempty"`
	Actions   int           `json:"actions"`
	Duration  time.Duration `json:"duration"`
	Timestamp time.Time     `json:"timestamp"`
}

// Store persists transcripts.
type Store interface {
	Save(rec Record) (Record, error)
	Get(sessionID, id string) (Record, error)
	// List returns a session's records ordered by timestamp.
	List(sessionID string) ([]Record, error)
}

// normalize fills ID and Timestamp if unset.
func normalize(rec Record) Record {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now()
	}
	return rec
}
