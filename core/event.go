package core

import (
	"time"

	"github.com/google/uuid"
)

// EventStatus is the outcome reported by the runner for an entity
// (test case, module, keyword). Values are lower-case so that trigger keys
// read like "Keyword_fail".
type EventStatus string

const (
	// StatusPass marks a successfully completed entity.
	StatusPass EventStatus = "pass"
	// StatusFail marks a failed entity.
	StatusFail EventStatus = "fail"
	// StatusRunning marks an entity that started executing.
	StatusRunning EventStatus = "running"
	// StatusSkipped marks an entity that was not executed.
	StatusSkipped EventStatus = "skipped"
	// StatusError marks an entity aborted by an infrastructure error.
	StatusError EventStatus = "error"
)

// SessionIDKey is the Extra key carrying the runner session identifier.
const SessionIDKey = "session_id"

// Event is emitted by the test runner when an entity changes state. After
// publication it must be treated as immutable; subscribers receive copies.
type Event struct {
	ID         string         `json:"id"`
	EntityType string         `json:"entity_type"`
	EntityID   string         `json:"entity_id"`
	Name       string         `json:"name"`
	Status     EventStatus    `json:"status"`
	Message    string         `json:"message"`
	Extra      map[string]any `json:"extra,omitempty"`
	Timestamp  time.Time      `json:"timestamp"`
}

// NewEvent creates an event with a fresh ID and UTC timestamp.
func NewEvent(entityType, entityID, name string, status EventStatus, message string) Event {
	return Event{
		ID:         NewID(),
		EntityType: entityType,
		EntityID:   entityID,
		Name:       name,
		Status:     status,
		Message:    message,
		Extra:      map[string]any{},
		Timestamp:  time.Now().UTC(),
	}
}

// WithSession returns a copy of the event whose Extra carries sessionID.
func (e Event) WithSession(sessionID string) Event {
	extra := make(map[string]any, len(e.Extra)+1)
	for k, v := range e.Extra {
		extra[k] = v
	}
	extra[SessionIDKey] = sessionID
	e.Extra = extra
	return e
}

// SessionID returns the session identifier stored in Extra. Non-string or
// empty values are reported as absent.
func (e Event) SessionID() (string, bool) {
	v, ok := e.Extra[SessionIDKey]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

// Trigger returns the lookup key used to match agents to this event.
func (e Event) Trigger() string { return TriggerKey(e.EntityType, e.Status) }

// TriggerKey derives the "<entity_type>_<status>" key.
func TriggerKey(entityType string, status EventStatus) string {
	return entityType + "_" + string(status)
}

// NewID generates a new unique identifier.
func NewID() string { return uuid.NewString() }
