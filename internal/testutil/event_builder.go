package testutil

import (
	"time"

	"github.com/hupe1980/testmesh/core"
)

// EventBuilder provides a fluent helper for constructing runner events in tests.
// Example:
//
//	ev := NewEventBuilder().Keyword("Press Element").Fail("element not found").Session("s1").Build()
//
// Defaults: entity type "Keyword", status fail, no session.
type EventBuilder struct {
	id         string
	entityType string
	entityID   string
	name       string
	status     core.EventStatus
	message    string
	session    *string
	extra      map[string]any
	timestamp  time.Time
}

// NewEventBuilder creates a builder for a failing keyword event.
func NewEventBuilder() *EventBuilder {
	return &EventBuilder{entityType: "Keyword", entityID: "k1", status: core.StatusFail, extra: map[string]any{}}
}

// ID overrides the generated event ID (chainable).
func (b *EventBuilder) ID(id string) *EventBuilder { b.id = id; return b }

// Entity sets entity type, id and name (chainable).
func (b *EventBuilder) Entity(typ, id, name string) *EventBuilder {
	b.entityType, b.entityID, b.name = typ, id, name
	return b
}

// Keyword sets a keyword entity with the given name (chainable).
func (b *EventBuilder) Keyword(name string) *EventBuilder { b.entityType, b.name = "Keyword", name; return b }

// TestCase sets a test case entity with the given name (chainable).
func (b *EventBuilder) TestCase(name string) *EventBuilder { b.entityType, b.name = "TestCase", name; return b }

// Status sets status and message (chainable).
func (b *EventBuilder) Status(s core.EventStatus, msg string) *EventBuilder {
	b.status, b.message = s, msg
	return b
}

// Fail marks the event failed with msg (chainable).
func (b *EventBuilder) Fail(msg string) *EventBuilder { return b.Status(core.StatusFail, msg) }

// Pass marks the event passed (chainable).
func (b *EventBuilder) Pass() *EventBuilder { return b.Status(core.StatusPass, "") }

// Session attaches the runner session id (chainable).
func (b *EventBuilder) Session(id string) *EventBuilder { b.session = &id; return b }

// Extra sets an additional Extra key (chainable).
func (b *EventBuilder) Extra(key string, val any) *EventBuilder { b.extra[key] = val; return b }

// At fixes the event timestamp (chainable).
func (b *EventBuilder) At(ts time.Time) *EventBuilder { b.timestamp = ts; return b }

// Build constructs the core.Event value.
func (b *EventBuilder) Build() core.Event {
	ev := core.NewEvent(b.entityType, b.entityID, b.name, b.status, b.message)
	if b.id != "" {
		ev.ID = b.id
	}
	if !b.timestamp.IsZero() {
		ev.Timestamp = b.timestamp
	}
	for k, v := range b.extra {
		ev.Extra[k] = v
	}
	if b.session != nil {
		ev = ev.WithSession(*b.session)
	}
	return ev
}
