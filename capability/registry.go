package capability

import (
	"maps"
	"sort"
	"strings"
	"sync"

	"github.com/hupe1980/testmesh/core"
	"github.com/hupe1980/testmesh/logging"
)

// ToolSink receives the public tool set of the most recently registered
// session. The agent registry implements it.
type ToolSink interface {
	SetTools(tools []core.Tool)
}

// Options configure a Registry.
type Options struct {
	Logger logging.Logger
	Sinks  []ToolSink
}

// Registry maps session IDs to immutable capability snapshots.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]map[string]Handler
	sinks    []ToolSink
	logger   logging.Logger
}

// NewRegistry creates an empty Registry.
func NewRegistry(optFns ...func(o *Options)) *Registry {
	opts := Options{}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Registry{
		sessions: make(map[string]map[string]Handler),
		sinks:    opts.Sinks,
		logger:   logging.OrNoOp(opts.Logger),
	}
}

// AddSink registers a ToolSink notified on every RegisterSession.
func (r *Registry) AddSink(s ToolSink) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sinks = append(r.sinks, s)
}

// IsPrivate reports whether a capability name is hidden from agents.
func IsPrivate(name string) bool { return strings.HasPrefix(name, core.PrivatePrefix) }

// RegisterSession replaces the capabilities of a session. The map is copied;
// later changes by the caller are not observed. The public subset is pushed
// to every sink.
func (r *Registry) RegisterSession(sessionID string, handlers map[string]Handler) {
	snapshot := maps.Clone(handlers)
	if snapshot == nil {
		snapshot = map[string]Handler{}
	}

	r.mu.Lock()
	r.sessions[sessionID] = snapshot
	sinks := append([]ToolSink(nil), r.sinks...)
	r.mu.Unlock()

	public := publicTools(snapshot)
	r.logger.Info("capability.session.registered", "session_id", sessionID, "capabilities", len(snapshot), "public", len(public))
	for _, s := range sinks {
		s.SetTools(public)
	}
}

// UnregisterSession drops a session. Unknown sessions are ignored.
func (r *Registry) UnregisterSession(sessionID string) {
	r.mu.Lock()
	_, ok := r.sessions[sessionID]
	delete(r.sessions, sessionID)
	r.mu.Unlock()
	if ok {
		r.logger.Info("capability.session.unregistered", "session_id", sessionID)
	}
}

// HasSession reports whether sessionID is registered.
func (r *Registry) HasSession(sessionID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.sessions[sessionID]
	return ok
}

// ToolsFor returns the public tools of a session sorted by name, followed by
// the reserved control tools. Unknown sessions yield an empty slice.
func (r *Registry) ToolsFor(sessionID string) []core.Tool {
	r.mu.RLock()
	snapshot, ok := r.sessions[sessionID]
	r.mu.RUnlock()
	if !ok {
		return []core.Tool{}
	}
	return append(publicTools(snapshot), core.ControlTools()...)
}

// Lookup returns the handler registered under name for a session.
func (r *Registry) Lookup(sessionID, name string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.sessions[sessionID][name]
	return h, ok
}

// Snapshot returns a copy of the session's capability map, or nil if the
// session is unknown.
func (r *Registry) Snapshot(sessionID string) map[string]Handler {
	r.mu.RLock()
	defer r.mu.RUnlock()
	snapshot, ok := r.sessions[sessionID]
	if !ok {
		return nil
	}
	return maps.Clone(snapshot)
}

// Sessions returns registered session IDs in sorted order.
func (r *Registry) Sessions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func publicTools(handlers map[string]Handler) []core.Tool {
	names := make([]string, 0, len(handlers))
	for name := range handlers {
		if !IsPrivate(name) {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	tools := make([]core.Tool, 0, len(names)+2)
	for _, name := range names {
		tools = append(tools, ToolFor(name, handlers[name]))
	}
	return tools
}
