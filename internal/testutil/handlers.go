package testutil

import (
	"context"
	"sync"

	"github.com/hupe1980/testmesh/capability"
	"github.com/hupe1980/testmesh/core"
)

// Call is one recorded capability invocation.
type Call struct {
	Name   string
	Args   []any
	Kwargs map[string]any
}

// Recorder records capability invocations and published commands. It is
// safe for concurrent use.
type Recorder struct {
	mu       sync.Mutex
	calls    []Call
	commands []core.Command
	errs     map[string]error
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder { return &Recorder{errs: map[string]error{}} }

// FailWith makes the handler name return err (chainable).
func (r *Recorder) FailWith(name string, err error) *Recorder {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs[name] = err
	return r
}

// Handler returns a recording handler for name.
func (r *Recorder) Handler(name string) capability.Handler {
	return capability.SyncFunc(func(_ context.Context, args []any, kwargs map[string]any) error {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.calls = append(r.calls, Call{Name: name, Args: args, Kwargs: kwargs})
		return r.errs[name]
	})
}

// Handlers returns a capability map with a recording handler per name.
func (r *Recorder) Handlers(names ...string) map[string]capability.Handler {
	m := make(map[string]capability.Handler, len(names))
	for _, n := range names {
		m[n] = r.Handler(n)
	}
	return m
}

// OnCommand implements bus.CommandListener.
func (r *Recorder) OnCommand(_ context.Context, cmd core.Command) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands = append(r.commands, cmd)
	return nil
}

// Calls returns a copy of the recorded invocations.
func (r *Recorder) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Call(nil), r.calls...)
}

// Names returns the names of the recorded invocations in order.
func (r *Recorder) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, len(r.calls))
	for i, c := range r.calls {
		names[i] = c.Name
	}
	return names
}

// Commands returns a copy of the received commands.
func (r *Recorder) Commands() []core.Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]core.Command(nil), r.commands...)
}
