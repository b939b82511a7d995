package orchestrator

import (
	"context"
	"sync"
	"testing"

	"github.com/hupe1980/testmesh/agent"
	"github.com/hupe1980/testmesh/capability"
	"github.com/hupe1980/testmesh/core"
	"github.com/hupe1980/testmesh/model"
	"github.com/stretchr/testify/require"
)

// recorder captures capability invocations and published commands in order.
type recorder struct {
	mu       sync.Mutex
	calls    []string
	args     map[string][]any
	commands []core.Command
}

func newRecorder() *recorder { return &recorder{args: map[string][]any{}} }

func (r *recorder) handler(name string) capability.Handler {
	return capability.SyncFunc(func(_ context.Context, args []any, _ map[string]any) error {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.calls = append(r.calls, name)
		r.args[name] = args
		return nil
	})
}

func (r *recorder) PublishCommand(_ context.Context, typ core.CommandType, sessionID string, params map[string]any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands = append(r.commands, core.Command{Type: typ, SessionID: sessionID, Params: params})
	return nil
}

func (r *recorder) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func (r *recorder) Commands() []core.Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]core.Command(nil), r.commands...)
}

// setup registers session "s1" with the given handler names and one agent per
// inference in the given order, all on trigger Keyword_fail.
type fixture struct {
	caps   *capability.Registry
	agents *agent.Registry
	rec    *recorder
}

type namedInference struct {
	name string
	inf  model.Inference
}

func setup(t *testing.T, handlers []string, agents ...namedInference) *fixture {
	t.Helper()
	byName := map[string]model.Inference{}
	for _, a := range agents {
		byName[a.name] = a.inf
	}

	f := &fixture{rec: newRecorder()}
	f.agents = agent.NewRegistry(func(o *agent.Options) {
		o.Factory = func(cfg core.AgentConfig) (model.Inference, error) { return byName[cfg.Name], nil }
	})
	for _, a := range agents {
		require.NoError(t, f.agents.Register(a.name, core.AgentConfig{Enabled: true, Trigger: "Keyword_fail"}))
	}

	f.caps = capability.NewRegistry(func(o *capability.Options) { o.Sinks = []capability.ToolSink{f.agents} })
	hs := map[string]capability.Handler{}
	for _, name := range handlers {
		hs[name] = f.rec.handler(name)
	}
	f.caps.RegisterSession("s1", hs)
	return f
}

func (f *fixture) dispatcher() *Dispatcher { return NewDispatcher(f.caps, f.rec) }

func failEvent() core.Event {
	return core.NewEvent("Keyword", "k1", "Press Element", core.StatusFail, "element not found").WithSession("s1")
}

func press(target string) string {
	return `[{"action": "press_element", "target": {"element_name": "` + target + `"}}]`
}
