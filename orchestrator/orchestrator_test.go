package orchestrator

import (
	"context"
	"testing"
	"time"

	"github.com/hupe1980/testmesh/bus"
	"github.com/hupe1980/testmesh/core"
	"github.com/hupe1980/testmesh/history"
	"github.com/hupe1980/testmesh/model"
	"github.com/hupe1980/testmesh/screenshot"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newOrchestrator(f *fixture, h history.Store) *Orchestrator {
	b := NewBuilder(f.caps, func(o *BuilderOptions) {
		o.Screenshots = screenshot.None
		o.History = h
	})
	return New(f.agents, b, NewExecutor(f.agents, f.dispatcher()), func(o *Options) { o.History = h })
}

func TestOrchestrator_Handle(t *testing.T) {
	mock := model.NewMockModel("a").SetDefault(press("Continue"))
	f := setup(t, []string{"press_element"}, namedInference{"a", mock})

	results := newOrchestrator(f, nil).Handle(context.Background(), failEvent())

	require.Len(t, results, 1)
	assert.Equal(t, []string{"press_element"}, f.rec.Calls())
	assert.Equal(t, []any{"Continue"}, f.rec.args["press_element"])
}

func TestOrchestrator_NoMatchingAgents(t *testing.T) {
	mock := model.NewMockModel("a").SetDefault(press("Continue"))
	f := setup(t, []string{"press_element"}, namedInference{"a", mock})

	ev := core.NewEvent("Keyword", "k1", "x", core.StatusPass, "").WithSession("s1")
	assert.Nil(t, newOrchestrator(f, nil).Handle(context.Background(), ev))
	assert.Empty(t, mock.Prompts())
}

func TestOrchestrator_MissingSessionID(t *testing.T) {
	mock := model.NewMockModel("a").SetDefault(press("Continue"))
	f := setup(t, []string{"press_element"}, namedInference{"a", mock})

	ev := core.NewEvent("Keyword", "k1", "x", core.StatusFail, "")
	assert.Nil(t, newOrchestrator(f, nil).Handle(context.Background(), ev))
	assert.Empty(t, mock.Prompts())
	assert.Empty(t, f.rec.Calls())
}

func TestOrchestrator_RecordsHistoryAfterProcessing(t *testing.T) {
	mock := model.NewMockModel("a").SetDefault("[]")
	f := setup(t, []string{"press_element"}, namedInference{"a", mock})
	h := history.NewInMemoryStore(0)
	o := newOrchestrator(f, h)

	o.Handle(context.Background(), core.NewEvent("Keyword", "k0", "Launch", core.StatusPass, "").WithSession("s1"))
	o.Handle(context.Background(), failEvent())
	o.Handle(context.Background(), failEvent())

	prompts := mock.Prompts()
	require.Len(t, prompts, 2)
	assert.Contains(t, prompts[0].Context, "Keyword_pass Launch")
	assert.NotContains(t, prompts[0].Context, "Keyword_fail Press Element")
	assert.Contains(t, prompts[1].Context, "Keyword_fail Press Element")
	assert.Len(t, h.Recent("s1", 10), 3)
}

func TestOrchestrator_OverBus(t *testing.T) {
	mock := model.NewMockModel("a").SetDefault(`[{"action": "pause_execution", "reason": "captcha"}]`)
	f := setup(t, []string{"press_element"}, namedInference{"a", mock})

	b := bus.New()
	builder := NewBuilder(f.caps, func(o *BuilderOptions) { o.Screenshots = screenshot.None })
	b.Subscribe(New(f.agents, builder, NewExecutor(f.agents, NewDispatcher(f.caps, b))))

	paused := make(chan core.Command, 1)
	b.SubscribeCommands(bus.CommandListenerFunc(func(_ context.Context, cmd core.Command) error {
		paused <- cmd
		return nil
	}))

	require.NoError(t, b.Publish(context.Background(), failEvent()))

	select {
	case cmd := <-paused:
		assert.Equal(t, core.CommandPause, cmd.Type)
		assert.Equal(t, "s1", cmd.SessionID)
		assert.Equal(t, "captcha", cmd.Reason())
	case <-time.After(2 * time.Second):
		t.Fatal("pause command not delivered")
	}
	b.Close()
}

func TestOrchestrator_HistorySkipsUnknownSessions(t *testing.T) {
	mock := model.NewMockModel("a").SetDefault("[]")
	f := setup(t, []string{"press_element"}, namedInference{"a", mock})
	h := history.NewInMemoryStore(0)
	o := newOrchestrator(f, h)

	o.Handle(context.Background(), core.NewEvent("Keyword", "k1", "x", core.StatusFail, "").WithSession("ghost"))

	assert.Empty(t, h.Recent("ghost", 10))
	assert.Empty(t, mock.Prompts())
}

func TestOrchestrator_HistorySkipsSessionUnregisteredDuringTurn(t *testing.T) {
	var f *fixture
	inf := model.InferenceFunc(func(context.Context, model.Prompt) (string, error) {
		f.caps.UnregisterSession("s1")
		return "[]", nil
	})
	f = setup(t, []string{"press_element"}, namedInference{"a", inf})
	h := history.NewInMemoryStore(0)

	results := newOrchestrator(f, h).Handle(context.Background(), failEvent())

	require.Len(t, results, 1)
	require.NoError(t, results[0].Err)
	assert.False(t, f.caps.HasSession("s1"))
	assert.Empty(t, h.Recent("s1", 10))
}
