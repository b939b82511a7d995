package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/hupe1980/testmesh/capability"
	"github.com/hupe1980/testmesh/core"
	"github.com/hupe1980/testmesh/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatcher_OrderAndArguments(t *testing.T) {
	f := setup(t, []string{"press_element", "enter_text"})

	n := f.dispatcher().Dispatch(context.Background(), "s1", []core.AgentAction{
		{ToolName: "enter_text", Parameters: map[string]any{"args": []any{"user", "alice"}}},
		{ToolName: "press_element", Parameters: map[string]any{"args": []any{"Login"}}},
		{ToolName: "press_element", Parameters: map[string]any{"args": []any{"Login"}}},
	})

	assert.Equal(t, 3, n)
	assert.Equal(t, []string{"enter_text", "press_element", "press_element"}, f.rec.Calls())
	assert.Equal(t, []any{"user", "alice"}, f.rec.args["enter_text"])
}

func TestDispatcher_ControlTools(t *testing.T) {
	f := setup(t, nil)

	n := f.dispatcher().Dispatch(context.Background(), "s1", []core.AgentAction{
		{ToolName: core.PauseToolName},
		{ToolName: core.PauseToolName, Parameters: map[string]any{"reason": "captcha"}},
		{ToolName: core.ResumeToolName},
	})

	assert.Equal(t, 3, n)
	cmds := f.rec.Commands()
	require.Len(t, cmds, 3)
	assert.Equal(t, core.CommandPause, cmds[0].Type)
	assert.Equal(t, DefaultPauseReason, cmds[0].Reason())
	assert.Equal(t, "s1", cmds[0].SessionID)
	assert.Equal(t, "captcha", cmds[1].Reason())
	assert.Equal(t, core.CommandResume, cmds[2].Type)
}

func TestDispatcher_UnknownAndFailingTools(t *testing.T) {
	f := setup(t, []string{"press_element"})
	reg := prometheus.NewRegistry()
	m := metrics.MustNewMetrics(reg)

	f.caps.RegisterSession("s1", map[string]capability.Handler{
		"press_element": f.rec.handler("press_element"),
		"_secret":       f.rec.handler("_secret"),
		"broken": capability.SyncFunc(func(context.Context, []any, map[string]any) error {
			return errors.New("element stale")
		}),
		"panicky": capability.SyncFunc(func(context.Context, []any, map[string]any) error {
			panic("driver crashed")
		}),
	})
	d := NewDispatcher(f.caps, f.rec, func(o *DispatcherOptions) { o.Metrics = m })

	n := d.Dispatch(context.Background(), "s1", []core.AgentAction{
		{ToolName: "missing"},
		{ToolName: "_secret"},
		{ToolName: "broken"},
		{ToolName: "panicky"},
		{ToolName: "press_element", Parameters: map[string]any{"args": []any{"OK"}}},
	})

	assert.Equal(t, 1, n)
	assert.Equal(t, []string{"press_element"}, f.rec.Calls())
	assert.Equal(t, 2.0, testutil.ToFloat64(m.DispatchCounter(metrics.UnknownToolLabel, metrics.OutcomeUnknown)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DispatchCounter("panicky", metrics.OutcomePanic)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DispatchCounter("broken", metrics.OutcomeError)))
}

func TestDispatcher_NoSession(t *testing.T) {
	f := setup(t, []string{"press_element"})

	n := f.dispatcher().Dispatch(context.Background(), "unknown", []core.AgentAction{
		{ToolName: "press_element"},
		{ToolName: core.PauseToolName},
	})

	assert.Zero(t, n)
	assert.Empty(t, f.rec.Calls())
	assert.Empty(t, f.rec.Commands())
}

func TestDispatcher_UnknownToolsShareOneSeries(t *testing.T) {
	f := setup(t, []string{"press_element"})
	reg := prometheus.NewRegistry()
	d := NewDispatcher(f.caps, f.rec, func(o *DispatcherOptions) { o.Metrics = metrics.MustNewMetrics(reg) })

	actions := make([]core.AgentAction, 0, 200)
	for i := range 200 {
		actions = append(actions, core.AgentAction{ToolName: fmt.Sprintf("invented_tool_%d", i)})
	}
	actions = append(actions, core.AgentAction{ToolName: "_private_name"})

	assert.Zero(t, d.Dispatch(context.Background(), "s1", actions))

	count, err := testutil.GatherAndCount(reg, "testmesh_actions_dispatched_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Equal(t, 201.0, testutil.ToFloat64(d.metrics.DispatchCounter(metrics.UnknownToolLabel, metrics.OutcomeUnknown)))
}
