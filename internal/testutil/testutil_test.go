package testutil

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hupe1980/testmesh/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventBuilder(t *testing.T) {
	ts := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	ev := NewEventBuilder().ID("e1").Keyword("Press Element").Fail("not found").Session("s1").Extra("attempt", 2).At(ts).Build()

	assert.Equal(t, "e1", ev.ID)
	assert.Equal(t, "Keyword_fail", ev.Trigger())
	assert.Equal(t, "Press Element", ev.Name)
	assert.Equal(t, "not found", ev.Message)
	assert.Equal(t, ts, ev.Timestamp)
	assert.Equal(t, 2, ev.Extra["attempt"])
	sid, ok := ev.SessionID()
	require.True(t, ok)
	assert.Equal(t, "s1", sid)
}

func TestEventBuilder_Defaults(t *testing.T) {
	ev := NewEventBuilder().TestCase("login").Pass().Build()
	assert.Equal(t, "TestCase_pass", ev.Trigger())
	assert.NotEmpty(t, ev.ID)
	_, ok := ev.SessionID()
	assert.False(t, ok)
}

func TestRecorder(t *testing.T) {
	r := NewRecorder().FailWith("swipe", errors.New("boom"))
	hs := r.Handlers("press_element", "swipe")

	require.NoError(t, hs["press_element"].Invoke(context.Background(), []any{"OK"}, nil))
	require.Error(t, hs["swipe"].Invoke(context.Background(), nil, map[string]any{"dir": "up"}))
	require.NoError(t, r.OnCommand(context.Background(), core.Command{Type: core.CommandPause, SessionID: "s1"}))

	assert.Equal(t, []string{"press_element", "swipe"}, r.Names())
	assert.Equal(t, []any{"OK"}, r.Calls()[0].Args)
	assert.Len(t, r.Commands(), 1)
}
