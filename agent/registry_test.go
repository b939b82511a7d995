package agent

import (
	"errors"
	"testing"

	"github.com/hupe1980/testmesh/core"
	"github.com/hupe1980/testmesh/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry(t *testing.T, optFns ...func(o *Options)) *Registry {
	t.Helper()
	fns := append([]func(o *Options){func(o *Options) {
		o.Factory = StaticFactory(model.NewMockModel("mock").SetDefault("[]"))
	}}, optFns...)
	return NewRegistry(fns...)
}

func enabled(trigger string) core.AgentConfig {
	return core.AgentConfig{Enabled: true, Trigger: trigger}
}

func TestRegistry_DisabledAgentNeverRegistered(t *testing.T) {
	r := newTestRegistry(t)
	require.NoError(t, r.Register("off", core.AgentConfig{Enabled: false}))

	assert.Empty(t, r.AgentsFor(core.DefaultTrigger))
	assert.Empty(t, r.Names())
	_, ok := r.Client("off")
	assert.False(t, ok)
}

func TestRegistry_AgentsForRegistrationOrder(t *testing.T) {
	r := newTestRegistry(t)
	require.NoError(t, r.Register("c", enabled("Keyword_fail")))
	require.NoError(t, r.Register("a", enabled("Keyword_fail")))
	require.NoError(t, r.Register("b", enabled("Step_fail")))

	assert.Equal(t, []string{"c", "a"}, r.AgentsFor("Keyword_fail"))
	assert.Equal(t, []string{"b"}, r.AgentsFor("Step_fail"))
	assert.Empty(t, r.AgentsFor("Keyword_pass"))
	assert.Equal(t, []string{"c", "a", "b"}, r.Names())
}

func TestRegistry_AgentsForReturnsCopy(t *testing.T) {
	r := newTestRegistry(t)
	require.NoError(t, r.Register("a", enabled("Keyword_fail")))

	names := r.AgentsFor("Keyword_fail")
	names[0] = "mutated"
	assert.Equal(t, []string{"a"}, r.AgentsFor("Keyword_fail"))
}

func TestRegistry_ReRegisterDoesNotDuplicate(t *testing.T) {
	r := newTestRegistry(t)
	require.NoError(t, r.Register("a", enabled("Keyword_fail")))
	require.NoError(t, r.Register("b", enabled("Keyword_fail")))

	cfg := enabled("Keyword_fail")
	cfg.SystemPrompt = "updated"
	require.NoError(t, r.Register("a", cfg))

	assert.Equal(t, []string{"a", "b"}, r.AgentsFor("Keyword_fail"))
	got, ok := r.Config("a")
	require.True(t, ok)
	assert.Equal(t, "updated", got.SystemPrompt)

	require.NoError(t, r.Register("a", enabled("Step_fail")))
	assert.Equal(t, []string{"b"}, r.AgentsFor("Keyword_fail"))
	assert.Equal(t, []string{"a"}, r.AgentsFor("Step_fail"))
	assert.Equal(t, []string{"a", "b"}, r.Names())
}

func TestRegistry_AppliesDefaults(t *testing.T) {
	r := newTestRegistry(t)
	require.NoError(t, r.Register("a", core.AgentConfig{Enabled: true}))

	cfg, ok := r.Config("a")
	require.True(t, ok)
	assert.Equal(t, "a", cfg.Name)
	assert.Equal(t, core.DefaultTrigger, cfg.Trigger)
	assert.Equal(t, []string{"a"}, r.AgentsFor("Keyword_fail"))
	assert.Equal(t, map[string][]string{"Keyword_fail": {"a"}}, r.Triggers())
}

func TestRegistry_FactoryError(t *testing.T) {
	sentinel := errors.New("no endpoint")
	r := NewRegistry(func(o *Options) {
		o.Factory = func(core.AgentConfig) (model.Inference, error) { return nil, sentinel }
	})

	err := r.Register("a", enabled("Keyword_fail"))
	var cerr *core.ConfigError
	require.ErrorAs(t, err, &cerr)
	assert.ErrorIs(t, err, sentinel)
	assert.Empty(t, r.Names())
}

func TestRegistry_PromptResolution(t *testing.T) {
	loader := func(path, agent string) (core.AgentPrompt, error) {
		if path == "good.yaml" {
			return core.AgentPrompt{SystemPrompt: "from file " + agent}, nil
		}
		return core.AgentPrompt{}, errors.New("missing")
	}
	r := newTestRegistry(t, func(o *Options) { o.PromptLoader = loader })

	fromFile := enabled("Keyword_fail")
	fromFile.PromptFile = "good.yaml"
	require.NoError(t, r.Register("file", fromFile))

	fallback := enabled("Keyword_fail")
	fallback.PromptFile = "bad.yaml"
	fallback.SystemPrompt = "inline"
	require.NoError(t, r.Register("fallback", fallback))

	c, _ := r.Client("file")
	assert.Equal(t, "from file file", c.Prompt().SystemPrompt)
	c, _ = r.Client("fallback")
	assert.Equal(t, "inline", c.Prompt().SystemPrompt)
	assert.Equal(t, core.DefaultMaxTokens, c.Prompt().MaxTokens)
}

func TestRegistry_SetTools(t *testing.T) {
	r := newTestRegistry(t)
	require.NoError(t, r.Register("early", enabled("Keyword_fail")))

	c, _ := r.Client("early")
	assert.Nil(t, c.Tools())

	r.SetTools([]core.Tool{{Name: "press_element"}, {Name: "_private"}})
	assert.Equal(t, []core.Tool{{Name: "press_element"}}, c.Tools())

	require.NoError(t, r.Register("late", enabled("Keyword_fail")))
	late, _ := r.Client("late")
	assert.Equal(t, []core.Tool{{Name: "press_element"}}, late.Tools())
}
