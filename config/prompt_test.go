package config

import (
	"testing"

	"github.com/hupe1980/testmesh/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadPrompt(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "prompts.yaml", `
agents:
  popup_agent:
    system_prompt: You fix popups.
    user_prompt: "A {{.EntityType}} failed."
    max_tokens: 256
llm_agent_prompt:
  legacy_agent:
    system_prompt: Legacy.
`)

	pr, err := LoadPrompt(path, "popup_agent")
	require.NoError(t, err)
	assert.Equal(t, core.AgentPrompt{SystemPrompt: "You fix popups.", UserPrompt: "A {{.EntityType}} failed.", MaxTokens: 256}, pr)

	pr, err = LoadPrompt(path, "legacy_agent")
	require.NoError(t, err)
	assert.Equal(t, "Legacy.", pr.SystemPrompt)
}

func TestLoadPrompt_Errors(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "prompts.yaml", "agents:\n  a:\n    system_prompt: x")

	var cerr *core.ConfigError
	_, err := LoadPrompt(path, "unknown")
	require.ErrorAs(t, err, &cerr)
	assert.Contains(t, err.Error(), "unknown")

	_, err = LoadPrompt(path, "")
	require.ErrorAs(t, err, &cerr)

	_, err = LoadPrompt("", "a")
	require.ErrorAs(t, err, &cerr)

	_, err = LoadPrompt(dir+"/missing.yaml", "a")
	require.ErrorAs(t, err, &cerr)
}

func TestScanPromptFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.yaml", "agents:\n  one:\n    system_prompt: first")
	writeFile(t, dir, "b.yml", "agents:\n  one:\n    system_prompt: second\n  two:\n    system_prompt: x")
	writeFile(t, dir, "c.yaml", "llm_agent_prompt:\n  three:\n    system_prompt: legacy")
	writeFile(t, dir, "broken.yaml", "agents: [")
	writeFile(t, dir, "notes.txt", "agents:\n  four: {}")

	found, err := ScanPromptFiles(dir, []string{"one", "two", "three", "four"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"one":   dir + "/a.yaml",
		"two":   dir + "/b.yml",
		"three": dir + "/c.yaml",
	}, found)
}

func TestScanPromptFiles_MissingDir(t *testing.T) {
	found, err := ScanPromptFiles(t.TempDir()+"/nope", []string{"a"})
	require.NoError(t, err)
	assert.Empty(t, found)
}
