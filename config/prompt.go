package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hupe1980/testmesh/core"
	"gopkg.in/yaml.v3"
)

// promptFile is the on-disk layout of a prompt file. The agents section is
// preferred; llm_agent_prompt is the legacy layout.
type promptFile struct {
	Agents map[string]core.AgentPrompt `yaml:"agents"`
	Legacy map[string]core.AgentPrompt `yaml:"llm_agent_prompt"`
}

func (p promptFile) lookup(agent string) (core.AgentPrompt, bool) {
	if pr, ok := p.Agents[agent]; ok {
		return pr, true
	}
	pr, ok := p.Legacy[agent]
	return pr, ok
}

func readPromptFile(path string) (promptFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return promptFile{}, err
	}
	var pf promptFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return promptFile{}, fmt.Errorf("failed to parse prompt file: %w", err)
	}
	return pf, nil
}

// LoadPrompt loads the prompts of agent from a YAML prompt file.
func LoadPrompt(path, agent string) (core.AgentPrompt, error) {
	if path == "" {
		return core.AgentPrompt{}, &core.ConfigError{Source: agent, Err: errors.New("prompt file not set")}
	}
	if agent == "" {
		return core.AgentPrompt{}, &core.ConfigError{Source: path, Err: errors.New("agent name is required")}
	}

	pf, err := readPromptFile(path)
	if err != nil {
		return core.AgentPrompt{}, &core.ConfigError{Source: path, Err: err}
	}
	pr, ok := pf.lookup(agent)
	if !ok {
		return core.AgentPrompt{}, &core.ConfigError{Source: path, Err: fmt.Errorf("agent %q not found in prompt file", agent)}
	}
	return pr, nil
}

// ScanPromptFiles searches dir (non-recursively) for YAML prompt files and
// maps each of names to the first file, in lexical order, that defines it.
// A missing dir yields an empty map. Unparsable files are skipped.
func ScanPromptFiles(dir string, names []string) (map[string]string, error) {
	found := map[string]string{}
	if dir == "" || len(names) == 0 {
		return found, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return found, nil
		}
		return nil, fmt.Errorf("failed to scan prompt dir: %w", err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext == ".yaml" || ext == ".yml" {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)

	for _, f := range files {
		pf, err := readPromptFile(f)
		if err != nil {
			continue
		}
		for _, name := range names {
			if _, done := found[name]; done {
				continue
			}
			if _, ok := pf.lookup(name); ok {
				found[name] = f
			}
		}
	}
	return found, nil
}
