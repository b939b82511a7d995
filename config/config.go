// Package config loads testmesh settings and agent prompt files from YAML.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/hupe1980/testmesh/core"
	"github.com/hupe1980/testmesh/logging"
	"gopkg.in/yaml.v3"
)

// Defaults applied by Load.
const (
	DefaultOutputDir         = "execution_output"
	DefaultAgentTimeout      = 30 * time.Second
	DefaultHistoryLimit      = 20
	DefaultQueueSize         = 100
	DefaultLogLevel          = "info"
	DefaultLogFormat         = "json"
	DefaultRecoveryTimeout   = 15 * time.Second
	DefaultRecoveryProvider  = "ollama"
	DefaultRecoveryModel     = "gemma3:4b"
	DefaultRecoveryOllamaURL = "http://localhost:11434/v1"
)

// Config is the top-level configuration of a testmesh process.
type Config struct {
	Agents            map[string]core.AgentConfig `yaml:"llm_agents"`
	OutputDir         string                      `yaml:"output_dir"`
	PromptDir         string                      `yaml:"prompt_dir"`
	TranscriptDir     string                      `yaml:"transcript_dir"`
	WatchScreenshots  bool                        `yaml:"watch_screenshots"`
	AgentTimeout      time.Duration               `yaml:"agent_timeout"`
	MaxParallelAgents int                         `yaml:"max_parallel_agents"`
	HistoryLimit      int                         `yaml:"history_limit"`
	QueueSize         int                         `yaml:"queue_size"`
	LogLevel          string                      `yaml:"log_level"`
	LogFormat         string                      `yaml:"log_format"`
	Recovery          RecoveryConfig              `yaml:"recovery"`
}

// RecoveryConfig selects the inference endpoint used by the popup recovery path.
type RecoveryConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Provider string        `yaml:"provider"`
	Model    string        `yaml:"model"`
	URL      string        `yaml:"url"`
	APIKey   string        `yaml:"api_key"`
	Timeout  time.Duration `yaml:"timeout"`
}

// Load reads, expands and validates the configuration file at path.
// Relative prompt files and directories are resolved against the file's directory.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &core.ConfigError{Source: path, Err: fmt.Errorf("failed to read config file: %w", err)}
	}

	cfg, err := Parse(data)
	if err != nil {
		var cerr *core.ConfigError
		if errors.As(err, &cerr) && cerr.Source == "" {
			cerr.Source = path
		}
		return nil, err
	}

	if err := cfg.resolvePaths(filepath.Dir(path)); err != nil {
		return nil, &core.ConfigError{Source: path, Err: err}
	}
	return cfg, nil
}

// Parse decodes configuration bytes. ${VAR} references are expanded from the
// environment and unknown fields are rejected.
func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader([]byte(expanded)))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, &core.ConfigError{Err: fmt.Errorf("failed to parse config: %w", err)}
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, &core.ConfigError{Err: err}
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.OutputDir == "" {
		cfg.OutputDir = DefaultOutputDir
	}
	if cfg.AgentTimeout == 0 {
		cfg.AgentTimeout = DefaultAgentTimeout
	}
	if cfg.HistoryLimit == 0 {
		cfg.HistoryLimit = DefaultHistoryLimit
	}
	if cfg.QueueSize == 0 {
		cfg.QueueSize = DefaultQueueSize
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = DefaultLogLevel
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = DefaultLogFormat
	}
	if cfg.Recovery.Provider == "" {
		cfg.Recovery.Provider = DefaultRecoveryProvider
	}
	if cfg.Recovery.Timeout == 0 {
		cfg.Recovery.Timeout = DefaultRecoveryTimeout
	}
	if cfg.Recovery.Provider == "ollama" {
		if cfg.Recovery.URL == "" {
			cfg.Recovery.URL = DefaultRecoveryOllamaURL
		}
		if cfg.Recovery.Model == "" {
			cfg.Recovery.Model = DefaultRecoveryModel
		}
	}
	if cfg.Agents == nil {
		cfg.Agents = map[string]core.AgentConfig{}
	}
	for name, a := range cfg.Agents {
		a = a.WithDefaults()
		a.Name = name
		cfg.Agents[name] = a
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.AgentTimeout < 0 {
		return fmt.Errorf("agent_timeout must not be negative")
	}
	if c.MaxParallelAgents < 0 {
		return fmt.Errorf("max_parallel_agents must not be negative")
	}
	if c.HistoryLimit < 0 {
		return fmt.Errorf("history_limit must not be negative")
	}
	if c.QueueSize < 0 {
		return fmt.Errorf("queue_size must not be negative")
	}
	if _, ok := logging.ParseLevel(c.LogLevel); !ok {
		return fmt.Errorf("unknown log_level %q", c.LogLevel)
	}
	if c.LogFormat != "json" && c.LogFormat != "text" {
		return fmt.Errorf("unknown log_format %q", c.LogFormat)
	}
	if !knownProvider(c.Recovery.Provider) {
		return fmt.Errorf("recovery: unknown provider %q", c.Recovery.Provider)
	}

	for _, name := range c.AgentNames() {
		a := c.Agents[name]
		if a.MaxTokens < 0 {
			return fmt.Errorf("llm_agents.%s: max_tokens must not be negative", name)
		}
		if t := a.TemperatureOrDefault(); t < 0 || t > 2 {
			return fmt.Errorf("llm_agents.%s: temperature %.2f out of range [0,2]", name, t)
		}
		if !strings.Contains(a.Trigger, "_") {
			return fmt.Errorf("llm_agents.%s: trigger %q is not of the form <entity>_<status>", name, a.Trigger)
		}
		if p := a.Capability("provider"); p != "" && !knownProvider(p) {
			return fmt.Errorf("llm_agents.%s: unknown provider %q", name, p)
		}
	}
	return nil
}

// AgentNames returns configured agent names in sorted order.
func (c *Config) AgentNames() []string {
	names := make([]string, 0, len(c.Agents))
	for name := range c.Agents {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// EnabledAgents returns the enabled agent configs in sorted name order.
func (c *Config) EnabledAgents() []core.AgentConfig {
	var out []core.AgentConfig
	for _, name := range c.AgentNames() {
		if a := c.Agents[name]; a.Enabled {
			out = append(out, a)
		}
	}
	return out
}

func (c *Config) resolvePaths(baseDir string) error {
	c.OutputDir = resolve(baseDir, c.OutputDir)
	if c.TranscriptDir != "" {
		c.TranscriptDir = resolve(baseDir, c.TranscriptDir)
	}
	if c.PromptDir == "" {
		c.PromptDir = baseDir
	} else {
		c.PromptDir = resolve(baseDir, c.PromptDir)
	}

	discovered, err := ScanPromptFiles(c.PromptDir, c.AgentNames())
	if err != nil {
		return err
	}
	for name, a := range c.Agents {
		if a.PromptFile != "" {
			a.PromptFile = resolve(baseDir, a.PromptFile)
		} else {
			a.PromptFile = discovered[name]
		}
		c.Agents[name] = a
	}
	return nil
}

func resolve(baseDir, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(baseDir, p)
}

func knownProvider(p string) bool {
	switch p {
	case "openai", "ollama", "anthropic":
		return true
	}
	return false
}
