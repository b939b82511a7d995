package core

import "time"

// Default values applied to AgentConfig fields left unset in configuration.
const (
	DefaultTrigger     = "Keyword_fail"
	DefaultMaxTokens   = 1000
	DefaultTemperature = 0.7
)

// AgentConfig describes one language-model-backed advisor. It is loaded once
// at startup and treated as immutable afterwards.
type AgentConfig struct {
	Name         string         `yaml:"-" json:"name"`
	Enabled      bool           `yaml:"enabled" json:"enabled"`
	URL          string         `yaml:"url,omitempty" json:"url,omitempty"`
	Capabilities map[string]any `yaml:"capabilities,omitempty" json:"capabilities,omitempty"`
	Trigger      string         `yaml:"trigger,omitempty" json:"trigger,omitempty"`
	SystemPrompt string         `yaml:"system_prompt,omitempty" json:"system_prompt,omitempty"`
	UserPrompt   string         `yaml:"user_prompt,omitempty" json:"user_prompt,omitempty"`
	PromptFile   string         `yaml:"prompt_file,omitempty" json:"prompt_file,omitempty"`
	MaxTokens    int            `yaml:"max_tokens,omitempty" json:"max_tokens,omitempty"`
	Temperature  *float64       `yaml:"temperature,omitempty" json:"temperature,omitempty"`
}

// WithDefaults returns a copy with trigger, token and temperature defaults filled in.
func (c AgentConfig) WithDefaults() AgentConfig {
	if c.Trigger == "" {
		c.Trigger = DefaultTrigger
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = DefaultMaxTokens
	}
	if c.Temperature == nil {
		t := DefaultTemperature
		c.Temperature = &t
	}
	if c.Capabilities == nil {
		c.Capabilities = map[string]any{}
	}
	return c
}

// TemperatureOrDefault returns the configured temperature or DefaultTemperature.
func (c AgentConfig) TemperatureOrDefault() float64 {
	if c.Temperature == nil {
		return DefaultTemperature
	}
	return *c.Temperature
}

// Capability returns a string capability value (e.g. "model", "provider").
func (c AgentConfig) Capability(key string) string {
	if v, ok := c.Capabilities[key].(string); ok {
		return v
	}
	return ""
}

// AgentPrompt holds the prompts resolved for an agent, either inline in the
// configuration or loaded from a prompt file.
type AgentPrompt struct {
	SystemPrompt string `yaml:"system_prompt,omitempty" json:"system_prompt,omitempty"`
	UserPrompt   string `yaml:"user_prompt,omitempty" json:"user_prompt,omitempty"`
	MaxTokens    int    `yaml:"max_tokens,omitempty" json:"max_tokens,omitempty"`
}

// HistoryEntry is a compact record of a past runner event made available to
// agents as execution history.
type HistoryEntry struct {
	Trigger   string    `json:"trigger"`
	Name      string    `json:"name"`
	Status    string    `json:"status"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// AgentContext is the immutable snapshot handed to a single agent turn. The
// same instance may be shared read-only by all agents reacting to one event.
type AgentContext struct {
	Trigger          string         `json:"trigger"`
	EntityType       string         `json:"entity_type"`
	EntityID         string         `json:"entity_id"`
	EntityName       string         `json:"entity_name"`
	Status           string         `json:"status"`
	Message          string         `json:"message"`
	SessionID        string         `json:"session_id"`
	ScreenshotPath   string         `json:"screenshot_path,omitempty"`
	AvailableTools   []Tool         `json:"available_tools"`
	ExecutionHistory []HistoryEntry `json:"execution_history"`
}

// AgentAction is one tool invocation requested by an agent.
//
// Parameters may carry "args" ([]any) and "kwargs" (map[string]any) for
// capability handlers, or "reason" for pause_execution.
type AgentAction struct {
	ToolName   string         `json:"tool_name"`
	Parameters map[string]any `json:"parameters,omitempty"`
}

// Args returns the positional arguments carried in Parameters["args"].
func (a AgentAction) Args() []any {
	switch v := a.Parameters["args"].(type) {
	case []any:
		return v
	case []string:
		out := make([]any, len(v))
		for i, s := range v {
			out[i] = s
		}
		return out
	case nil:
		return []any{}
	default:
		return []any{v}
	}
}

// Kwargs returns the keyword arguments carried in Parameters["kwargs"].
func (a AgentAction) Kwargs() map[string]any {
	if v, ok := a.Parameters["kwargs"].(map[string]any); ok {
		return v
	}
	return map[string]any{}
}

// AgentResponse is the structured result of one agent turn.
// RequiresHumanInput short-circuits dispatch of all Actions.
type AgentResponse struct {
	Message            string        `json:"message"`
	Actions            []AgentAction `json:"actions,omitempty"`
	RequiresHumanInput bool          `json:"requires_human_input"`
}

// Suggestion is one record parsed from model output.
type Suggestion struct {
	Action string         `json:"action"`
	Target map[string]any `json:"target,omitempty"`
	Reason string         `json:"reason,omitempty"`
}
