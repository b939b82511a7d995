package agent

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/hupe1980/testmesh/core"
	"github.com/hupe1980/testmesh/internal/util"
	"github.com/hupe1980/testmesh/logging"
	"github.com/hupe1980/testmesh/model"
	"github.com/hupe1980/testmesh/parser"
)

// Prompts used when neither the config nor a prompt file provides one.
const (
	DefaultSystemPrompt = "You are an AI assistant helping with test automation tasks. " +
		"You have access to various tools to help with your tasks."
	DefaultUserPrompt = "The test automation has encountered an event that requires your attention. " +
		"Review the information provided and take appropriate action using available tools."

	// responseFormat tells the model how to express tool invocations.
	responseFormat = "Respond with a JSON array of objects, each with:\n" +
		"- \"action\": the name of one available tool\n" +
		"- \"target\": an object with the tool arguments (use \"element_name\" for a single element, " +
		"or \"args\" and \"kwargs\")\n" +
		"- \"reason\": a brief explanation\n" +
		"Respond with [] if no action is needed."
)

// Messages returned without consulting the model.
const (
	MsgDisabled       = "LLM Agent is disabled"
	MsgNotInitialized = "Agent not properly initialized with tools"
)

// Turn captures one exchange with the model.
type Turn struct {
	Prompt   model.Prompt
	Raw      string
	Response core.AgentResponse
}

// Client executes turns for a single agent. It is safe for concurrent use;
// tools may be replaced while turns are running.
type Client struct {
	name      string
	cfg       core.AgentConfig
	prompt    core.AgentPrompt
	inference model.Inference
	parser    *parser.Parser
	logger    logging.Logger

	mu    sync.RWMutex
	tools []core.Tool
}

// NewClient binds an agent config and its resolved prompts to an inference backend.
func NewClient(name string, cfg core.AgentConfig, prompt core.AgentPrompt, inference model.Inference, p *parser.Parser, logger logging.Logger) *Client {
	if p == nil {
		p = parser.New()
	}
	return &Client{
		name:      name,
		cfg:       cfg,
		prompt:    prompt,
		inference: inference,
		parser:    p,
		logger:    logging.OrNoOp(logger),
	}
}

// Name returns the agent name.
func (c *Client) Name() string { return c.name }

// Config returns the agent config.
func (c *Client) Config() core.AgentConfig { return c.cfg }

// Prompt returns the resolved prompts.
func (c *Client) Prompt() core.AgentPrompt { return c.prompt }

// Inference returns the bound inference backend.
func (c *Client) Inference() model.Inference { return c.inference }

// RegisterTools replaces the public tools known to this agent. Private names
// are dropped.
func (c *Client) RegisterTools(tools []core.Tool) {
	public := make([]core.Tool, 0, len(tools))
	for _, t := range tools {
		if !strings.HasPrefix(t.Name, core.PrivatePrefix) {
			public = append(public, t)
		}
	}
	c.mu.Lock()
	c.tools = public
	c.mu.Unlock()
	c.logger.Info("agent.tools.registered", "agent", c.name, "tools", len(public))
}

// Tools returns the registered tools; nil until RegisterTools was called.
func (c *Client) Tools() []core.Tool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.tools == nil {
		return nil
	}
	return append([]core.Tool(nil), c.tools...)
}

func (c *Client) toolsRegistered() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tools != nil
}

// Execute runs one turn and returns only the structured response.
func (c *Client) Execute(ctx context.Context, actx core.AgentContext) (core.AgentResponse, error) {
	turn, err := c.ExecuteTurn(ctx, actx)
	if err != nil {
		return core.AgentResponse{}, err
	}
	return turn.Response, nil
}

// ExecuteTurn runs one turn. A disabled agent or an agent without tools
// answers without calling the model. Inference failures are returned as
// *core.TransportError and unparsable output as *core.ParseError; in the
// latter case the returned Turn still carries the raw output.
func (c *Client) ExecuteTurn(ctx context.Context, actx core.AgentContext) (Turn, error) {
	if !c.cfg.Enabled {
		return Turn{Response: core.AgentResponse{Message: MsgDisabled}}, nil
	}
	if !c.toolsRegistered() {
		c.logger.Error("agent.not_initialized", "agent", c.name)
		return Turn{Response: core.AgentResponse{Message: MsgNotInitialized, RequiresHumanInput: true}}, nil
	}

	p, err := c.BuildPrompt(actx)
	if err != nil {
		return Turn{}, err
	}

	raw, err := c.inference.Complete(ctx, p)
	if err != nil {
		return Turn{Prompt: p}, asTransportError(c.inference, err)
	}
	turn := Turn{Prompt: p, Raw: raw}

	suggestions, err := c.parser.Parse(raw)
	if err != nil {
		return turn, err
	}

	actions := make([]core.AgentAction, 0, len(suggestions))
	for _, s := range suggestions {
		if s.Action == "" {
			c.logger.Warn("agent.suggestion.no_action", "agent", c.name, "reason", s.Reason)
			continue
		}
		actions = append(actions, ToAction(s))
	}
	turn.Response = core.AgentResponse{Message: raw, Actions: actions}
	return turn, nil
}

// BuildPrompt renders the user prompt against the context and appends the
// event details and the tool listing.
func (c *Client) BuildPrompt(actx core.AgentContext) (model.Prompt, error) {
	system := c.prompt.SystemPrompt
	if system == "" {
		system = DefaultSystemPrompt
	}
	userTmpl := c.prompt.UserPrompt
	if userTmpl == "" {
		userTmpl = DefaultUserPrompt
	}
	user, err := util.RenderTemplate(userTmpl, templateData(actx))
	if err != nil {
		return model.Prompt{}, &core.ConfigError{Source: c.name, Err: err}
	}

	maxTokens := c.prompt.MaxTokens
	if maxTokens <= 0 {
		maxTokens = c.cfg.MaxTokens
	}

	return model.Prompt{
		System:      system,
		User:        user,
		Context:     ContextText(actx) + "\n" + ToolsText(actx.AvailableTools) + "\n" + responseFormat,
		MaxTokens:   maxTokens,
		Temperature: c.cfg.TemperatureOrDefault(),
	}, nil
}

// ContextText renders the event part of an agent context.
func ContextText(actx core.AgentContext) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Event: %s\n", actx.Trigger)
	fmt.Fprintf(&sb, "Entity: %s - %s\n", actx.EntityType, actx.EntityName)
	fmt.Fprintf(&sb, "Status: %s\n", actx.Status)
	fmt.Fprintf(&sb, "Message: %s\n", actx.Message)
	if actx.ScreenshotPath != "" {
		fmt.Fprintf(&sb, "Screenshot is available at: %s\n", actx.ScreenshotPath)
	}
	if len(actx.ExecutionHistory) > 0 {
		sb.WriteString("Recent events:\n")
		for _, h := range actx.ExecutionHistory {
			fmt.Fprintf(&sb, "- %s %s: %s\n", h.Trigger, h.Name, h.Message)
		}
	}
	return sb.String()
}

// ToolsText renders the tool listing, one "- name(k: v, ...): description" line per tool.
func ToolsText(tools []core.Tool) string {
	var sb strings.Builder
	sb.WriteString("Available tools:\n")
	for _, t := range tools {
		keys := make([]string, 0, len(t.Parameters))
		for k := range t.Parameters {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		params := make([]string, len(keys))
		for i, k := range keys {
			params[i] = fmt.Sprintf("%s: %v", k, t.Parameters[k])
		}
		fmt.Fprintf(&sb, "- %s(%s): %s\n", t.Name, strings.Join(params, ", "), t.Description)
	}
	return sb.String()
}

// ToAction converts a parsed suggestion into an agent action. Targets with
// "args" or "kwargs" keys are passed through; pause_execution takes its
// reason from the target or the suggestion; otherwise the aliased element
// becomes the single positional argument and an unaliased target is passed
// as keyword arguments.
func ToAction(s core.Suggestion) core.AgentAction {
	action := core.AgentAction{ToolName: s.Action, Parameters: map[string]any{}}

	if args, ok := s.Target["args"]; ok {
		action.Parameters["args"] = args
	}
	if kwargs, ok := s.Target["kwargs"]; ok {
		action.Parameters["kwargs"] = kwargs
	}
	if len(action.Parameters) > 0 {
		return action
	}

	if s.Action == core.PauseToolName {
		if r, ok := s.Target["reason"].(string); ok && r != "" {
			action.Parameters["reason"] = r
		} else if s.Reason != "" {
			action.Parameters["reason"] = s.Reason
		}
		return action
	}

	if v, ok := parser.ResolveTarget(s.Target); ok {
		action.Parameters["args"] = []any{v}
		return action
	}
	if len(s.Target) > 0 {
		action.Parameters["kwargs"] = s.Target
	}
	return action
}

func templateData(actx core.AgentContext) map[string]any {
	return map[string]any{
		"Trigger":        actx.Trigger,
		"EventType":      actx.Trigger,
		"EntityType":     actx.EntityType,
		"EntityID":       actx.EntityID,
		"EntityName":     actx.EntityName,
		"Status":         actx.Status,
		"Message":        actx.Message,
		"SessionID":      actx.SessionID,
		"ScreenshotPath": actx.ScreenshotPath,
		"Tools":          actx.AvailableTools,
		"History":        actx.ExecutionHistory,
	}
}

func asTransportError(inf model.Inference, err error) error {
	var terr *core.TransportError
	if errors.As(err, &terr) {
		return err
	}
	return &core.TransportError{Provider: inf.Info().Provider, Err: err}
}
