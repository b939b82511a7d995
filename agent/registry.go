package agent

import (
	"slices"
	"sync"

	"github.com/hupe1980/testmesh/config"
	"github.com/hupe1980/testmesh/core"
	"github.com/hupe1980/testmesh/logging"
	"github.com/hupe1980/testmesh/parser"
)

// PromptLoader resolves the prompts of an agent from a prompt file.
type PromptLoader func(path, agent string) (core.AgentPrompt, error)

// Options configure a Registry.
type Options struct {
	// Factory builds the inference backend of each agent. Defaults to DefaultClientFactory.
	Factory ClientFactory
	// PromptLoader defaults to config.LoadPrompt.
	PromptLoader PromptLoader
	// Parser decodes model output for every client. Defaults to a strict parser.
	Parser *parser.Parser
	Logger logging.Logger
}

// Registry stores agent configs, their clients and the trigger map.
type Registry struct {
	mu       sync.RWMutex
	configs  map[string]core.AgentConfig
	clients  map[string]*Client
	triggers map[string][]string
	order    []string
	tools    []core.Tool

	opts   Options
	logger logging.Logger
}

// NewRegistry creates an empty Registry.
func NewRegistry(optFns ...func(o *Options)) *Registry {
	opts := Options{
		Factory:      DefaultClientFactory,
		PromptLoader: config.LoadPrompt,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Parser == nil {
		opts.Parser = parser.New(func(o *parser.Options) { o.Logger = opts.Logger })
	}
	return &Registry{
		configs:  make(map[string]core.AgentConfig),
		clients:  make(map[string]*Client),
		triggers: make(map[string][]string),
		opts:     opts,
		logger:   logging.OrNoOp(opts.Logger),
	}
}

// Register adds or replaces an agent. Disabled configs are ignored. A
// replaced agent keeps its trigger position when the trigger is unchanged.
// Factory failures are returned as *core.ConfigError and leave the registry
// untouched.
func (r *Registry) Register(name string, cfg core.AgentConfig) error {
	if !cfg.Enabled {
		r.logger.Debug("agent.register.disabled", "agent", name)
		return nil
	}
	cfg = cfg.WithDefaults()
	cfg.Name = name

	inference, err := r.opts.Factory(cfg)
	if err != nil {
		return &core.ConfigError{Source: name, Err: err}
	}
	client := NewClient(name, cfg, r.resolvePrompt(name, cfg), inference, r.opts.Parser, r.logger)

	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.configs[name]; ok {
		if prev.Trigger != cfg.Trigger {
			r.triggers[prev.Trigger] = slices.DeleteFunc(r.triggers[prev.Trigger], func(n string) bool { return n == name })
			if len(r.triggers[prev.Trigger]) == 0 {
				delete(r.triggers, prev.Trigger)
			}
			r.triggers[cfg.Trigger] = append(r.triggers[cfg.Trigger], name)
		}
	} else {
		r.order = append(r.order, name)
		r.triggers[cfg.Trigger] = append(r.triggers[cfg.Trigger], name)
	}
	r.configs[name] = cfg
	r.clients[name] = client
	if r.tools != nil {
		client.RegisterTools(r.tools)
	}

	r.logger.Info("agent.registered", "agent", name, "trigger", cfg.Trigger, "provider", inference.Info().Provider)
	return nil
}

func (r *Registry) resolvePrompt(name string, cfg core.AgentConfig) core.AgentPrompt {
	if cfg.PromptFile != "" && r.opts.PromptLoader != nil {
		p, err := r.opts.PromptLoader(cfg.PromptFile, name)
		if err == nil {
			return p
		}
		r.logger.Error("agent.prompt.load_failed", "agent", name, "file", cfg.PromptFile, "error", err.Error())
	}
	return core.AgentPrompt{
		SystemPrompt: cfg.SystemPrompt,
		UserPrompt:   cfg.UserPrompt,
		MaxTokens:    cfg.MaxTokens,
	}
}

// AgentsFor returns the agents registered for a trigger in registration order.
func (r *Registry) AgentsFor(trigger string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.triggers[trigger])
}

// Client returns the client of an agent.
func (r *Registry) Client(name string) (*Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.clients[name]
	return c, ok
}

// Config returns the effective config of an agent.
func (r *Registry) Config(name string) (core.AgentConfig, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.configs[name]
	return c, ok
}

// Names returns all registered agents in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.order)
}

// Triggers returns a copy of the trigger map.
func (r *Registry) Triggers() map[string][]string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string][]string, len(r.triggers))
	for k, v := range r.triggers {
		out[k] = slices.Clone(v)
	}
	return out
}

// SetTools pushes the public tool set to every client, including clients
// registered later.
func (r *Registry) SetTools(tools []core.Tool) {
	r.mu.Lock()
	r.tools = slices.Clone(tools)
	if r.tools == nil {
		r.tools = []core.Tool{}
	}
	clients := make([]*Client, 0, len(r.order))
	for _, name := range r.order {
		clients = append(clients, r.clients[name])
	}
	r.mu.Unlock()

	for _, c := range clients {
		c.RegisterTools(tools)
	}
}
