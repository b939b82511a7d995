// Package testmesh wires the agent layer of a UI test runner: an event bus
// the runner publishes step outcomes on, LLM agents reacting to configured
// triggers, the per-session capability space their suggestions execute in,
// and the model-guided recovery path for unexpected screens.
//
// Most applications interact with this package by:
//  1. Loading a configuration (config.Load) and creating a Mesh via New
//  2. Registering the capabilities of each runner session (RegisterSession)
//  3. Publishing runner events (Publish) and reporting failures (HandleError)
//
// Every component is constructed explicitly and owned by the Mesh; there is
// no package-level state.
package testmesh

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hupe1980/testmesh/agent"
	"github.com/hupe1980/testmesh/bus"
	"github.com/hupe1980/testmesh/capability"
	"github.com/hupe1980/testmesh/config"
	"github.com/hupe1980/testmesh/core"
	"github.com/hupe1980/testmesh/history"
	"github.com/hupe1980/testmesh/logging"
	"github.com/hupe1980/testmesh/metrics"
	"github.com/hupe1980/testmesh/model"
	"github.com/hupe1980/testmesh/orchestrator"
	"github.com/hupe1980/testmesh/parser"
	"github.com/hupe1980/testmesh/recovery"
	"github.com/hupe1980/testmesh/screenshot"
	"github.com/hupe1980/testmesh/transcript"
)

// Options configures a Mesh.
type Options struct {
	// Config is the loaded configuration; defaults apply when nil.
	Config *config.Config
	// Factory builds agent inference backends (defaults to agent.DefaultClientFactory).
	Factory agent.ClientFactory
	// RecoveryInference overrides the model used by the recovery path. When
	// nil it is built from Config.Recovery if recovery is enabled.
	RecoveryInference model.Inference
	// Screenshots overrides the latest-screenshot lookup.
	Screenshots screenshot.Locator
	// Transcripts overrides the transcript store. Defaults to a directory
	// store when Config.TranscriptDir is set, otherwise an in-memory store.
	Transcripts transcript.Store
	// Registerer receives the metric collectors (a private registry if nil).
	Registerer prometheus.Registerer
	// RepairJSON enables best-effort repair of malformed model output.
	RepairJSON bool
	// AfterTurn, if set, observes every finished agent turn.
	AfterTurn func(ctx context.Context, res orchestrator.TurnResult)
	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger
}

// Mesh is the composition root aggregating bus, registries, orchestrator and recovery.
type Mesh struct {
	cfg          *config.Config
	bus          *bus.Bus
	agents       *agent.Registry
	caps         *capability.Registry
	history      *history.InMemoryStore
	transcripts  transcript.Store
	metrics      *metrics.Metrics
	orchestrator *orchestrator.Orchestrator
	parser       *parser.Parser
	recoveryLLM  model.Inference
	recoveryOpts func(o *recovery.Options)
	closers      []func() error
	logger       logging.Logger
}

// New creates a Mesh, registers every enabled agent of the configuration and
// subscribes the orchestrator to the bus. Agents whose backend cannot be
// built are skipped with a logged ConfigError.
func New(optFns ...func(o *Options)) (*Mesh, error) {
	opts := Options{}
	for _, fn := range optFns {
		fn(&opts)
	}

	cfg := opts.Config
	if cfg == nil {
		var err error
		if cfg, err = config.Parse(nil); err != nil {
			return nil, err
		}
	}
	logger := logging.OrNoOp(opts.Logger)
	if opts.Registerer == nil {
		opts.Registerer = prometheus.NewRegistry()
	}

	m := &Mesh{
		cfg:     cfg,
		history: history.NewInMemoryStore(max(cfg.HistoryLimit, history.DefaultCapacity)),
		metrics: metrics.MustNewMetrics(opts.Registerer),
		logger:  logger,
	}

	if opts.RepairJSON {
		m.parser = parser.New(parser.WithRepair(), func(o *parser.Options) { o.Logger = logger })
	} else {
		m.parser = parser.New(func(o *parser.Options) { o.Logger = logger })
	}

	transcripts, err := m.transcriptStore(opts.Transcripts)
	if err != nil {
		return nil, err
	}
	m.transcripts = transcripts

	locator, err := m.screenshotLocator(opts.Screenshots)
	if err != nil {
		return nil, err
	}

	m.agents = agent.NewRegistry(func(o *agent.Options) {
		if opts.Factory != nil {
			o.Factory = opts.Factory
		}
		o.Parser = m.parser
		o.Logger = component(logger, "agent")
	})
	for _, name := range cfg.AgentNames() {
		if err := m.agents.Register(name, cfg.Agents[name]); err != nil {
			logger.Error("agent.register.failed", "agent", name, "error", err.Error())
		}
	}

	m.caps = capability.NewRegistry(func(o *capability.Options) {
		o.Sinks = []capability.ToolSink{m.agents}
		o.Logger = component(logger, "capability")
	})

	m.bus = bus.New(func(o *bus.Options) {
		o.QueueSize = cfg.QueueSize
		o.Logger = component(logger, "bus")
	})
	m.closers = append(m.closers, func() error { m.bus.Close(); return nil })

	orchLogger := component(logger, "orchestrator")
	dispatcher := orchestrator.NewDispatcher(m.caps, m.bus, func(o *orchestrator.DispatcherOptions) {
		o.Metrics = m.metrics
		o.Logger = orchLogger
	})
	executor := orchestrator.NewExecutor(m.agents, dispatcher, func(o *orchestrator.ExecutorOptions) {
		o.Timeout = cfg.AgentTimeout
		o.MaxParallel = cfg.MaxParallelAgents
		o.Transcripts = m.transcripts
		o.Metrics = m.metrics
		o.AfterTurn = opts.AfterTurn
		o.Logger = orchLogger
	})
	builder := orchestrator.NewBuilder(m.caps, func(o *orchestrator.BuilderOptions) {
		o.Screenshots = locator
		o.History = m.history
		o.HistoryLimit = cfg.HistoryLimit
		o.Logger = orchLogger
	})
	m.orchestrator = orchestrator.New(m.agents, builder, executor, func(o *orchestrator.Options) {
		o.History = m.history
		o.Logger = orchLogger
	})
	m.bus.Subscribe(m.orchestrator)

	if err := m.setupRecovery(opts.RecoveryInference); err != nil {
		m.Close()
		return nil, err
	}

	logger.Info("mesh.started", "agents", len(m.agents.Names()), "triggers", len(m.agents.Triggers()),
		"recovery", m.recoveryLLM != nil)
	return m, nil
}

// NewFromFile loads the configuration at path and creates a Mesh from it.
func NewFromFile(path string, optFns ...func(o *Options)) (*Mesh, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	return New(append([]func(o *Options){func(o *Options) { o.Config = cfg }}, optFns...)...)
}

func (m *Mesh) transcriptStore(store transcript.Store) (transcript.Store, error) {
	if store != nil {
		return store, nil
	}
	if m.cfg.TranscriptDir == "" {
		return transcript.NewInMemoryStore(), nil
	}
	dir, err := transcript.NewDirStore(m.cfg.TranscriptDir)
	if err != nil {
		return nil, &core.ConfigError{Source: "transcript_dir", Err: err}
	}
	return dir, nil
}

func (m *Mesh) screenshotLocator(loc screenshot.Locator) (screenshot.Locator, error) {
	if loc != nil {
		return loc, nil
	}
	if !m.cfg.WatchScreenshots {
		return screenshot.NewDirLocator(m.cfg.OutputDir, component(m.logger, "screenshot")), nil
	}
	w, err := screenshot.NewWatchLocator(m.cfg.OutputDir, component(m.logger, "screenshot"))
	if err != nil {
		return nil, &core.ConfigError{Source: "output_dir", Err: err}
	}
	m.closers = append(m.closers, w.Close)
	return w, nil
}

func (m *Mesh) setupRecovery(inf model.Inference) error {
	rc := m.cfg.Recovery
	if inf == nil && rc.Enabled {
		var err error
		inf, err = agent.DefaultClientFactory(core.AgentConfig{
			Name: recovery.PopupAgent,
			URL:  rc.URL,
			Capabilities: map[string]any{
				"provider": rc.Provider,
				"model":    rc.Model,
				"api_key":  rc.APIKey,
			},
		}.WithDefaults())
		if err != nil {
			return &core.ConfigError{Source: "recovery", Err: err}
		}
	}
	m.recoveryLLM = inf
	m.recoveryOpts = func(o *recovery.Options) {
		o.Parser = m.parser
		o.Timeout = rc.Timeout
		o.Transcripts = m.transcripts
		o.Metrics = m.metrics
		o.Logger = component(m.logger, "recovery")
	}
	return nil
}

// Config returns the effective configuration.
func (m *Mesh) Config() *config.Config { return m.cfg }

// Bus returns the event/command bus. Runners subscribe their command
// listener here.
func (m *Mesh) Bus() *bus.Bus { return m.bus }

// Agents returns the agent registry.
func (m *Mesh) Agents() *agent.Registry { return m.agents }

// Capabilities returns the session capability registry.
func (m *Mesh) Capabilities() *capability.Registry { return m.caps }

// Transcripts returns the transcript store.
func (m *Mesh) Transcripts() transcript.Store { return m.transcripts }

// Metrics returns the metric collectors.
func (m *Mesh) Metrics() *metrics.Metrics { return m.metrics }

// RegisterSession publishes the capabilities of a runner session.
func (m *Mesh) RegisterSession(sessionID string, handlers map[string]capability.Handler) {
	m.caps.RegisterSession(sessionID, handlers)
}

// UnregisterSession removes a session's capabilities and event history.
func (m *Mesh) UnregisterSession(sessionID string) {
	m.caps.UnregisterSession(sessionID)
	m.history.Clear(sessionID)
}

// Publish enqueues a runner event; matched agents run asynchronously.
func (m *Mesh) Publish(ctx context.Context, ev core.Event) error {
	return m.bus.Publish(ctx, ev)
}

// HandleEvent processes ev synchronously, bypassing the bus, and returns the
// turn results of the matched agents.
func (m *Mesh) HandleEvent(ctx context.Context, ev core.Event) []orchestrator.TurnResult {
	return m.orchestrator.Handle(ctx, ev)
}

// HandleError runs the recovery path for a runner failure against the
// capabilities of ec.SessionID. It reports whether recovery succeeded.
func (m *Mesh) HandleError(ctx context.Context, code, message string, ec recovery.ErrorContext) bool {
	if m.recoveryLLM == nil && recovery.Classify(code) == recovery.ScreenPopup {
		m.logger.Warn("recovery.disabled", "error_code", code, "session_id", ec.SessionID)
		return false
	}
	h := recovery.NewHandler(m.recoveryLLM, m.caps.Snapshot(ec.SessionID), m.recoveryOpts)
	return h.HandleError(ctx, code, message, ec)
}

// ErrRecoveryDisabled is returned by PerformAction when no recovery model is configured.
var ErrRecoveryDisabled = errors.New("recovery model not configured")

// PerformAction carries out a natural-language instruction on the current
// screen of sessionID and returns the number of executed keywords.
func (m *Mesh) PerformAction(ctx context.Context, sessionID, instruction, pageSource, screenshotPath string) (int, error) {
	if m.recoveryLLM == nil {
		return 0, ErrRecoveryDisabled
	}
	if !m.caps.HasSession(sessionID) {
		return 0, fmt.Errorf("session %s: %w", sessionID, core.ErrNoSession)
	}
	a := recovery.NewActionHandler(m.recoveryLLM, m.caps.Snapshot(sessionID), m.recoveryOpts)
	return a.Perform(ctx, instruction, pageSource, screenshotPath)
}

// Close drains the bus and releases the screenshot watcher.
func (m *Mesh) Close() error {
	var errs []error
	for i := len(m.closers) - 1; i >= 0; i-- {
		if err := m.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	m.closers = nil
	return errors.Join(errs...)
}

func component(l logging.Logger, name string) logging.Logger {
	if sl, ok := l.(*logging.StructuredLogger); ok {
		return sl.WithComponent(name)
	}
	return l
}
