package orchestrator

import (
	"github.com/hupe1980/testmesh/core"
	"github.com/hupe1980/testmesh/history"
	"github.com/hupe1980/testmesh/logging"
	"github.com/hupe1980/testmesh/screenshot"
)

// DefaultHistoryLimit is the number of history entries handed to agents.
const DefaultHistoryLimit = 20

// ToolSource lists the tools available to agents in a session.
type ToolSource interface {
	ToolsFor(sessionID string) []core.Tool
}

// BuilderOptions configure a Builder.
type BuilderOptions struct {
	Screenshots  screenshot.Locator
	History      history.Store
	HistoryLimit int
	Logger       logging.Logger
}

// Builder turns events into agent contexts.
type Builder struct {
	tools ToolSource
	opts  BuilderOptions
}

// NewBuilder creates a Builder. Without a screenshot locator the
// execution_output directory is scanned.
func NewBuilder(tools ToolSource, optFns ...func(o *BuilderOptions)) *Builder {
	opts := BuilderOptions{HistoryLimit: DefaultHistoryLimit}
	for _, fn := range optFns {
		fn(&opts)
	}
	opts.Logger = logging.OrNoOp(opts.Logger)
	if opts.Screenshots == nil {
		opts.Screenshots = screenshot.NewDirLocator(screenshot.DefaultDir, opts.Logger)
	}
	return &Builder{tools: tools, opts: opts}
}

// HasSession reports whether the tool source knows sessionID. Sources that
// cannot tell are assumed to know every session.
func (b *Builder) HasSession(sessionID string) bool {
	if sc, ok := b.tools.(interface{ HasSession(string) bool }); ok {
		return sc.HasSession(sessionID)
	}
	return true
}

// Build returns the context for ev, or false when ev carries no session id
// or the session has no registered capabilities.
func (b *Builder) Build(ev core.Event) (*core.AgentContext, bool) {
	sessionID, ok := ev.SessionID()
	if !ok {
		b.opts.Logger.Warn("orchestrator.context.no_session", "event_id", ev.ID, "entity_id", ev.EntityID, "trigger", ev.Trigger())
		return nil, false
	}

	tools := b.tools.ToolsFor(sessionID)
	if len(tools) == 0 {
		b.opts.Logger.Warn("orchestrator.context.no_tools", "event_id", ev.ID, "session_id", sessionID)
		return nil, false
	}

	entries := []core.HistoryEntry{}
	if b.opts.History != nil {
		entries = b.opts.History.Recent(sessionID, b.opts.HistoryLimit)
	}

	return &core.AgentContext{
		Trigger:          ev.Trigger(),
		EntityType:       ev.EntityType,
		EntityID:         ev.EntityID,
		EntityName:       ev.Name,
		Status:           string(ev.Status),
		Message:          ev.Message,
		SessionID:        sessionID,
		ScreenshotPath:   b.opts.Screenshots.Latest(),
		AvailableTools:   tools,
		ExecutionHistory: entries,
	}, true
}
