package orchestrator

import (
	"context"
	"errors"
	"time"

	"github.com/hupe1980/testmesh/capability"
	"github.com/hupe1980/testmesh/core"
	"github.com/hupe1980/testmesh/logging"
	"github.com/hupe1980/testmesh/metrics"
)

// DefaultPauseReason is sent with PAUSE when the agent gives no reason.
const DefaultPauseReason = "Paused by LLM agent"

// CapabilityLookup resolves session capabilities.
type CapabilityLookup interface {
	HasSession(sessionID string) bool
	Lookup(sessionID, name string) (capability.Handler, bool)
}

// CommandPublisher publishes operational commands to the runner.
type CommandPublisher interface {
	PublishCommand(ctx context.Context, typ core.CommandType, sessionID string, params map[string]any) error
}

// DispatcherOptions configure a Dispatcher.
type DispatcherOptions struct {
	Metrics *metrics.Metrics
	Logger  logging.Logger
}

// Dispatcher executes agent actions.
type Dispatcher struct {
	caps     CapabilityLookup
	commands CommandPublisher
	metrics  *metrics.Metrics
	logger   logging.Logger
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(caps CapabilityLookup, commands CommandPublisher, optFns ...func(o *DispatcherOptions)) *Dispatcher {
	opts := DispatcherOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Dispatcher{
		caps:     caps,
		commands: commands,
		metrics:  opts.Metrics,
		logger:   logging.OrNoOp(opts.Logger),
	}
}

// Dispatch executes actions in order and returns how many succeeded.
// Control tools go to the command channel; other names are looked up in the
// session's capabilities. Unknown tools and failing handlers are logged and
// skipped. Nothing is dispatched for a session without capabilities.
func (d *Dispatcher) Dispatch(ctx context.Context, sessionID string, actions []core.AgentAction) int {
	if len(actions) == 0 {
		d.logger.Debug("orchestrator.dispatch.no_actions", "session_id", sessionID)
		return 0
	}
	if !d.caps.HasSession(sessionID) {
		d.logger.Warn("orchestrator.dispatch.no_session", "session_id", sessionID, "actions", len(actions))
		return 0
	}

	ok := 0
	for _, action := range actions {
		start := time.Now()
		err := d.dispatchOne(ctx, sessionID, action)
		dur := time.Since(start)

		switch {
		case err == nil:
			ok++
			d.metrics.IncDispatch(action.ToolName, metrics.OutcomeSuccess)
			if sl, isStructured := d.logger.(*logging.StructuredLogger); isStructured {
				sl.WithSession(sessionID).LogDispatch(action.ToolName, dur, nil)
			} else {
				d.logger.Info("orchestrator.dispatch.executed", "session_id", sessionID, "tool", action.ToolName, "duration_ms", dur.Milliseconds())
			}
		case errors.Is(err, core.ErrUnknownTool):
			// Unknown names come from model output and share one label.
			d.metrics.IncDispatch(metrics.UnknownToolLabel, metrics.OutcomeUnknown)
			d.logger.Warn("orchestrator.dispatch.unknown_tool", "session_id", sessionID, "tool", action.ToolName)
		default:
			outcome := metrics.OutcomeError
			var perr *core.PanicError
			if errors.As(err, &perr) {
				outcome = metrics.OutcomePanic
			}
			d.metrics.IncDispatch(action.ToolName, outcome)
			d.logger.Error("orchestrator.dispatch.failed", "session_id", sessionID, "tool", action.ToolName, "duration_ms", dur.Milliseconds(), "error", err.Error())
		}
	}
	return ok
}

func (d *Dispatcher) dispatchOne(ctx context.Context, sessionID string, action core.AgentAction) (err error) {
	switch action.ToolName {
	case core.PauseToolName:
		reason, _ := action.Parameters["reason"].(string)
		if reason == "" {
			reason = DefaultPauseReason
		}
		return d.commands.PublishCommand(ctx, core.CommandPause, sessionID, map[string]any{"reason": reason})
	case core.ResumeToolName:
		return d.commands.PublishCommand(ctx, core.CommandResume, sessionID, nil)
	}

	if capability.IsPrivate(action.ToolName) {
		return core.ErrUnknownTool
	}
	h, found := d.caps.Lookup(sessionID, action.ToolName)
	if !found {
		return core.ErrUnknownTool
	}

	defer func() {
		if r := recover(); r != nil {
			err = core.NewPanicError(r)
		}
	}()
	return h.Invoke(ctx, action.Args(), action.Kwargs())
}
