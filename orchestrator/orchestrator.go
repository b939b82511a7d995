package orchestrator

import (
	"context"

	"github.com/hupe1980/testmesh/core"
	"github.com/hupe1980/testmesh/history"
	"github.com/hupe1980/testmesh/logging"
)

// AgentMatcher maps triggers to agent names.
type AgentMatcher interface {
	AgentsFor(trigger string) []string
}

// Options configure an Orchestrator.
type Options struct {
	// History, if set, records every event of a registered session after
	// the event has been processed.
	History history.Store
	Logger  logging.Logger
}

// Orchestrator is a bus subscriber running matched agents for each event.
type Orchestrator struct {
	agents   AgentMatcher
	builder  *Builder
	executor *Executor
	history  history.Store
	logger   logging.Logger
}

// New creates an Orchestrator.
func New(agents AgentMatcher, builder *Builder, executor *Executor, optFns ...func(o *Options)) *Orchestrator {
	opts := Options{}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Orchestrator{
		agents:   agents,
		builder:  builder,
		executor: executor,
		history:  opts.History,
		logger:   logging.OrNoOp(opts.Logger),
	}
}

// OnEvent implements bus.Subscriber. It never returns an error: agent
// failures are isolated and logged by the executor.
func (o *Orchestrator) OnEvent(ctx context.Context, ev core.Event) error {
	o.Handle(ctx, ev)
	return nil
}

// Handle processes ev and returns the turn results of the matched agents;
// nil when no agent ran.
func (o *Orchestrator) Handle(ctx context.Context, ev core.Event) []TurnResult {
	if o.history != nil {
		if sid, ok := ev.SessionID(); ok {
			defer func() {
				// Skip sessions unknown or unregistered while the event was processed.
				if o.builder.HasSession(sid) {
					o.history.Append(sid, ev)
				}
			}()
		}
	}

	trigger := ev.Trigger()
	names := o.agents.AgentsFor(trigger)
	if len(names) == 0 {
		o.logger.Debug("orchestrator.event.no_agents", "trigger", trigger)
		return nil
	}

	actx, ok := o.builder.Build(ev)
	if !ok {
		return nil
	}

	o.logger.Info("orchestrator.event.matched", "trigger", trigger, "session_id", actx.SessionID, "agents", len(names))
	return o.executor.Run(ctx, names, *actx)
}
