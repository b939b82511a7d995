package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hupe1980/testmesh/agent"
	"github.com/hupe1980/testmesh/core"
	"github.com/hupe1980/testmesh/logging"
	"github.com/hupe1980/testmesh/metrics"
	"github.com/hupe1980/testmesh/transcript"
	"golang.org/x/sync/errgroup"
)

// DefaultAgentTimeout bounds a single agent turn.
const DefaultAgentTimeout = 30 * time.Second

// AgentLookup resolves agent clients by name.
type AgentLookup interface {
	Client(name string) (*agent.Client, bool)
}

// TurnResult summarizes one agent turn.
type TurnResult struct {
	Agent      string
	Response   core.AgentResponse
	Err        error
	Duration   time.Duration
	Dispatched int
}

// ExecutorOptions configure an Executor.
type ExecutorOptions struct {
	// Timeout bounds each agent turn (inference and parsing). Dispatch is not
	// covered by the timeout.
	Timeout time.Duration
	// MaxParallel limits concurrently running turns; 0 means unlimited.
	MaxParallel int
	Transcripts transcript.Store
	Metrics     *metrics.Metrics
	// AfterTurn, if set, observes every finished turn.
	AfterTurn func(ctx context.Context, res TurnResult)
	Logger    logging.Logger
}

// Executor fans an agent context out to several agents.
type Executor struct {
	agents     AgentLookup
	dispatcher *Dispatcher
	opts       ExecutorOptions
	logger     logging.Logger
}

// NewExecutor creates an Executor.
func NewExecutor(agents AgentLookup, dispatcher *Dispatcher, optFns ...func(o *ExecutorOptions)) *Executor {
	opts := ExecutorOptions{Timeout: DefaultAgentTimeout}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultAgentTimeout
	}
	return &Executor{
		agents:     agents,
		dispatcher: dispatcher,
		opts:       opts,
		logger:     logging.OrNoOp(opts.Logger),
	}
}

// Run executes the named agents concurrently against actx and waits for all
// of them. Each agent dispatches its own actions as soon as its turn ends, so
// a slow agent never delays a sibling's actions. Results are returned in the
// order of names.
func (e *Executor) Run(ctx context.Context, names []string, actx core.AgentContext) []TurnResult {
	results := make([]TurnResult, len(names))

	var g errgroup.Group
	if e.opts.MaxParallel > 0 {
		g.SetLimit(e.opts.MaxParallel)
	}
	for i, name := range names {
		g.Go(func() error {
			results[i] = e.runAgent(ctx, name, actx)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (e *Executor) runAgent(ctx context.Context, name string, actx core.AgentContext) TurnResult {
	res := TurnResult{Agent: name}
	start := time.Now()

	client, ok := e.agents.Client(name)
	if !ok {
		res.Err = fmt.Errorf("agent %s not found", name)
		e.logger.Error("agent.not_found", "agent", name)
		return res
	}

	turn, err := e.executeTurn(ctx, client, actx)
	res.Duration = time.Since(start)
	res.Response = turn.Response
	res.Err = err

	outcome := e.outcome(res)
	e.opts.Metrics.ObserveAgentTurn(name, outcome, res.Duration)
	e.saveTranscript(name, actx, turn, res)

	switch {
	case err != nil:
		res.Response.Actions = nil
		e.logTurn(name, actx, res, outcome)
	case res.Response.RequiresHumanInput:
		e.logger.Warn("agent.turn.human_input", "agent", name, "session_id", actx.SessionID, "message", res.Response.Message,
			"discarded_actions", len(res.Response.Actions))
	default:
		e.logTurn(name, actx, res, outcome)
		if e.dispatcher != nil {
			res.Dispatched = e.dispatcher.Dispatch(ctx, actx.SessionID, res.Response.Actions)
		}
	}

	if e.opts.AfterTurn != nil {
		e.opts.AfterTurn(ctx, res)
	}
	return res
}

// logTurn reports a finished turn, through LogAgentTurn when the logger is a
// StructuredLogger.
func (e *Executor) logTurn(name string, actx core.AgentContext, res TurnResult, outcome string) {
	if sl, ok := e.logger.(*logging.StructuredLogger); ok {
		sl.WithSession(actx.SessionID).WithContext("outcome", outcome).
			LogAgentTurn(name, actx.Trigger, len(res.Response.Actions), res.Duration, res.Err)
		return
	}
	if res.Err != nil {
		e.logger.Error("agent.turn.failed", "agent", name, "trigger", actx.Trigger, "session_id", actx.SessionID,
			"outcome", outcome, "duration_ms", res.Duration.Milliseconds(), "error", res.Err.Error())
		return
	}
	e.logger.Info("agent.turn.completed", "agent", name, "trigger", actx.Trigger, "session_id", actx.SessionID,
		"actions", len(res.Response.Actions), "duration_ms", res.Duration.Milliseconds())
}

// executeTurn runs one turn under the per-agent timeout. A turn that ignores
// cancellation is abandoned when the timeout fires.
func (e *Executor) executeTurn(ctx context.Context, client *agent.Client, actx core.AgentContext) (agent.Turn, error) {
	turnCtx, cancel := context.WithTimeout(ctx, e.opts.Timeout)
	defer cancel()

	type result struct {
		turn agent.Turn
		err  error
	}
	done := make(chan result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- result{err: core.NewPanicError(r)}
			}
		}()
		turn, err := client.ExecuteTurn(turnCtx, actx)
		done <- result{turn: turn, err: err}
	}()

	select {
	case r := <-done:
		return r.turn, r.err
	case <-turnCtx.Done():
		return agent.Turn{}, fmt.Errorf("agent %s: %w", client.Name(), turnCtx.Err())
	}
}

func (e *Executor) outcome(res TurnResult) string {
	var (
		perr  *core.ParseError
		panik *core.PanicError
	)
	switch {
	case res.Err == nil && res.Response.RequiresHumanInput:
		return metrics.OutcomeEscalated
	case res.Err == nil:
		return metrics.OutcomeSuccess
	case errors.Is(res.Err, context.DeadlineExceeded):
		return metrics.OutcomeTimeout
	case errors.As(res.Err, &perr):
		return metrics.OutcomeParseError
	case errors.As(res.Err, &panik):
		return metrics.OutcomePanic
	default:
		return metrics.OutcomeError
	}
}

func (e *Executor) saveTranscript(name string, actx core.AgentContext, turn agent.Turn, res TurnResult) {
	if e.opts.Transcripts == nil || turn.Prompt.User == "" {
		return
	}
	rec := transcript.Record{
		SessionID: actx.SessionID,
		Agent:     name,
		Trigger:   actx.Trigger,
		System:    turn.Prompt.System,
		User:      turn.Prompt.UserText(),
		Response:  turn.Raw,
		Actions:   len(res.Response.Actions),
		Duration:  res.Duration,
	}
	if res.Err != nil {
		rec.Error = res.Err.Error()
	}
	if _, err := e.opts.Transcripts.Save(rec); err != nil {
		e.logger.Warn("agent.transcript.save_failed", "agent", name, "error", err.Error())
	}
}
