package recovery

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hupe1980/testmesh/capability"
	"github.com/hupe1980/testmesh/core"
	"github.com/hupe1980/testmesh/logging"
	"github.com/hupe1980/testmesh/metrics"
	"github.com/hupe1980/testmesh/model"
	"github.com/hupe1980/testmesh/parser"
	"github.com/hupe1980/testmesh/transcript"
)

// DefaultTimeout bounds a single recovery inference call.
const DefaultTimeout = 15 * time.Second

// Options configure Handler and ActionHandler.
type Options struct {
	// Parser decodes model output; defaults to a strict parser.
	Parser *parser.Parser
	// Timeout bounds the inference call; defaults to DefaultTimeout.
	Timeout time.Duration
	// IncludeInvisible keeps displayed="false" elements in the flattened page source.
	IncludeInvisible bool
	Transcripts      transcript.Store
	Metrics          *metrics.Metrics
	Logger           logging.Logger
}

// ErrNoSuggestion is returned when the model proposed nothing executable.
var ErrNoSuggestion = errors.New("no executable suggestion")

// advisor holds what both recovery paths share: the model, the keyword map
// and the bookkeeping around a single inference call.
type advisor struct {
	name      string
	inference model.Inference
	opts      Options
	logger    logging.Logger

	mu       sync.RWMutex
	keywords map[string]capability.Handler
}

func newAdvisor(name string, inference model.Inference, keywords map[string]capability.Handler, optFns []func(o *Options)) *advisor {
	opts := Options{Timeout: DefaultTimeout}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Parser == nil {
		opts.Parser = parser.New(func(o *parser.Options) { o.Logger = opts.Logger })
	}
	a := &advisor{
		name:      name,
		inference: inference,
		opts:      opts,
		logger:    logging.OrNoOp(opts.Logger),
	}
	a.SetKeywords(keywords)
	return a
}

// SetKeywords replaces the keyword map used to execute suggestions.
func (a *advisor) SetKeywords(keywords map[string]capability.Handler) {
	cp := make(map[string]capability.Handler, len(keywords))
	for k, v := range keywords {
		cp[k] = v
	}
	a.mu.Lock()
	a.keywords = cp
	a.mu.Unlock()
}

func (a *advisor) keyword(name string) (capability.Handler, bool) {
	if name == "" || capability.IsPrivate(name) {
		return nil, false
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	h, ok := a.keywords[name]
	return h, ok
}

// suggest runs one inference call and parses the answer. The call is bounded
// by the configured timeout and abandoned if the model ignores cancellation.
func (a *advisor) suggest(ctx context.Context, sessionID, trigger, user string) ([]core.Suggestion, error) {
	if a.inference == nil {
		return nil, &core.ConfigError{Source: a.name, Err: errors.New("no model configured")}
	}

	callCtx, cancel := context.WithTimeout(ctx, a.opts.Timeout)
	defer cancel()

	prompt := model.Prompt{User: user}
	start := time.Now()

	type result struct {
		raw string
		err error
	}
	done := make(chan result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- result{err: core.NewPanicError(r)}
			}
		}()
		raw, err := a.inference.Complete(callCtx, prompt)
		done <- result{raw: raw, err: err}
	}()

	var res result
	select {
	case res = <-done:
	case <-callCtx.Done():
		res.err = fmt.Errorf("%s: %w", a.name, callCtx.Err())
	}

	var suggestions []core.Suggestion
	if res.err == nil {
		suggestions, res.err = a.opts.Parser.Parse(res.raw)
	}
	a.save(transcript.Record{
		SessionID: sessionID,
		Agent:     a.name,
		Trigger:   trigger,
		User:      user,
		Response:  res.raw,
		Actions:   len(suggestions),
		Duration:  time.Since(start),
	}, res.err)

	return suggestions, res.err
}

// invoke executes one suggestion with its alias-resolved target as the only
// positional argument.
func (a *advisor) invoke(ctx context.Context, s core.Suggestion) (err error) {
	h, ok := a.keyword(s.Action)
	if !ok {
		return fmt.Errorf("unknown keyword %q", s.Action)
	}
	value, ok := parser.ResolveTarget(s.Target)
	if !ok {
		return fmt.Errorf("keyword %s: no recognizable target in %v", s.Action, s.Target)
	}

	defer func() {
		if r := recover(); r != nil {
			err = core.NewPanicError(r)
		}
	}()
	return h.Invoke(ctx, []any{value}, nil)
}

func (a *advisor) save(rec transcript.Record, err error) {
	if a.opts.Transcripts == nil {
		return
	}
	if err != nil {
		rec.Error = err.Error()
	}
	if _, serr := a.opts.Transcripts.Save(rec); serr != nil {
		a.logger.Warn("recovery.transcript.save_failed", "agent", a.name, "error", serr.Error())
	}
}
