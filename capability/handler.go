package capability

import (
	"context"

	"github.com/hupe1980/testmesh/core"
	"github.com/hupe1980/testmesh/internal/util"
)

// Handler executes one capability with positional and keyword arguments.
type Handler interface {
	Invoke(ctx context.Context, args []any, kwargs map[string]any) error
}

// Describer is optionally implemented by handlers that describe themselves
// to agents. Handlers without it get a generic description.
type Describer interface {
	Description() string
	Parameters() map[string]any
}

// SyncFunc adapts a blocking function to Handler. It runs on the caller's goroutine.
type SyncFunc func(ctx context.Context, args []any, kwargs map[string]any) error

// Invoke implements Handler.
func (f SyncFunc) Invoke(ctx context.Context, args []any, kwargs map[string]any) error {
	return f(ctx, args, kwargs)
}

// AsyncFunc adapts a function that must run on its own goroutine. Invoke
// schedules it and waits for completion or ctx cancellation; a cancelled
// wait leaves the function running to completion in the background.
type AsyncFunc func(ctx context.Context, args []any, kwargs map[string]any) error

// Invoke implements Handler.
func (f AsyncFunc) Invoke(ctx context.Context, args []any, kwargs map[string]any) error {
	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- core.NewPanicError(r)
			}
		}()
		done <- f(ctx, args, kwargs)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

type described struct {
	Handler
	description string
	parameters  map[string]any
}

func (d described) Description() string        { return d.description }
func (d described) Parameters() map[string]any { return d.parameters }

// Describe attaches a description and parameter summary to h.
func Describe(h Handler, description string, parameters map[string]any) Handler {
	return described{Handler: h, description: description, parameters: parameters}
}

type typed struct {
	described
	args any
}

func (t typed) Invoke(ctx context.Context, args []any, kwargs map[string]any) error {
	if len(kwargs) > 0 {
		if err := util.ValidateKwargs(kwargs, t.args); err != nil {
			return err
		}
	}
	return t.Handler.Invoke(ctx, args, kwargs)
}

// DescribeArgs describes h with the fields of the argument struct args (json
// tags name the parameters, description tags explain them). Keyword
// arguments passed to the returned handler are validated against args.
func DescribeArgs(h Handler, description string, args any) Handler {
	return typed{
		described: described{Handler: h, description: description, parameters: util.ParameterSummary(args)},
		args:      args,
	}
}

// ToolFor builds the agent-facing descriptor of a handler.
func ToolFor(name string, h Handler) core.Tool {
	t := core.Tool{
		Name:        name,
		Description: "Execute the " + name + " function",
		Parameters:  map[string]any{},
	}
	if d, ok := h.(Describer); ok {
		if desc := d.Description(); desc != "" {
			t.Description = desc
		}
		if params := d.Parameters(); params != nil {
			t.Parameters = params
		}
	}
	return t
}
