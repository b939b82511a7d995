package core

import (
	"errors"
	"fmt"
	"runtime/debug"
)

var (
	// ErrNoSession is returned when no capability registry exists for a session.
	ErrNoSession = errors.New("no capabilities registered for session")
	// ErrUnknownTool is returned when a capability name is not registered.
	ErrUnknownTool = errors.New("unknown tool")
)

// ConfigError reports malformed or missing agent configuration. It is fatal
// only at startup; otherwise the affected agent is skipped.
type ConfigError struct {
	Source string // file or agent the error relates to
	Err    error
}

func (e *ConfigError) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("config error: %v", e.Err)
	}
	return fmt.Sprintf("config error in %s: %v", e.Source, e.Err)
}

// Unwrap returns the underlying error.
func (e *ConfigError) Unwrap() error { return e.Err }

// TransportError reports a failed inference call (timeout, non-success
// response, network failure).
type TransportError struct {
	Provider string
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("inference call to %s failed: %v", e.Provider, e.Err)
}

// Unwrap returns the underlying error.
func (e *TransportError) Unwrap() error { return e.Err }

// ParseError reports model output that is not valid structured data. Raw
// holds the (possibly truncated) input for diagnostics.
type ParseError struct {
	Raw string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse model output: %v", e.Err)
}

// Unwrap returns the original decode error.
func (e *ParseError) Unwrap() error { return e.Err }

// PanicError carries a value recovered from a panicking agent turn or
// capability handler.
type PanicError struct {
	Value any
	Stack []byte
}

// NewPanicError captures r together with the current goroutine stack.
func NewPanicError(r any) *PanicError {
	return &PanicError{Value: r, Stack: debug.Stack()}
}

func (e *PanicError) Error() string { return fmt.Sprintf("panic recovered: %v", e.Value) }
