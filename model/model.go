package model

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// Prompt is the normalized input of one inference call.
type Prompt struct {
	System      string  `json:"system"`
	User        string  `json:"user"`
	Context     string  `json:"context,omitempty"`
	MaxTokens   int     `json:"max_tokens,omitempty"`   // 0 keeps the provider default
	Temperature float64 `json:"temperature,omitempty"` // 0 keeps the provider default
}

// UserText joins the user prompt and the context block the way every
// provider sends them: as a single user message.
func (p Prompt) UserText() string {
	switch {
	case p.Context == "":
		return p.User
	case p.User == "":
		return p.Context
	default:
		return p.User + "\n\n" + p.Context
	}
}

// Info contains metadata about an inference implementation.
type Info struct {
	Name     string `json:"name"`
	Provider string `json:"provider"` // "openai", "anthropic", "mock", ...
}

// Inference is the text-in / text-out collaborator consulted by agents.
// Implementations must honour ctx cancellation.
type Inference interface {
	Complete(ctx context.Context, p Prompt) (string, error)

	// Info returns information about the implementation.
	Info() Info
}

// InferenceFunc adapts a function to the Inference interface.
type InferenceFunc func(ctx context.Context, p Prompt) (string, error)

// Complete implements Inference.
func (f InferenceFunc) Complete(ctx context.Context, p Prompt) (string, error) { return f(ctx, p) }

// Info implements Inference.
func (f InferenceFunc) Info() Info { return Info{Name: "func", Provider: "func"} }

// MockModel is a lightweight in-memory Inference useful for tests & examples.
// Responses are matched by substring of the user text; the first matching
// rule wins, otherwise Default is returned.
type MockModel struct {
	info Info

	mu      sync.Mutex
	rules   []mockRule
	def     string
	err     error
	delay   time.Duration
	prompts []Prompt
}

type mockRule struct {
	contains string
	response string
}

// NewMockModel constructs a MockModel.
func NewMockModel(name string) *MockModel {
	return &MockModel{info: Info{Name: name, Provider: "mock"}}
}

// AddResponse registers a canned completion returned when the user text contains substr.
func (m *MockModel) AddResponse(substr, response string) *MockModel {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rules = append(m.rules, mockRule{contains: substr, response: response})
	return m
}

// SetDefault sets the completion returned when no rule matches.
func (m *MockModel) SetDefault(response string) *MockModel {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.def = response
	return m
}

// SetError makes every call fail with err.
func (m *MockModel) SetError(err error) *MockModel {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
	return m
}

// SetDelay makes every call wait d (or until ctx is done) before answering.
func (m *MockModel) SetDelay(d time.Duration) *MockModel {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = d
	return m
}

// Prompts returns a copy of all prompts received so far.
func (m *MockModel) Prompts() []Prompt {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Prompt(nil), m.prompts...)
}

// Complete implements Inference.
func (m *MockModel) Complete(ctx context.Context, p Prompt) (string, error) {
	m.mu.Lock()
	m.prompts = append(m.prompts, p)
	delay, err := m.delay, m.err
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if err != nil {
		return "", err
	}

	text := p.UserText()
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rules {
		if strings.Contains(text, r.contains) {
			return r.response, nil
		}
	}
	if m.def != "" {
		return m.def, nil
	}
	return "", fmt.Errorf("mock model %s: no response configured", m.info.Name)
}

// Info implements Inference.
func (m *MockModel) Info() Info { return m.info }
