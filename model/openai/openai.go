// Package openai provides an implementation of model.Inference backed by the
// OpenAI Chat Completions API. Any OpenAI-compatible endpoint (Ollama, vLLM,
// LM Studio) can be targeted through BaseURL.
package openai

import (
	"context"
	"errors"
	"time"

	"github.com/hupe1980/testmesh/core"
	"github.com/hupe1980/testmesh/model"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// DefaultRequestTimeout bounds a single completion request.
const DefaultRequestTimeout = 30 * time.Second

// Options configure the OpenAI adapter.
type Options struct {
	Model               string
	Temperature         float64
	MaxCompletionTokens int64
	BaseURL             string
	APIKey              string
	RequestTimeout      time.Duration
}

// Model wraps the OpenAI Chat Completions API behind model.Inference.
type Model struct {
	client *openai.Client
	opts   Options
}

// NewModel creates a new OpenAI model using the official client.
func NewModel(optFns ...func(o *Options)) *Model {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}

	var clientOpts []option.RequestOption
	if opts.BaseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(opts.BaseURL))
	}
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	} else if opts.BaseURL != "" {
		// Local OpenAI-compatible servers ignore the key but the client requires one.
		clientOpts = append(clientOpts, option.WithAPIKey("unused"))
	}
	if opts.RequestTimeout > 0 {
		clientOpts = append(clientOpts, option.WithRequestTimeout(opts.RequestTimeout))
	}

	client := openai.NewClient(clientOpts...)
	return &Model{client: &client, opts: opts}
}

// NewModelFromClient creates a new OpenAI model from an existing client.
func NewModelFromClient(client *openai.Client, optFns ...func(o *Options)) *Model {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Model{client: client, opts: opts}
}

func defaultOptions() Options {
	return Options{
		Model:               openai.ChatModelGPT4oMini,
		Temperature:         core.DefaultTemperature,
		MaxCompletionTokens: core.DefaultMaxTokens,
		RequestTimeout:      DefaultRequestTimeout,
	}
}

// Complete implements model.Inference.
func (m *Model) Complete(ctx context.Context, p model.Prompt) (string, error) {
	resp, err := m.client.Chat.Completions.New(ctx, m.buildParams(p))
	if err != nil {
		return "", &core.TransportError{Provider: "openai", Err: err}
	}
	if len(resp.Choices) == 0 {
		return "", &core.TransportError{Provider: "openai", Err: errors.New("no choices returned")}
	}
	return resp.Choices[0].Message.Content, nil
}

// Info implements model.Inference.
func (m *Model) Info() model.Info {
	return model.Info{Name: m.opts.Model, Provider: "openai"}
}

// buildParams maps a prompt onto chat messages; per-prompt limits override the defaults.
func (m *Model) buildParams(p model.Prompt) openai.ChatCompletionNewParams {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, 2)
	if p.System != "" {
		messages = append(messages, openai.SystemMessage(p.System))
	}
	messages = append(messages, openai.UserMessage(p.UserText()))

	maxTokens := m.opts.MaxCompletionTokens
	if p.MaxTokens > 0 {
		maxTokens = int64(p.MaxTokens)
	}
	temperature := m.opts.Temperature
	if p.Temperature > 0 {
		temperature = p.Temperature
	}

	return openai.ChatCompletionNewParams{
		Messages:            messages,
		Model:               m.opts.Model,
		Temperature:         openai.Float(temperature),
		MaxCompletionTokens: openai.Int(maxTokens),
	}
}
