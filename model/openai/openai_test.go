package openai

import (
	"testing"

	"github.com/hupe1980/testmesh/model"
	"github.com/stretchr/testify/assert"
)

var _ model.Inference = (*Model)(nil)

func TestNewModel_Defaults(t *testing.T) {
	m := NewModel(func(o *Options) {
		o.BaseURL = "http://localhost:11434/v1"
		o.Model = "llama3"
	})
	assert.Equal(t, "llama3", m.Info().Name)
	assert.Equal(t, "openai", m.Info().Provider)
	assert.Equal(t, DefaultRequestTimeout, m.opts.RequestTimeout)
}

func TestBuildParams(t *testing.T) {
	m := NewModel(func(o *Options) { o.APIKey = "k" })

	params := m.buildParams(model.Prompt{System: "sys", User: "user", Context: "ctx"})
	assert.Len(t, params.Messages, 2)
	assert.Equal(t, int64(1000), params.MaxCompletionTokens.Value)

	params = m.buildParams(model.Prompt{User: "user", MaxTokens: 50, Temperature: 0.1})
	assert.Len(t, params.Messages, 1)
	assert.Equal(t, int64(50), params.MaxCompletionTokens.Value)
	assert.InDelta(t, 0.1, params.Temperature.Value, 1e-9)
}
