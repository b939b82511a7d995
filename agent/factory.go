package agent

import (
	"fmt"
	"os"
	"strings"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/hupe1980/testmesh/core"
	"github.com/hupe1980/testmesh/model"
	"github.com/hupe1980/testmesh/model/anthropic"
	"github.com/hupe1980/testmesh/model/openai"
)

// DefaultOllamaURL is used for the "ollama" provider when no url is configured.
const DefaultOllamaURL = "http://localhost:11434/v1"

// ClientFactory builds the inference backend of an agent.
type ClientFactory func(cfg core.AgentConfig) (model.Inference, error)

// StaticFactory returns a ClientFactory that hands out the same backend to every agent.
func StaticFactory(inf model.Inference) ClientFactory {
	return func(core.AgentConfig) (model.Inference, error) { return inf, nil }
}

// DefaultClientFactory selects an adapter from capabilities.provider
// ("openai" by default, "ollama" or "anthropic"). capabilities.model and
// capabilities.api_key configure the adapter and cfg.URL overrides the
// endpoint. ${VAR} references in capabilities are expanded.
func DefaultClientFactory(cfg core.AgentConfig) (model.Inference, error) {
	provider := strings.ToLower(capability(cfg, "provider"))
	modelName := capability(cfg, "model")
	apiKey := capability(cfg, "api_key")
	maxTokens := int64(cfg.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = core.DefaultMaxTokens
	}

	switch provider {
	case "", "openai", "ollama":
		baseURL := cfg.URL
		if provider == "ollama" && baseURL == "" {
			baseURL = DefaultOllamaURL
		}
		return openai.NewModel(func(o *openai.Options) {
			if modelName != "" {
				o.Model = modelName
			}
			o.APIKey = apiKey
			o.BaseURL = baseURL
			o.Temperature = cfg.TemperatureOrDefault()
			o.MaxCompletionTokens = maxTokens
		}), nil
	case "anthropic":
		return anthropic.NewModel(func(o *anthropic.Options) {
			if modelName != "" {
				o.Model = anthropicsdk.Model(modelName)
			}
			o.APIKey = apiKey
			o.BaseURL = cfg.URL
			o.Temperature = cfg.TemperatureOrDefault()
			o.MaxTokens = maxTokens
		}), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", provider)
	}
}

func capability(cfg core.AgentConfig, key string) string {
	return os.ExpandEnv(cfg.Capability(key))
}
