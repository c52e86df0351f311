package providers

import (
	"fmt"
	"strings"
)

const (
	geminiAPIBase     = "https://generativelanguage.googleapis.com/v1beta/openai"
	openRouterAPIBase = "https://openrouter.ai/api/v1"
)

// NewProvider builds the LLM provider named in the configuration. An empty
// apiBase picks the provider's well-known endpoint; a non-empty one
// overrides it, which also covers self-hosted OpenAI-compatible servers.
func NewProvider(name, apiKey, apiBase, defaultModel, proxy string) (LLMProvider, error) {
	name = strings.TrimSpace(strings.ToLower(name))
	switch name {
	case "", "gemini":
		if name == "" {
			name = "gemini"
		}
		if apiBase == "" {
			apiBase = geminiAPIBase
		}
	case "openrouter":
		if apiBase == "" {
			apiBase = openRouterAPIBase
		}
	case "openai-compatible":
		if apiBase == "" {
			return nil, fmt.Errorf("openai-compatible provider requires an explicit API base")
		}
	default:
		return nil, fmt.Errorf("unknown provider: %s", name)
	}
	return newChatCompletionsProvider(name, apiBase, apiKey, defaultModel, proxy)
}
