package factory

import (
	"fmt"
	"strings"

	"ai-chat-be/pkg/llm"
	"ai-chat-be/pkg/llm/openai"
)

type ProviderConfig struct {
	Type          string // "openai" or "ollama"
	APIKey        string
	BaseURL       string
	OllamaBaseURL string
	DefaultModel  string
	ImageModel    string
}

func NewLLMProvider(cfg ProviderConfig) (llm.LLMProvider, error) {
	switch cfg.Type {
	case "openai":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("openai provider requires an API key")
		}
		return openai.NewOpenAIProvider(cfg.APIKey, cfg.BaseURL, cfg.DefaultModel, cfg.ImageModel), nil
	case "ollama":
		baseURL := cfg.OllamaBaseURL
		if baseURL == "" {
			baseURL = "http://localhost:11434" // Default
		}
		// Ollama serves the OpenAI wire format under /v1 and ignores the key.
		return openai.NewOpenAIProvider("ollama", strings.TrimSuffix(baseURL, "/")+"/v1", cfg.DefaultModel, cfg.ImageModel), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Type)
	}
}
