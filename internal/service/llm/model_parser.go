package llm

import (
	"fmt"
	"strings"
)

// Provider names understood by the factory.
const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
	ProviderLorem     = "lorem"
)

// ModelInfo contains parsed provider and model information
type ModelInfo struct {
	Provider string // Provider name: "anthropic", "openai", "lorem"
	Model    string // Model identifier for that provider; empty means provider default
}

// ParseModel extracts provider information from a model string.
//
// Supported formats:
//   - "claude-haiku-4-5" → {Provider: "anthropic", Model: "claude-haiku-4-5"}
//   - "lorem-fast" → {Provider: "lorem", Model: "lorem-fast"}
//   - "openai/gpt-4o-mini" → {Provider: "openai", Model: "gpt-4o-mini"}
//   - "llama3.2:3b" → {Provider: fallback, Model: "llama3.2:3b"}
//   - "qwen/qwen-2.5-72b" (OpenRouter id) → {Provider: fallback, Model: "qwen/qwen-2.5-72b"}
//
// Rules:
//   - A known provider before the first "/" is split off
//   - Else the provider is inferred from the model prefix
//   - Else fallback is used (OpenAI-compatible servers host arbitrary model names)
func ParseModel(modelStr, fallback string) (*ModelInfo, error) {
	modelStr = strings.TrimSpace(modelStr)
	fallback = strings.ToLower(strings.TrimSpace(fallback))

	if modelStr == "" {
		if fallback == "" {
			return nil, fmt.Errorf("model string and provider cannot both be empty")
		}
		return &ModelInfo{Provider: fallback}, nil
	}

	if provider, model, ok := strings.Cut(modelStr, "/"); ok && isKnownProvider(strings.ToLower(provider)) {
		if model == "" {
			return nil, fmt.Errorf("model cannot be empty in model string: %s", modelStr)
		}
		return &ModelInfo{
			Provider: strings.ToLower(provider),
			Model:    model,
		}, nil
	}

	provider := inferProvider(modelStr)
	if provider == "" {
		provider = fallback
	}
	if provider == "" {
		return nil, fmt.Errorf("unable to infer provider from model: %s", modelStr)
	}

	return &ModelInfo{
		Provider: provider,
		Model:    modelStr,
	}, nil
}

func isKnownProvider(name string) bool {
	switch name {
	case ProviderAnthropic, ProviderOpenAI, ProviderLorem:
		return true
	}
	return false
}

// inferProvider infers the provider from model name prefix
func inferProvider(model string) string {
	modelLower := strings.ToLower(model)

	switch {
	case strings.HasPrefix(modelLower, "claude-"):
		return ProviderAnthropic
	case strings.HasPrefix(modelLower, "gpt-"), strings.HasPrefix(modelLower, "o1-"), strings.HasPrefix(modelLower, "o3-"):
		return ProviderOpenAI
	case strings.HasPrefix(modelLower, "lorem-"):
		return ProviderLorem
	}

	return ""
}
