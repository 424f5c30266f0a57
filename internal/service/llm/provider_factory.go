package llm

import (
	"fmt"
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"reflector/internal/config"
	domainllm "reflector/internal/domain/services/llm"
	"reflector/internal/service/llm/adapters"
)

// ProviderFactory creates LLM adapters from configuration
type ProviderFactory struct {
	config     *config.Config
	httpClient *http.Client
}

// NewProviderFactory creates a new provider factory.
// Adapters share one instrumented HTTP client.
func NewProviderFactory(cfg *config.Config) *ProviderFactory {
	return &ProviderFactory{
		config: cfg,
		httpClient: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

// GetProvider returns an adapter for the given provider name
//
// Supported providers:
//   - "anthropic" - Claude models via the Anthropic Messages API
//   - "openai" - any OpenAI-compatible server (OpenAI, OpenRouter, Ollama)
//   - "lorem" - mock provider for local development (no API key required)
func (f *ProviderFactory) GetProvider(providerName string) (domainllm.LLMProvider, error) {
	switch providerName {
	case ProviderAnthropic:
		return f.createAnthropicProvider()
	case ProviderOpenAI:
		return f.createOpenAIProvider()
	case ProviderLorem:
		return adapters.NewLoremAdapter(), nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s (supported: anthropic, openai, lorem)", providerName)
	}
}

func (f *ProviderFactory) createAnthropicProvider() (domainllm.LLMProvider, error) {
	if f.config.AnthropicAPIKey == "" {
		return nil, fmt.Errorf("ANTHROPIC_API_KEY environment variable not set")
	}

	provider, err := adapters.NewAnthropicAdapter(f.config.AnthropicAPIKey, f.httpClient)
	if err != nil {
		return nil, fmt.Errorf("failed to create Anthropic provider: %w", err)
	}
	return provider, nil
}

// createOpenAIProvider needs no key when the base URL points at a local server
func (f *ProviderFactory) createOpenAIProvider() (domainllm.LLMProvider, error) {
	if f.config.OpenAIBaseURL == "" {
		return nil, fmt.Errorf("OPENAI_BASE_URL environment variable not set")
	}
	return adapters.NewOpenAIAdapter(f.config.OpenAIAPIKey, f.config.OpenAIBaseURL, f.httpClient), nil
}
