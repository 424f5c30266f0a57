package llm

import (
	"fmt"
	"log/slog"

	"reflector/internal/capabilities"
	"reflector/internal/config"
	"reflector/internal/service/llm/tools"
)

// SetupProviders initializes the provider factory and registry.
// Returns a configured ProviderRegistry or an error if setup fails.
func SetupProviders(cfg *config.Config, logger *slog.Logger) (*ProviderRegistry, error) {
	registry := NewProviderRegistry(NewProviderFactory(cfg))
	if err := registry.Validate(); err != nil {
		return nil, fmt.Errorf("provider registry validation failed: %w", err)
	}

	if cfg.AnthropicAPIKey != "" {
		logger.Info("provider available", "name", ProviderAnthropic, "models", "claude-*")
	} else {
		logger.Debug("ANTHROPIC_API_KEY not set - Anthropic provider not available")
	}
	if cfg.OpenAIBaseURL != "" {
		logger.Info("provider available", "name", ProviderOpenAI, "base_url", cfg.OpenAIBaseURL)
	}
	logger.Info("provider available", "name", ProviderLorem, "models", "lorem-*")

	return registry, nil
}

// SetupTurnExecutor resolves the configured provider and model and binds
// them to a TurnExecutor with the editor tools.
//
// An empty LLM_MODEL selects the provider's first model from the capability registry.
// Models the registry marks as tool-less are allowed but logged, since their
// turns can never change the document.
func SetupTurnExecutor(
	cfg *config.Config,
	providers *ProviderRegistry,
	capabilityRegistry *capabilities.Registry,
	logger *slog.Logger,
) (*TurnExecutor, error) {
	info, err := ParseModel(cfg.LLMModel, cfg.LLMProvider)
	if err != nil {
		return nil, fmt.Errorf("parse model: %w", err)
	}

	model := info.Model
	if model == "" {
		model, err = capabilityRegistry.DefaultModel(info.Provider)
		if err != nil {
			return nil, fmt.Errorf("no default model for provider %s: %w", info.Provider, err)
		}
	}

	caps, err := capabilityRegistry.GetModelCapabilities(info.Provider, model)
	switch {
	case err != nil:
		logger.Warn("model not in capability registry", "provider", info.Provider, "model", model)
	case !caps.SupportsTools:
		logger.Warn("model does not support tool calls; documents will not change",
			"provider", info.Provider,
			"model", model,
		)
	}

	provider, err := providers.GetProvider(info.Provider)
	if err != nil {
		return nil, err
	}
	if !provider.SupportsModel(model) {
		return nil, fmt.Errorf("model '%s' is not supported by provider %s", model, provider.Name())
	}

	logger.Info("reflect turn configured",
		"provider", provider.Name(),
		"model", model,
		"adapter_timeout", cfg.AdapterTimeout.String(),
	)

	return NewTurnExecutor(provider, tools.BuildWithDefaults(nil), TurnConfig{
		Model:          model,
		MaxTokens:      cfg.MaxTokens,
		AdapterTimeout: cfg.AdapterTimeout,
	}, logger), nil
}
