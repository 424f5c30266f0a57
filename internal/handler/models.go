package handler

import (
	"log/slog"
	"net/http"

	"reflector/internal/capabilities"
	"reflector/internal/config"
	"reflector/internal/httputil"
)

// ModelsHandler handles HTTP requests for model capabilities
type ModelsHandler struct {
	config   *config.Config
	logger   *slog.Logger
	registry *capabilities.Registry
}

// NewModelsHandler creates a new models handler
func NewModelsHandler(cfg *config.Config, logger *slog.Logger, registry *capabilities.Registry) *ModelsHandler {
	return &ModelsHandler{
		config:   cfg,
		logger:   logger,
		registry: registry,
	}
}

// ProviderResponse represents a provider with its models
type ProviderResponse struct {
	ID     string          `json:"id"`
	Models []ModelResponse `json:"models"`
}

// ModelResponse represents a model's capabilities for the API response
type ModelResponse struct {
	ID              string `json:"id"`
	DisplayName     string `json:"display_name"`
	ContextWindow   int    `json:"context_window"`
	MaxOutput       int    `json:"max_output"`
	SupportsTools   bool   `json:"supports_tools"`
	ToolCallQuality string `json:"tool_call_quality"`
}

// GetCapabilities returns model capabilities for all configured providers
// GET /api/models/capabilities
func (h *ModelsHandler) GetCapabilities(w http.ResponseWriter, r *http.Request) {
	providers := []ProviderResponse{}

	for _, provider := range h.registry.GetAllProviders() {
		if !h.configured(provider) {
			continue
		}
		models, err := h.registry.ListProviderModels(provider)
		if err != nil {
			h.logger.Warn("failed to list provider models", "provider", provider, "error", err)
			continue
		}
		providers = append(providers, convertProvider(provider, models))
	}

	httputil.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"default_provider": h.config.LLMProvider,
		"providers":        providers,
	})
}

// configured reports whether the provider has the credentials it needs
func (h *ModelsHandler) configured(provider string) bool {
	switch provider {
	case "anthropic":
		return h.config.AnthropicAPIKey != ""
	case "openai":
		return h.config.OpenAIBaseURL != ""
	default:
		return true
	}
}

// convertProvider converts capability registry data to API response format
func convertProvider(id string, models []capabilities.ModelCapabilities) ProviderResponse {
	out := make([]ModelResponse, 0, len(models))
	for _, m := range models {
		out = append(out, ModelResponse{
			ID:              m.ID,
			DisplayName:     m.DisplayName,
			ContextWindow:   m.ContextWindow,
			MaxOutput:       m.MaxOutput,
			SupportsTools:   m.SupportsTools,
			ToolCallQuality: string(m.ToolCallQuality),
		})
	}
	return ProviderResponse{ID: id, Models: out}
}
