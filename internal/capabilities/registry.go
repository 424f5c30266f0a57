package capabilities

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed config/*.yaml
var configFiles embed.FS

// Registry holds model capabilities of every configured provider.
// It is loaded once at startup and read-only afterwards.
type Registry struct {
	providers map[string]*ProviderCapabilities
}

// NewRegistry creates a registry from the embedded YAML files, one file per provider
func NewRegistry() (*Registry, error) {
	return newRegistryFromFS(configFiles, "config")
}

func newRegistryFromFS(fsys fs.FS, dir string) (*Registry, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list capability files: %w", err)
	}

	r := &Registry{providers: make(map[string]*ProviderCapabilities)}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}
		if err := r.loadProviderFile(fsys, path.Join(dir, entry.Name())); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// loadProviderFile loads one provider's capability YAML file
func (r *Registry) loadProviderFile(fsys fs.FS, filename string) error {
	data, err := fs.ReadFile(fsys, filename)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", filename, err)
	}

	var providerCaps ProviderCapabilities
	if err := yaml.Unmarshal(data, &providerCaps); err != nil {
		return fmt.Errorf("failed to unmarshal %s: %w", filename, err)
	}
	if providerCaps.Provider == "" {
		providerCaps.Provider = strings.TrimSuffix(path.Base(filename), ".yaml")
	}

	r.providers[providerCaps.Provider] = &providerCaps
	return nil
}

// GetModelCapabilities returns capabilities for a specific model
func (r *Registry) GetModelCapabilities(provider, model string) (*ModelCapabilities, error) {
	providerCaps, ok := r.providers[provider]
	if !ok {
		return nil, fmt.Errorf("unknown provider: %s", provider)
	}

	for i := range providerCaps.Models {
		if providerCaps.Models[i].ID == model {
			return &providerCaps.Models[i], nil
		}
	}

	return nil, fmt.Errorf("unknown model %s for provider %s", model, provider)
}

// DefaultModel returns the first model listed for a provider
func (r *Registry) DefaultModel(provider string) (string, error) {
	providerCaps, ok := r.providers[provider]
	if !ok {
		return "", fmt.Errorf("unknown provider: %s", provider)
	}
	if len(providerCaps.Models) == 0 {
		return "", fmt.Errorf("no models listed for provider %s", provider)
	}
	return providerCaps.Models[0].ID, nil
}

// ListProviderModels returns all models for a provider (ordered as defined in YAML)
func (r *Registry) ListProviderModels(provider string) ([]ModelCapabilities, error) {
	providerCaps, ok := r.providers[provider]
	if !ok {
		return nil, fmt.Errorf("unknown provider: %s", provider)
	}

	return providerCaps.Models, nil
}

// GetAllProviders returns all registered providers, sorted by name
func (r *Registry) GetAllProviders() []string {
	providers := make([]string, 0, len(r.providers))
	for provider := range r.providers {
		providers = append(providers, provider)
	}
	sort.Strings(providers)
	return providers
}
