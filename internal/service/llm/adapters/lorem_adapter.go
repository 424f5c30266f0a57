package adapters

import (
	"context"
	"fmt"

	llmprovider "github.com/haowjy/meridian-llm-go"
	"github.com/haowjy/meridian-llm-go/providers/lorem"

	domainllm "reflector/internal/domain/services/llm"
)

// LoremAdapter wraps the library's Lorem provider for offline development.
// It returns placeholder text and never requests tool calls, so reflect turns
// through it leave the document unchanged.
type LoremAdapter struct {
	provider llmprovider.Provider
}

// NewLoremAdapter creates a new Lorem adapter using the library's provider.
func NewLoremAdapter() *LoremAdapter {
	return NewLoremAdapterWithProvider(lorem.NewProvider())
}

// NewLoremAdapterWithProvider creates a new Lorem adapter from an existing provider.
func NewLoremAdapterWithProvider(provider llmprovider.Provider) *LoremAdapter {
	return &LoremAdapter{
		provider: provider,
	}
}

// Name returns the provider name.
func (a *LoremAdapter) Name() string {
	return a.provider.Name().String()
}

// SupportsModel returns true if this provider supports the given model.
func (a *LoremAdapter) SupportsModel(model string) bool {
	return a.provider.SupportsModel(model)
}

// GenerateResponse generates a response from the Lorem provider.
func (a *LoremAdapter) GenerateResponse(ctx context.Context, req *domainllm.GenerateRequest) (*domainllm.GenerateResponse, error) {
	libResp, err := a.provider.GenerateResponse(ctx, convertToLibraryRequest(req))
	if err != nil {
		return nil, fmt.Errorf("lorem generate: %w", err)
	}
	return convertFromLibraryResponse(libResp), nil
}
