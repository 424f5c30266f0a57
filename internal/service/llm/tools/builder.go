package tools

// ToolRegistryBuilder provides a fluent API for building tool registries.
// New capabilities are added as builder steps; existing registration does not change.
type ToolRegistryBuilder struct {
	caps   []Capability
	config *ToolConfig
}

// NewToolRegistryBuilder creates a new builder with default configuration.
func NewToolRegistryBuilder() *ToolRegistryBuilder {
	return &ToolRegistryBuilder{
		config: DefaultToolConfig(),
	}
}

// WithConfig sets custom tool configuration.
// If not called, defaults will be used.
func (b *ToolRegistryBuilder) WithConfig(config *ToolConfig) *ToolRegistryBuilder {
	if config != nil {
		b.config = config
	}
	return b
}

// WithEditorTools registers the editor mutation tools (update_block).
func (b *ToolRegistryBuilder) WithEditorTools() *ToolRegistryBuilder {
	b.caps = append(b.caps, NewUpdateBlockCapability(b.config))
	return b
}

// Build returns the constructed tool registry.
func (b *ToolRegistryBuilder) Build() *ToolRegistry {
	return NewToolRegistry(b.caps...)
}

// BuildWithDefaults builds the registry used by reflect turns.
// Equivalent to: NewToolRegistryBuilder().WithConfig(config).WithEditorTools().Build()
func BuildWithDefaults(config *ToolConfig) *ToolRegistry {
	return NewToolRegistryBuilder().
		WithConfig(config).
		WithEditorTools().
		Build()
}
