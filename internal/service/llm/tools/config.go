package tools

import "reflector/internal/config"

// ToolConfig centralizes limits applied while validating tool calls.
type ToolConfig struct {
	// MaxContentLength bounds the content a single update_block call may write (runes).
	MaxContentLength int
}

// DefaultToolConfig returns the default tool configuration.
func DefaultToolConfig() *ToolConfig {
	return &ToolConfig{
		MaxContentLength: config.MaxBlockContentLength,
	}
}
